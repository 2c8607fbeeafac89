package database

import (
	"fmt"
	"os"
	"time"

	"creator-market-backend/pkg/models"
)

// DatabaseInterface is the data-access surface the rest of the service
// depends on. Three implementations exist: Supabase REST, PostgreSQL and an
// in-memory store for local development and tests.
type DatabaseInterface interface {
	// Users
	CreateUser(user *models.User) error
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)

	// Profiles
	CreateProfile(p *models.Profile) error
	GetProfile(id string) (*models.Profile, error)
	UpdateProfile(p *models.Profile) error
	ListProfilesByOwner(ownerID string) ([]models.Profile, error)

	// Delegate records. Email is matched case-insensitively: implementations
	// lower-case delegate_email on every read and write.
	CreateDelegateInvitation(rec *models.DelegateRecord) error
	ListPendingDelegateInvitations(email string) ([]models.DelegateRecord, error)
	// ActivateDelegateInvitation flips a single record from pending to active,
	// binding the user id and acceptance time. The update is conditional on
	// status = 'pending'; matching zero rows is a success (a concurrent
	// session already activated the record), which keeps redundant activation
	// attempts convergent.
	ActivateDelegateInvitation(id, userID string, acceptedAt time.Time) error
	ListActiveDelegations(userID string) ([]models.DelegateRecord, error)

	HealthCheck() error
	Close() error
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	UseMemoryDB bool
	PostgresDSN string
	SupabaseURL string
	SupabaseKey string
	Debug       bool
}

// NewDatabase selects a database implementation from config and environment.
func NewDatabase(config DatabaseConfig) DatabaseInterface {
	if isServerlessEnvironment() {
		fmt.Printf("🧭 Detected serverless production environment\n")

		// Serverless prefers Supabase REST (avoids IPv6 issues with direct PG)
		if config.SupabaseURL != "" && config.SupabaseKey != "" {
			fmt.Printf("🚀  Using Supabase REST API (serverless optimized)\n")
			return NewSupabaseDatabase(config.SupabaseURL, config.SupabaseKey)
		}

		if config.PostgresDSN != "" {
			fmt.Printf("🌐  Using PostgreSQL in serverless (may have IPv6 issues)\n")
			return NewPostgresDatabase(config.PostgresDSN)
		}

		panic("No valid database configured for serverless environment. Please set SUPABASE_URL+SUPABASE_SERVICE_KEY or POSTGRES_DSN")
	}

	// Local/self-hosted: PostgreSQL > Supabase > in-memory
	if config.PostgresDSN != "" {
		fmt.Printf("🗄️  Using PostgreSQL database\n")
		return NewPostgresDatabase(config.PostgresDSN)
	}

	if config.SupabaseURL != "" && config.SupabaseKey != "" {
		fmt.Printf("🧰  Using Supabase REST API\n")
		return NewSupabaseDatabase(config.SupabaseURL, config.SupabaseKey)
	}

	if config.UseMemoryDB {
		fmt.Printf("🧪  Using in-memory database (development only)\n")
		return NewMemoryDatabase()
	}

	panic("No valid database configuration found. Please configure POSTGRES_DSN or SUPABASE_URL+SUPABASE_SERVICE_KEY, or set USE_MEMORY_DB=true for development")
}

// isServerlessEnvironment 内部检查 Vercel/Lambda 环境
func isServerlessEnvironment() bool {
	vercelEnv := os.Getenv("VERCEL_ENV")
	vercelURL := os.Getenv("VERCEL_URL")
	awsLambda := os.Getenv("AWS_LAMBDA_FUNCTION_NAME")
	return vercelEnv != "" || vercelURL != "" || awsLambda != ""
}

// IsServerlessEnvironment exposes the environment check to callers (debug endpoints).
func IsServerlessEnvironment() bool {
	return isServerlessEnvironment()
}
