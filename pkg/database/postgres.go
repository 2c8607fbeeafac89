package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"creator-market-backend/pkg/models"

	_ "github.com/lib/pq"
)

// PostgresDatabase PostgreSQL数据库实现
type PostgresDatabase struct {
	db *sql.DB
}

// NewPostgresDatabase 创建PostgreSQL数据库实例
func NewPostgresDatabase(dsn string) DatabaseInterface {
	// 尝试多种连接策略来解决 serverless Lambda 的IPv6问题
	// Sanitize DSN to avoid stray CR/LF from env values
	dsn = strings.TrimSpace(dsn)
	strategies := []string{
		addConnectionParams(dsn, "prefer_simple_protocol=true"),
		addConnectionParams(dsn, "prefer_simple_protocol=true&connect_timeout=10"),
		addConnectionParams(dsn, "sslmode=require&prefer_simple_protocol=true"),
		dsn, // 最后尝试原始DSN
	}

	var db *sql.DB
	var err error

	for i, strategy := range strategies {
		fmt.Printf("🔄 Trying connection strategy %d...\n", i+1)

		db, err = sql.Open("postgres", strategy)
		if err != nil {
			fmt.Printf("❌ Strategy %d failed to open: %v\n", i+1, err)
			continue
		}

		// 设置连接池参数，适合无服务器环境
		db.SetMaxOpenConns(5)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err = db.Ping(); err != nil {
			fmt.Printf("❌ Strategy %d failed to ping: %v\n", i+1, err)
			db.Close()
			continue
		}

		fmt.Printf("✅ PostgreSQL connection established successfully with strategy %d\n", i+1)
		return &PostgresDatabase{db: db}
	}

	panic(fmt.Sprintf("Failed to connect to PostgreSQL with all strategies. Last error: %v", err))
}

// addConnectionParams 添加连接参数到DSN
func addConnectionParams(dsn, params string) string {
	if params == "" {
		return dsn
	}

	separator := "?"
	if strings.Contains(dsn, "?") {
		separator = "&"
	}

	return dsn + separator + params
}

// ================= Users =================

// CreateUser 创建用户
func (db *PostgresDatabase) CreateUser(user *models.User) error {
	query := `
        INSERT INTO users (email, name, avatar, created_at, updated_at)
        VALUES (lower($1), $2, $3, NOW(), NOW())
        RETURNING id, created_at, updated_at
    `
	err := db.db.QueryRow(query, strings.TrimSpace(user.Email), user.Name, user.Avatar).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUserByEmail 根据邮箱获取用户
func (db *PostgresDatabase) GetUserByEmail(email string) (*models.User, error) {
	query := `
        SELECT id, email, COALESCE(name,''), COALESCE(avatar,''), created_at, updated_at
        FROM users
        WHERE email = lower($1)
    `
	var u models.User
	err := db.db.QueryRow(query, strings.TrimSpace(email)).Scan(
		&u.ID, &u.Email, &u.Name, &u.Avatar, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user not found")
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return &u, nil
}

// GetUserByID 根据ID获取用户
func (db *PostgresDatabase) GetUserByID(id string) (*models.User, error) {
	query := `
        SELECT id, email, COALESCE(name,''), COALESCE(avatar,''), created_at, updated_at
        FROM users
        WHERE id = $1
    `
	var u models.User
	err := db.db.QueryRow(query, id).Scan(
		&u.ID, &u.Email, &u.Name, &u.Avatar, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// ================= Profiles =================

func (db *PostgresDatabase) CreateProfile(p *models.Profile) error {
	query := `
        INSERT INTO profiles (name, account_type, owner_id, avatar, bio, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
        RETURNING id, created_at, updated_at
    `
	return db.db.QueryRow(query, p.Name, string(p.AccountType), p.OwnerID, p.Avatar, p.Bio).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

func (db *PostgresDatabase) GetProfile(id string) (*models.Profile, error) {
	query := `SELECT id, name, account_type, owner_id, COALESCE(avatar,''), COALESCE(bio,''), created_at, updated_at FROM profiles WHERE id = $1`
	var p models.Profile
	var accountType string
	err := db.db.QueryRow(query, id).Scan(&p.ID, &p.Name, &accountType, &p.OwnerID, &p.Avatar, &p.Bio, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("profile not found")
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	p.AccountType = models.AccountType(accountType)
	return &p, nil
}

func (db *PostgresDatabase) UpdateProfile(p *models.Profile) error {
	_, err := db.db.Exec(`
        UPDATE profiles
        SET name = COALESCE($1, name),
            avatar = COALESCE($2, avatar),
            bio = COALESCE($3, bio),
            updated_at = NOW()
        WHERE id = $4
    `, nullIfEmpty(p.Name), nullIfEmpty(p.Avatar), nullIfEmpty(p.Bio), p.ID)
	return err
}

func nullIfEmpty(s string) interface{} {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

func (db *PostgresDatabase) ListProfilesByOwner(ownerID string) ([]models.Profile, error) {
	query := `
        SELECT id, name, account_type, owner_id, COALESCE(avatar,''), COALESCE(bio,''), created_at, updated_at
        FROM profiles
        WHERE owner_id = $1
        ORDER BY created_at ASC
    `
	rows, err := db.db.Query(query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()
	var result []models.Profile
	for rows.Next() {
		var p models.Profile
		var accountType string
		if err := rows.Scan(&p.ID, &p.Name, &accountType, &p.OwnerID, &p.Avatar, &p.Bio, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.AccountType = models.AccountType(accountType)
		result = append(result, p)
	}
	return result, rows.Err()
}

// ================= Delegate records =================

func (db *PostgresDatabase) CreateDelegateInvitation(rec *models.DelegateRecord) error {
	query := `
        INSERT INTO delegate_records (profile_id, account_type, delegate_email, status, created_at, updated_at)
        VALUES ($1, $2, lower($3), 'pending', NOW(), NOW())
        RETURNING id, created_at, updated_at
    `
	err := db.db.QueryRow(query, rec.ProfileID, string(rec.AccountType), strings.TrimSpace(rec.DelegateEmail)).
		Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create delegate invitation: %w", err)
	}
	rec.Status = models.DelegatePending
	return nil
}

func (db *PostgresDatabase) ListPendingDelegateInvitations(email string) ([]models.DelegateRecord, error) {
	query := `
        SELECT id, profile_id, account_type, delegate_email, delegate_user_id, status, accepted_at, created_at, updated_at
        FROM delegate_records
        WHERE delegate_email = lower($1) AND status = 'pending'
        ORDER BY created_at ASC
    `
	rows, err := db.db.Query(query, strings.TrimSpace(email))
	if err != nil {
		return nil, fmt.Errorf("failed to list pending invitations: %w", err)
	}
	defer rows.Close()
	return scanDelegateRows(rows)
}

func (db *PostgresDatabase) ActivateDelegateInvitation(id, userID string, acceptedAt time.Time) error {
	// Conditional flip: the status guard makes a redundant activation attempt
	// (concurrent session, repeated session start) match zero rows, which is
	// not an error. accepted_at is therefore written exactly once.
	query := `
        UPDATE delegate_records
        SET status = 'active', delegate_user_id = $2, accepted_at = $3, updated_at = NOW()
        WHERE id = $1 AND status = 'pending'
    `
	_, err := db.db.Exec(query, id, userID, acceptedAt)
	if err != nil {
		return fmt.Errorf("failed to activate delegate invitation: %w", err)
	}
	return nil
}

func (db *PostgresDatabase) ListActiveDelegations(userID string) ([]models.DelegateRecord, error) {
	query := `
        SELECT id, profile_id, account_type, delegate_email, delegate_user_id, status, accepted_at, created_at, updated_at
        FROM delegate_records
        WHERE delegate_user_id = $1 AND status = 'active'
        ORDER BY accepted_at ASC
    `
	rows, err := db.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active delegations: %w", err)
	}
	defer rows.Close()
	return scanDelegateRows(rows)
}

func scanDelegateRows(rows *sql.Rows) ([]models.DelegateRecord, error) {
	var list []models.DelegateRecord
	for rows.Next() {
		var rec models.DelegateRecord
		var accountType, status string
		var delegateUserID sql.NullString
		var acceptedAt sql.NullTime
		if err := rows.Scan(&rec.ID, &rec.ProfileID, &accountType, &rec.DelegateEmail, &delegateUserID, &status, &acceptedAt, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		rec.AccountType = models.AccountType(accountType)
		rec.Status = models.DelegateStatus(status)
		if delegateUserID.Valid {
			uid := delegateUserID.String
			rec.DelegateUserID = &uid
		}
		if acceptedAt.Valid {
			ts := acceptedAt.Time
			rec.AcceptedAt = &ts
		}
		list = append(list, rec)
	}
	return list, rows.Err()
}

// HealthCheck 健康检查
func (db *PostgresDatabase) HealthCheck() error {
	return db.db.Ping()
}

// Close 关闭连接
func (db *PostgresDatabase) Close() error {
	return db.db.Close()
}
