package database

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"creator-market-backend/pkg/models"

	"github.com/google/uuid"
)

// MemoryDatabase is an in-memory DatabaseInterface implementation for local
// development and tests. It mirrors the SQL adapters' semantics, including
// lower-casing of delegate emails and the conditional pending->active flip.
type MemoryDatabase struct {
	mu        sync.RWMutex
	users     map[string]models.User
	profiles  map[string]models.Profile
	delegates map[string]models.DelegateRecord
}

// NewMemoryDatabase 创建内存数据库实例
func NewMemoryDatabase() *MemoryDatabase {
	return &MemoryDatabase{
		users:     make(map[string]models.User),
		profiles:  make(map[string]models.Profile),
		delegates: make(map[string]models.DelegateRecord),
	}
}

// ================= Users =================

func (m *MemoryDatabase) CreateUser(user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	email := strings.ToLower(strings.TrimSpace(user.Email))
	for _, u := range m.users {
		if u.Email == email {
			return fmt.Errorf("user already exists")
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.Email = email
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	m.users[user.ID] = *user
	return nil
}

func (m *MemoryDatabase) GetUserByEmail(email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range m.users {
		if u.Email == email {
			out := u
			return &out, nil
		}
	}
	return nil, fmt.Errorf("user not found")
}

func (m *MemoryDatabase) GetUserByID(id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if u, ok := m.users[id]; ok {
		out := u
		return &out, nil
	}
	return nil, fmt.Errorf("user not found")
}

// ================= Profiles =================

func (m *MemoryDatabase) CreateProfile(p *models.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	m.profiles[p.ID] = *p
	return nil
}

func (m *MemoryDatabase) GetProfile(id string) (*models.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.profiles[id]; ok {
		out := p
		return &out, nil
	}
	return nil, fmt.Errorf("profile not found")
}

func (m *MemoryDatabase) UpdateProfile(p *models.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.profiles[p.ID]
	if !ok {
		return fmt.Errorf("profile not found")
	}
	if strings.TrimSpace(p.Name) != "" {
		existing.Name = p.Name
	}
	if strings.TrimSpace(p.Avatar) != "" {
		existing.Avatar = p.Avatar
	}
	if strings.TrimSpace(p.Bio) != "" {
		existing.Bio = p.Bio
	}
	existing.UpdatedAt = time.Now()
	m.profiles[p.ID] = existing
	*p = existing
	return nil
}

func (m *MemoryDatabase) ListProfilesByOwner(ownerID string) ([]models.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []models.Profile
	for _, p := range m.profiles {
		if p.OwnerID == ownerID {
			result = append(result, p)
		}
	}
	return result, nil
}

// ================= Delegate records =================

func (m *MemoryDatabase) CreateDelegateInvitation(rec *models.DelegateRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.DelegateEmail = strings.ToLower(strings.TrimSpace(rec.DelegateEmail))
	rec.Status = models.DelegatePending
	rec.DelegateUserID = nil
	rec.AcceptedAt = nil
	rec.CreatedAt = time.Now()
	rec.UpdatedAt = rec.CreatedAt
	m.delegates[rec.ID] = *rec
	return nil
}

func (m *MemoryDatabase) ListPendingDelegateInvitations(email string) ([]models.DelegateRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	email = strings.ToLower(strings.TrimSpace(email))
	var result []models.DelegateRecord
	for _, rec := range m.delegates {
		if rec.DelegateEmail == email && rec.Status == models.DelegatePending {
			result = append(result, rec)
		}
	}
	return result, nil
}

func (m *MemoryDatabase) ActivateDelegateInvitation(id, userID string, acceptedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.delegates[id]
	if !ok {
		return fmt.Errorf("delegate record not found")
	}
	if rec.Status != models.DelegatePending {
		// Already activated by a concurrent session; converged, nothing to do.
		return nil
	}
	rec.Status = models.DelegateActive
	rec.DelegateUserID = &userID
	ts := acceptedAt
	rec.AcceptedAt = &ts
	rec.UpdatedAt = time.Now()
	m.delegates[id] = rec
	return nil
}

func (m *MemoryDatabase) ListActiveDelegations(userID string) ([]models.DelegateRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []models.DelegateRecord
	for _, rec := range m.delegates {
		if rec.Status == models.DelegateActive && rec.DelegateUserID != nil && *rec.DelegateUserID == userID {
			result = append(result, rec)
		}
	}
	return result, nil
}

// GetDelegateRecord returns a stored record by id. Test/debug helper; the
// service itself only uses the three query shapes above.
func (m *MemoryDatabase) GetDelegateRecord(id string) (*models.DelegateRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if rec, ok := m.delegates[id]; ok {
		out := rec
		return &out, nil
	}
	return nil, fmt.Errorf("delegate record not found")
}

// HealthCheck 健康检查
func (m *MemoryDatabase) HealthCheck() error {
	return nil
}

// Close 关闭连接
func (m *MemoryDatabase) Close() error {
	return nil
}
