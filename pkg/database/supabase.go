package database

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"creator-market-backend/pkg/models"
)

// SupabaseDatabase Supabase数据库实现
type SupabaseDatabase struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewSupabaseDatabase 创建Supabase数据库实例
func NewSupabaseDatabase(rawURL, key string) DatabaseInterface {
	// 确保URL格式正确
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "https://" + rawURL
	}

	return &SupabaseDatabase{
		baseURL: rawURL,
		apiKey:  key,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// makeRequest 发送HTTP请求到Supabase
func (db *SupabaseDatabase) makeRequest(method, endpoint string, body interface{}) ([]byte, error) {
	var reqBody io.Reader

	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	reqURL := db.baseURL + "/rest/v1" + endpoint
	req, err := http.NewRequest(method, reqURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// 设置请求头
	req.Header.Set("apikey", db.apiKey)
	req.Header.Set("Authorization", "Bearer "+db.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")

	resp, err := db.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

// ================= Users =================

// CreateUser 创建用户
func (db *SupabaseDatabase) CreateUser(user *models.User) error {
	payload := map[string]interface{}{
		"email":  strings.ToLower(strings.TrimSpace(user.Email)),
		"name":   user.Name,
		"avatar": user.Avatar,
	}
	data, err := db.makeRequest("POST", "/users", payload)
	if err != nil {
		return err
	}
	var rows []map[string]interface{}
	if err := json.Unmarshal(data, &rows); err == nil && len(rows) > 0 {
		if id, ok := rows[0]["id"].(string); ok {
			user.ID = id
		}
	}
	return nil
}

// GetUserByEmail 根据邮箱获取用户
func (db *SupabaseDatabase) GetUserByEmail(email string) (*models.User, error) {
	endpoint := fmt.Sprintf("/users?email=eq.%s&select=*", url.QueryEscape(strings.ToLower(strings.TrimSpace(email))))
	data, err := db.makeRequest("GET", endpoint, nil)
	if err != nil {
		return nil, err
	}
	var users []models.User
	if err := json.Unmarshal(data, &users); err != nil || len(users) == 0 {
		return nil, fmt.Errorf("user not found")
	}
	return &users[0], nil
}

// GetUserByID 根据ID获取用户
func (db *SupabaseDatabase) GetUserByID(id string) (*models.User, error) {
	endpoint := fmt.Sprintf("/users?id=eq.%s&select=*", url.QueryEscape(id))
	data, err := db.makeRequest("GET", endpoint, nil)
	if err != nil {
		return nil, err
	}
	var users []models.User
	if err := json.Unmarshal(data, &users); err != nil || len(users) == 0 {
		return nil, fmt.Errorf("user not found")
	}
	return &users[0], nil
}

// ================= Profiles =================

func (db *SupabaseDatabase) CreateProfile(p *models.Profile) error {
	payload := map[string]interface{}{
		"name":         p.Name,
		"account_type": string(p.AccountType),
		"owner_id":     p.OwnerID,
		"avatar":       p.Avatar,
		"bio":          p.Bio,
	}
	data, err := db.makeRequest("POST", "/profiles", payload)
	if err != nil {
		return err
	}
	var rows []map[string]interface{}
	if err := json.Unmarshal(data, &rows); err == nil && len(rows) > 0 {
		if id, ok := rows[0]["id"].(string); ok {
			p.ID = id
		}
	}
	return nil
}

func (db *SupabaseDatabase) GetProfile(id string) (*models.Profile, error) {
	data, err := db.makeRequest("GET", "/profiles?id=eq."+url.QueryEscape(id)+"&select=*", nil)
	if err != nil {
		return nil, err
	}
	var rows []models.Profile
	if err := json.Unmarshal(data, &rows); err != nil || len(rows) == 0 {
		return nil, fmt.Errorf("profile not found")
	}
	return &rows[0], nil
}

func (db *SupabaseDatabase) UpdateProfile(p *models.Profile) error {
	_, err := db.makeRequest("PATCH", "/profiles?id=eq."+url.QueryEscape(p.ID), map[string]interface{}{
		"name":       p.Name,
		"avatar":     p.Avatar,
		"bio":        p.Bio,
		"updated_at": time.Now().Format(time.RFC3339),
	})
	return err
}

func (db *SupabaseDatabase) ListProfilesByOwner(ownerID string) ([]models.Profile, error) {
	data, err := db.makeRequest("GET", "/profiles?owner_id=eq."+url.QueryEscape(ownerID)+"&select=*", nil)
	if err != nil {
		return nil, err
	}
	var rows []models.Profile
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// ================= Delegate records =================

func (db *SupabaseDatabase) CreateDelegateInvitation(rec *models.DelegateRecord) error {
	payload := map[string]interface{}{
		"profile_id":     rec.ProfileID,
		"account_type":   string(rec.AccountType),
		"delegate_email": strings.ToLower(strings.TrimSpace(rec.DelegateEmail)),
		"status":         string(models.DelegatePending),
	}
	data, err := db.makeRequest("POST", "/delegate_records", payload)
	if err != nil {
		return err
	}
	var rows []map[string]interface{}
	if err := json.Unmarshal(data, &rows); err == nil && len(rows) > 0 {
		if id, ok := rows[0]["id"].(string); ok {
			rec.ID = id
		}
	}
	rec.Status = models.DelegatePending
	return nil
}

func (db *SupabaseDatabase) ListPendingDelegateInvitations(email string) ([]models.DelegateRecord, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	endpoint := fmt.Sprintf("/delegate_records?delegate_email=eq.%s&status=eq.pending&select=*", url.QueryEscape(email))
	data, err := db.makeRequest("GET", endpoint, nil)
	if err != nil {
		return nil, err
	}
	var rows []models.DelegateRecord
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (db *SupabaseDatabase) ActivateDelegateInvitation(id, userID string, acceptedAt time.Time) error {
	// Conditional PATCH: the status filter makes the pending->active flip a
	// no-op when a concurrent session already claimed the record. Zero rows
	// in the representation is therefore a success.
	endpoint := fmt.Sprintf("/delegate_records?id=eq.%s&status=eq.pending", url.QueryEscape(id))
	_, err := db.makeRequest("PATCH", endpoint, map[string]interface{}{
		"status":           string(models.DelegateActive),
		"delegate_user_id": userID,
		"accepted_at":      acceptedAt.Format(time.RFC3339),
		"updated_at":       time.Now().Format(time.RFC3339),
	})
	return err
}

func (db *SupabaseDatabase) ListActiveDelegations(userID string) ([]models.DelegateRecord, error) {
	endpoint := fmt.Sprintf("/delegate_records?delegate_user_id=eq.%s&status=eq.active&select=*", url.QueryEscape(userID))
	data, err := db.makeRequest("GET", endpoint, nil)
	if err != nil {
		return nil, err
	}
	var rows []models.DelegateRecord
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// HealthCheck 健康检查
func (db *SupabaseDatabase) HealthCheck() error {
	_, err := db.makeRequest("GET", "/", nil)
	return err
}

// Close 关闭连接
func (db *SupabaseDatabase) Close() error {
	// HTTP客户端无需显式关闭
	return nil
}
