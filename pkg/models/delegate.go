package models

import "time"

type DelegateStatus string

const (
    DelegatePending DelegateStatus = "pending"
    DelegateActive  DelegateStatus = "active"
)

// DelegateRecord binds a secondary user to a brand or creator profile.
// A record is created in pending state, addressed by email, and is activated
// exactly once when the invitee starts a session: delegate_user_id and
// accepted_at are set together with the pending -> active transition.
// Records are never deleted or moved back to pending by this service.
type DelegateRecord struct {
    ID             string         `json:"id" db:"id"`
    ProfileID      string         `json:"profile_id" db:"profile_id"`
    AccountType    AccountType    `json:"account_type" db:"account_type"`
    DelegateEmail  string         `json:"delegate_email" db:"delegate_email"`
    DelegateUserID *string        `json:"delegate_user_id,omitempty" db:"delegate_user_id"`
    Status         DelegateStatus `json:"status" db:"status"`
    AcceptedAt     *time.Time     `json:"accepted_at,omitempty" db:"accepted_at"`
    CreatedAt      time.Time      `json:"created_at" db:"created_at"`
    UpdatedAt      time.Time      `json:"updated_at" db:"updated_at"`
}

// IsActivated reports whether the invitation has already been claimed.
func (d *DelegateRecord) IsActivated() bool {
    return d.Status == DelegateActive
}
