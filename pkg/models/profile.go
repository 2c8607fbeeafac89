package models

import "time"

type AccountType string

const (
    AccountTypeBrand   AccountType = "brand"
    AccountTypeCreator AccountType = "creator"
)

// ValidAccountType reports whether t is one of the two profile kinds.
func ValidAccountType(t AccountType) bool {
    return t == AccountTypeBrand || t == AccountTypeCreator
}

// Profile is a brand or creator presence on the marketplace.
// The owner manages it directly; additional users act on it through
// active DelegateRecords.
type Profile struct {
    ID          string      `json:"id" db:"id"`
    Name        string      `json:"name" db:"name"`
    AccountType AccountType `json:"account_type" db:"account_type"`
    OwnerID     string      `json:"owner_id" db:"owner_id"`
    Avatar      string      `json:"avatar,omitempty" db:"avatar"`
    Bio         string      `json:"bio,omitempty" db:"bio"`
    CreatedAt   time.Time   `json:"created_at" db:"created_at"`
    UpdatedAt   time.Time   `json:"updated_at" db:"updated_at"`
}
