package database

import (
	"testing"
	"time"

	"creator-market-backend/pkg/models"
)

func newPendingRecord(t *testing.T, db *MemoryDatabase, email string) *models.DelegateRecord {
	t.Helper()
	rec := &models.DelegateRecord{
		ProfileID:     "profile-1",
		AccountType:   models.AccountTypeBrand,
		DelegateEmail: email,
	}
	if err := db.CreateDelegateInvitation(rec); err != nil {
		t.Fatalf("CreateDelegateInvitation: %v", err)
	}
	return rec
}

func TestMemoryCreateUserNormalizesEmail(t *testing.T) {
	db := NewMemoryDatabase()
	u := &models.User{Email: "  Dana@Example.COM "}
	if err := db.CreateUser(u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.Email != "dana@example.com" {
		t.Errorf("stored email = %q, want lower-cased", u.Email)
	}
	if u.ID == "" {
		t.Errorf("CreateUser did not assign an id")
	}

	got, err := db.GetUserByEmail("DANA@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if got.ID != u.ID {
		t.Errorf("lookup returned wrong user")
	}

	if err := db.CreateUser(&models.User{Email: "dana@example.com"}); err == nil {
		t.Errorf("duplicate email accepted")
	}
}

func TestMemoryCreateDelegateInvitationForcesPendingState(t *testing.T) {
	db := NewMemoryDatabase()
	userID := "sneaky"
	now := time.Now()
	rec := &models.DelegateRecord{
		ProfileID:      "profile-1",
		AccountType:    models.AccountTypeCreator,
		DelegateEmail:  "Dana@Example.com",
		Status:         models.DelegateActive,
		DelegateUserID: &userID,
		AcceptedAt:     &now,
	}
	if err := db.CreateDelegateInvitation(rec); err != nil {
		t.Fatalf("CreateDelegateInvitation: %v", err)
	}
	if rec.Status != models.DelegatePending {
		t.Errorf("status = %s, want pending", rec.Status)
	}
	if rec.DelegateUserID != nil || rec.AcceptedAt != nil {
		t.Errorf("binding fields must be empty on a fresh invitation")
	}
	if rec.DelegateEmail != "dana@example.com" {
		t.Errorf("email = %q, want lower-cased", rec.DelegateEmail)
	}
}

func TestMemoryListPendingDelegateInvitations(t *testing.T) {
	db := NewMemoryDatabase()
	pending := newPendingRecord(t, db, "dana@example.com")
	activated := newPendingRecord(t, db, "dana@example.com")
	newPendingRecord(t, db, "other@example.com")
	if err := db.ActivateDelegateInvitation(activated.ID, "user-1", time.Now()); err != nil {
		t.Fatalf("ActivateDelegateInvitation: %v", err)
	}

	got, err := db.ListPendingDelegateInvitations("DANA@EXAMPLE.COM")
	if err != nil {
		t.Fatalf("ListPendingDelegateInvitations: %v", err)
	}
	if len(got) != 1 || got[0].ID != pending.ID {
		t.Errorf("ListPendingDelegateInvitations = %v, want only %s", got, pending.ID)
	}
}

func TestMemoryActivateDelegateInvitationIsConditional(t *testing.T) {
	db := NewMemoryDatabase()
	rec := newPendingRecord(t, db, "dana@example.com")

	first := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	if err := db.ActivateDelegateInvitation(rec.ID, "user-1", first); err != nil {
		t.Fatalf("first activation: %v", err)
	}

	// A losing concurrent activation is a silent no-op.
	if err := db.ActivateDelegateInvitation(rec.ID, "user-2", time.Now()); err != nil {
		t.Fatalf("second activation should be a no-op, got %v", err)
	}

	got, err := db.GetDelegateRecord(rec.ID)
	if err != nil {
		t.Fatalf("GetDelegateRecord: %v", err)
	}
	if got.Status != models.DelegateActive {
		t.Errorf("status = %s, want active", got.Status)
	}
	if got.DelegateUserID == nil || *got.DelegateUserID != "user-1" {
		t.Errorf("delegate_user_id = %v, want the first winner", got.DelegateUserID)
	}
	if got.AcceptedAt == nil || !got.AcceptedAt.Equal(first) {
		t.Errorf("accepted_at = %v, want %v", got.AcceptedAt, first)
	}
}

func TestMemoryActivateUnknownRecord(t *testing.T) {
	db := NewMemoryDatabase()
	if err := db.ActivateDelegateInvitation("missing", "user-1", time.Now()); err == nil {
		t.Errorf("activating an unknown record should fail")
	}
}

func TestMemoryListActiveDelegations(t *testing.T) {
	db := NewMemoryDatabase()
	mine := newPendingRecord(t, db, "dana@example.com")
	theirs := newPendingRecord(t, db, "dana@example.com")
	newPendingRecord(t, db, "dana@example.com") // stays pending
	if err := db.ActivateDelegateInvitation(mine.ID, "user-1", time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := db.ActivateDelegateInvitation(theirs.ID, "user-2", time.Now()); err != nil {
		t.Fatal(err)
	}

	got, err := db.ListActiveDelegations("user-1")
	if err != nil {
		t.Fatalf("ListActiveDelegations: %v", err)
	}
	if len(got) != 1 || got[0].ID != mine.ID {
		t.Errorf("ListActiveDelegations = %v, want only %s", got, mine.ID)
	}
}

func TestMemoryUpdateProfilePatchesNonEmptyFields(t *testing.T) {
	db := NewMemoryDatabase()
	p := &models.Profile{Name: "Acme", AccountType: models.AccountTypeBrand, OwnerID: "user-1", Bio: "original"}
	if err := db.CreateProfile(p); err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}

	patch := &models.Profile{ID: p.ID, Name: "Acme Studios"}
	if err := db.UpdateProfile(patch); err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if patch.Name != "Acme Studios" {
		t.Errorf("name not updated")
	}
	if patch.Bio != "original" {
		t.Errorf("empty patch field overwrote bio: %q", patch.Bio)
	}
}

func TestMemoryValueCopyIsolation(t *testing.T) {
	db := NewMemoryDatabase()
	rec := newPendingRecord(t, db, "dana@example.com")

	got, _ := db.GetDelegateRecord(rec.ID)
	got.Status = models.DelegateActive

	again, _ := db.GetDelegateRecord(rec.ID)
	if again.Status != models.DelegatePending {
		t.Errorf("mutating a returned record leaked into the store")
	}
}
