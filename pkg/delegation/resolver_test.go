package delegation

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"creator-market-backend/pkg/database"
	"creator-market-backend/pkg/models"
)

func activateFor(t *testing.T, db *database.MemoryDatabase, rec *models.DelegateRecord, userID string) {
	t.Helper()
	if err := db.ActivateDelegateInvitation(rec.ID, userID, time.Now()); err != nil {
		t.Fatalf("activate %s: %v", rec.ID, err)
	}
}

func TestResolveUnauthenticatedIdentity(t *testing.T) {
	resolver := NewResolver(database.NewMemoryDatabase())
	access, err := resolver.Resolve(Identity{Email: "dana@example.com"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(access) != 0 {
		t.Errorf("Resolve = %v, want empty", access)
	}
}

func TestResolveNoDelegationsIsEmptyNotError(t *testing.T) {
	db := database.NewMemoryDatabase()
	seedInvitation(t, db, "profile-1", "dana@example.com", models.AccountTypeBrand) // still pending

	resolver := NewResolver(db)
	access, err := resolver.Resolve(Identity{UserID: "user-dana", Email: "dana@example.com"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(access) != 0 {
		t.Errorf("pending invitation must not grant access, got %v", access)
	}
}

func TestResolveReturnsActiveDelegations(t *testing.T) {
	db := database.NewMemoryDatabase()
	brand := seedInvitation(t, db, "profile-brand", "dana@example.com", models.AccountTypeBrand)
	creator := seedInvitation(t, db, "profile-creator", "dana@example.com", models.AccountTypeCreator)
	foreign := seedInvitation(t, db, "profile-x", "other@example.com", models.AccountTypeBrand)
	activateFor(t, db, brand, "user-dana")
	activateFor(t, db, creator, "user-dana")
	activateFor(t, db, foreign, "user-other")

	resolver := NewResolver(db)
	access, err := resolver.Resolve(Identity{UserID: "user-dana", Email: "dana@example.com"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(access) != 2 {
		t.Fatalf("Resolve returned %d entries, want 2: %v", len(access), access)
	}
	byProfile := map[string]models.AccountType{}
	for _, a := range access {
		byProfile[a.ProfileID] = a.AccountType
	}
	if byProfile["profile-brand"] != models.AccountTypeBrand {
		t.Errorf("profile-brand account type = %s", byProfile["profile-brand"])
	}
	if byProfile["profile-creator"] != models.AccountTypeCreator {
		t.Errorf("profile-creator account type = %s", byProfile["profile-creator"])
	}
}

func TestResolveStoreFailure(t *testing.T) {
	store := newFaultStore()
	store.activeErr = errors.New("dial tcp: connection refused")

	resolver := NewResolver(store)
	access, err := resolver.Resolve(Identity{UserID: "user-dana", Email: "dana@example.com"})
	if !errors.Is(err, ErrResolutionUnavailable) {
		t.Fatalf("Resolve error = %v, want ErrResolutionUnavailable", err)
	}
	if access != nil {
		t.Errorf("Resolve must not return a result set alongside an error, got %v", access)
	}
}

// fixedStore serves canned delegation rows, bypassing the invariants the
// in-memory store enforces on writes.
type fixedStore struct {
	*database.MemoryDatabase
	records []models.DelegateRecord
}

func (s *fixedStore) ListActiveDelegations(userID string) ([]models.DelegateRecord, error) {
	return s.records, nil
}

func TestResolveSkipsInconsistentRecords(t *testing.T) {
	userID := "user-dana"
	store := &fixedStore{
		MemoryDatabase: database.NewMemoryDatabase(),
		records: []models.DelegateRecord{
			{ID: "ok", ProfileID: "profile-1", AccountType: models.AccountTypeBrand, Status: models.DelegateActive, DelegateUserID: &userID},
			{ID: "no-binding", ProfileID: "profile-2", AccountType: models.AccountTypeBrand, Status: models.DelegateActive},
			{ID: "wrong-status", ProfileID: "profile-3", AccountType: models.AccountTypeCreator, Status: models.DelegatePending, DelegateUserID: &userID},
			{ID: "no-profile", AccountType: models.AccountTypeCreator, Status: models.DelegateActive, DelegateUserID: &userID},
		},
	}

	resolver := NewResolver(store)
	access, err := resolver.Resolve(Identity{UserID: userID, Email: "dana@example.com"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := []ProfileAccess{{ProfileID: "profile-1", AccountType: models.AccountTypeBrand}}
	if !reflect.DeepEqual(access, want) {
		t.Errorf("Resolve = %v, want %v", access, want)
	}
}

func TestResolveKeepsDuplicatesForCallersToDedup(t *testing.T) {
	userID := "user-dana"
	dup := models.DelegateRecord{ID: "dup", ProfileID: "profile-1", AccountType: models.AccountTypeBrand, Status: models.DelegateActive, DelegateUserID: &userID}
	store := &fixedStore{
		MemoryDatabase: database.NewMemoryDatabase(),
		records:        []models.DelegateRecord{dup, dup},
	}

	resolver := NewResolver(store)
	access, err := resolver.Resolve(Identity{UserID: userID, Email: "dana@example.com"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(access) != 2 {
		t.Fatalf("Resolve = %d entries, want raw duplicates preserved", len(access))
	}
	if got := Dedup(access); len(got) != 1 {
		t.Errorf("Dedup = %v, want single entry", got)
	}
}

func TestDedupPreservesOrder(t *testing.T) {
	in := []ProfileAccess{
		{ProfileID: "b", AccountType: models.AccountTypeBrand},
		{ProfileID: "a", AccountType: models.AccountTypeCreator},
		{ProfileID: "b", AccountType: models.AccountTypeBrand},
		{ProfileID: "a", AccountType: models.AccountTypeCreator},
	}
	want := []ProfileAccess{
		{ProfileID: "b", AccountType: models.AccountTypeBrand},
		{ProfileID: "a", AccountType: models.AccountTypeCreator},
	}
	if got := Dedup(in); !reflect.DeepEqual(got, want) {
		t.Errorf("Dedup = %v, want %v", got, want)
	}
}

func TestCanAccess(t *testing.T) {
	db := database.NewMemoryDatabase()
	inv := seedInvitation(t, db, "profile-1", "dana@example.com", models.AccountTypeBrand)
	activateFor(t, db, inv, "user-dana")

	resolver := NewResolver(db)
	identity := Identity{UserID: "user-dana", Email: "dana@example.com"}

	ok, err := resolver.CanAccess(identity, "profile-1")
	if err != nil || !ok {
		t.Errorf("CanAccess(profile-1) = %v, %v; want true, nil", ok, err)
	}
	ok, err = resolver.CanAccess(identity, "profile-2")
	if err != nil || ok {
		t.Errorf("CanAccess(profile-2) = %v, %v; want false, nil", ok, err)
	}
}

func TestCanAccessPropagatesResolverFailure(t *testing.T) {
	store := newFaultStore()
	store.activeErr = errors.New("store down")

	resolver := NewResolver(store)
	ok, err := resolver.CanAccess(Identity{UserID: "user-dana", Email: "dana@example.com"}, "profile-1")
	if ok {
		t.Errorf("CanAccess granted access during an outage")
	}
	if !errors.Is(err, ErrResolutionUnavailable) {
		t.Errorf("CanAccess error = %v, want ErrResolutionUnavailable", err)
	}
}
