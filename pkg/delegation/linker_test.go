package delegation

import (
	"errors"
	"sync"
	"testing"
	"time"

	"creator-market-backend/pkg/database"
	"creator-market-backend/pkg/models"
)

// faultStore wraps the in-memory store with injectable failures so tests can
// exercise the partial-failure and outage paths.
type faultStore struct {
	*database.MemoryDatabase
	listPendingErr error
	activeErr      error
	failActivate   map[string]bool
}

func newFaultStore() *faultStore {
	return &faultStore{
		MemoryDatabase: database.NewMemoryDatabase(),
		failActivate:   make(map[string]bool),
	}
}

func (s *faultStore) ListPendingDelegateInvitations(email string) ([]models.DelegateRecord, error) {
	if s.listPendingErr != nil {
		return nil, s.listPendingErr
	}
	return s.MemoryDatabase.ListPendingDelegateInvitations(email)
}

func (s *faultStore) ActivateDelegateInvitation(id, userID string, acceptedAt time.Time) error {
	if s.failActivate[id] {
		return errors.New("connection reset by peer")
	}
	return s.MemoryDatabase.ActivateDelegateInvitation(id, userID, acceptedAt)
}

func (s *faultStore) ListActiveDelegations(userID string) ([]models.DelegateRecord, error) {
	if s.activeErr != nil {
		return nil, s.activeErr
	}
	return s.MemoryDatabase.ListActiveDelegations(userID)
}

func seedInvitation(t *testing.T, db *database.MemoryDatabase, profileID, email string, accountType models.AccountType) *models.DelegateRecord {
	t.Helper()
	rec := &models.DelegateRecord{
		ProfileID:     profileID,
		AccountType:   accountType,
		DelegateEmail: email,
	}
	if err := db.CreateDelegateInvitation(rec); err != nil {
		t.Fatalf("seed invitation: %v", err)
	}
	return rec
}

func TestLinkPendingActivatesMatchingInvitations(t *testing.T) {
	db := database.NewMemoryDatabase()
	inv1 := seedInvitation(t, db, "profile-1", "dana@example.com", models.AccountTypeBrand)
	inv2 := seedInvitation(t, db, "profile-2", "dana@example.com", models.AccountTypeCreator)
	other := seedInvitation(t, db, "profile-3", "someone-else@example.com", models.AccountTypeBrand)

	linker := NewLinker(db)
	got := linker.LinkPending(Identity{UserID: "user-dana", Email: "dana@example.com"})
	if got != 2 {
		t.Fatalf("LinkPending = %d, want 2", got)
	}

	for _, id := range []string{inv1.ID, inv2.ID} {
		rec, err := db.GetDelegateRecord(id)
		if err != nil {
			t.Fatalf("GetDelegateRecord(%s): %v", id, err)
		}
		if rec.Status != models.DelegateActive {
			t.Errorf("record %s status = %s, want active", id, rec.Status)
		}
		if rec.DelegateUserID == nil || *rec.DelegateUserID != "user-dana" {
			t.Errorf("record %s delegate_user_id = %v, want user-dana", id, rec.DelegateUserID)
		}
		if rec.AcceptedAt == nil {
			t.Errorf("record %s accepted_at not set", id)
		}
	}

	rec, _ := db.GetDelegateRecord(other.ID)
	if rec.Status != models.DelegatePending {
		t.Errorf("unrelated invitation was activated")
	}
}

func TestLinkPendingIsIdempotent(t *testing.T) {
	db := database.NewMemoryDatabase()
	inv := seedInvitation(t, db, "profile-1", "dana@example.com", models.AccountTypeBrand)

	linker := NewLinker(db)
	identity := Identity{UserID: "user-dana", Email: "dana@example.com"}

	if got := linker.LinkPending(identity); got != 1 {
		t.Fatalf("first LinkPending = %d, want 1", got)
	}
	first, _ := db.GetDelegateRecord(inv.ID)

	if got := linker.LinkPending(identity); got != 0 {
		t.Fatalf("second LinkPending = %d, want 0", got)
	}
	second, _ := db.GetDelegateRecord(inv.ID)

	if !second.AcceptedAt.Equal(*first.AcceptedAt) {
		t.Errorf("accepted_at changed on repeat linking: %v -> %v", first.AcceptedAt, second.AcceptedAt)
	}
	if *second.DelegateUserID != *first.DelegateUserID {
		t.Errorf("delegate_user_id changed on repeat linking")
	}
}

func TestLinkPendingMatchesEmailCaseInsensitively(t *testing.T) {
	db := database.NewMemoryDatabase()
	inv := seedInvitation(t, db, "profile-1", "Dana@Example.COM", models.AccountTypeCreator)

	linker := NewLinker(db)
	if got := linker.LinkPending(Identity{UserID: "user-dana", Email: "  dana@EXAMPLE.com "}); got != 1 {
		t.Fatalf("LinkPending = %d, want 1", got)
	}
	rec, _ := db.GetDelegateRecord(inv.ID)
	if rec.Status != models.DelegateActive {
		t.Errorf("invitation with mixed-case email was not activated")
	}
}

func TestLinkPendingNoMatchingInvitations(t *testing.T) {
	db := database.NewMemoryDatabase()
	seedInvitation(t, db, "profile-1", "other@example.com", models.AccountTypeBrand)

	linker := NewLinker(db)
	if got := linker.LinkPending(Identity{UserID: "user-dana", Email: "dana@example.com"}); got != 0 {
		t.Fatalf("LinkPending = %d, want 0", got)
	}
}

func TestLinkPendingIncompleteIdentity(t *testing.T) {
	db := database.NewMemoryDatabase()
	seedInvitation(t, db, "profile-1", "dana@example.com", models.AccountTypeBrand)
	linker := NewLinker(db)

	if got := linker.LinkPending(Identity{UserID: "user-dana"}); got != 0 {
		t.Errorf("LinkPending without email = %d, want 0", got)
	}
	if got := linker.LinkPending(Identity{Email: "dana@example.com"}); got != 0 {
		t.Errorf("LinkPending without user id = %d, want 0", got)
	}
}

func TestLinkPendingListFailureIsSilent(t *testing.T) {
	store := newFaultStore()
	inv := seedInvitation(t, store.MemoryDatabase, "profile-1", "dana@example.com", models.AccountTypeBrand)
	store.listPendingErr = errors.New("store unavailable")

	linker := NewLinker(store)
	if got := linker.LinkPending(Identity{UserID: "user-dana", Email: "dana@example.com"}); got != 0 {
		t.Fatalf("LinkPending = %d, want 0", got)
	}

	// Record stays pending and is picked up once the store recovers.
	store.listPendingErr = nil
	if got := linker.LinkPending(Identity{UserID: "user-dana", Email: "dana@example.com"}); got != 1 {
		t.Fatalf("LinkPending after recovery = %d, want 1", got)
	}
	rec, _ := store.GetDelegateRecord(inv.ID)
	if rec.Status != models.DelegateActive {
		t.Errorf("record not activated after recovery")
	}
}

func TestLinkPendingPartialFailure(t *testing.T) {
	store := newFaultStore()
	ok := seedInvitation(t, store.MemoryDatabase, "profile-1", "dana@example.com", models.AccountTypeBrand)
	bad := seedInvitation(t, store.MemoryDatabase, "profile-2", "dana@example.com", models.AccountTypeCreator)
	store.failActivate[bad.ID] = true

	linker := NewLinker(store)
	identity := Identity{UserID: "user-dana", Email: "dana@example.com"}

	if got := linker.LinkPending(identity); got != 1 {
		t.Fatalf("LinkPending = %d, want 1", got)
	}
	okRec, _ := store.GetDelegateRecord(ok.ID)
	if okRec.Status != models.DelegateActive {
		t.Errorf("healthy invitation should be active despite sibling failure")
	}
	badRec, _ := store.GetDelegateRecord(bad.ID)
	if badRec.Status != models.DelegatePending {
		t.Errorf("failed invitation should stay pending")
	}

	// Next session retries the one that failed.
	delete(store.failActivate, bad.ID)
	if got := linker.LinkPending(identity); got != 1 {
		t.Fatalf("retry LinkPending = %d, want 1", got)
	}
}

func TestLinkPendingConcurrentSessionsConverge(t *testing.T) {
	db := database.NewMemoryDatabase()
	inv := seedInvitation(t, db, "profile-1", "dana@example.com", models.AccountTypeBrand)

	linker := NewLinker(db)
	identity := Identity{UserID: "user-dana", Email: "dana@example.com"}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			linker.LinkPending(identity)
		}()
	}
	wg.Wait()

	rec, err := db.GetDelegateRecord(inv.ID)
	if err != nil {
		t.Fatalf("GetDelegateRecord: %v", err)
	}
	if rec.Status != models.DelegateActive {
		t.Fatalf("record status = %s, want active", rec.Status)
	}
	if rec.DelegateUserID == nil || *rec.DelegateUserID != "user-dana" {
		t.Errorf("delegate_user_id = %v, want user-dana", rec.DelegateUserID)
	}
	if rec.AcceptedAt == nil {
		t.Errorf("accepted_at not set")
	}
}

func TestLinkThenResolveSeesNewDelegations(t *testing.T) {
	db := database.NewMemoryDatabase()
	seedInvitation(t, db, "profile-1", "dana@example.com", models.AccountTypeBrand)

	identity := Identity{UserID: "user-dana", Email: "dana@example.com"}
	linker := NewLinker(db)
	resolver := NewResolver(db)

	if got := linker.LinkPending(identity); got != 1 {
		t.Fatalf("LinkPending = %d, want 1", got)
	}
	access, err := resolver.Resolve(identity)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(access) != 1 {
		t.Fatalf("Resolve returned %d entries, want 1", len(access))
	}
	if access[0].ProfileID != "profile-1" || access[0].AccountType != models.AccountTypeBrand {
		t.Errorf("Resolve = %+v, want profile-1/brand", access[0])
	}
}
