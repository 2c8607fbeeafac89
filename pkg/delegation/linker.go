package delegation

import (
	"fmt"
	"strings"
	"time"

	"creator-market-backend/pkg/database"
)

// Linker activates pending delegate invitations at session start.
//
// Activation is best-effort and idempotent: the lookup only sees records still
// in pending state, each activation is an independent conditional update, and
// a failed activation is simply retried on the next session start because the
// record stays pending. Nothing here ever propagates an error upward; the
// session must proceed with whatever state exists.
type Linker struct {
	db database.DatabaseInterface
}

func NewLinker(db database.DatabaseInterface) *Linker {
	return &Linker{db: db}
}

// LinkPending activates every pending invitation addressed to the identity's
// email, binding the caller's user id and the acceptance time. Returns the
// number of invitations activated on this pass; callers use it for logging
// only, never for control flow.
//
// With no email on the identity there is nothing to match against, so the
// call is a no-op. Concurrent sessions may race on the same record; the
// store's conditional pending->active update makes the loser a no-op, so the
// final state converges to a single consistent active delegation.
func (l *Linker) LinkPending(identity Identity) int {
	if identity.UserID == "" || strings.TrimSpace(identity.Email) == "" {
		return 0
	}
	email := strings.ToLower(strings.TrimSpace(identity.Email))

	pending, err := l.db.ListPendingDelegateInvitations(email)
	if err != nil {
		// Self-healing: the records are still pending and will be picked up
		// on the next session start.
		fmt.Printf("[warn] list pending invitations failed for %s: %v\n", email, err)
		return 0
	}

	activated := 0
	for _, rec := range pending {
		if err := l.db.ActivateDelegateInvitation(rec.ID, identity.UserID, time.Now()); err != nil {
			// Partial success is an allowed outcome; keep going.
			fmt.Printf("[warn] activate invitation %s failed: %v\n", rec.ID, err)
			continue
		}
		activated++
	}
	return activated
}
