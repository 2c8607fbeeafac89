package delegation

import (
	"errors"
	"fmt"

	"creator-market-backend/pkg/database"
	"creator-market-backend/pkg/models"
)

// ErrResolutionUnavailable marks a resolver failure. Callers must be able to
// tell "you have no delegated access" (empty set, nil error) apart from "we
// could not determine your delegated access" (this error), and deny access in
// the latter case. Returning an empty set on a store failure would let a
// consumer mistake an outage for an empty authorization set.
var ErrResolutionUnavailable = errors.New("delegate access resolution unavailable")

// Resolver computes the authorization set for an authenticated user: every
// (profile, account type) pair the user holds an active delegation for.
// Read-only; direct profile ownership is unioned in by callers.
type Resolver struct {
	db database.DatabaseInterface
}

func NewResolver(db database.DatabaseInterface) *Resolver {
	return &Resolver{db: db}
}

// Resolve returns the caller's active delegations. An unauthenticated
// identity (no user id) resolves to the empty set without error. A store
// failure is returned wrapped in ErrResolutionUnavailable, never masked as an
// empty result.
//
// Duplicate pairs may appear when the store holds duplicate active rows;
// callers deduplicate with Dedup. Inconsistent historical rows (wrong status,
// missing binding) are logged and skipped so resolution stays available.
func (r *Resolver) Resolve(identity Identity) ([]ProfileAccess, error) {
	if identity.UserID == "" {
		return nil, nil
	}

	records, err := r.db.ListActiveDelegations(identity.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResolutionUnavailable, err)
	}

	access := make([]ProfileAccess, 0, len(records))
	for _, rec := range records {
		if rec.Status != models.DelegateActive || rec.DelegateUserID == nil || rec.ProfileID == "" {
			fmt.Printf("[warn] inconsistent delegate record %s (status=%s), skipping\n", rec.ID, rec.Status)
			continue
		}
		access = append(access, ProfileAccess{
			ProfileID:   rec.ProfileID,
			AccountType: rec.AccountType,
		})
	}
	return access, nil
}

// CanAccess reports whether the identity holds an active delegation for the
// given profile. Errors propagate so callers fail closed rather than treating
// an outage as "no access granted" silently.
func (r *Resolver) CanAccess(identity Identity, profileID string) (bool, error) {
	access, err := r.Resolve(identity)
	if err != nil {
		return false, err
	}
	for _, a := range access {
		if a.ProfileID == profileID {
			return true, nil
		}
	}
	return false, nil
}
