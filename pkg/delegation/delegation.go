// Package delegation implements delegate access: the rules by which a pending
// email invitation becomes an active delegation, and the lookup of which
// profiles a user may act on behalf of.
//
// Both components take the authenticated identity as an explicit parameter
// rather than reading ambient session state, so they can be driven with
// synthetic identities in tests. On every session start they run in order:
// Linker first (activate newly matching invitations), Resolver second (read
// the now-current set of active delegations).
package delegation

import "creator-market-backend/pkg/models"

// Identity is the already-authenticated fact supplied by the identity
// provider: a stable user id and, when known, the login email. Email may be
// empty (some providers do not share it), in which case invitation linking
// has nothing to match against.
type Identity struct {
	UserID string
	Email  string
}

// ProfileAccess is one element of a user's authorization set: a profile the
// user may act on behalf of, and which kind of profile it is.
type ProfileAccess struct {
	ProfileID   string             `json:"profile_id"`
	AccountType models.AccountType `json:"account_type"`
}

// Dedup collapses duplicate (profile, account type) pairs, preserving first
// occurrence order. Duplicate active rows for the same user/profile pair are
// tolerated in the store; consumers of the authorization set treat it as a
// set, so they deduplicate here.
func Dedup(access []ProfileAccess) []ProfileAccess {
	if len(access) < 2 {
		return access
	}
	seen := make(map[ProfileAccess]bool, len(access))
	out := make([]ProfileAccess, 0, len(access))
	for _, a := range access {
		if seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	return out
}
