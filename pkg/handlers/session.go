package handlers

import (
	"fmt"
	"net/http"

	"creator-market-backend/pkg/config"
	"creator-market-backend/pkg/database"
	"creator-market-backend/pkg/delegation"
	"creator-market-backend/pkg/middleware"
	"creator-market-backend/pkg/models"
	"creator-market-backend/pkg/utils"
)

// SessionHandler runs the session bootstrap: invitation linking followed by
// access resolution, in that order, so a delegate sees newly activated
// delegations in the same response.
type SessionHandler struct {
	config   *config.Config
	db       database.DatabaseInterface
	linker   *delegation.Linker
	resolver *delegation.Resolver
}

func NewSessionHandler(cfg *config.Config, db database.DatabaseInterface) *SessionHandler {
	return &SessionHandler{
		config:   cfg,
		db:       db,
		linker:   delegation.NewLinker(db),
		resolver: delegation.NewResolver(db),
	}
}

// ensureUserRecord makes sure the authenticated identity has a row in users.
// Best-effort: a failure here must not block the session.
func (h *SessionHandler) ensureUserRecord(user *models.User) {
	if existing, err := h.db.GetUserByEmail(user.Email); err == nil && existing != nil {
		return
	}
	u := &models.User{ID: user.ID, Email: user.Email}
	if err := h.db.CreateUser(u); err != nil {
		fmt.Printf("[warn] create user record failed for %s: %v\n", user.Email, err)
	}
}

// POST /api/session/start
func (h *SessionHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }

	h.ensureUserRecord(user)

	identity := delegation.Identity{UserID: user.ID, Email: user.Email}

	// Linking is best-effort and never fails the session.
	linked := h.linker.LinkPending(identity)

	// Resolution is not: an unreachable store must not look like "no access".
	access, err := h.resolver.Resolve(identity)
	if err != nil {
		fmt.Printf("[error] access resolution failed for %s: %v\n", user.ID, err)
		utils.WriteServiceUnavailableResponse(w, "ACCESS_RESOLUTION_FAILED",
			"Could not determine delegate access, try again shortly")
		return
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{
		"user":               user,
		"linked_invitations": linked,
		"profile_access":     delegation.Dedup(access),
	})
}
