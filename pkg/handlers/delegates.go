package handlers

import (
	"net/http"
	"strings"

	"creator-market-backend/pkg/config"
	"creator-market-backend/pkg/database"
	"creator-market-backend/pkg/delegation"
	"creator-market-backend/pkg/middleware"
	"creator-market-backend/pkg/models"
	"creator-market-backend/pkg/utils"
)

type DelegatesHandler struct {
	config   *config.Config
	db       database.DatabaseInterface
	resolver *delegation.Resolver
}

func NewDelegatesHandler(cfg *config.Config, db database.DatabaseInterface) *DelegatesHandler {
	return &DelegatesHandler{config: cfg, db: db, resolver: delegation.NewResolver(db)}
}

// GET /api/delegates/access
func (h *DelegatesHandler) GetMyAccess(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }

	access, err := h.resolver.Resolve(delegation.Identity{UserID: user.ID, Email: user.Email})
	if err != nil {
		utils.WriteServiceUnavailableResponse(w, "ACCESS_RESOLUTION_FAILED",
			"Could not determine delegate access, try again shortly")
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{
		"profile_access": delegation.Dedup(access),
	})
}

// GET /api/delegates/invitations
// Lists invitations still pending for the caller's email address.
func (h *DelegatesHandler) ListMyInvitations(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }

	email := strings.ToLower(strings.TrimSpace(user.Email))
	if email == "" {
		utils.WriteSuccessResponse(w, map[string]interface{}{"invitations": []models.DelegateRecord{}})
		return
	}
	invs, err := h.db.ListPendingDelegateInvitations(email)
	if err != nil { utils.WriteInternalServerErrorResponse(w, err.Error()); return }
	if invs == nil { invs = []models.DelegateRecord{} }
	utils.WriteSuccessResponse(w, map[string]interface{}{"invitations": invs})
}

// POST /api/delegates/invite
// Only the profile owner can invite. The record's account type is copied from
// the profile so later resolution does not have to join back to profiles.
func (h *DelegatesHandler) InviteDelegate(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }

	var req struct {
		ProfileID string `json:"profile_id"`
		Email     string `json:"email"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil { utils.WriteBadRequestResponse(w, "Invalid body"); return }
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if req.ProfileID == "" || email == "" { utils.WriteBadRequestResponse(w, "profile_id and email required"); return }

	profile, err := h.db.GetProfile(req.ProfileID)
	if err != nil { utils.WriteNotFoundResponse(w, "Profile not found"); return }
	if profile.OwnerID != user.ID {
		utils.WriteForbiddenResponse(w, "Only the profile owner can invite delegates")
		return
	}

	rec := &models.DelegateRecord{
		ProfileID:     profile.ID,
		AccountType:   profile.AccountType,
		DelegateEmail: email,
		Status:        models.DelegatePending,
	}
	if err := h.db.CreateDelegateInvitation(rec); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to create invitation: "+err.Error())
		return
	}
	utils.WriteCreatedResponse(w, map[string]interface{}{"invitation": rec})
}
