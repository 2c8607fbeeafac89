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

	chiRoute "github.com/go-chi/chi/v5"
)

type ProfilesHandler struct {
	config   *config.Config
	db       database.DatabaseInterface
	resolver *delegation.Resolver
}

func NewProfilesHandler(cfg *config.Config, db database.DatabaseInterface) *ProfilesHandler {
	return &ProfilesHandler{config: cfg, db: db, resolver: delegation.NewResolver(db)}
}

// requireProfileAccess gates a request on ownership or an active delegation.
// A resolver failure is surfaced as 503, never as a silent deny-as-404.
func (h *ProfilesHandler) requireProfileAccess(w http.ResponseWriter, user *models.User, profile *models.Profile) bool {
	if profile.OwnerID == user.ID {
		return true
	}
	ok, err := h.resolver.CanAccess(delegation.Identity{UserID: user.ID, Email: user.Email}, profile.ID)
	if err != nil {
		utils.WriteServiceUnavailableResponse(w, "ACCESS_RESOLUTION_FAILED",
			"Could not determine delegate access, try again shortly")
		return false
	}
	if !ok {
		utils.WriteForbiddenResponse(w, "No access to this profile")
		return false
	}
	return true
}

// POST /api/profiles
func (h *ProfilesHandler) CreateProfile(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }

	var req struct {
		Name        string             `json:"name"`
		AccountType models.AccountType `json:"account_type"`
		Avatar      string             `json:"avatar"`
		Bio         string             `json:"bio"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil { utils.WriteBadRequestResponse(w, "Invalid body"); return }
	if strings.TrimSpace(req.Name) == "" { utils.WriteBadRequestResponse(w, "name required"); return }
	if !models.ValidAccountType(req.AccountType) {
		utils.WriteBadRequestResponse(w, "account_type must be brand or creator")
		return
	}

	profile := &models.Profile{
		Name:        strings.TrimSpace(req.Name),
		AccountType: req.AccountType,
		OwnerID:     user.ID,
		Avatar:      req.Avatar,
		Bio:         req.Bio,
	}
	if err := h.db.CreateProfile(profile); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to create profile: "+err.Error())
		return
	}
	utils.WriteCreatedResponse(w, map[string]interface{}{"profile": profile})
}

// GET /api/profiles
// Owned profiles plus profiles reachable through active delegations.
func (h *ProfilesHandler) ListMyProfiles(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }

	owned, err := h.db.ListProfilesByOwner(user.ID)
	if err != nil { utils.WriteInternalServerErrorResponse(w, err.Error()); return }

	access, err := h.resolver.Resolve(delegation.Identity{UserID: user.ID, Email: user.Email})
	if err != nil {
		utils.WriteServiceUnavailableResponse(w, "ACCESS_RESOLUTION_FAILED",
			"Could not determine delegate access, try again shortly")
		return
	}

	seen := make(map[string]bool, len(owned))
	profiles := make([]models.Profile, 0, len(owned))
	for _, p := range owned {
		seen[p.ID] = true
		profiles = append(profiles, p)
	}
	for _, a := range delegation.Dedup(access) {
		if seen[a.ProfileID] {
			continue
		}
		p, err := h.db.GetProfile(a.ProfileID)
		if err != nil {
			// Delegation points at a profile we cannot load; skip it rather
			// than failing the whole listing.
			continue
		}
		seen[p.ID] = true
		profiles = append(profiles, *p)
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{
		"profiles":       profiles,
		"profile_access": delegation.Dedup(access),
	})
}

// GET /api/profiles/{profileID}
func (h *ProfilesHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }

	profileID := chiRoute.URLParam(r, "profileID")
	if profileID == "" { utils.WriteBadRequestResponse(w, "profileID required"); return }

	profile, err := h.db.GetProfile(profileID)
	if err != nil { utils.WriteNotFoundResponse(w, "Profile not found"); return }

	if !h.requireProfileAccess(w, user, profile) { return }
	utils.WriteSuccessResponse(w, map[string]interface{}{"profile": profile})
}

// PUT /api/profiles/{profileID}
func (h *ProfilesHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }

	profileID := chiRoute.URLParam(r, "profileID")
	if profileID == "" { utils.WriteBadRequestResponse(w, "profileID required"); return }

	profile, err := h.db.GetProfile(profileID)
	if err != nil { utils.WriteNotFoundResponse(w, "Profile not found"); return }

	if !h.requireProfileAccess(w, user, profile) { return }

	var req struct {
		Name   string `json:"name"`
		Avatar string `json:"avatar"`
		Bio    string `json:"bio"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil { utils.WriteBadRequestResponse(w, "Invalid body"); return }

	if strings.TrimSpace(req.Name) != "" {
		profile.Name = strings.TrimSpace(req.Name)
	}
	if req.Avatar != "" {
		profile.Avatar = req.Avatar
	}
	if req.Bio != "" {
		profile.Bio = req.Bio
	}
	if err := h.db.UpdateProfile(profile); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to update profile: "+err.Error())
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"profile": profile})
}
