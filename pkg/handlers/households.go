package handlers

import (
	"net/http"
	"strings"

	"github.com/cOsMiCTr/famhub-backend/pkg/config"
	"github.com/cOsMiCTr/famhub-backend/pkg/database"
	"github.com/cOsMiCTr/famhub-backend/pkg/middleware"
	"github.com/cOsMiCTr/famhub-backend/pkg/models"
	"github.com/cOsMiCTr/famhub-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
)

// HouseholdHandler handles household and membership management.
type HouseholdHandler struct {
	config *config.Config
	db     database.DatabaseInterface
}

func NewHouseholdHandler(cfg *config.Config, db database.DatabaseInterface) *HouseholdHandler {
	return &HouseholdHandler{config: cfg, db: db}
}

// CreateHousehold creates a household owned by the caller.
func (h *HouseholdHandler) CreateHousehold(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	var req struct {
		Name     string `json:"name"`
		Currency string `json:"currency"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		utils.WriteValidationErrorResponse(w, "Household name is required", "")
		return
	}
	if req.Currency == "" {
		req.Currency = "EUR"
	}

	household := &models.Household{
		Name:     req.Name,
		OwnerID:  user.ID,
		Currency: req.Currency,
	}
	if err := h.db.CreateHousehold(household); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to create household")
		return
	}
	if err := h.db.AddHouseholdMember(&models.HouseholdMembership{
		HouseholdID: household.ID,
		UserID:      user.ID,
		Role:        models.HouseholdRoleOwner,
	}); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to create household")
		return
	}

	utils.WriteCreatedResponse(w, household)
}

// ListMyHouseholds returns every household the caller belongs to.
func (h *HouseholdHandler) ListMyHouseholds(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	households, err := h.db.ListUserHouseholds(user.ID)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to list households")
		return
	}
	utils.WriteSuccessResponse(w, households)
}

// GetHousehold returns one household; members only.
func (h *HouseholdHandler) GetHousehold(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	householdID := chi.URLParam(r, "householdID")
	if ok, err := h.db.IsHouseholdMember(householdID, user.ID); err != nil || !ok {
		utils.WriteForbiddenResponse(w, "You are not a member of this household")
		return
	}

	household, err := h.db.GetHousehold(householdID)
	if err != nil {
		utils.WriteNotFoundResponse(w, "Household not found")
		return
	}
	utils.WriteSuccessResponse(w, household)
}

// AddMember adds a registered user to the household. Owner only.
func (h *HouseholdHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	householdID := chi.URLParam(r, "householdID")
	household, err := h.db.GetHousehold(householdID)
	if err != nil {
		utils.WriteNotFoundResponse(w, "Household not found")
		return
	}
	if household.OwnerID != user.ID {
		utils.WriteForbiddenResponse(w, "Only the household owner can add members")
		return
	}

	var req struct {
		Email string `json:"email"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	member, err := h.db.FindUserByEmailFold(strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to look up user")
		return
	}
	if member == nil {
		utils.WriteNotFoundResponse(w, "No registered user with this email")
		return
	}

	if already, err := h.db.IsHouseholdMember(householdID, member.ID); err == nil && already {
		utils.WriteConflictResponse(w, "User is already a member of this household")
		return
	}

	membership := &models.HouseholdMembership{
		HouseholdID: householdID,
		UserID:      member.ID,
		Role:        models.HouseholdRoleMember,
	}
	if err := h.db.AddHouseholdMember(membership); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to add member")
		return
	}
	utils.WriteCreatedResponse(w, membership)
}

// ListMembers returns the household's memberships; members only.
func (h *HouseholdHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	householdID := chi.URLParam(r, "householdID")
	if ok, err := h.db.IsHouseholdMember(householdID, user.ID); err != nil || !ok {
		utils.WriteForbiddenResponse(w, "You are not a member of this household")
		return
	}

	members, err := h.db.ListHouseholdMembers(householdID)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to list members")
		return
	}
	utils.WriteSuccessResponse(w, members)
}
