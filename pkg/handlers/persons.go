package handlers

import (
	"net/http"
	"strings"

	"github.com/cOsMiCTr/famhub-backend/pkg/config"
	"github.com/cOsMiCTr/famhub-backend/pkg/database"
	"github.com/cOsMiCTr/famhub-backend/pkg/middleware"
	"github.com/cOsMiCTr/famhub-backend/pkg/models"
	"github.com/cOsMiCTr/famhub-backend/pkg/services"
	"github.com/cOsMiCTr/famhub-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
)

// PersonHandler handles external person CRUD. Person reads carry a live
// invitability annotation computed from the current account registry,
// never cached.
type PersonHandler struct {
	config   *config.Config
	db       database.DatabaseInterface
	resolver *services.IdentityResolver
}

func NewPersonHandler(cfg *config.Config, db database.DatabaseInterface, resolver *services.IdentityResolver) *PersonHandler {
	return &PersonHandler{config: cfg, db: db, resolver: resolver}
}

// personView is an ExternalPerson plus the live resolution annotation.
type personView struct {
	models.ExternalPerson
	HasRegisteredAccount bool `json:"has_registered_account"`
}

func (h *PersonHandler) annotate(p *models.ExternalPerson) personView {
	view := personView{ExternalPerson: *p}
	if user, err := h.resolver.Resolve(p); err == nil && user != nil {
		view.HasRegisteredAccount = true
	}
	return view
}

// CreatePerson adds an external person to a household. Members only.
func (h *PersonHandler) CreatePerson(w http.ResponseWriter, r *http.Request) {
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

	var req struct {
		Name         string `json:"name"`
		Email        string `json:"email"`
		Relationship string `json:"relationship"`
		Notes        string `json:"notes"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		utils.WriteValidationErrorResponse(w, "Person name is required", "")
		return
	}

	person := &models.ExternalPerson{
		HouseholdID:  householdID,
		Name:         req.Name,
		Email:        strings.TrimSpace(req.Email),
		Relationship: strings.TrimSpace(req.Relationship),
		Notes:        req.Notes,
		CreatedBy:    user.ID,
	}
	if err := h.db.CreateExternalPerson(person); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to create person")
		return
	}
	utils.WriteCreatedResponse(w, h.annotate(person))
}

// ListPersons returns the household's external persons. Members only.
func (h *PersonHandler) ListPersons(w http.ResponseWriter, r *http.Request) {
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

	persons, err := h.db.ListExternalPersons(householdID)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to list persons")
		return
	}

	views := make([]personView, 0, len(persons))
	for i := range persons {
		views = append(views, h.annotate(&persons[i]))
	}
	utils.WriteSuccessResponse(w, views)
}

// GetPerson returns one external person with its live annotation.
func (h *PersonHandler) GetPerson(w http.ResponseWriter, r *http.Request) {
	_, person, ok := h.requirePersonAccess(w, r)
	if !ok {
		return
	}
	utils.WriteSuccessResponse(w, h.annotate(person))
}

// UpdatePerson changes the person's contact fields. Changing the email
// changes who a future invitation resolves to; existing connections are
// untouched.
func (h *PersonHandler) UpdatePerson(w http.ResponseWriter, r *http.Request) {
	_, person, ok := h.requirePersonAccess(w, r)
	if !ok {
		return
	}

	var req struct {
		Name         *string `json:"name"`
		Email        *string `json:"email"`
		Relationship *string `json:"relationship"`
		Notes        *string `json:"notes"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			utils.WriteValidationErrorResponse(w, "Person name cannot be empty", "")
			return
		}
		person.Name = name
	}
	if req.Email != nil {
		person.Email = strings.TrimSpace(*req.Email)
	}
	if req.Relationship != nil {
		person.Relationship = strings.TrimSpace(*req.Relationship)
	}
	if req.Notes != nil {
		person.Notes = *req.Notes
	}

	if err := h.db.UpdateExternalPerson(person); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to update person")
		return
	}
	utils.WriteSuccessResponse(w, h.annotate(person))
}

// DeletePerson removes the person. Refused while a pending or accepted
// connection still references them.
func (h *PersonHandler) DeletePerson(w http.ResponseWriter, r *http.Request) {
	_, person, ok := h.requirePersonAccess(w, r)
	if !ok {
		return
	}

	if err := h.db.DeleteExternalPerson(person.ID); err != nil {
		utils.WriteConflictResponse(w, "Person has an active connection; revoke it first")
		return
	}
	utils.WriteSuccessResponse(w, map[string]string{"message": "Person deleted"})
}

// requirePersonAccess loads the person and verifies household membership.
func (h *PersonHandler) requirePersonAccess(w http.ResponseWriter, r *http.Request) (*models.User, *models.ExternalPerson, bool) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return nil, nil, false
	}

	person, err := h.db.GetExternalPerson(chi.URLParam(r, "personID"))
	if err != nil {
		utils.WriteNotFoundResponse(w, "Person not found")
		return nil, nil, false
	}

	if ok, err := h.db.IsHouseholdMember(person.HouseholdID, user.ID); err != nil || !ok {
		utils.WriteForbiddenResponse(w, "You are not a member of this household")
		return nil, nil, false
	}

	return user, person, true
}
