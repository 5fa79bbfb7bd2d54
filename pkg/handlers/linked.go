package handlers

import (
	"net/http"
	"time"

	"github.com/cOsMiCTr/famhub-backend/pkg/config"
	"github.com/cOsMiCTr/famhub-backend/pkg/middleware"
	"github.com/cOsMiCTr/famhub-backend/pkg/models"
	"github.com/cOsMiCTr/famhub-backend/pkg/services"
	"github.com/cOsMiCTr/famhub-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
)

// LinkedDataHandler exposes the read-only gateway over accepted
// connections. Only GET routes; the gateway never mutates.
type LinkedDataHandler struct {
	config *config.Config
	linked *services.LinkedDataService
}

func NewLinkedDataHandler(cfg *config.Config, linked *services.LinkedDataService) *LinkedDataHandler {
	return &LinkedDataHandler{config: cfg, linked: linked}
}

// GetLinkedExpenses returns the expenses shared through the connection,
// optionally filtered with ?from=2026-01-01&to=2026-12-31&category=rent.
func (h *LinkedDataHandler) GetLinkedExpenses(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	filter, err := parseExpenseFilter(r)
	if err != nil {
		utils.WriteValidationErrorResponse(w, "Invalid date filter", err.Error())
		return
	}

	expenses, err := h.linked.Expenses(user.ID, chi.URLParam(r, "connectionID"), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, expenses)
}

// GetLinkedIncome returns the income shared through the connection.
func (h *LinkedDataHandler) GetLinkedIncome(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	income, err := h.linked.Income(user.ID, chi.URLParam(r, "connectionID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, income)
}

// GetLinkedAssets returns the assets shared through the connection.
func (h *LinkedDataHandler) GetLinkedAssets(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	assets, err := h.linked.Assets(user.ID, chi.URLParam(r, "connectionID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, assets)
}

// GetLinkedSummary returns counts and per-currency totals for the three
// linked categories.
func (h *LinkedDataHandler) GetLinkedSummary(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	summary, err := h.linked.Summary(user.ID, chi.URLParam(r, "connectionID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, summary)
}

func parseExpenseFilter(r *http.Request) (models.ExpenseFilter, error) {
	var filter models.ExpenseFilter

	if raw := utils.GetQueryParam(r, "from", ""); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, err
		}
		filter.From = &t
	}
	if raw := utils.GetQueryParam(r, "to", ""); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, err
		}
		filter.To = &t
	}
	filter.Category = utils.GetQueryParam(r, "category", "")

	return filter, nil
}
