package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/cOsMiCTr/famhub-backend/pkg/config"
	"github.com/cOsMiCTr/famhub-backend/pkg/database"
	"github.com/cOsMiCTr/famhub-backend/pkg/middleware"
	"github.com/cOsMiCTr/famhub-backend/pkg/models"
	"github.com/cOsMiCTr/famhub-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// FinanceHandler handles household expenses, income, assets and the
// links that feed the linked-data gateway.
type FinanceHandler struct {
	config *config.Config
	db     database.DatabaseInterface
}

func NewFinanceHandler(cfg *config.Config, db database.DatabaseInterface) *FinanceHandler {
	return &FinanceHandler{config: cfg, db: db}
}

func (h *FinanceHandler) requireMember(w http.ResponseWriter, r *http.Request, householdID string) (*models.User, bool) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return nil, false
	}
	if ok, err := h.db.IsHouseholdMember(householdID, user.ID); err != nil || !ok {
		utils.WriteForbiddenResponse(w, "You are not a member of this household")
		return nil, false
	}
	return user, true
}

// CreateExpense records an expense in the household.
func (h *FinanceHandler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	householdID := chi.URLParam(r, "householdID")
	user, ok := h.requireMember(w, r, householdID)
	if !ok {
		return
	}

	var req struct {
		Title     string          `json:"title"`
		Category  string          `json:"category"`
		Amount    decimal.Decimal `json:"amount"`
		Currency  string          `json:"currency"`
		StartDate string          `json:"start_date"`
		EndDate   string          `json:"end_date"`
		AssetID   string          `json:"asset_id"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		utils.WriteValidationErrorResponse(w, "Title is required", "")
		return
	}
	if req.Amount.IsNegative() {
		utils.WriteValidationErrorResponse(w, "Amount cannot be negative", "")
		return
	}
	if req.Currency == "" {
		req.Currency = "EUR"
	}

	startDate := time.Now()
	if req.StartDate != "" {
		parsed, err := time.Parse("2006-01-02", req.StartDate)
		if err != nil {
			utils.WriteValidationErrorResponse(w, "Invalid start_date", req.StartDate)
			return
		}
		startDate = parsed
	}
	var endDate *time.Time
	if req.EndDate != "" {
		parsed, err := time.Parse("2006-01-02", req.EndDate)
		if err != nil {
			utils.WriteValidationErrorResponse(w, "Invalid end_date", req.EndDate)
			return
		}
		if parsed.Before(startDate) {
			utils.WriteValidationErrorResponse(w, "end_date cannot precede start_date", "")
			return
		}
		endDate = &parsed
	}

	expense := &models.Expense{
		HouseholdID: householdID,
		Title:       strings.TrimSpace(req.Title),
		Category:    strings.TrimSpace(req.Category),
		Amount:      req.Amount,
		Currency:    req.Currency,
		StartDate:   startDate,
		EndDate:     endDate,
		AssetID:     req.AssetID,
		CreatedBy:   user.ID,
	}
	if err := h.db.CreateExpense(expense); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to create expense")
		return
	}
	utils.WriteCreatedResponse(w, expense)
}

// ListExpenses returns the household's expenses.
func (h *FinanceHandler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	householdID := chi.URLParam(r, "householdID")
	if _, ok := h.requireMember(w, r, householdID); !ok {
		return
	}

	expenses, err := h.db.ListExpensesByHousehold(householdID)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to list expenses")
		return
	}
	utils.WriteSuccessResponse(w, expenses)
}

// LinkExpense tags an expense to an external person, feeding the
// linked-data gateway for any accepted connection on that person.
func (h *FinanceHandler) LinkExpense(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	personID := chi.URLParam(r, "personID")
	person, err := h.db.GetExternalPerson(personID)
	if err != nil {
		utils.WriteNotFoundResponse(w, "Person not found")
		return
	}
	if ok, err := h.db.IsHouseholdMember(person.HouseholdID, user.ID); err != nil || !ok {
		utils.WriteForbiddenResponse(w, "You are not a member of this household")
		return
	}

	if err := h.db.LinkExpenseToPerson(chi.URLParam(r, "expenseID"), personID); err != nil {
		utils.WriteNotFoundResponse(w, "Expense not found")
		return
	}
	utils.WriteSuccessResponse(w, map[string]string{"message": "Expense linked"})
}

// CreateIncome records household income. Income is never shareable
// through connections.
func (h *FinanceHandler) CreateIncome(w http.ResponseWriter, r *http.Request) {
	householdID := chi.URLParam(r, "householdID")
	user, ok := h.requireMember(w, r, householdID)
	if !ok {
		return
	}

	var req struct {
		Title      string          `json:"title"`
		Amount     decimal.Decimal `json:"amount"`
		Currency   string          `json:"currency"`
		ReceivedAt string          `json:"received_at"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		utils.WriteValidationErrorResponse(w, "Title is required", "")
		return
	}
	if req.Currency == "" {
		req.Currency = "EUR"
	}

	receivedAt := time.Now()
	if req.ReceivedAt != "" {
		parsed, err := time.Parse("2006-01-02", req.ReceivedAt)
		if err != nil {
			utils.WriteValidationErrorResponse(w, "Invalid received_at", req.ReceivedAt)
			return
		}
		receivedAt = parsed
	}

	income := &models.Income{
		HouseholdID: householdID,
		Title:       strings.TrimSpace(req.Title),
		Amount:      req.Amount,
		Currency:    req.Currency,
		ReceivedAt:  receivedAt,
		CreatedBy:   user.ID,
	}
	if err := h.db.CreateIncome(income); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to create income")
		return
	}
	utils.WriteCreatedResponse(w, income)
}

// ListIncome returns the household's income records.
func (h *FinanceHandler) ListIncome(w http.ResponseWriter, r *http.Request) {
	householdID := chi.URLParam(r, "householdID")
	if _, ok := h.requireMember(w, r, householdID); !ok {
		return
	}

	income, err := h.db.ListIncomeByHousehold(householdID)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to list income")
		return
	}
	utils.WriteSuccessResponse(w, income)
}

// CreateAsset records a household asset.
func (h *FinanceHandler) CreateAsset(w http.ResponseWriter, r *http.Request) {
	householdID := chi.URLParam(r, "householdID")
	user, ok := h.requireMember(w, r, householdID)
	if !ok {
		return
	}

	var req struct {
		Name     string          `json:"name"`
		Category string          `json:"category"`
		Value    decimal.Decimal `json:"value"`
		Currency string          `json:"currency"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		utils.WriteValidationErrorResponse(w, "Asset name is required", "")
		return
	}
	if req.Currency == "" {
		req.Currency = "EUR"
	}

	asset := &models.Asset{
		HouseholdID: householdID,
		Name:        strings.TrimSpace(req.Name),
		Category:    strings.TrimSpace(req.Category),
		Value:       req.Value,
		Currency:    req.Currency,
		CreatedBy:   user.ID,
	}
	if err := h.db.CreateAsset(asset); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to create asset")
		return
	}
	utils.WriteCreatedResponse(w, asset)
}

// ListAssets returns the household's assets.
func (h *FinanceHandler) ListAssets(w http.ResponseWriter, r *http.Request) {
	householdID := chi.URLParam(r, "householdID")
	if _, ok := h.requireMember(w, r, householdID); !ok {
		return
	}

	assets, err := h.db.ListAssetsByHousehold(householdID)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to list assets")
		return
	}
	utils.WriteSuccessResponse(w, assets)
}

// AddAssetOwnership records a fractional share of an asset held by a
// household or by an external person. Exactly one holder must be given.
func (h *FinanceHandler) AddAssetOwnership(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	var req struct {
		HouseholdID      string          `json:"household_id"`
		ExternalPersonID string          `json:"external_person_id"`
		Percentage       decimal.Decimal `json:"percentage"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}
	if (req.HouseholdID == "") == (req.ExternalPersonID == "") {
		utils.WriteValidationErrorResponse(w, "Provide exactly one of household_id or external_person_id", "")
		return
	}
	if req.Percentage.IsNegative() || req.Percentage.GreaterThan(decimal.NewFromInt(100)) {
		utils.WriteValidationErrorResponse(w, "Percentage must be between 0 and 100", "")
		return
	}

	// the caller must be a member of the asset's own household
	assets, err := h.db.GetAssetsByIDs([]string{chi.URLParam(r, "assetID")})
	if err != nil || len(assets) == 0 {
		utils.WriteNotFoundResponse(w, "Asset not found")
		return
	}
	if ok, err := h.db.IsHouseholdMember(assets[0].HouseholdID, user.ID); err != nil || !ok {
		utils.WriteForbiddenResponse(w, "You are not a member of this household")
		return
	}

	ownership := &models.AssetOwnership{
		AssetID:          assets[0].ID,
		HouseholdID:      req.HouseholdID,
		ExternalPersonID: req.ExternalPersonID,
		Percentage:       req.Percentage,
	}
	if err := h.db.AddAssetOwnership(ownership); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to record ownership")
		return
	}
	utils.WriteCreatedResponse(w, ownership)
}
