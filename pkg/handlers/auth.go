package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/cOsMiCTr/famhub-backend/pkg/config"
	"github.com/cOsMiCTr/famhub-backend/pkg/database"
	"github.com/cOsMiCTr/famhub-backend/pkg/middleware"
	"github.com/cOsMiCTr/famhub-backend/pkg/models"
	"github.com/cOsMiCTr/famhub-backend/pkg/utils"

	"golang.org/x/crypto/bcrypt"
)

// AuthHandler handles registration, login and token refresh.
type AuthHandler struct {
	config     *config.Config
	db         database.DatabaseInterface
	jwtService *utils.JWTService
}

func NewAuthHandler(cfg *config.Config, db database.DatabaseInterface) *AuthHandler {
	return &AuthHandler{
		config:     cfg,
		db:         db,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
	}
}

// Register creates an account plus a personal household the user owns.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.UserRegisterRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		utils.WriteValidationErrorResponse(w, "A valid email is required", "")
		return
	}
	if len(req.Password) < 8 {
		utils.WriteValidationErrorResponse(w, "Password must be at least 8 characters", "")
		return
	}

	if existing, err := h.db.FindUserByEmailFold(req.Email); err == nil && existing != nil {
		utils.WriteConflictResponse(w, "Email already registered")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to process password")
		return
	}

	user := &models.User{
		Email:    req.Email,
		Password: string(hash),
		Name:     strings.TrimSpace(req.Name),
	}
	if err := h.db.CreateUser(user); err != nil {
		fmt.Printf("❌ Failed to create user: %v\n", err)
		utils.WriteConflictResponse(w, "Email already registered")
		return
	}

	household := &models.Household{
		Name:     defaultHouseholdName(user),
		OwnerID:  user.ID,
		Currency: "EUR",
	}
	if err := h.db.CreateHousehold(household); err != nil {
		fmt.Printf("❌ Failed to create default household: %v\n", err)
		utils.WriteInternalServerErrorResponse(w, "Failed to create household")
		return
	}
	if err := h.db.AddHouseholdMember(&models.HouseholdMembership{
		HouseholdID: household.ID,
		UserID:      user.ID,
		Role:        models.HouseholdRoleOwner,
	}); err != nil {
		fmt.Printf("❌ Failed to add household owner: %v\n", err)
		utils.WriteInternalServerErrorResponse(w, "Failed to create household")
		return
	}

	accessToken, refreshToken, expiresIn, err := h.jwtService.GenerateTokenPair(user.ID, user.Email)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to generate tokens")
		return
	}

	utils.WriteCreatedResponse(w, models.UserLoginResponse{
		User:         *user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    expiresIn,
		HouseholdID:  household.ID,
	})
}

// Login authenticates with email and password.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.UserLoginRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	resolved, err := h.db.FindUserByEmailFold(req.Email)
	if err != nil || resolved == nil {
		utils.WriteUnauthorizedResponse(w, "Invalid email or password")
		return
	}

	// the fold lookup never carries the credential; load the full row
	user, err := h.db.GetUserByEmail(resolved.Email)
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Invalid email or password")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		utils.WriteUnauthorizedResponse(w, "Invalid email or password")
		return
	}

	accessToken, refreshToken, expiresIn, err := h.jwtService.GenerateTokenPair(user.ID, user.Email)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to generate tokens")
		return
	}

	resp := models.UserLoginResponse{
		User:         *user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    expiresIn,
	}
	if households, err := h.db.ListUserHouseholds(user.ID); err == nil && len(households) > 0 {
		resp.HouseholdID = households[0].ID
	}

	utils.WriteSuccessResponse(w, resp)
}

// RefreshToken exchanges a refresh token for a new access token.
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshTokenRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}
	if req.RefreshToken == "" {
		utils.WriteValidationErrorResponse(w, "refresh_token is required", "")
		return
	}

	accessToken, expiresIn, err := h.jwtService.RefreshAccessToken(req.RefreshToken)
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Invalid refresh token")
		return
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{
		"access_token": accessToken,
		"expires_in":   expiresIn,
	})
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	full, err := h.db.GetUserByID(user.ID)
	if err != nil {
		utils.WriteNotFoundResponse(w, "User not found")
		return
	}
	utils.WriteSuccessResponse(w, full)
}

// HealthCheck reports service and storage health.
func (h *AuthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	dbStatus := "ok"
	if err := h.db.HealthCheck(); err != nil {
		status = "degraded"
		dbStatus = err.Error()
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{
		"status":      status,
		"database":    dbStatus,
		"environment": h.config.Environment,
	})
}

func defaultHouseholdName(user *models.User) string {
	if user.Name != "" {
		return user.Name + "'s Household"
	}
	return "My Household"
}
