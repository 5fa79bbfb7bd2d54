package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/cOsMiCTr/famhub-backend/pkg/config"
	"github.com/cOsMiCTr/famhub-backend/pkg/middleware"
	"github.com/cOsMiCTr/famhub-backend/pkg/models"
	"github.com/cOsMiCTr/famhub-backend/pkg/services"
	"github.com/cOsMiCTr/famhub-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
)

// ConnectionHandler exposes the invitation lifecycle over HTTP. All
// state decisions live in the service; this layer only parses requests
// and maps service errors to status codes.
type ConnectionHandler struct {
	config      *config.Config
	connections *services.ConnectionService
}

func NewConnectionHandler(cfg *config.Config, connections *services.ConnectionService) *ConnectionHandler {
	return &ConnectionHandler{config: cfg, connections: connections}
}

// SendInvitation offers a connection from the caller to the account
// resolved from the person's email.
func (h *ConnectionHandler) SendInvitation(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	conn, err := h.connections.Invite(user.ID, chi.URLParam(r, "personID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteCreatedResponse(w, conn)
}

// ListMyConnections returns connections where the caller is a party,
// optionally filtered with ?status=pending,accepted.
func (h *ConnectionHandler) ListMyConnections(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	var statuses []models.ConnectionStatus
	if raw := utils.GetQueryParam(r, "status", ""); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			switch status := models.ConnectionStatus(strings.TrimSpace(s)); status {
			case models.ConnectionPending, models.ConnectionAccepted,
				models.ConnectionRejected, models.ConnectionRevoked, models.ConnectionExpired:
				statuses = append(statuses, status)
			default:
				utils.WriteValidationErrorResponse(w, "Unknown status filter", s)
				return
			}
		}
	}

	conns, err := h.connections.ListForUser(user.ID, statuses)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to list connections")
		return
	}
	utils.WriteSuccessResponse(w, conns)
}

// AcceptInvitation accepts a pending invitation addressed to the caller.
func (h *ConnectionHandler) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.connections.Accept)
}

// RejectInvitation declines a pending invitation addressed to the caller.
func (h *ConnectionHandler) RejectInvitation(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.connections.Reject)
}

// RevokeConnection withdraws a pending or accepted connection. Only the
// inviter may call it.
func (h *ConnectionHandler) RevokeConnection(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.connections.Revoke)
}

// DisconnectConnection severs the connection; either party may call it.
func (h *ConnectionHandler) DisconnectConnection(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.connections.Disconnect)
}

func (h *ConnectionHandler) respond(w http.ResponseWriter, r *http.Request,
	op func(userID, connectionID string) (*models.PersonConnection, error)) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	conn, err := op(user.ID, chi.URLParam(r, "connectionID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, conn)
}

// writeServiceError maps lifecycle/gateway errors to HTTP responses.
func writeServiceError(w http.ResponseWriter, err error) {
	var policy *services.PolicyError
	if errors.As(err, &policy) {
		code := strings.ToUpper(policy.Code)
		switch policy {
		case services.ErrPersonNotFound:
			utils.WriteErrorResponseWithCode(w, http.StatusNotFound, code, policy.Reason, "")
		case services.ErrNotHouseholdMember:
			utils.WriteErrorResponseWithCode(w, http.StatusForbidden, code, policy.Reason, "")
		case services.ErrInvitationExpired:
			utils.WriteErrorResponseWithCode(w, http.StatusGone, code, policy.Reason, "")
		default:
			utils.WriteErrorResponseWithCode(w, http.StatusConflict, code, policy.Reason, "")
		}
		return
	}

	switch {
	case errors.Is(err, services.ErrAlreadyProcessed):
		utils.WriteConflictResponse(w, err.Error())
	case errors.Is(err, services.ErrAccessDenied):
		utils.WriteForbiddenResponse(w, "Access denied")
	default:
		utils.WriteInternalServerErrorResponse(w, "Operation failed")
	}
}
