package handlers

import (
	"net/http"

	"github.com/cOsMiCTr/famhub-backend/pkg/config"
	"github.com/cOsMiCTr/famhub-backend/pkg/database"
	"github.com/cOsMiCTr/famhub-backend/pkg/middleware"
	"github.com/cOsMiCTr/famhub-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
)

// NotificationHandler exposes polled lifecycle notifications.
type NotificationHandler struct {
	config *config.Config
	db     database.DatabaseInterface
}

func NewNotificationHandler(cfg *config.Config, db database.DatabaseInterface) *NotificationHandler {
	return &NotificationHandler{config: cfg, db: db}
}

// ListNotifications returns the caller's notifications, newest first.
func (h *NotificationHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	notifications, err := h.db.ListNotificationsByUser(user.ID)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to list notifications")
		return
	}
	utils.WriteSuccessResponse(w, notifications)
}

// MarkRead marks one of the caller's notifications as read.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	if err := h.db.MarkNotificationRead(chi.URLParam(r, "notificationID"), user.ID); err != nil {
		utils.WriteNotFoundResponse(w, "Notification not found")
		return
	}
	utils.WriteSuccessResponse(w, map[string]string{"message": "Notification marked as read"})
}
