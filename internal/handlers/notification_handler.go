package handlers

import (
	"errors"
	"net/http"

	"tripmingle/internal/middleware"
	"tripmingle/internal/repositories/interfaces"
	"tripmingle/internal/services"
	"tripmingle/internal/utils"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notificationService services.NotificationService
}

func NewNotificationHandler(notificationService services.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
	}
}

// ListNotifications returns the authenticated user's notifications, unread
// first unless include_read=true.
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	includeRead := c.DefaultQuery("include_read", "true") == "true"
	params := utils.GetPaginationParams(c)

	notifications, total, err := h.notificationService.GetUserNotifications(c.Request.Context(), userID, includeRead, params)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "NOTIFICATION_LIST_FAILED", err.Error())
		return
	}

	utils.SuccessResponseWithMeta(c, "Notifications retrieved successfully", notifications, &utils.Meta{
		Pagination: utils.CreatePaginationMeta(params, total),
	})
}

// GetUnreadCount returns how many notifications the user has not read yet.
func (h *NotificationHandler) GetUnreadCount(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	count, err := h.notificationService.GetUnreadCount(c.Request.Context(), userID)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "UNREAD_COUNT_FAILED", err.Error())
		return
	}

	utils.SuccessResponse(c, "Unread count retrieved successfully", gin.H{"unread_count": count})
}

// MarkAsRead acknowledges one notification.
func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	notificationID, ok := parseObjectIDParam(c, "id")
	if !ok {
		return
	}

	userID, ok := middleware.GetUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	err := h.notificationService.MarkAsRead(c.Request.Context(), notificationID, userID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			utils.NotFoundResponse(c, "Notification")
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "NOTIFICATION_READ_FAILED", err.Error())
		return
	}

	utils.SuccessResponse(c, "Notification marked as read", nil)
}

// MarkAllAsRead acknowledges every unread notification for the user.
func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	err := h.notificationService.MarkAllAsRead(c.Request.Context(), userID)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "NOTIFICATION_READ_FAILED", err.Error())
		return
	}

	utils.SuccessResponse(c, "All notifications marked as read", nil)
}
