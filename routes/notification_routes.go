package routes

import (
	"tripmingle/internal/handlers"
	"tripmingle/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupNotificationRoutes wires the notification inbox endpoints.
func SetupNotificationRoutes(r *gin.RouterGroup, notificationHandler *handlers.NotificationHandler, jwtSecret string) {
	notifications := r.Group("/notifications")
	notifications.Use(middleware.AuthRequired(jwtSecret))
	{
		notifications.GET("", notificationHandler.ListNotifications)
		notifications.GET("/unread-count", notificationHandler.GetUnreadCount)
		notifications.PUT("/:id/read", notificationHandler.MarkAsRead)
		notifications.PUT("/read-all", notificationHandler.MarkAllAsRead)
	}
}
