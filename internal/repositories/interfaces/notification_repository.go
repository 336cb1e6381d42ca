package interfaces

import (
	"context"

	"tripmingle/internal/models"
	"tripmingle/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NotificationRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, notification *models.Notification) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Notification, error)
	Delete(ctx context.Context, id primitive.ObjectID) error

	// User notifications
	GetByUserID(ctx context.Context, userID primitive.ObjectID, includeRead bool, params *utils.PaginationParams) ([]*models.Notification, int64, error)
	GetUnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error)
	GetByTripID(ctx context.Context, tripID primitive.ObjectID) ([]*models.Notification, error)

	// Status operations
	MarkAsRead(ctx context.Context, id primitive.ObjectID, userID primitive.ObjectID) error
	MarkAllAsRead(ctx context.Context, userID primitive.ObjectID) error
}
