package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tripmingle/internal/models"
	"tripmingle/internal/repositories/interfaces"
	"tripmingle/internal/services"
	"tripmingle/internal/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type notificationRepository struct {
	collection *mongo.Collection
	cache      services.CacheService
}

func NewNotificationRepository(db *mongo.Database, cache services.CacheService) interfaces.NotificationRepository {
	return &notificationRepository{
		collection: db.Collection("notifications"),
		cache:      cache,
	}
}

func (r *notificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	notification.ID = primitive.NewObjectID()
	notification.CreatedAt = time.Now()
	notification.UpdatedAt = notification.CreatedAt

	_, err := r.collection.InsertOne(ctx, notification)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	_ = r.cache.InvalidateUnreadCount(ctx, notification.UserID)

	return nil
}

func (r *notificationRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Notification, error) {
	var notification models.Notification
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&notification)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}

	return &notification, nil
}

func (r *notificationRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	notification, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	_, err = r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}

	_ = r.cache.InvalidateUnreadCount(ctx, notification.UserID)

	return nil
}

func (r *notificationRepository) GetByUserID(ctx context.Context, userID primitive.ObjectID, includeRead bool, params *utils.PaginationParams) ([]*models.Notification, int64, error) {
	filter := bson.M{"user_id": userID}
	if !includeRead {
		filter["read"] = false
	}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	cursor, err := r.collection.Find(ctx, filter, params.GetSortOptions())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find notifications: %w", err)
	}
	defer cursor.Close(ctx)

	var notifications []*models.Notification
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, 0, fmt.Errorf("failed to decode notifications: %w", err)
	}

	return notifications, total, nil
}

func (r *notificationRepository) GetUnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	if count, ok := r.cache.GetCachedUnreadCount(ctx, userID); ok {
		return count, nil
	}

	count, err := r.collection.CountDocuments(ctx, bson.M{"user_id": userID, "read": false})
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	_ = r.cache.SetCachedUnreadCount(ctx, userID, count)

	return count, nil
}

func (r *notificationRepository) GetByTripID(ctx context.Context, tripID primitive.ObjectID) ([]*models.Notification, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"trip_id": tripID})
	if err != nil {
		return nil, fmt.Errorf("failed to find trip notifications: %w", err)
	}
	defer cursor.Close(ctx)

	var notifications []*models.Notification
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, fmt.Errorf("failed to decode trip notifications: %w", err)
	}

	return notifications, nil
}

// MarkAsRead flips one notification owned by userID. Scoping by owner keeps
// one user from acking another user's notifications.
func (r *notificationRepository) MarkAsRead(ctx context.Context, id primitive.ObjectID, userID primitive.ObjectID) error {
	now := time.Now()

	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id, "user_id": userID, "read": false},
		bson.M{"$set": bson.M{"read": true, "read_at": now, "updated_at": now}},
	)
	if err != nil {
		return fmt.Errorf("failed to mark notification as read: %w", err)
	}
	if result.MatchedCount == 0 {
		count, countErr := r.collection.CountDocuments(ctx, bson.M{"_id": id, "user_id": userID})
		if countErr != nil {
			return fmt.Errorf("failed to mark notification as read: %w", countErr)
		}
		if count == 0 {
			return interfaces.ErrNotFound
		}
		// Already read, nothing to do.
		return nil
	}

	_ = r.cache.InvalidateUnreadCount(ctx, userID)

	return nil
}

func (r *notificationRepository) MarkAllAsRead(ctx context.Context, userID primitive.ObjectID) error {
	now := time.Now()

	_, err := r.collection.UpdateMany(
		ctx,
		bson.M{"user_id": userID, "read": false},
		bson.M{"$set": bson.M{"read": true, "read_at": now, "updated_at": now}},
	)
	if err != nil {
		return fmt.Errorf("failed to mark notifications as read: %w", err)
	}

	_ = r.cache.InvalidateUnreadCount(ctx, userID)

	return nil
}
