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

type tripRepository struct {
	collection *mongo.Collection
	cache      services.CacheService
}

func NewTripRepository(db *mongo.Database, cache services.CacheService) interfaces.TripRepository {
	return &tripRepository{
		collection: db.Collection("trips"),
		cache:      cache,
	}
}

// Basic CRUD operations
func (r *tripRepository) Create(ctx context.Context, trip *models.Trip) error {
	trip.ID = primitive.NewObjectID()
	trip.Version = 1
	trip.CreatedAt = time.Now()
	trip.UpdatedAt = trip.CreatedAt

	_, err := r.collection.InsertOne(ctx, trip)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("failed to create trip: %w", interfaces.ErrDuplicateKey)
		}
		return fmt.Errorf("failed to create trip: %w", err)
	}

	r.cacheTrip(ctx, trip)

	return nil
}

func (r *tripRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Trip, error) {
	// Try cache first for active trips
	if trip, err := r.cache.GetCachedTrip(ctx, id); err == nil && trip != nil {
		return trip, nil
	}

	var trip models.Trip
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&trip)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}

	r.cacheTrip(ctx, &trip)

	return &trip, nil
}

func (r *tripRepository) GetByTripNumber(ctx context.Context, tripNumber string) (*models.Trip, error) {
	var trip models.Trip
	err := r.collection.FindOne(ctx, bson.M{"trip_number": tripNumber}).Decode(&trip)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get trip by number: %w", err)
	}

	return &trip, nil
}

func (r *tripRepository) GetByIdempotencyKey(ctx context.Context, key string) (*models.Trip, error) {
	var trip models.Trip
	err := r.collection.FindOne(ctx, bson.M{"idempotency_key": key}).Decode(&trip)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get trip by idempotency key: %w", err)
	}

	return &trip, nil
}

func (r *tripRepository) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()

	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": updates},
	)
	if err != nil {
		return fmt.Errorf("failed to update trip: %w", err)
	}
	if result.MatchedCount == 0 {
		return interfaces.ErrNotFound
	}

	r.invalidateTripCache(ctx, id)

	return nil
}

func (r *tripRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete trip: %w", err)
	}

	r.invalidateTripCache(ctx, id)

	return nil
}

// Versioned status operations
func (r *tripRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, version int64, status models.TripStatus) error {
	now := time.Now()

	set := bson.M{
		"status":     status,
		"updated_at": now,
	}

	switch status {
	case models.TripStatusDriverMatched:
		set["matched_at"] = now
	case models.TripStatusDriverArrived:
		set["arrived_at"] = now
	case models.TripStatusInProgress:
		set["started_at"] = now
	case models.TripStatusCompleted:
		set["completed_at"] = now
	case models.TripStatusCancelled:
		set["cancelled_at"] = now
	}

	return r.versionedUpdate(ctx, id, version, bson.M{
		"$set": set,
		"$inc": bson.M{"version": 1},
	})
}

func (r *tripRepository) AssignPartner(ctx context.Context, id primitive.ObjectID, version int64, partnerID, vehicleID primitive.ObjectID) error {
	now := time.Now()

	return r.versionedUpdate(ctx, id, version, bson.M{
		"$set": bson.M{
			"partner_id": partnerID,
			"vehicle_id": vehicleID,
			"status":     models.TripStatusDriverMatched,
			"matched_at": now,
			"updated_at": now,
		},
		"$inc": bson.M{"version": 1},
	})
}

func (r *tripRepository) Cancel(ctx context.Context, id primitive.ObjectID, version int64, reason string, cancelledBy models.CancelActor) error {
	now := time.Now()

	return r.versionedUpdate(ctx, id, version, bson.M{
		"$set": bson.M{
			"status":              models.TripStatusCancelled,
			"cancellation_reason": reason,
			"cancelled_by":        cancelledBy,
			"cancelled_at":        now,
			"updated_at":          now,
		},
		"$inc": bson.M{"version": 1},
	})
}

func (r *tripRepository) SetPricing(ctx context.Context, id primitive.ObjectID, version int64, pricing *models.Pricing) error {
	return r.versionedUpdate(ctx, id, version, bson.M{
		"$set": bson.M{"pricing": pricing, "updated_at": time.Now()},
		"$inc": bson.M{"version": 1},
	})
}

func (r *tripRepository) SetPaymentMethod(ctx context.Context, id primitive.ObjectID, version int64, method models.PaymentMethod) error {
	return r.versionedUpdate(ctx, id, version, bson.M{
		"$set": bson.M{"payment_method": method, "updated_at": time.Now()},
		"$inc": bson.M{"version": 1},
	})
}

// versionedUpdate applies update only when the stored version matches. A miss
// on the version while the document exists reports a conflict.
func (r *tripRepository) versionedUpdate(ctx context.Context, id primitive.ObjectID, version int64, update bson.M) error {
	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id, "version": version},
		update,
	)
	if err != nil {
		return fmt.Errorf("failed to update trip: %w", err)
	}

	if result.MatchedCount == 0 {
		count, countErr := r.collection.CountDocuments(ctx, bson.M{"_id": id})
		if countErr != nil {
			return fmt.Errorf("failed to update trip: %w", countErr)
		}
		if count == 0 {
			return interfaces.ErrNotFound
		}
		return interfaces.ErrVersionConflict
	}

	r.invalidateTripCache(ctx, id)

	return nil
}

// Search and filtering
func (r *tripRepository) GetByClient(ctx context.Context, clientID primitive.ObjectID, status *models.TripStatus, params *utils.PaginationParams) ([]*models.Trip, int64, error) {
	filter := bson.M{"client_id": clientID}
	if status != nil {
		filter["status"] = *status
	}
	return r.findPaginated(ctx, filter, params)
}

func (r *tripRepository) GetByPartner(ctx context.Context, partnerID primitive.ObjectID, status *models.TripStatus, params *utils.PaginationParams) ([]*models.Trip, int64, error) {
	filter := bson.M{"partner_id": partnerID}
	if status != nil {
		filter["status"] = *status
	}
	return r.findPaginated(ctx, filter, params)
}

func (r *tripRepository) GetByStatus(ctx context.Context, status models.TripStatus, params *utils.PaginationParams) ([]*models.Trip, int64, error) {
	return r.findPaginated(ctx, bson.M{"status": status}, params)
}

func (r *tripRepository) GetActiveByClient(ctx context.Context, clientID primitive.ObjectID) (*models.Trip, error) {
	return r.findOneActive(ctx, bson.M{
		"client_id": clientID,
		"status":    bson.M{"$in": models.InFlightStatuses()},
	})
}

func (r *tripRepository) GetActiveByPartner(ctx context.Context, partnerID primitive.ObjectID) (*models.Trip, error) {
	return r.findOneActive(ctx, bson.M{
		"partner_id": partnerID,
		"status":     bson.M{"$in": models.InFlightStatuses()},
	})
}

func (r *tripRepository) GetExpiredSearching(ctx context.Context, olderThan time.Time) ([]*models.Trip, error) {
	cursor, err := r.collection.Find(ctx, bson.M{
		"status":     models.TripStatusSearching,
		"created_at": bson.M{"$lt": olderThan},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find expired trips: %w", err)
	}
	defer cursor.Close(ctx)

	var trips []*models.Trip
	if err := cursor.All(ctx, &trips); err != nil {
		return nil, fmt.Errorf("failed to decode expired trips: %w", err)
	}

	return trips, nil
}

func (r *tripRepository) findOneActive(ctx context.Context, filter bson.M) (*models.Trip, error) {
	var trip models.Trip
	err := r.collection.FindOne(ctx, filter).Decode(&trip)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get active trip: %w", err)
	}

	return &trip, nil
}

func (r *tripRepository) findPaginated(ctx context.Context, filter bson.M, params *utils.PaginationParams) ([]*models.Trip, int64, error) {
	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count trips: %w", err)
	}

	cursor, err := r.collection.Find(ctx, filter, params.GetSortOptions())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find trips: %w", err)
	}
	defer cursor.Close(ctx)

	var trips []*models.Trip
	if err := cursor.All(ctx, &trips); err != nil {
		return nil, 0, fmt.Errorf("failed to decode trips: %w", err)
	}

	return trips, total, nil
}

func (r *tripRepository) cacheTrip(ctx context.Context, trip *models.Trip) {
	if !trip.IsActive() {
		return
	}
	_ = r.cache.CacheTrip(ctx, trip, 30*time.Minute)
}

func (r *tripRepository) invalidateTripCache(ctx context.Context, id primitive.ObjectID) {
	_ = r.cache.InvalidateTrip(ctx, id)
}
