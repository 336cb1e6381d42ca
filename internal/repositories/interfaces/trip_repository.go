package interfaces

import (
	"context"
	"time"

	"tripmingle/internal/models"
	"tripmingle/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TripRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, trip *models.Trip) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Trip, error)
	GetByTripNumber(ctx context.Context, tripNumber string) (*models.Trip, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*models.Trip, error)
	Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error
	Delete(ctx context.Context, id primitive.ObjectID) error

	// Versioned status operations. Each mutation matches on the trip's
	// current version and bumps it, so a concurrent writer loses cleanly
	// instead of overwriting.
	UpdateStatus(ctx context.Context, id primitive.ObjectID, version int64, status models.TripStatus) error
	AssignPartner(ctx context.Context, id primitive.ObjectID, version int64, partnerID, vehicleID primitive.ObjectID) error
	Cancel(ctx context.Context, id primitive.ObjectID, version int64, reason string, cancelledBy models.CancelActor) error
	SetPricing(ctx context.Context, id primitive.ObjectID, version int64, pricing *models.Pricing) error
	SetPaymentMethod(ctx context.Context, id primitive.ObjectID, version int64, method models.PaymentMethod) error

	// Search and filtering. A nil status means any status.
	GetByClient(ctx context.Context, clientID primitive.ObjectID, status *models.TripStatus, params *utils.PaginationParams) ([]*models.Trip, int64, error)
	GetByPartner(ctx context.Context, partnerID primitive.ObjectID, status *models.TripStatus, params *utils.PaginationParams) ([]*models.Trip, int64, error)
	GetByStatus(ctx context.Context, status models.TripStatus, params *utils.PaginationParams) ([]*models.Trip, int64, error)
	GetActiveByClient(ctx context.Context, clientID primitive.ObjectID) (*models.Trip, error)
	GetActiveByPartner(ctx context.Context, partnerID primitive.ObjectID) (*models.Trip, error)

	// Expiry sweep
	GetExpiredSearching(ctx context.Context, olderThan time.Time) ([]*models.Trip, error)
}
