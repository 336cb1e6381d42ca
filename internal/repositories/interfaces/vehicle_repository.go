package interfaces

import (
	"context"

	"tripmingle/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type VehicleRepository interface {
	Create(ctx context.Context, vehicle *models.Vehicle) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Vehicle, error)
	GetByPartner(ctx context.Context, partnerID primitive.ObjectID) ([]*models.Vehicle, error)
	GetByLicensePlate(ctx context.Context, plate string) (*models.Vehicle, error)
	Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}
