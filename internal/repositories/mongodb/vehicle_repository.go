package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tripmingle/internal/models"
	"tripmingle/internal/repositories/interfaces"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type vehicleRepository struct {
	collection *mongo.Collection
}

func NewVehicleRepository(db *mongo.Database) interfaces.VehicleRepository {
	return &vehicleRepository{
		collection: db.Collection("vehicles"),
	}
}

func (r *vehicleRepository) Create(ctx context.Context, vehicle *models.Vehicle) error {
	vehicle.ID = primitive.NewObjectID()
	vehicle.CreatedAt = time.Now()
	vehicle.UpdatedAt = vehicle.CreatedAt

	_, err := r.collection.InsertOne(ctx, vehicle)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("failed to create vehicle: %w", interfaces.ErrDuplicateKey)
		}
		return fmt.Errorf("failed to create vehicle: %w", err)
	}

	return nil
}

func (r *vehicleRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Vehicle, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *vehicleRepository) GetByLicensePlate(ctx context.Context, plate string) (*models.Vehicle, error) {
	return r.findOne(ctx, bson.M{"license_plate": plate})
}

func (r *vehicleRepository) GetByPartner(ctx context.Context, partnerID primitive.ObjectID) ([]*models.Vehicle, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"partner_id": partnerID})
	if err != nil {
		return nil, fmt.Errorf("failed to find vehicles: %w", err)
	}
	defer cursor.Close(ctx)

	var vehicles []*models.Vehicle
	if err := cursor.All(ctx, &vehicles); err != nil {
		return nil, fmt.Errorf("failed to decode vehicles: %w", err)
	}

	return vehicles, nil
}

func (r *vehicleRepository) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()

	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": updates},
	)
	if err != nil {
		return fmt.Errorf("failed to update vehicle: %w", err)
	}
	if result.MatchedCount == 0 {
		return interfaces.ErrNotFound
	}

	return nil
}

func (r *vehicleRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete vehicle: %w", err)
	}

	return nil
}

func (r *vehicleRepository) findOne(ctx context.Context, filter bson.M) (*models.Vehicle, error) {
	var vehicle models.Vehicle
	err := r.collection.FindOne(ctx, filter).Decode(&vehicle)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get vehicle: %w", err)
	}

	return &vehicle, nil
}
