package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes the trip and notification queries rely on.
// Safe to call on every startup; Mongo treats existing indexes as a no-op.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	trips := []mongo.IndexModel{
		{Keys: bson.D{{Key: "client_id", Value: 1}, {Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "partner_id", Value: 1}, {Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: 1}}},
		{Keys: bson.D{{Key: "trip_number", Value: 1}}, Options: options.Index().SetUnique(true)},
		{
			Keys: bson.D{{Key: "idempotency_key", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"idempotency_key": bson.M{"$gt": ""}}),
		},
		{Keys: bson.D{{Key: "pickup_location", Value: "2dsphere"}}},
	}

	if _, err := db.Collection("trips").Indexes().CreateMany(ctx, trips); err != nil {
		return fmt.Errorf("failed to create trip indexes: %w", err)
	}

	notifications := []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "read", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "trip_id", Value: 1}}},
	}

	if _, err := db.Collection("notifications").Indexes().CreateMany(ctx, notifications); err != nil {
		return fmt.Errorf("failed to create notification indexes: %w", err)
	}

	vehicles := []mongo.IndexModel{
		{Keys: bson.D{{Key: "partner_id", Value: 1}}},
		{Keys: bson.D{{Key: "license_plate", Value: 1}}, Options: options.Index().SetUnique(true)},
	}

	if _, err := db.Collection("vehicles").Indexes().CreateMany(ctx, vehicles); err != nil {
		return fmt.Errorf("failed to create vehicle indexes: %w", err)
	}

	return nil
}
