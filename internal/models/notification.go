package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NotificationType string

const (
	NotificationTypeTripCreated       NotificationType = "trip_created"
	NotificationTypeTripMatched       NotificationType = "trip_matched"
	NotificationTypeDriverApproaching NotificationType = "driver_approaching"
	NotificationTypeDriverArrived     NotificationType = "driver_arrived"
	NotificationTypeTripStarted       NotificationType = "trip_started"
	NotificationTypeTripCompleted     NotificationType = "trip_completed"
	NotificationTypeTripCancelled     NotificationType = "trip_cancelled"
	NotificationTypePayment           NotificationType = "payment"
	NotificationTypeGeneral           NotificationType = "general"
)

type Notification struct {
	ID        primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	UserID    primitive.ObjectID  `json:"user_id" bson:"user_id" validate:"required"`
	Type      NotificationType    `json:"type" bson:"type" validate:"required"`
	Title     string              `json:"title" bson:"title" validate:"required"`
	Message   string              `json:"message" bson:"message" validate:"required"`
	TripID    *primitive.ObjectID `json:"trip_id" bson:"trip_id"`
	Read      bool                `json:"read" bson:"read"`
	ReadAt    *time.Time          `json:"read_at" bson:"read_at"`
	CreatedAt time.Time           `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time           `json:"updated_at" bson:"updated_at"`
}
