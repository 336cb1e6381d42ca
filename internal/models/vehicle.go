package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type VehicleCategory string

const (
	VehicleCategoryStandard VehicleCategory = "standard"
	VehicleCategoryComfort  VehicleCategory = "comfort"
	VehicleCategoryVan      VehicleCategory = "van"
	VehicleCategoryLuxury   VehicleCategory = "luxury"
)

type Vehicle struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	PartnerID    primitive.ObjectID `json:"partner_id" bson:"partner_id" validate:"required"`
	Category     VehicleCategory    `json:"category" bson:"category" validate:"required,oneof=standard comfort van luxury"`
	Make         string             `json:"make" bson:"make" validate:"required,max=50"`
	Model        string             `json:"model" bson:"model" validate:"required,max=50"`
	Year         int                `json:"year" bson:"year"`
	LicensePlate string             `json:"license_plate" bson:"license_plate" validate:"required,max=15"`
	Color        string             `json:"color" bson:"color"`
	Seats        int                `json:"seats" bson:"seats" validate:"min=1,max=9"`
	BaseFare     float64            `json:"base_fare" bson:"base_fare"`
	PricePerKm   float64            `json:"price_per_km" bson:"price_per_km"`
	CreatedAt    time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at" bson:"updated_at"`
}
