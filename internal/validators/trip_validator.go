package validators

import (
	"math"
	"time"
)

type LocationRequest struct {
	Latitude  float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude float64 `json:"longitude" validate:"min=-180,max=180"`
	Address   string  `json:"address" validate:"required,min=5,max=255"`
	PlaceName string  `json:"place_name" validate:"omitempty,max=100"`
}

type TripDetailsRequest struct {
	Passengers     int    `json:"passengers" validate:"required,min=1,max=8"`
	Luggage        int    `json:"luggage" validate:"min=0,max=10"`
	SpecialRequest string `json:"special_request" validate:"omitempty,max=255"`
}

type CreateTripRequest struct {
	PickupLocation  LocationRequest    `json:"pickup_location" validate:"required"`
	DropoffLocation LocationRequest    `json:"dropoff_location" validate:"required"`
	TripDetails     TripDetailsRequest `json:"trip_details" validate:"required"`
	ScheduledAt     *time.Time         `json:"scheduled_at" validate:"omitempty"`
	PaymentMethod   string             `json:"payment_method" validate:"omitempty,oneof=card cash mobile"`
	IdempotencyKey  string             `json:"idempotency_key" validate:"omitempty,uuid4"`
}

type AcceptTripRequest struct {
	VehicleID string `json:"vehicle_id" validate:"required,object_id"`
	ETA       int    `json:"eta" validate:"omitempty,min=1,max=120"` // minutes
}

type RefuseTripRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=255"`
}

type UpdateTripStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=driver_approaching driver_arrived in_progress completed"`
}

type CancelTripRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=255"`
}

type SetPaymentMethodRequest struct {
	PaymentMethod string `json:"payment_method" validate:"required,oneof=card cash mobile"`
}

type SetPricingRequest struct {
	BaseFare     float64 `json:"base_fare" validate:"min=0"`
	DistanceFare float64 `json:"distance_fare" validate:"min=0"`
	Taxes        float64 `json:"taxes" validate:"min=0"`
	Total        float64 `json:"total" validate:"required,gt=0"`
	Currency     string  `json:"currency" validate:"required,currency_code"`
}

func ValidateCreateTripRequest(req *CreateTripRequest) ValidationErrors {
	errors := ValidateStruct(req)

	if isSameLocation(req.PickupLocation, req.DropoffLocation) {
		errors = append(errors, ValidationError{
			Field:   "dropoff_location",
			Message: "Pickup and dropoff locations must be different",
		})
	}

	distance := calculateDistance(req.PickupLocation, req.DropoffLocation)
	if distance < 0.1 { // Minimum 100 meters
		errors = append(errors, ValidationError{
			Field:   "distance",
			Message: "Trip distance too short (minimum 100 meters)",
		})
	}
	if distance > 500 { // Maximum 500 km
		errors = append(errors, ValidationError{
			Field:   "distance",
			Message: "Trip distance too long (maximum 500 km)",
		})
	}

	if req.ScheduledAt != nil {
		if req.ScheduledAt.Before(time.Now()) {
			errors = append(errors, ValidationError{
				Field:   "scheduled_at",
				Message: "Scheduled time must be in the future",
			})
		}
		if req.ScheduledAt.After(time.Now().AddDate(0, 0, 7)) {
			errors = append(errors, ValidationError{
				Field:   "scheduled_at",
				Message: "Cannot schedule trips more than 7 days in advance",
			})
		}
	}

	return errors
}

func ValidateAcceptTripRequest(req *AcceptTripRequest) ValidationErrors {
	return ValidateStruct(req)
}

func ValidateRefuseTripRequest(req *RefuseTripRequest) ValidationErrors {
	return ValidateStruct(req)
}

func ValidateUpdateTripStatusRequest(req *UpdateTripStatusRequest) ValidationErrors {
	return ValidateStruct(req)
}

func ValidateCancelTripRequest(req *CancelTripRequest) ValidationErrors {
	return ValidateStruct(req)
}

func ValidateSetPaymentMethodRequest(req *SetPaymentMethodRequest) ValidationErrors {
	return ValidateStruct(req)
}

func ValidateSetPricingRequest(req *SetPricingRequest) ValidationErrors {
	errors := ValidateStruct(req)

	expected := req.BaseFare + req.DistanceFare + req.Taxes
	if math.Abs(expected-req.Total) > 0.01 {
		errors = append(errors, ValidationError{
			Field:   "total",
			Message: "Total must equal base fare plus distance fare plus taxes",
		})
	}

	return errors
}

func isSameLocation(loc1, loc2 LocationRequest) bool {
	// Consider locations the same if within 50 meters
	return calculateDistance(loc1, loc2) < 0.05
}

func calculateDistance(loc1, loc2 LocationRequest) float64 {
	// Haversine formula
	const earthRadiusKM = 6371

	lat1Rad := loc1.Latitude * math.Pi / 180
	lat2Rad := loc2.Latitude * math.Pi / 180
	deltaLatRad := (loc2.Latitude - loc1.Latitude) * math.Pi / 180
	deltaLngRad := (loc2.Longitude - loc1.Longitude) * math.Pi / 180

	a := math.Sin(deltaLatRad/2)*math.Sin(deltaLatRad/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLngRad/2)*math.Sin(deltaLngRad/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKM * c
}
