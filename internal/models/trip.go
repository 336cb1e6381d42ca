package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TripStatus string
type PaymentMethod string
type CancelActor string

const (
	TripStatusSearching         TripStatus = "searching"
	TripStatusDriverMatched     TripStatus = "driver_matched"
	TripStatusDriverApproaching TripStatus = "driver_approaching"
	TripStatusDriverArrived     TripStatus = "driver_arrived"
	TripStatusInProgress        TripStatus = "in_progress"
	TripStatusCompleted         TripStatus = "completed"
	TripStatusCancelled         TripStatus = "cancelled"

	PaymentMethodCard   PaymentMethod = "card"
	PaymentMethodCash   PaymentMethod = "cash"
	PaymentMethodMobile PaymentMethod = "mobile"

	CancelledByClient  CancelActor = "client"
	CancelledByPartner CancelActor = "partner"
	CancelledBySystem  CancelActor = "system"
)

// tripTransitions is the forward-only lifecycle. Cancelled is reachable from
// every non-terminal status; completed and cancelled accept nothing.
var tripTransitions = map[TripStatus][]TripStatus{
	TripStatusSearching:         {TripStatusDriverMatched, TripStatusCancelled},
	TripStatusDriverMatched:     {TripStatusDriverApproaching, TripStatusCancelled},
	TripStatusDriverApproaching: {TripStatusDriverArrived, TripStatusCancelled},
	TripStatusDriverArrived:     {TripStatusInProgress, TripStatusCancelled},
	TripStatusInProgress:        {TripStatusCompleted, TripStatusCancelled},
	TripStatusCompleted:         {},
	TripStatusCancelled:         {},
}

func (s TripStatus) IsValid() bool {
	_, ok := tripTransitions[s]
	return ok
}

func (s TripStatus) IsTerminal() bool {
	return s == TripStatusCompleted || s == TripStatusCancelled
}

// CanTransitionTo reports whether moving from s to next is allowed by the
// trip lifecycle.
func (s TripStatus) CanTransitionTo(next TripStatus) bool {
	for _, allowed := range tripTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// InFlightStatuses are the statuses of a trip that is still live from the
// client's perspective. A persisted booking session is only resumed when its
// status is one of these.
func InFlightStatuses() []TripStatus {
	return []TripStatus{
		TripStatusSearching,
		TripStatusDriverMatched,
		TripStatusDriverApproaching,
		TripStatusDriverArrived,
		TripStatusInProgress,
	}
}

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCard, PaymentMethodCash, PaymentMethodMobile:
		return true
	}
	return false
}

type TripDetails struct {
	Passengers     int    `json:"passengers" bson:"passengers" validate:"required,min=1,max=8"`
	Luggage        int    `json:"luggage" bson:"luggage" validate:"min=0,max=10"`
	SpecialRequest string `json:"special_request" bson:"special_request" validate:"omitempty,max=255"`
}

type TripTiming struct {
	IsScheduled bool       `json:"is_scheduled" bson:"is_scheduled"`
	ScheduledAt *time.Time `json:"scheduled_at" bson:"scheduled_at"`
}

type Pricing struct {
	BaseFare     float64 `json:"base_fare" bson:"base_fare"`
	DistanceFare float64 `json:"distance_fare" bson:"distance_fare"`
	Taxes        float64 `json:"taxes" bson:"taxes"`
	Total        float64 `json:"total" bson:"total"`
	Currency     string  `json:"currency" bson:"currency" default:"USD"`
}

type Trip struct {
	ID                 primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	TripNumber         string              `json:"trip_number" bson:"trip_number"`
	ClientID           primitive.ObjectID  `json:"client_id" bson:"client_id" validate:"required"`
	PartnerID          *primitive.ObjectID `json:"partner_id" bson:"partner_id"`
	VehicleID          *primitive.ObjectID `json:"vehicle_id" bson:"vehicle_id"`
	Status             TripStatus          `json:"status" bson:"status" default:"searching"`
	Version            int64               `json:"version" bson:"version"`
	PickupLocation     Location            `json:"pickup_location" bson:"pickup_location" validate:"required"`
	DropoffLocation    Location            `json:"dropoff_location" bson:"dropoff_location" validate:"required"`
	TripDetails        TripDetails         `json:"trip_details" bson:"trip_details"`
	Timing             TripTiming          `json:"timing" bson:"timing"`
	EstimatedDistance  float64             `json:"estimated_distance" bson:"estimated_distance"` // kilometers
	EstimatedDuration  int                 `json:"estimated_duration" bson:"estimated_duration"` // minutes
	Pricing            *Pricing            `json:"pricing" bson:"pricing"`
	PaymentMethod      PaymentMethod       `json:"payment_method" bson:"payment_method"`
	CancellationReason string              `json:"cancellation_reason" bson:"cancellation_reason"`
	CancelledBy        CancelActor         `json:"cancelled_by" bson:"cancelled_by"`
	IdempotencyKey     string              `json:"idempotency_key" bson:"idempotency_key"`
	MatchedAt          *time.Time          `json:"matched_at" bson:"matched_at"`
	ArrivedAt          *time.Time          `json:"arrived_at" bson:"arrived_at"`
	StartedAt          *time.Time          `json:"started_at" bson:"started_at"`
	CompletedAt        *time.Time          `json:"completed_at" bson:"completed_at"`
	CancelledAt        *time.Time          `json:"cancelled_at" bson:"cancelled_at"`
	CreatedAt          time.Time           `json:"created_at" bson:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at" bson:"updated_at"`
}

// IsActive reports whether the trip is still in flight.
func (t *Trip) IsActive() bool {
	return !t.Status.IsTerminal()
}
