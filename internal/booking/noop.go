package booking

import (
	"context"

	"tripmingle/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NoopSession satisfies BookingSession for contexts that never book, such as
// the partner-facing screens. Every operation is a no-op; booking operations
// report that nothing is in progress.
type NoopSession struct{}

func NewNoopSession() *NoopSession {
	return &NoopSession{}
}

func (NoopSession) SetLocations(pickup, dropoff models.Location)    {}
func (NoopSession) SetVehicle(vehicle *models.Vehicle)              {}
func (NoopSession) SetTiming(timing models.TripTiming)              {}
func (NoopSession) SetTripDetails(details models.TripDetails)       {}
func (NoopSession) SetPartner(partner *models.User)                 {}
func (NoopSession) SetPaymentMethod(method models.PaymentMethod)    {}
func (NoopSession) SetPricing(pricing *models.Pricing)              {}
func (NoopSession) NextStep()                                       {}
func (NoopSession) PreviousStep()                                   {}
func (NoopSession) GoToStep(step Step)                              {}
func (NoopSession) CurrentStep() Step                               { return StepLocation }
func (NoopSession) ConfirmBooking(ctx context.Context) error        { return ErrNoBooking }
func (NoopSession) CancelBooking(ctx context.Context, reason string) error {
	return ErrNoBooking
}
func (NoopSession) CompleteTrip(ctx context.Context) error { return ErrNoBooking }
func (NoopSession) HandleDriverResponse(ctx context.Context, tripID primitive.ObjectID, accepted bool, partner *models.User, vehicle *models.Vehicle, reason string) error {
	return ErrNoBooking
}
func (NoopSession) Reset()          {}
func (NoopSession) ResetStep()      {}
func (NoopSession) Restore() bool   { return false }
func (NoopSession) Snapshot() State { return State{Step: StepLocation} }
