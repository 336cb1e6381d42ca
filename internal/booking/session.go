package booking

import (
	"context"
	"errors"
	"sync"
	"time"

	"tripmingle/internal/models"
	"tripmingle/internal/utils"
	"tripmingle/internal/validators"
	"tripmingle/pkg/logger"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Step is a screen in the booking flow.
type Step int

const (
	StepLocation Step = iota
	StepDetails
	StepRides
	StepConfirmation
	StepPayment
	StepActive
)

func (s Step) String() string {
	switch s {
	case StepLocation:
		return "location"
	case StepDetails:
		return "details"
	case StepRides:
		return "rides"
	case StepConfirmation:
		return "confirmation"
	case StepPayment:
		return "payment"
	case StepActive:
		return "active"
	}
	return "unknown"
}

var (
	ErrMissingLocations = errors.New("pickup and dropoff locations are required")
	ErrMissingVehicle   = errors.New("a vehicle must be selected")
	ErrMissingDetails   = errors.New("trip details are required")
	ErrNoBooking        = errors.New("no booking in progress")
	ErrNoPartnerFound   = errors.New("no available partner found")
)

// TripAPI is the backend surface the session drives. The rider app wires it
// to its HTTP client; tests wire a fake.
type TripAPI interface {
	CreateTrip(ctx context.Context, req *validators.CreateTripRequest) (*models.Trip, error)
	UpdateTripStatus(ctx context.Context, tripID primitive.ObjectID, status models.TripStatus) error
	CancelTrip(ctx context.Context, tripID primitive.ObjectID, reason string) error
	FindAvailablePartner(ctx context.Context) (*models.User, *models.Vehicle, error)
}

// NavigateFunc is invoked on every effective step change.
type NavigateFunc func(step Step)

// State is the serializable working copy of one booking.
type State struct {
	Pickup        *models.Location     `json:"pickup"`
	Dropoff       *models.Location     `json:"dropoff"`
	Details       models.TripDetails   `json:"details"`
	Timing        models.TripTiming    `json:"timing"`
	Vehicle       *models.Vehicle      `json:"vehicle"`
	Partner       *models.User         `json:"partner"`
	PaymentMethod models.PaymentMethod `json:"payment_method"`
	Pricing       *models.Pricing      `json:"pricing"`
	Step          Step                 `json:"step"`
	BookingID     *primitive.ObjectID  `json:"booking_id"`
	Status        models.TripStatus    `json:"status"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// BookingSession is what screens depend on. *Session is the real
// implementation; NoopSession serves contexts that never book.
type BookingSession interface {
	SetLocations(pickup, dropoff models.Location)
	SetVehicle(vehicle *models.Vehicle)
	SetTiming(timing models.TripTiming)
	SetTripDetails(details models.TripDetails)
	SetPartner(partner *models.User)
	SetPaymentMethod(method models.PaymentMethod)
	SetPricing(pricing *models.Pricing)

	NextStep()
	PreviousStep()
	GoToStep(step Step)
	CurrentStep() Step

	ConfirmBooking(ctx context.Context) error
	CancelBooking(ctx context.Context, reason string) error
	CompleteTrip(ctx context.Context) error
	HandleDriverResponse(ctx context.Context, tripID primitive.ObjectID, accepted bool, partner *models.User, vehicle *models.Vehicle, reason string) error

	Reset()
	ResetStep()
	Restore() bool

	Snapshot() State
}

type Session struct {
	mu       sync.Mutex
	state    State
	store    Store
	api      TripAPI
	navigate NavigateFunc
	logger   *logger.Logger
}

func NewSession(store Store, api TripAPI, navigate NavigateFunc, logger *logger.Logger) *Session {
	if navigate == nil {
		navigate = func(Step) {}
	}
	return &Session{
		state:    State{Step: StepLocation},
		store:    store,
		api:      api,
		navigate: navigate,
		logger:   logger,
	}
}

func (s *Session) SetLocations(pickup, dropoff models.Location) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Pickup = &pickup
	s.state.Dropoff = &dropoff
	s.persist()
}

func (s *Session) SetVehicle(vehicle *models.Vehicle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Vehicle = vehicle
	s.persist()
}

func (s *Session) SetTiming(timing models.TripTiming) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Timing = timing
	s.persist()
}

func (s *Session) SetTripDetails(details models.TripDetails) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Details = details
	s.persist()
}

func (s *Session) SetPartner(partner *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Partner = partner
	s.persist()
}

func (s *Session) SetPaymentMethod(method models.PaymentMethod) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.PaymentMethod = method
	s.persist()
}

func (s *Session) SetPricing(pricing *models.Pricing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Pricing = pricing
	s.persist()
}

func (s *Session) NextStep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Step >= StepActive {
		return
	}
	s.state.Step++
	s.persist()
	s.navigate(s.state.Step)
}

func (s *Session) PreviousStep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Step <= StepLocation {
		return
	}
	s.state.Step--
	s.persist()
	s.navigate(s.state.Step)
}

func (s *Session) GoToStep(step Step) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if step < StepLocation || step > StepActive || step == s.state.Step {
		return
	}
	s.state.Step = step
	s.persist()
	s.navigate(s.state.Step)
}

func (s *Session) CurrentStep() Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Step
}

// ConfirmBooking validates the collected state, finds a partner, computes the
// fare from the vehicle's rates and opens the trip on the backend.
func (s *Session) ConfirmBooking(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Pickup == nil || s.state.Dropoff == nil ||
		!s.state.Pickup.HasCoordinates() || !s.state.Dropoff.HasCoordinates() {
		return ErrMissingLocations
	}
	if s.state.Details.Passengers < 1 {
		return ErrMissingDetails
	}
	if s.state.Vehicle == nil {
		return ErrMissingVehicle
	}

	partner, vehicle, err := s.api.FindAvailablePartner(ctx)
	if err != nil {
		return err
	}
	if partner == nil {
		return ErrNoPartnerFound
	}
	if vehicle != nil {
		s.state.Vehicle = vehicle
	}
	s.state.Partner = partner

	distance := utils.CalculateDistance(
		s.state.Pickup.Latitude(), s.state.Pickup.Longitude(),
		s.state.Dropoff.Latitude(), s.state.Dropoff.Longitude(),
	)
	s.state.Pricing = QuotePricing(s.state.Vehicle.BaseFare, s.state.Vehicle.PricePerKm, distance)

	trip, err := s.api.CreateTrip(ctx, &validators.CreateTripRequest{
		PickupLocation: validators.LocationRequest{
			Latitude:  s.state.Pickup.Latitude(),
			Longitude: s.state.Pickup.Longitude(),
			Address:   s.state.Pickup.Address,
			PlaceName: s.state.Pickup.PlaceName,
		},
		DropoffLocation: validators.LocationRequest{
			Latitude:  s.state.Dropoff.Latitude(),
			Longitude: s.state.Dropoff.Longitude(),
			Address:   s.state.Dropoff.Address,
			PlaceName: s.state.Dropoff.PlaceName,
		},
		TripDetails: validators.TripDetailsRequest{
			Passengers:     s.state.Details.Passengers,
			Luggage:        s.state.Details.Luggage,
			SpecialRequest: s.state.Details.SpecialRequest,
		},
		ScheduledAt:    s.state.Timing.ScheduledAt,
		PaymentMethod:  string(s.state.PaymentMethod),
		IdempotencyKey: uuid.NewString(),
	})
	if err != nil {
		return err
	}

	s.state.BookingID = &trip.ID
	s.state.Status = models.TripStatusSearching
	s.state.Step = StepPayment
	s.persist()
	s.navigate(s.state.Step)

	return nil
}

func (s *Session) CancelBooking(ctx context.Context, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.BookingID == nil {
		return ErrNoBooking
	}
	if reason == "" {
		reason = utils.DefaultCancelReason
	}

	if err := s.api.CancelTrip(ctx, *s.state.BookingID, reason); err != nil {
		return err
	}

	s.state.Status = models.TripStatusCancelled
	s.clearLocked()

	return nil
}

func (s *Session) CompleteTrip(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.BookingID == nil {
		return ErrNoBooking
	}

	if err := s.api.UpdateTripStatus(ctx, *s.state.BookingID, models.TripStatusCompleted); err != nil {
		return err
	}

	s.state.Status = models.TripStatusCompleted
	s.clearLocked()

	return nil
}

// HandleDriverResponse applies a driver's accept or refuse for tripID. An
// accept merges the partner and vehicle into the session and moves the trip
// to driver_matched; a refuse cancels the booking remotely and locally.
func (s *Session) HandleDriverResponse(ctx context.Context, tripID primitive.ObjectID, accepted bool, partner *models.User, vehicle *models.Vehicle, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.BookingID == nil || *s.state.BookingID != tripID {
		return ErrNoBooking
	}

	if !accepted {
		if reason == "" {
			reason = "Driver declined the trip"
		}
		if err := s.api.CancelTrip(ctx, tripID, reason); err != nil {
			return err
		}
		s.state.Status = models.TripStatusCancelled
		s.clearLocked()
		return nil
	}

	if err := s.api.UpdateTripStatus(ctx, tripID, models.TripStatusDriverMatched); err != nil {
		return err
	}

	s.state.Partner = partner
	if vehicle != nil {
		s.state.Vehicle = vehicle
	}
	s.state.Status = models.TripStatusDriverMatched
	s.state.Step = StepActive
	s.persist()
	s.navigate(s.state.Step)

	return nil
}

func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
}

func (s *Session) ResetStep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Step = StepLocation
	s.persist()
}

// Restore loads the persisted session at startup. It resumes only a booking
// that is still in flight and has both locations and a booking id; anything
// else is discarded.
func (s *Session) Restore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok, err := s.store.Load()
	if err != nil {
		if s.logger != nil {
			s.logger.WithError(err).Warn("Failed to load persisted booking session")
		}
		return false
	}
	if !ok {
		return false
	}

	resumable := stored.Pickup != nil && stored.Dropoff != nil &&
		stored.BookingID != nil && isInFlight(stored.Status)
	if !resumable {
		_ = s.store.Clear()
		return false
	}

	s.state = *stored
	s.state.Step = StepActive
	return true
}

func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) clearLocked() {
	s.state = State{Step: StepLocation}
	if err := s.store.Clear(); err != nil && s.logger != nil {
		s.logger.WithError(err).Warn("Failed to clear persisted booking session")
	}
}

func (s *Session) persist() {
	s.state.UpdatedAt = time.Now()
	if err := s.store.Save(&s.state); err != nil && s.logger != nil {
		s.logger.WithError(err).Warn("Failed to persist booking session")
	}
}

func isInFlight(status models.TripStatus) bool {
	for _, candidate := range models.InFlightStatuses() {
		if status == candidate {
			return true
		}
	}
	return false
}

// QuotePricing computes the fare for a distance at the given vehicle rates.
func QuotePricing(baseFare, pricePerKm, distanceKM float64) *models.Pricing {
	distanceFare := pricePerKm * distanceKM
	taxes := utils.RoundCurrency(utils.TaxRate*(baseFare+distanceFare), utils.DefaultCurrency)

	return &models.Pricing{
		BaseFare:     baseFare,
		DistanceFare: distanceFare,
		Taxes:        taxes,
		Total:        utils.RoundCurrency(baseFare+distanceFare+taxes, utils.DefaultCurrency),
		Currency:     utils.DefaultCurrency,
	}
}
