package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tripmingle/internal/config"
	"tripmingle/internal/models"
	"tripmingle/internal/observability"
	"tripmingle/internal/repositories/interfaces"
	"tripmingle/internal/utils"
	"tripmingle/internal/validators"
	"tripmingle/pkg/logger"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrTripNotFound       = errors.New("trip not found")
	ErrTripConflict       = errors.New("trip was modified concurrently")
	ErrInvalidTransition  = errors.New("invalid trip status transition")
	ErrTripNotOwned       = errors.New("trip does not belong to this user")
	ErrTripNotSearching   = errors.New("trip is no longer searching for a driver")
	ErrVehicleNotOwned    = errors.New("vehicle does not belong to this partner")
	ErrActiveTripExists   = errors.New("client already has an active trip")
	ErrNoPartnerAssigned  = errors.New("trip has no partner assigned")
	ErrTerminalTrip       = errors.New("trip is already completed or cancelled")
	ErrPaymentMethodFixed = errors.New("payment method can only change before the trip starts")
	ErrNotAClient         = errors.New("user is not a client")
	ErrNotAPartner        = errors.New("user is not a partner")
)

// TripUpdate is the envelope published on the trip's pub/sub channel after
// every mutation. WebSocket clients subscribed to the trip room receive it
// verbatim.
type TripUpdate struct {
	TripID    primitive.ObjectID `json:"trip_id"`
	Status    models.TripStatus  `json:"status"`
	Version   int64              `json:"version"`
	Event     string             `json:"event"`
	Trip      *models.Trip       `json:"trip,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

type TripService interface {
	CreateTrip(ctx context.Context, clientID primitive.ObjectID, req *validators.CreateTripRequest) (*models.Trip, error)
	GetTrip(ctx context.Context, tripID primitive.ObjectID) (*models.Trip, error)
	GetTripByNumber(ctx context.Context, tripNumber string) (*models.Trip, error)
	GetClientTrips(ctx context.Context, clientID primitive.ObjectID, status *models.TripStatus, params *utils.PaginationParams) ([]*models.Trip, int64, error)
	GetPartnerTrips(ctx context.Context, partnerID primitive.ObjectID, status *models.TripStatus, params *utils.PaginationParams) ([]*models.Trip, int64, error)
	GetActiveClientTrip(ctx context.Context, clientID primitive.ObjectID) (*models.Trip, error)
	GetActivePartnerTrip(ctx context.Context, partnerID primitive.ObjectID) (*models.Trip, error)

	AcceptTrip(ctx context.Context, tripID, partnerID, vehicleID primitive.ObjectID) (*models.Trip, error)
	RefuseTrip(ctx context.Context, tripID, partnerID primitive.ObjectID, reason string) error
	UpdateTripStatus(ctx context.Context, tripID, partnerID primitive.ObjectID, status models.TripStatus) (*models.Trip, error)
	CancelTrip(ctx context.Context, tripID, actorID primitive.ObjectID, actor models.CancelActor, reason string) (*models.Trip, error)
	SetPaymentMethod(ctx context.Context, tripID, clientID primitive.ObjectID, method models.PaymentMethod) error
	SetTripPricing(ctx context.Context, tripID, clientID primitive.ObjectID, pricing *models.Pricing) error

	// RunSearchExpiryWorker cancels searching trips that outlived the
	// search timeout. It blocks until ctx is done.
	RunSearchExpiryWorker(ctx context.Context)
}

type tripService struct {
	tripRepo            interfaces.TripRepository
	userRepo            interfaces.UserRepository
	vehicleRepo         interfaces.VehicleRepository
	notificationService NotificationService
	paymentService      PaymentService
	cache               CacheService
	bookingConfig       *config.BookingConfig
	logger              *logger.Logger
}

func NewTripService(
	tripRepo interfaces.TripRepository,
	userRepo interfaces.UserRepository,
	vehicleRepo interfaces.VehicleRepository,
	notificationService NotificationService,
	paymentService PaymentService,
	cache CacheService,
	bookingConfig *config.BookingConfig,
	logger *logger.Logger,
) TripService {
	return &tripService{
		tripRepo:            tripRepo,
		userRepo:            userRepo,
		vehicleRepo:         vehicleRepo,
		notificationService: notificationService,
		paymentService:      paymentService,
		cache:               cache,
		bookingConfig:       bookingConfig,
		logger:              logger,
	}
}

func (s *tripService) CreateTrip(ctx context.Context, clientID primitive.ObjectID, req *validators.CreateTripRequest) (*models.Trip, error) {
	if err := s.requireUserType(ctx, clientID, models.UserTypeClient); err != nil {
		return nil, err
	}

	idempotencyKey := req.IdempotencyKey
	if idempotencyKey == "" {
		idempotencyKey = uuid.NewString()
	}

	// A replayed create returns the trip from the first attempt instead of
	// opening a second search.
	if tripID, ok := s.cache.GetIdempotentTripID(ctx, idempotencyKey); ok {
		return s.GetTrip(ctx, tripID)
	}
	if existing, err := s.tripRepo.GetByIdempotencyKey(ctx, idempotencyKey); err == nil {
		return existing, nil
	}

	if _, err := s.tripRepo.GetActiveByClient(ctx, clientID); err == nil {
		return nil, ErrActiveTripExists
	}

	pickup := models.NewLocation(req.PickupLocation.Latitude, req.PickupLocation.Longitude, req.PickupLocation.Address, req.PickupLocation.PlaceName)
	dropoff := models.NewLocation(req.DropoffLocation.Latitude, req.DropoffLocation.Longitude, req.DropoffLocation.Address, req.DropoffLocation.PlaceName)

	distance := utils.CalculateDistance(pickup.Latitude(), pickup.Longitude(), dropoff.Latitude(), dropoff.Longitude())

	trip := &models.Trip{
		TripNumber:        utils.GenerateTripNumber(),
		ClientID:          clientID,
		Status:            models.TripStatusSearching,
		PickupLocation:    pickup,
		DropoffLocation:   dropoff,
		TripDetails: models.TripDetails{
			Passengers:     req.TripDetails.Passengers,
			Luggage:        req.TripDetails.Luggage,
			SpecialRequest: req.TripDetails.SpecialRequest,
		},
		Timing: models.TripTiming{
			IsScheduled: req.ScheduledAt != nil,
			ScheduledAt: req.ScheduledAt,
		},
		EstimatedDistance: distance,
		EstimatedDuration: utils.EstimateETAMinutes(distance, utils.AverageCitySpeedKMH),
		Pricing:           s.quotePricing(distance),
		PaymentMethod:     models.PaymentMethod(req.PaymentMethod),
		IdempotencyKey:    idempotencyKey,
	}

	if err := s.tripRepo.Create(ctx, trip); err != nil {
		if errors.Is(err, interfaces.ErrDuplicateKey) {
			// Lost the race against a concurrent replay. Serve its result.
			if existing, lookupErr := s.tripRepo.GetByIdempotencyKey(ctx, idempotencyKey); lookupErr == nil {
				return existing, nil
			}
		}
		return nil, err
	}

	if _, err := s.cache.ReserveIdempotencyKey(ctx, idempotencyKey, trip.ID); err != nil {
		s.logger.WithError(err).Debug("Idempotency fast path unavailable, unique index still covers replays")
	}

	observability.TripsCreatedTotal.Inc()
	s.logger.LogTripEvent(trip.ID, "created", map[string]interface{}{
		"client_id":   clientID.Hex(),
		"trip_number": trip.TripNumber,
		"distance_km": trip.EstimatedDistance,
	})

	s.notifyClient(ctx, trip, models.NotificationTypeTripCreated, "Trip created", "Searching for a driver near you")
	s.publishUpdate(ctx, trip, "created")

	return trip, nil
}

func (s *tripService) GetTrip(ctx context.Context, tripID primitive.ObjectID) (*models.Trip, error) {
	trip, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrTripNotFound
		}
		return nil, err
	}
	return trip, nil
}

func (s *tripService) GetTripByNumber(ctx context.Context, tripNumber string) (*models.Trip, error) {
	trip, err := s.tripRepo.GetByTripNumber(ctx, tripNumber)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrTripNotFound
		}
		return nil, err
	}
	return trip, nil
}

func (s *tripService) GetClientTrips(ctx context.Context, clientID primitive.ObjectID, status *models.TripStatus, params *utils.PaginationParams) ([]*models.Trip, int64, error) {
	return s.tripRepo.GetByClient(ctx, clientID, status, params)
}

func (s *tripService) GetPartnerTrips(ctx context.Context, partnerID primitive.ObjectID, status *models.TripStatus, params *utils.PaginationParams) ([]*models.Trip, int64, error) {
	return s.tripRepo.GetByPartner(ctx, partnerID, status, params)
}

func (s *tripService) GetActiveClientTrip(ctx context.Context, clientID primitive.ObjectID) (*models.Trip, error) {
	trip, err := s.tripRepo.GetActiveByClient(ctx, clientID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrTripNotFound
		}
		return nil, err
	}
	return trip, nil
}

func (s *tripService) GetActivePartnerTrip(ctx context.Context, partnerID primitive.ObjectID) (*models.Trip, error) {
	trip, err := s.tripRepo.GetActiveByPartner(ctx, partnerID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrTripNotFound
		}
		return nil, err
	}
	return trip, nil
}

// AcceptTrip assigns partnerID to a searching trip. Two partners racing for
// the same trip both read the same version; only the first versioned update
// lands and the loser gets ErrTripNotSearching.
func (s *tripService) AcceptTrip(ctx context.Context, tripID, partnerID, vehicleID primitive.ObjectID) (*models.Trip, error) {
	if err := s.requireUserType(ctx, partnerID, models.UserTypePartner); err != nil {
		return nil, err
	}

	trip, err := s.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}

	if trip.Status != models.TripStatusSearching {
		return nil, ErrTripNotSearching
	}

	vehicle, err := s.vehicleRepo.GetByID(ctx, vehicleID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, fmt.Errorf("vehicle not found")
		}
		return nil, err
	}
	if vehicle.PartnerID != partnerID {
		return nil, ErrVehicleNotOwned
	}

	err = s.tripRepo.AssignPartner(ctx, tripID, trip.Version, partnerID, vehicleID)
	if err != nil {
		if errors.Is(err, interfaces.ErrVersionConflict) {
			observability.TripVersionConflictsTotal.Inc()
			return nil, ErrTripNotSearching
		}
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrTripNotFound
		}
		return nil, err
	}

	trip, err = s.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}

	observability.TripStatusTransitionsTotal.WithLabelValues(string(models.TripStatusSearching), string(models.TripStatusDriverMatched)).Inc()
	s.logger.LogTripEvent(tripID, "accepted", map[string]interface{}{
		"partner_id": partnerID.Hex(),
		"vehicle_id": vehicleID.Hex(),
	})

	s.notifyClient(ctx, trip, models.NotificationTypeTripMatched, "Driver found", "A driver has accepted your trip")
	s.publishUpdate(ctx, trip, "accepted")

	return trip, nil
}

// RefuseTrip ends a searching trip on a partner's decline. The booking flow
// treats a refusal as final for this request; the client starts a new search
// from the app.
func (s *tripService) RefuseTrip(ctx context.Context, tripID, partnerID primitive.ObjectID, reason string) error {
	if err := s.requireUserType(ctx, partnerID, models.UserTypePartner); err != nil {
		return err
	}

	trip, err := s.GetTrip(ctx, tripID)
	if err != nil {
		return err
	}

	if trip.Status != models.TripStatusSearching {
		return ErrTripNotSearching
	}

	if reason == "" {
		reason = "Driver declined the trip"
	}

	err = s.tripRepo.Cancel(ctx, tripID, trip.Version, reason, models.CancelledByPartner)
	if err != nil {
		if errors.Is(err, interfaces.ErrVersionConflict) {
			observability.TripVersionConflictsTotal.Inc()
			return ErrTripNotSearching
		}
		if errors.Is(err, interfaces.ErrNotFound) {
			return ErrTripNotFound
		}
		return err
	}

	cancelled, err := s.GetTrip(ctx, tripID)
	if err != nil {
		return err
	}

	observability.TripsCancelledTotal.WithLabelValues(string(models.CancelledByPartner)).Inc()
	s.logger.LogTripEvent(tripID, "refused", map[string]interface{}{
		"partner_id": partnerID.Hex(),
		"reason":     reason,
	})

	s.notifyClient(ctx, cancelled, models.NotificationTypeTripCancelled, "Trip cancelled", reason)
	s.notifyUser(ctx, partnerID, cancelled, models.NotificationTypeTripCancelled, "Trip declined", reason)
	s.publishUpdate(ctx, cancelled, "refused")

	return nil
}

func (s *tripService) UpdateTripStatus(ctx context.Context, tripID, partnerID primitive.ObjectID, status models.TripStatus) (*models.Trip, error) {
	trip, err := s.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}

	if trip.PartnerID == nil {
		return nil, ErrNoPartnerAssigned
	}
	if *trip.PartnerID != partnerID {
		return nil, ErrTripNotOwned
	}
	if !trip.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, trip.Status, status)
	}

	previous := trip.Status

	err = s.tripRepo.UpdateStatus(ctx, tripID, trip.Version, status)
	if err != nil {
		if errors.Is(err, interfaces.ErrVersionConflict) {
			observability.TripVersionConflictsTotal.Inc()
			return nil, ErrTripConflict
		}
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrTripNotFound
		}
		return nil, err
	}

	trip, err = s.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}

	observability.TripStatusTransitionsTotal.WithLabelValues(string(previous), string(status)).Inc()
	s.logger.LogTripEvent(tripID, "status_changed", map[string]interface{}{
		"from": string(previous),
		"to":   string(status),
	})

	if status == models.TripStatusCompleted {
		observability.TripsCompletedTotal.Inc()
		if err := s.paymentService.ChargeTrip(ctx, trip); err != nil {
			s.logger.WithError(err).WithTripID(tripID).Error("Failed to charge completed trip")
		}
	}

	if notificationType, title, message, ok := statusNotification(status); ok {
		if status == models.TripStatusCompleted && trip.Pricing != nil {
			message = fmt.Sprintf("%s. Total fare: %s", message, utils.FormatCurrency(trip.Pricing.Total, trip.Pricing.Currency))
		}
		s.notifyClient(ctx, trip, notificationType, title, message)
	}
	s.publishUpdate(ctx, trip, "status_changed")

	return trip, nil
}

func (s *tripService) CancelTrip(ctx context.Context, tripID, actorID primitive.ObjectID, actor models.CancelActor, reason string) (*models.Trip, error) {
	trip, err := s.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}

	switch actor {
	case models.CancelledByClient:
		if trip.ClientID != actorID {
			return nil, ErrTripNotOwned
		}
	case models.CancelledByPartner:
		if trip.PartnerID == nil || *trip.PartnerID != actorID {
			return nil, ErrTripNotOwned
		}
	}

	if trip.Status.IsTerminal() {
		return nil, ErrTerminalTrip
	}

	if reason == "" {
		reason = utils.DefaultCancelReason
	}

	err = s.tripRepo.Cancel(ctx, tripID, trip.Version, reason, actor)
	if err != nil {
		if errors.Is(err, interfaces.ErrVersionConflict) {
			observability.TripVersionConflictsTotal.Inc()
			return nil, ErrTripConflict
		}
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrTripNotFound
		}
		return nil, err
	}

	cancelled, err := s.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}

	observability.TripsCancelledTotal.WithLabelValues(string(actor)).Inc()
	observability.TripStatusTransitionsTotal.WithLabelValues(string(trip.Status), string(models.TripStatusCancelled)).Inc()
	s.logger.LogTripEvent(tripID, "cancelled", map[string]interface{}{
		"cancelled_by": string(actor),
		"reason":       reason,
	})

	// Both sides hear about a cancellation when a partner was on the trip.
	s.notifyClient(ctx, cancelled, models.NotificationTypeTripCancelled, "Trip cancelled", reason)
	if cancelled.PartnerID != nil && actor != models.CancelledByPartner {
		s.notifyUser(ctx, *cancelled.PartnerID, cancelled, models.NotificationTypeTripCancelled, "Trip cancelled", reason)
	}
	s.publishUpdate(ctx, cancelled, "cancelled")

	return cancelled, nil
}

func (s *tripService) SetPaymentMethod(ctx context.Context, tripID, clientID primitive.ObjectID, method models.PaymentMethod) error {
	trip, err := s.GetTrip(ctx, tripID)
	if err != nil {
		return err
	}

	if trip.ClientID != clientID {
		return ErrTripNotOwned
	}
	if trip.Status == models.TripStatusInProgress || trip.Status.IsTerminal() {
		return ErrPaymentMethodFixed
	}

	err = s.tripRepo.SetPaymentMethod(ctx, tripID, trip.Version, method)
	if err != nil {
		if errors.Is(err, interfaces.ErrVersionConflict) {
			observability.TripVersionConflictsTotal.Inc()
			return ErrTripConflict
		}
		if errors.Is(err, interfaces.ErrNotFound) {
			return ErrTripNotFound
		}
		return err
	}

	if updated, err := s.GetTrip(ctx, tripID); err == nil {
		s.publishUpdate(ctx, updated, "payment_method_changed")
	}

	return nil
}

func (s *tripService) SetTripPricing(ctx context.Context, tripID, clientID primitive.ObjectID, pricing *models.Pricing) error {
	trip, err := s.GetTrip(ctx, tripID)
	if err != nil {
		return err
	}

	if trip.ClientID != clientID {
		return ErrTripNotOwned
	}
	if trip.Status.IsTerminal() {
		return ErrTerminalTrip
	}

	err = s.tripRepo.SetPricing(ctx, tripID, trip.Version, pricing)
	if err != nil {
		if errors.Is(err, interfaces.ErrVersionConflict) {
			observability.TripVersionConflictsTotal.Inc()
			return ErrTripConflict
		}
		if errors.Is(err, interfaces.ErrNotFound) {
			return ErrTripNotFound
		}
		return err
	}

	if updated, err := s.GetTrip(ctx, tripID); err == nil {
		s.publishUpdate(ctx, updated, "pricing_updated")
	}

	return nil
}

func (s *tripService) requireUserType(ctx context.Context, userID primitive.ObjectID, userType models.UserType) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return fmt.Errorf("user %s not found", userID.Hex())
		}
		return err
	}

	if user.UserType != userType {
		if userType == models.UserTypeClient {
			return ErrNotAClient
		}
		return ErrNotAPartner
	}

	return nil
}

func (s *tripService) RunSearchExpiryWorker(ctx context.Context) {
	ticker := time.NewTicker(s.bookingConfig.ExpirySweepInterval)
	defer ticker.Stop()

	s.logger.WithField("interval", s.bookingConfig.ExpirySweepInterval.String()).Info("Search expiry worker started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Search expiry worker stopped")
			return
		case <-ticker.C:
			s.sweepExpiredSearches(ctx)
		}
	}
}

func (s *tripService) sweepExpiredSearches(ctx context.Context) {
	observability.SearchExpirySweepsTotal.Inc()

	cutoff := time.Now().Add(-s.bookingConfig.SearchTimeout)
	trips, err := s.tripRepo.GetExpiredSearching(ctx, cutoff)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list expired searching trips")
		return
	}

	for _, trip := range trips {
		_, err := s.CancelTrip(ctx, trip.ID, primitive.NilObjectID, models.CancelledBySystem, utils.NoDriverFoundReason)
		if err != nil && !errors.Is(err, ErrTerminalTrip) && !errors.Is(err, ErrTripConflict) {
			s.logger.WithError(err).WithTripID(trip.ID).Error("Failed to expire searching trip")
		}
	}
}

func (s *tripService) quotePricing(distanceKM float64) *models.Pricing {
	baseFare := s.bookingConfig.BaseFare
	distanceFare := s.bookingConfig.PricePerKm * distanceKM
	taxes := utils.RoundCurrency(s.bookingConfig.TaxRate*(baseFare+distanceFare), utils.DefaultCurrency)

	return &models.Pricing{
		BaseFare:     baseFare,
		DistanceFare: distanceFare,
		Taxes:        taxes,
		Total:        utils.RoundCurrency(baseFare+distanceFare+taxes, utils.DefaultCurrency),
		Currency:     utils.DefaultCurrency,
	}
}

func (s *tripService) notifyClient(ctx context.Context, trip *models.Trip, notificationType models.NotificationType, title, message string) {
	s.notifyUser(ctx, trip.ClientID, trip, notificationType, title, message)
}

func (s *tripService) notifyUser(ctx context.Context, userID primitive.ObjectID, trip *models.Trip, notificationType models.NotificationType, title, message string) {
	tripID := trip.ID
	if err := s.notificationService.Notify(ctx, userID, notificationType, title, message, &tripID); err != nil {
		s.logger.WithError(err).WithTripID(trip.ID).Warn("Failed to create notification")
	}
}

func (s *tripService) publishUpdate(ctx context.Context, trip *models.Trip, event string) {
	update := &TripUpdate{
		TripID:    trip.ID,
		Status:    trip.Status,
		Version:   trip.Version,
		Event:     event,
		Trip:      trip,
		Timestamp: time.Now(),
	}

	if err := s.cache.Publish(ctx, TripUpdateChannel(trip.ID), update); err != nil {
		s.logger.WithError(err).WithTripID(trip.ID).Warn("Failed to publish trip update")
	}
}

func statusNotification(status models.TripStatus) (models.NotificationType, string, string, bool) {
	switch status {
	case models.TripStatusDriverApproaching:
		return models.NotificationTypeDriverApproaching, "Driver approaching", "Your driver is on the way", true
	case models.TripStatusDriverArrived:
		return models.NotificationTypeDriverArrived, "Driver arrived", "Your driver is waiting at the pickup point", true
	case models.TripStatusInProgress:
		return models.NotificationTypeTripStarted, "Trip started", "Enjoy your ride", true
	case models.TripStatusCompleted:
		return models.NotificationTypeTripCompleted, "Trip completed", "Thanks for riding with us", true
	}
	return "", "", "", false
}
