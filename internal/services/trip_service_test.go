package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"tripmingle/internal/config"
	"tripmingle/internal/models"
	"tripmingle/internal/repositories/interfaces"
	"tripmingle/internal/utils"
	"tripmingle/internal/validators"
	"tripmingle/pkg/logger"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// In-memory trip repository with the same versioning contract as the Mongo
// implementation: mutations match on the current version and bump it.

type fakeTripRepo struct {
	trips map[primitive.ObjectID]*models.Trip
}

func newFakeTripRepo() *fakeTripRepo {
	return &fakeTripRepo{trips: make(map[primitive.ObjectID]*models.Trip)}
}

func (r *fakeTripRepo) Create(ctx context.Context, trip *models.Trip) error {
	for _, existing := range r.trips {
		if trip.IdempotencyKey != "" && existing.IdempotencyKey == trip.IdempotencyKey {
			return interfaces.ErrDuplicateKey
		}
	}
	trip.ID = primitive.NewObjectID()
	trip.Version = 1
	trip.CreatedAt = time.Now()
	trip.UpdatedAt = trip.CreatedAt
	copied := *trip
	r.trips[trip.ID] = &copied
	return nil
}

func (r *fakeTripRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Trip, error) {
	trip, ok := r.trips[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	copied := *trip
	return &copied, nil
}

func (r *fakeTripRepo) GetByTripNumber(ctx context.Context, tripNumber string) (*models.Trip, error) {
	for _, trip := range r.trips {
		if trip.TripNumber == tripNumber {
			copied := *trip
			return &copied, nil
		}
	}
	return nil, interfaces.ErrNotFound
}

func (r *fakeTripRepo) GetByIdempotencyKey(ctx context.Context, key string) (*models.Trip, error) {
	for _, trip := range r.trips {
		if trip.IdempotencyKey == key {
			copied := *trip
			return &copied, nil
		}
	}
	return nil, interfaces.ErrNotFound
}

func (r *fakeTripRepo) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	if _, ok := r.trips[id]; !ok {
		return interfaces.ErrNotFound
	}
	return nil
}

func (r *fakeTripRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	delete(r.trips, id)
	return nil
}

func (r *fakeTripRepo) versioned(id primitive.ObjectID, version int64) (*models.Trip, error) {
	trip, ok := r.trips[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	if trip.Version != version {
		return nil, interfaces.ErrVersionConflict
	}
	return trip, nil
}

func (r *fakeTripRepo) UpdateStatus(ctx context.Context, id primitive.ObjectID, version int64, status models.TripStatus) error {
	trip, err := r.versioned(id, version)
	if err != nil {
		return err
	}
	trip.Status = status
	trip.Version++
	return nil
}

func (r *fakeTripRepo) AssignPartner(ctx context.Context, id primitive.ObjectID, version int64, partnerID, vehicleID primitive.ObjectID) error {
	trip, err := r.versioned(id, version)
	if err != nil {
		return err
	}
	trip.Status = models.TripStatusDriverMatched
	trip.PartnerID = &partnerID
	trip.VehicleID = &vehicleID
	trip.Version++
	return nil
}

func (r *fakeTripRepo) Cancel(ctx context.Context, id primitive.ObjectID, version int64, reason string, cancelledBy models.CancelActor) error {
	trip, err := r.versioned(id, version)
	if err != nil {
		return err
	}
	trip.Status = models.TripStatusCancelled
	trip.CancellationReason = reason
	trip.CancelledBy = cancelledBy
	trip.Version++
	return nil
}

func (r *fakeTripRepo) SetPricing(ctx context.Context, id primitive.ObjectID, version int64, pricing *models.Pricing) error {
	trip, err := r.versioned(id, version)
	if err != nil {
		return err
	}
	trip.Pricing = pricing
	trip.Version++
	return nil
}

func (r *fakeTripRepo) SetPaymentMethod(ctx context.Context, id primitive.ObjectID, version int64, method models.PaymentMethod) error {
	trip, err := r.versioned(id, version)
	if err != nil {
		return err
	}
	trip.PaymentMethod = method
	trip.Version++
	return nil
}

func (r *fakeTripRepo) GetByClient(ctx context.Context, clientID primitive.ObjectID, status *models.TripStatus, params *utils.PaginationParams) ([]*models.Trip, int64, error) {
	var out []*models.Trip
	for _, trip := range r.trips {
		if trip.ClientID == clientID && (status == nil || trip.Status == *status) {
			copied := *trip
			out = append(out, &copied)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeTripRepo) GetByPartner(ctx context.Context, partnerID primitive.ObjectID, status *models.TripStatus, params *utils.PaginationParams) ([]*models.Trip, int64, error) {
	var out []*models.Trip
	for _, trip := range r.trips {
		if trip.PartnerID != nil && *trip.PartnerID == partnerID && (status == nil || trip.Status == *status) {
			copied := *trip
			out = append(out, &copied)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeTripRepo) GetByStatus(ctx context.Context, status models.TripStatus, params *utils.PaginationParams) ([]*models.Trip, int64, error) {
	var out []*models.Trip
	for _, trip := range r.trips {
		if trip.Status == status {
			copied := *trip
			out = append(out, &copied)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeTripRepo) GetActiveByClient(ctx context.Context, clientID primitive.ObjectID) (*models.Trip, error) {
	for _, trip := range r.trips {
		if trip.ClientID == clientID && trip.IsActive() {
			copied := *trip
			return &copied, nil
		}
	}
	return nil, interfaces.ErrNotFound
}

func (r *fakeTripRepo) GetActiveByPartner(ctx context.Context, partnerID primitive.ObjectID) (*models.Trip, error) {
	for _, trip := range r.trips {
		if trip.PartnerID != nil && *trip.PartnerID == partnerID && trip.IsActive() {
			copied := *trip
			return &copied, nil
		}
	}
	return nil, interfaces.ErrNotFound
}

func (r *fakeTripRepo) GetExpiredSearching(ctx context.Context, olderThan time.Time) ([]*models.Trip, error) {
	var out []*models.Trip
	for _, trip := range r.trips {
		if trip.Status == models.TripStatusSearching && trip.CreatedAt.Before(olderThan) {
			copied := *trip
			out = append(out, &copied)
		}
	}
	return out, nil
}

type fakeUserRepo struct {
	users map[primitive.ObjectID]*models.User
}

func newFakeUserRepo(users ...*models.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[primitive.ObjectID]*models.User)}
	for _, user := range users {
		repo.users[user.ID] = user
	}
	return repo
}

func (r *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	user.ID = primitive.NewObjectID()
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return nil, interfaces.ErrNotFound
}

func (r *fakeUserRepo) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	return nil, interfaces.ErrNotFound
}

func (r *fakeUserRepo) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	return nil
}

func (r *fakeUserRepo) Delete(ctx context.Context, id primitive.ObjectID) error { return nil }

func (r *fakeUserRepo) UpdatePushToken(ctx context.Context, id primitive.ObjectID, token, platform string) error {
	return nil
}

func (r *fakeUserRepo) SetAvailability(ctx context.Context, id primitive.ObjectID, available bool) error {
	return nil
}

type fakeVehicleRepo struct {
	vehicles map[primitive.ObjectID]*models.Vehicle
}

func newFakeVehicleRepo(vehicles ...*models.Vehicle) *fakeVehicleRepo {
	repo := &fakeVehicleRepo{vehicles: make(map[primitive.ObjectID]*models.Vehicle)}
	for _, vehicle := range vehicles {
		repo.vehicles[vehicle.ID] = vehicle
	}
	return repo
}

func (r *fakeVehicleRepo) Create(ctx context.Context, vehicle *models.Vehicle) error {
	vehicle.ID = primitive.NewObjectID()
	r.vehicles[vehicle.ID] = vehicle
	return nil
}

func (r *fakeVehicleRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Vehicle, error) {
	vehicle, ok := r.vehicles[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	return vehicle, nil
}

func (r *fakeVehicleRepo) GetByPartner(ctx context.Context, partnerID primitive.ObjectID) ([]*models.Vehicle, error) {
	return nil, nil
}

func (r *fakeVehicleRepo) GetByLicensePlate(ctx context.Context, plate string) (*models.Vehicle, error) {
	return nil, interfaces.ErrNotFound
}

func (r *fakeVehicleRepo) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	return nil
}

func (r *fakeVehicleRepo) Delete(ctx context.Context, id primitive.ObjectID) error { return nil }

type recordedNotification struct {
	UserID primitive.ObjectID
	Type   models.NotificationType
	Title  string
}

type fakeNotificationService struct {
	sent []recordedNotification
}

func (f *fakeNotificationService) Notify(ctx context.Context, userID primitive.ObjectID, notificationType models.NotificationType, title, message string, tripID *primitive.ObjectID) error {
	f.sent = append(f.sent, recordedNotification{UserID: userID, Type: notificationType, Title: title})
	return nil
}

func (f *fakeNotificationService) GetUserNotifications(ctx context.Context, userID primitive.ObjectID, includeRead bool, params *utils.PaginationParams) ([]*models.Notification, int64, error) {
	return nil, 0, nil
}

func (f *fakeNotificationService) GetUnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return 0, nil
}

func (f *fakeNotificationService) MarkAsRead(ctx context.Context, id, userID primitive.ObjectID) error {
	return nil
}

func (f *fakeNotificationService) MarkAllAsRead(ctx context.Context, userID primitive.ObjectID) error {
	return nil
}

func (f *fakeNotificationService) SendSMS(ctx context.Context, phone, message string) error {
	return nil
}

func (f *fakeNotificationService) forUser(userID primitive.ObjectID) []recordedNotification {
	var out []recordedNotification
	for _, n := range f.sent {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

type chargedTrip struct {
	TripID primitive.ObjectID
	Amount float64
}

type fakePaymentService struct {
	charged []chargedTrip
	err     error
}

func (f *fakePaymentService) ChargeTrip(ctx context.Context, trip *models.Trip) error {
	if f.err != nil {
		return f.err
	}
	amount := 0.0
	if trip.Pricing != nil {
		amount = trip.Pricing.Total
	}
	f.charged = append(f.charged, chargedTrip{TripID: trip.ID, Amount: amount})
	return nil
}

type fakeCache struct {
	entries   map[string]primitive.ObjectID
	published []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]primitive.ObjectID)}
}

func (f *fakeCache) Get(ctx context.Context, key string, dest interface{}) error { return redis.Nil }
func (f *fakeCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return nil
}
func (f *fakeCache) Delete(ctx context.Context, keys ...string) error   { return nil }
func (f *fakeCache) Exists(ctx context.Context, key string) (bool, error) { return false, nil }
func (f *fakeCache) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	return true, nil
}
func (f *fakeCache) SetExpire(ctx context.Context, key string, expiration time.Duration) error {
	return nil
}

func (f *fakeCache) Publish(ctx context.Context, channel string, message interface{}) error {
	f.published = append(f.published, channel)
	return nil
}

func (f *fakeCache) Subscribe(ctx context.Context, channels ...string) *redis.PubSub { return nil }

func (f *fakeCache) CacheTrip(ctx context.Context, trip *models.Trip, expiration time.Duration) error {
	return nil
}

func (f *fakeCache) GetCachedTrip(ctx context.Context, tripID primitive.ObjectID) (*models.Trip, error) {
	return nil, redis.Nil
}

func (f *fakeCache) InvalidateTrip(ctx context.Context, tripID primitive.ObjectID) error { return nil }

func (f *fakeCache) GetCachedUnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, bool) {
	return 0, false
}

func (f *fakeCache) SetCachedUnreadCount(ctx context.Context, userID primitive.ObjectID, count int64) error {
	return nil
}

func (f *fakeCache) InvalidateUnreadCount(ctx context.Context, userID primitive.ObjectID) error {
	return nil
}

func (f *fakeCache) ReserveIdempotencyKey(ctx context.Context, key string, tripID primitive.ObjectID) (bool, error) {
	if _, ok := f.entries[key]; ok {
		return false, nil
	}
	f.entries[key] = tripID
	return true, nil
}

func (f *fakeCache) GetIdempotentTripID(ctx context.Context, key string) (primitive.ObjectID, bool) {
	id, ok := f.entries[key]
	return id, ok
}

func (f *fakeCache) Ping(ctx context.Context) error { return nil }

type fixture struct {
	service       TripService
	tripRepo      *fakeTripRepo
	notifications *fakeNotificationService
	payments      *fakePaymentService
	cache         *fakeCache
	client        *models.User
	partner       *models.User
	vehicle       *models.Vehicle
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	client := &models.User{ID: primitive.NewObjectID(), UserType: models.UserTypeClient}
	partner := &models.User{ID: primitive.NewObjectID(), UserType: models.UserTypePartner}
	vehicle := &models.Vehicle{ID: primitive.NewObjectID(), PartnerID: partner.ID, BaseFare: 50, PricePerKm: 5}

	tripRepo := newFakeTripRepo()
	notifications := &fakeNotificationService{}
	payments := &fakePaymentService{}
	cacheSvc := newFakeCache()

	testLogger, err := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Format: "text"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}

	service := NewTripService(
		tripRepo,
		newFakeUserRepo(client, partner),
		newFakeVehicleRepo(vehicle),
		notifications,
		payments,
		cacheSvc,
		&config.BookingConfig{
			SearchTimeout:       10 * time.Minute,
			ExpirySweepInterval: time.Second,
			IdempotencyKeyTTL:   time.Hour,
			BaseFare:            50,
			PricePerKm:          5,
			TaxRate:             0.20,
		},
		testLogger,
	)

	return &fixture{
		service:       service,
		tripRepo:      tripRepo,
		notifications: notifications,
		payments:      payments,
		cache:         cacheSvc,
		client:        client,
		partner:       partner,
		vehicle:       vehicle,
	}
}

func createRequest(key string) *validators.CreateTripRequest {
	return &validators.CreateTripRequest{
		PickupLocation:  validators.LocationRequest{Latitude: 48.8566, Longitude: 2.3522, Address: "Pickup St"},
		DropoffLocation: validators.LocationRequest{Latitude: 48.9566, Longitude: 2.3522, Address: "Dropoff Ave"},
		TripDetails:     validators.TripDetailsRequest{Passengers: 2},
		PaymentMethod:   "card",
		IdempotencyKey:  key,
	}
}

func (f *fixture) createTrip(t *testing.T, key string) *models.Trip {
	t.Helper()
	trip, err := f.service.CreateTrip(context.Background(), f.client.ID, createRequest(key))
	if err != nil {
		t.Fatalf("CreateTrip: %v", err)
	}
	return trip
}

func (f *fixture) matchedTrip(t *testing.T) *models.Trip {
	t.Helper()
	trip := f.createTrip(t, "")
	accepted, err := f.service.AcceptTrip(context.Background(), trip.ID, f.partner.ID, f.vehicle.ID)
	if err != nil {
		t.Fatalf("AcceptTrip: %v", err)
	}
	return accepted
}

func TestCreateTrip(t *testing.T) {
	f := newFixture(t)

	trip := f.createTrip(t, "")

	if trip.Status != models.TripStatusSearching {
		t.Errorf("status = %v, want searching", trip.Status)
	}
	if trip.Version != 1 {
		t.Errorf("version = %d, want 1", trip.Version)
	}
	if trip.TripNumber == "" {
		t.Error("trip number not generated")
	}
	if trip.Pricing == nil || trip.Pricing.Total <= 0 {
		t.Error("pricing not quoted on create")
	}
	if len(f.notifications.forUser(f.client.ID)) != 1 {
		t.Errorf("client notifications = %d, want 1", len(f.notifications.forUser(f.client.ID)))
	}
	if len(f.cache.published) != 1 {
		t.Errorf("published updates = %d, want 1", len(f.cache.published))
	}
}

func TestCreateTripRejectsPartner(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.CreateTrip(context.Background(), f.partner.ID, createRequest(""))
	if !errors.Is(err, ErrNotAClient) {
		t.Errorf("err = %v, want ErrNotAClient", err)
	}
}

func TestCreateTripIdempotentReplay(t *testing.T) {
	f := newFixture(t)

	first := f.createTrip(t, "replay-key")
	second, err := f.service.CreateTrip(context.Background(), f.client.ID, createRequest("replay-key"))
	if err != nil {
		t.Fatalf("replayed CreateTrip: %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("replay created a new trip %s, want %s", second.ID.Hex(), first.ID.Hex())
	}
	if len(f.tripRepo.trips) != 1 {
		t.Errorf("stored trips = %d, want 1", len(f.tripRepo.trips))
	}
}

func TestCreateTripIdempotentReplayWithoutCache(t *testing.T) {
	f := newFixture(t)

	first := f.createTrip(t, "replay-key")
	// Cache lost its reservation; the unique index lookup still catches the
	// replay.
	delete(f.cache.entries, "replay-key")

	second, err := f.service.CreateTrip(context.Background(), f.client.ID, createRequest("replay-key"))
	if err != nil {
		t.Fatalf("replayed CreateTrip: %v", err)
	}
	if second.ID != first.ID {
		t.Error("replay without cache hit should still return the original trip")
	}
}

func TestCreateTripRejectsSecondActiveTrip(t *testing.T) {
	f := newFixture(t)

	f.createTrip(t, "")
	_, err := f.service.CreateTrip(context.Background(), f.client.ID, createRequest(""))
	if !errors.Is(err, ErrActiveTripExists) {
		t.Errorf("err = %v, want ErrActiveTripExists", err)
	}
}

func TestAcceptTrip(t *testing.T) {
	f := newFixture(t)

	trip := f.createTrip(t, "")
	accepted, err := f.service.AcceptTrip(context.Background(), trip.ID, f.partner.ID, f.vehicle.ID)
	if err != nil {
		t.Fatalf("AcceptTrip: %v", err)
	}

	if accepted.Status != models.TripStatusDriverMatched {
		t.Errorf("status = %v, want driver_matched", accepted.Status)
	}
	if accepted.PartnerID == nil || *accepted.PartnerID != f.partner.ID {
		t.Error("partner not assigned")
	}
	if accepted.Version != 2 {
		t.Errorf("version = %d, want 2", accepted.Version)
	}
}

func TestAcceptTripRace(t *testing.T) {
	f := newFixture(t)

	other := &models.User{ID: primitive.NewObjectID(), UserType: models.UserTypePartner}
	otherVehicle := &models.Vehicle{ID: primitive.NewObjectID(), PartnerID: other.ID}
	userRepo := newFakeUserRepo(f.client, f.partner, other)
	vehicleRepo := newFakeVehicleRepo(f.vehicle, otherVehicle)

	testLogger, _ := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Format: "text"})
	service := NewTripService(f.tripRepo, userRepo, vehicleRepo, f.notifications, f.payments, f.cache,
		&config.BookingConfig{SearchTimeout: 10 * time.Minute, BaseFare: 50, PricePerKm: 5, TaxRate: 0.20}, testLogger)

	trip, err := service.CreateTrip(context.Background(), f.client.ID, createRequest(""))
	if err != nil {
		t.Fatalf("CreateTrip: %v", err)
	}

	if _, err := service.AcceptTrip(context.Background(), trip.ID, f.partner.ID, f.vehicle.ID); err != nil {
		t.Fatalf("first AcceptTrip: %v", err)
	}

	_, err = service.AcceptTrip(context.Background(), trip.ID, other.ID, otherVehicle.ID)
	if !errors.Is(err, ErrTripNotSearching) {
		t.Errorf("second accept err = %v, want ErrTripNotSearching", err)
	}
}

func TestAcceptTripRejectsForeignVehicle(t *testing.T) {
	f := newFixture(t)

	foreign := &models.Vehicle{ID: primitive.NewObjectID(), PartnerID: primitive.NewObjectID()}
	f.tripRepo = newFakeTripRepo()
	vehicleRepo := newFakeVehicleRepo(f.vehicle, foreign)

	testLogger, _ := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Format: "text"})
	service := NewTripService(f.tripRepo, newFakeUserRepo(f.client, f.partner), vehicleRepo, f.notifications, f.payments, f.cache,
		&config.BookingConfig{SearchTimeout: 10 * time.Minute, BaseFare: 50, PricePerKm: 5, TaxRate: 0.20}, testLogger)

	trip, err := service.CreateTrip(context.Background(), f.client.ID, createRequest(""))
	if err != nil {
		t.Fatalf("CreateTrip: %v", err)
	}

	_, err = service.AcceptTrip(context.Background(), trip.ID, f.partner.ID, foreign.ID)
	if !errors.Is(err, ErrVehicleNotOwned) {
		t.Errorf("err = %v, want ErrVehicleNotOwned", err)
	}
}

func TestRefuseTripCancelsAndNotifiesBothParties(t *testing.T) {
	f := newFixture(t)

	trip := f.createTrip(t, "")
	if err := f.service.RefuseTrip(context.Background(), trip.ID, f.partner.ID, ""); err != nil {
		t.Fatalf("RefuseTrip: %v", err)
	}

	stored, _ := f.tripRepo.GetByID(context.Background(), trip.ID)
	if stored.Status != models.TripStatusCancelled {
		t.Errorf("status = %v, want cancelled", stored.Status)
	}
	if stored.CancelledBy != models.CancelledByPartner {
		t.Errorf("cancelled_by = %v, want partner", stored.CancelledBy)
	}
	if stored.CancellationReason != "Driver declined the trip" {
		t.Errorf("reason = %q, want default decline reason", stored.CancellationReason)
	}

	// One create notification plus one cancellation for the client, one
	// decline receipt for the partner.
	if got := len(f.notifications.forUser(f.client.ID)); got != 2 {
		t.Errorf("client notifications = %d, want 2", got)
	}
	if got := len(f.notifications.forUser(f.partner.ID)); got != 1 {
		t.Errorf("partner notifications = %d, want 1", got)
	}
}

func TestRefuseTripOnlyWhileSearching(t *testing.T) {
	f := newFixture(t)

	trip := f.matchedTrip(t)
	err := f.service.RefuseTrip(context.Background(), trip.ID, f.partner.ID, "")
	if !errors.Is(err, ErrTripNotSearching) {
		t.Errorf("err = %v, want ErrTripNotSearching", err)
	}
}

func TestUpdateTripStatusWalksLifecycle(t *testing.T) {
	f := newFixture(t)

	trip := f.matchedTrip(t)
	for _, status := range []models.TripStatus{
		models.TripStatusDriverApproaching,
		models.TripStatusDriverArrived,
		models.TripStatusInProgress,
		models.TripStatusCompleted,
	} {
		updated, err := f.service.UpdateTripStatus(context.Background(), trip.ID, f.partner.ID, status)
		if err != nil {
			t.Fatalf("UpdateTripStatus(%s): %v", status, err)
		}
		if updated.Status != status {
			t.Errorf("status = %v, want %v", updated.Status, status)
		}
	}

	if len(f.payments.charged) != 1 {
		t.Fatalf("charged trips = %d, want 1", len(f.payments.charged))
	}
	if f.payments.charged[0].TripID != trip.ID {
		t.Error("completed trip was not the one charged")
	}
}

func TestUpdateTripStatusRejectsInvalidTransition(t *testing.T) {
	f := newFixture(t)

	trip := f.matchedTrip(t)
	_, err := f.service.UpdateTripStatus(context.Background(), trip.ID, f.partner.ID, models.TripStatusCompleted)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestUpdateTripStatusRejectsForeignPartner(t *testing.T) {
	f := newFixture(t)

	trip := f.matchedTrip(t)
	_, err := f.service.UpdateTripStatus(context.Background(), trip.ID, primitive.NewObjectID(), models.TripStatusDriverApproaching)
	if !errors.Is(err, ErrTripNotOwned) {
		t.Errorf("err = %v, want ErrTripNotOwned", err)
	}
}

func TestUpdateTripStatusNeedsPartner(t *testing.T) {
	f := newFixture(t)

	trip := f.createTrip(t, "")
	_, err := f.service.UpdateTripStatus(context.Background(), trip.ID, f.partner.ID, models.TripStatusDriverApproaching)
	if !errors.Is(err, ErrNoPartnerAssigned) {
		t.Errorf("err = %v, want ErrNoPartnerAssigned", err)
	}
}

func TestCancelTripByClient(t *testing.T) {
	f := newFixture(t)

	trip := f.matchedTrip(t)
	cancelled, err := f.service.CancelTrip(context.Background(), trip.ID, f.client.ID, models.CancelledByClient, "Plans changed")
	if err != nil {
		t.Fatalf("CancelTrip: %v", err)
	}

	if cancelled.Status != models.TripStatusCancelled {
		t.Errorf("status = %v, want cancelled", cancelled.Status)
	}
	if cancelled.CancellationReason != "Plans changed" {
		t.Errorf("reason = %q", cancelled.CancellationReason)
	}

	// The assigned partner hears about a client cancellation.
	if got := len(f.notifications.forUser(f.partner.ID)); got != 1 {
		t.Errorf("partner notifications = %d, want 1", got)
	}
}

func TestCancelTripRejectsForeignClient(t *testing.T) {
	f := newFixture(t)

	trip := f.createTrip(t, "")
	_, err := f.service.CancelTrip(context.Background(), trip.ID, primitive.NewObjectID(), models.CancelledByClient, "")
	if !errors.Is(err, ErrTripNotOwned) {
		t.Errorf("err = %v, want ErrTripNotOwned", err)
	}
}

func TestCancelCompletedTrip(t *testing.T) {
	f := newFixture(t)

	trip := f.matchedTrip(t)
	for _, status := range []models.TripStatus{
		models.TripStatusDriverApproaching,
		models.TripStatusDriverArrived,
		models.TripStatusInProgress,
		models.TripStatusCompleted,
	} {
		if _, err := f.service.UpdateTripStatus(context.Background(), trip.ID, f.partner.ID, status); err != nil {
			t.Fatalf("UpdateTripStatus(%s): %v", status, err)
		}
	}

	_, err := f.service.CancelTrip(context.Background(), trip.ID, f.client.ID, models.CancelledByClient, "")
	if !errors.Is(err, ErrTerminalTrip) {
		t.Errorf("err = %v, want ErrTerminalTrip", err)
	}
}

func TestSetPaymentMethod(t *testing.T) {
	f := newFixture(t)

	trip := f.createTrip(t, "")
	if err := f.service.SetPaymentMethod(context.Background(), trip.ID, f.client.ID, models.PaymentMethodCash); err != nil {
		t.Fatalf("SetPaymentMethod: %v", err)
	}

	stored, _ := f.tripRepo.GetByID(context.Background(), trip.ID)
	if stored.PaymentMethod != models.PaymentMethodCash {
		t.Errorf("payment method = %v, want cash", stored.PaymentMethod)
	}
	if stored.Version != trip.Version+1 {
		t.Errorf("version = %d, want %d", stored.Version, trip.Version+1)
	}
}

func TestSetPaymentMethodLockedInProgress(t *testing.T) {
	f := newFixture(t)

	trip := f.matchedTrip(t)
	for _, status := range []models.TripStatus{
		models.TripStatusDriverApproaching,
		models.TripStatusDriverArrived,
		models.TripStatusInProgress,
	} {
		if _, err := f.service.UpdateTripStatus(context.Background(), trip.ID, f.partner.ID, status); err != nil {
			t.Fatalf("UpdateTripStatus(%s): %v", status, err)
		}
	}

	err := f.service.SetPaymentMethod(context.Background(), trip.ID, f.client.ID, models.PaymentMethodCash)
	if !errors.Is(err, ErrPaymentMethodFixed) {
		t.Errorf("err = %v, want ErrPaymentMethodFixed", err)
	}
}

func TestSetTripPricing(t *testing.T) {
	f := newFixture(t)

	trip := f.createTrip(t, "")
	pricing := &models.Pricing{BaseFare: 40, DistanceFare: 30, Taxes: 14, Total: 84, Currency: utils.DefaultCurrency}
	if err := f.service.SetTripPricing(context.Background(), trip.ID, f.client.ID, pricing); err != nil {
		t.Fatalf("SetTripPricing: %v", err)
	}

	stored, _ := f.tripRepo.GetByID(context.Background(), trip.ID)
	if stored.Pricing.Total != 84 {
		t.Errorf("total = %v, want 84", stored.Pricing.Total)
	}
	if stored.Version != trip.Version+1 {
		t.Errorf("version = %d, want %d", stored.Version, trip.Version+1)
	}
}

func TestSetTripPricingRejectsOtherClient(t *testing.T) {
	f := newFixture(t)

	trip := f.createTrip(t, "")
	pricing := &models.Pricing{BaseFare: 40, Total: 40, Currency: utils.DefaultCurrency}
	err := f.service.SetTripPricing(context.Background(), trip.ID, primitive.NewObjectID(), pricing)
	if !errors.Is(err, ErrTripNotOwned) {
		t.Errorf("err = %v, want ErrTripNotOwned", err)
	}
}

func TestSetTripPricingRejectsTerminalTrip(t *testing.T) {
	f := newFixture(t)

	trip := f.createTrip(t, "")
	if _, err := f.service.CancelTrip(context.Background(), trip.ID, f.client.ID, models.CancelledByClient, ""); err != nil {
		t.Fatalf("CancelTrip: %v", err)
	}

	pricing := &models.Pricing{BaseFare: 40, Total: 40, Currency: utils.DefaultCurrency}
	err := f.service.SetTripPricing(context.Background(), trip.ID, f.client.ID, pricing)
	if !errors.Is(err, ErrTerminalTrip) {
		t.Errorf("err = %v, want ErrTerminalTrip", err)
	}
}

func TestGetClientTripsStatusFilter(t *testing.T) {
	f := newFixture(t)

	first := f.createTrip(t, "")
	if _, err := f.service.CancelTrip(context.Background(), first.ID, f.client.ID, models.CancelledByClient, ""); err != nil {
		t.Fatalf("CancelTrip: %v", err)
	}
	f.createTrip(t, "")

	cancelled := models.TripStatusCancelled
	trips, total, err := f.service.GetClientTrips(context.Background(), f.client.ID, &cancelled, utils.DefaultPaginationParams())
	if err != nil {
		t.Fatalf("GetClientTrips: %v", err)
	}
	if total != 1 || len(trips) != 1 {
		t.Fatalf("got %d trips (total %d), want 1", len(trips), total)
	}
	if trips[0].Status != models.TripStatusCancelled {
		t.Errorf("status = %v, want cancelled", trips[0].Status)
	}

	trips, total, err = f.service.GetClientTrips(context.Background(), f.client.ID, nil, utils.DefaultPaginationParams())
	if err != nil {
		t.Fatalf("GetClientTrips: %v", err)
	}
	if total != 2 || len(trips) != 2 {
		t.Errorf("got %d trips (total %d), want 2 without filter", len(trips), total)
	}
}

func TestSweepExpiredSearches(t *testing.T) {
	f := newFixture(t)

	trip := f.createTrip(t, "")

	// Age the stored trip past the search timeout.
	stored := f.tripRepo.trips[trip.ID]
	stored.CreatedAt = time.Now().Add(-time.Hour)

	f.service.(*tripService).sweepExpiredSearches(context.Background())

	after, _ := f.tripRepo.GetByID(context.Background(), trip.ID)
	if after.Status != models.TripStatusCancelled {
		t.Errorf("status = %v, want cancelled", after.Status)
	}
	if after.CancelledBy != models.CancelledBySystem {
		t.Errorf("cancelled_by = %v, want system", after.CancelledBy)
	}
	if after.CancellationReason != utils.NoDriverFoundReason {
		t.Errorf("reason = %q, want %q", after.CancellationReason, utils.NoDriverFoundReason)
	}
}

func TestSweepLeavesFreshSearchesAlone(t *testing.T) {
	f := newFixture(t)

	trip := f.createTrip(t, "")
	f.service.(*tripService).sweepExpiredSearches(context.Background())

	after, _ := f.tripRepo.GetByID(context.Background(), trip.ID)
	if after.Status != models.TripStatusSearching {
		t.Errorf("status = %v, want searching", after.Status)
	}
}

func TestQuotedPricingUsesConfiguredRates(t *testing.T) {
	f := newFixture(t)

	pricing := f.service.(*tripService).quotePricing(10)
	if pricing.Total != 120 {
		t.Errorf("total = %v, want 120 for base 50, 5/km over 10km with 20%% tax", pricing.Total)
	}
	if pricing.Currency != utils.DefaultCurrency {
		t.Errorf("currency = %q, want %q", pricing.Currency, utils.DefaultCurrency)
	}
}

func TestStatusNotificationUserFacingTransitions(t *testing.T) {
	cases := []struct {
		status   models.TripStatus
		wantType models.NotificationType
		wantOK   bool
	}{
		{models.TripStatusDriverApproaching, models.NotificationTypeDriverApproaching, true},
		{models.TripStatusDriverArrived, models.NotificationTypeDriverArrived, true},
		{models.TripStatusInProgress, models.NotificationTypeTripStarted, true},
		{models.TripStatusCompleted, models.NotificationTypeTripCompleted, true},
		{models.TripStatusSearching, "", false},
		{models.TripStatusDriverMatched, "", false},
		{models.TripStatusCancelled, "", false},
	}

	for _, tc := range cases {
		notificationType, title, message, ok := statusNotification(tc.status)
		if ok != tc.wantOK {
			t.Errorf("statusNotification(%s) ok = %v, want %v", tc.status, ok, tc.wantOK)
			continue
		}
		if notificationType != tc.wantType {
			t.Errorf("statusNotification(%s) type = %v, want %v", tc.status, notificationType, tc.wantType)
		}
		if ok && (title == "" || message == "") {
			t.Errorf("statusNotification(%s) returned empty title or message", tc.status)
		}
	}
}
