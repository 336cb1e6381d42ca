package utils

import "time"

// Application Constants
const (
	AppName    = "TripMingle"
	AppVersion = "1.0.0"

	// Default values
	DefaultCurrency = "USD"
	DefaultTimeZone = "UTC"

	// Pagination
	DefaultPageSize = 20
	MaxPageSize     = 100
	MinPageSize     = 1

	// Authentication
	JWTAccessTokenTTL  = 24 * time.Hour
	JWTRefreshTokenTTL = 7 * 24 * time.Hour

	// Trip Constants
	EarthRadiusKM        = 6371.0
	DefaultSearchTimeout = 10 * time.Minute
	MaxTripDistance      = 500.0 // kilometers
	TaxRate              = 0.20
	AverageCitySpeedKMH  = 30.0
	DefaultCancelReason  = "Cancelled by user"
	NoDriverFoundReason  = "No driver found"

	// Notification
	UnreadCountCacheTTL = 5 * time.Minute

	// Idempotency
	IdempotencyKeyTTL = 24 * time.Hour

	// Cache keys and pub/sub channels
	TripCacheKeyPrefix   = "trip:"
	UnreadCountKeyPrefix = "notifications:unread:"
	IdempotencyKeyPrefix = "idempotency:trip:"
	TripUpdatesChannel   = "trip-updates"
)

// HTTP Status Messages
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Error Messages
const (
	ErrInvalidInput     = "invalid input"
	ErrInternalServer   = "internal server error"
	ErrUnauthorized     = "unauthorized"
	ErrForbidden        = "forbidden"
	ErrValidationFailed = "validation failed"
	ErrTripNotFound     = "trip not found"
	ErrUserNotFound     = "user not found"
	ErrVehicleNotFound  = "vehicle not found"
)
