package services

import (
	"context"
	"fmt"
	"time"

	"tripmingle/internal/models"
	"tripmingle/internal/utils"
	"tripmingle/pkg/cache"
	"tripmingle/pkg/logger"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CacheService interface {
	// Basic cache operations
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	SetExpire(ctx context.Context, key string, expiration time.Duration) error

	// Pub/Sub operations
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub

	// Trip cache operations
	CacheTrip(ctx context.Context, trip *models.Trip, expiration time.Duration) error
	GetCachedTrip(ctx context.Context, tripID primitive.ObjectID) (*models.Trip, error)
	InvalidateTrip(ctx context.Context, tripID primitive.ObjectID) error

	// Unread notification counters
	GetCachedUnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, bool)
	SetCachedUnreadCount(ctx context.Context, userID primitive.ObjectID, count int64) error
	InvalidateUnreadCount(ctx context.Context, userID primitive.ObjectID) error

	// Idempotency reservations for trip creation
	ReserveIdempotencyKey(ctx context.Context, key string, tripID primitive.ObjectID) (bool, error)
	GetIdempotentTripID(ctx context.Context, key string) (primitive.ObjectID, bool)

	Ping(ctx context.Context) error
}

type cacheService struct {
	redis  *cache.RedisCache
	logger *logger.Logger
}

func NewCacheService(redisCache *cache.RedisCache, logger *logger.Logger) CacheService {
	return &cacheService{
		redis:  redisCache,
		logger: logger,
	}
}

func (s *cacheService) Get(ctx context.Context, key string, dest interface{}) error {
	return s.redis.Get(ctx, key, dest)
}

func (s *cacheService) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return s.redis.Set(ctx, key, value, expiration)
}

func (s *cacheService) Delete(ctx context.Context, keys ...string) error {
	return s.redis.Delete(ctx, keys...)
}

func (s *cacheService) Exists(ctx context.Context, key string) (bool, error) {
	return s.redis.Exists(ctx, key)
}

func (s *cacheService) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	return s.redis.SetNX(ctx, key, value, expiration)
}

func (s *cacheService) SetExpire(ctx context.Context, key string, expiration time.Duration) error {
	return s.redis.SetExpire(ctx, key, expiration)
}

func (s *cacheService) Publish(ctx context.Context, channel string, message interface{}) error {
	return s.redis.Publish(ctx, channel, message)
}

func (s *cacheService) Subscribe(ctx context.Context, channels ...string) *redis.PubSub {
	return s.redis.Subscribe(ctx, channels...)
}

func (s *cacheService) CacheTrip(ctx context.Context, trip *models.Trip, expiration time.Duration) error {
	return s.redis.Set(ctx, tripCacheKey(trip.ID), trip, expiration)
}

func (s *cacheService) GetCachedTrip(ctx context.Context, tripID primitive.ObjectID) (*models.Trip, error) {
	var trip models.Trip
	if err := s.redis.Get(ctx, tripCacheKey(tripID), &trip); err != nil {
		return nil, err
	}
	return &trip, nil
}

func (s *cacheService) InvalidateTrip(ctx context.Context, tripID primitive.ObjectID) error {
	return s.redis.Delete(ctx, tripCacheKey(tripID))
}

func (s *cacheService) GetCachedUnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, bool) {
	var count int64
	err := s.redis.Get(ctx, unreadCountKey(userID), &count)
	if err != nil {
		if err != redis.Nil {
			s.logger.WithError(err).Debug("Failed to read unread count from cache")
		}
		return 0, false
	}
	return count, true
}

func (s *cacheService) SetCachedUnreadCount(ctx context.Context, userID primitive.ObjectID, count int64) error {
	return s.redis.Set(ctx, unreadCountKey(userID), count, utils.UnreadCountCacheTTL)
}

func (s *cacheService) InvalidateUnreadCount(ctx context.Context, userID primitive.ObjectID) error {
	return s.redis.Delete(ctx, unreadCountKey(userID))
}

// ReserveIdempotencyKey claims key for tripID. It returns false when another
// request already holds the reservation.
func (s *cacheService) ReserveIdempotencyKey(ctx context.Context, key string, tripID primitive.ObjectID) (bool, error) {
	return s.redis.SetNX(ctx, idempotencyKey(key), tripID.Hex(), utils.IdempotencyKeyTTL)
}

func (s *cacheService) GetIdempotentTripID(ctx context.Context, key string) (primitive.ObjectID, bool) {
	var hex string
	if err := s.redis.Get(ctx, idempotencyKey(key), &hex); err != nil {
		return primitive.NilObjectID, false
	}

	tripID, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return tripID, true
}

func (s *cacheService) Ping(ctx context.Context) error {
	return s.redis.Ping(ctx)
}

func tripCacheKey(tripID primitive.ObjectID) string {
	return utils.TripCacheKeyPrefix + tripID.Hex()
}

func unreadCountKey(userID primitive.ObjectID) string {
	return utils.UnreadCountKeyPrefix + userID.Hex()
}

func idempotencyKey(key string) string {
	return utils.IdempotencyKeyPrefix + key
}

// TripUpdateChannel is the pub/sub channel carrying live updates for one trip.
func TripUpdateChannel(tripID primitive.ObjectID) string {
	return fmt.Sprintf("%s:%s", utils.TripUpdatesChannel, tripID.Hex())
}
