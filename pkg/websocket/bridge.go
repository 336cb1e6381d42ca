package websocket

import (
	"context"
	"encoding/json"
	"time"

	"tripmingle/internal/services"
	"tripmingle/internal/utils"
	"tripmingle/pkg/cache"
	"tripmingle/pkg/logger"
)

// Bridge relays trip update events from Redis pub/sub into hub rooms, so
// every server instance delivers updates regardless of which instance
// handled the mutation.
type Bridge struct {
	hub    *Hub
	cache  *cache.RedisCache
	logger *logger.Logger
}

func NewBridge(hub *Hub, cache *cache.RedisCache, logger *logger.Logger) *Bridge {
	return &Bridge{
		hub:    hub,
		cache:  cache,
		logger: logger,
	}
}

// Run consumes trip update channels until the context is cancelled.
func (b *Bridge) Run(ctx context.Context) {
	pubsub := b.cache.PSubscribe(ctx, utils.TripUpdatesChannel+":*")
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}

			var update services.TripUpdate
			if err := json.Unmarshal([]byte(msg.Payload), &update); err != nil {
				b.logger.WithError(err).Warn("Failed to decode trip update payload")
				continue
			}

			b.deliver(update)
		}
	}
}

func (b *Bridge) deliver(update services.TripUpdate) {
	message := Message{
		Type:      "trip_update",
		RoomID:    TripRoom(update.TripID),
		Timestamp: time.Now().Unix(),
		Data: map[string]interface{}{
			"trip_id": update.TripID.Hex(),
			"status":  update.Status,
			"version": update.Version,
			"event":   update.Event,
			"trip":    update.Trip,
		},
	}

	b.hub.SendTripUpdate(update.TripID, message)

	// Trip parties get a copy in their personal rooms even when they have
	// not joined the trip room.
	if update.Trip != nil {
		b.hub.SendToUser(update.Trip.ClientID, message)
		if update.Trip.PartnerID != nil {
			b.hub.SendToUser(*update.Trip.PartnerID, message)
		}
	}
}
