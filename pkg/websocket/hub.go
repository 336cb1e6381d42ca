package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"tripmingle/internal/observability"
	"tripmingle/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Hub fans trip updates out to connected clients. Every client sits in its
// personal room; clients watching a trip join that trip's room.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	rooms      map[string]map[*Client]bool
	mutex      sync.RWMutex
	logger     *logger.Logger
}

type Message struct {
	Type      string                 `json:"type"`
	RoomID    string                 `json:"room_id,omitempty"`
	UserID    primitive.ObjectID     `json:"user_id,omitempty"`
	Timestamp int64                  `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

func NewHub(logger *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		rooms:      make(map[string]map[*Client]bool),
		logger:     logger,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.clients[client] = true
	observability.WebSocketConnections.Inc()
	h.logger.WithUserID(client.UserID).Debug("WebSocket client registered")

	h.joinRoom(client, UserRoom(client.UserID))

	welcome := Message{
		Type:      "welcome",
		UserID:    client.UserID,
		Timestamp: time.Now().Unix(),
		Data: map[string]interface{}{
			"message": "Connected successfully",
		},
	}
	h.sendToClient(client, welcome)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
		observability.WebSocketConnections.Dec()

		for roomID, room := range h.rooms {
			if _, exists := room[client]; exists {
				delete(room, client)
				if len(room) == 0 {
					delete(h.rooms, roomID)
				}
			}
		}

		h.logger.WithUserID(client.UserID).Debug("WebSocket client unregistered")
	}
}

func (h *Hub) broadcastMessage(message []byte) {
	var msg Message
	if err := json.Unmarshal(message, &msg); err != nil {
		h.logger.WithError(err).Warn("Failed to decode broadcast message")
		return
	}

	if msg.RoomID != "" {
		h.SendToRoom(msg.RoomID, msg)
		return
	}
	h.sendToAll(msg)
}

func (h *Hub) sendToAll(message Message) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	data, _ := json.Marshal(message)
	for client := range h.clients {
		h.trySend(client, data)
	}
}

func (h *Hub) SendToRoom(roomID string, message Message) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	room, exists := h.rooms[roomID]
	if !exists {
		return
	}

	data, _ := json.Marshal(message)
	for client := range room {
		h.trySend(client, data)
	}
}

func (h *Hub) sendToClient(client *Client, message Message) {
	data, _ := json.Marshal(message)
	h.trySend(client, data)
}

// trySend queues data for a client without blocking. A client whose buffer
// is full is handed to the unregister channel; only unregisterClient, which
// holds the write lock, removes it from the maps and closes its channel.
func (h *Hub) trySend(client *Client, data []byte) {
	select {
	case client.send <- data:
	default:
		go func() {
			h.unregister <- client
		}()
	}
}

func (h *Hub) SendToUser(userID primitive.ObjectID, message Message) {
	h.SendToRoom(UserRoom(userID), message)
}

func (h *Hub) SendTripUpdate(tripID primitive.ObjectID, message Message) {
	h.SendToRoom(TripRoom(tripID), message)
}

func (h *Hub) JoinTrip(client *Client, tripID primitive.ObjectID) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.joinRoom(client, TripRoom(tripID))
}

func (h *Hub) LeaveRoom(client *Client, roomID string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if room, exists := h.rooms[roomID]; exists {
		delete(room, client)
		delete(client.rooms, roomID)

		if len(room) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

func (h *Hub) joinRoom(client *Client, roomID string) {
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*Client]bool)
	}
	h.rooms[roomID][client] = true
	client.rooms[roomID] = true
}

func UserRoom(userID primitive.ObjectID) string {
	return "user_" + userID.Hex()
}

func TripRoom(tripID primitive.ObjectID) string {
	return "trip_" + tripID.Hex()
}
