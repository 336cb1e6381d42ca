package websocket

import (
	"sync"
	"testing"
	"time"

	"tripmingle/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()

	testLogger, err := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Format: "text"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}

	hub := NewHub(testLogger)
	go hub.Run()
	return hub
}

func newTestClient(hub *Hub, buffer int) *Client {
	return &Client{
		hub:      hub,
		send:     make(chan []byte, buffer),
		UserID:   primitive.NewObjectID(),
		UserType: "client",
		rooms:    make(map[string]bool),
	}
}

func (h *Hub) hasClient(client *Client) bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.clients[client]
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestHubDeliversToUserRoom(t *testing.T) {
	hub := newTestHub(t)
	client := newTestClient(hub, 8)

	hub.register <- client
	waitFor(t, "client registration", func() bool { return hub.hasClient(client) })

	// Drain the welcome message.
	<-client.send

	hub.SendToUser(client.UserID, Message{Type: "trip_update", Timestamp: time.Now().Unix()})

	select {
	case <-client.send:
	case <-time.After(2 * time.Second):
		t.Fatal("message never reached the user room")
	}
}

func TestHubUnregistersStalledClient(t *testing.T) {
	hub := newTestHub(t)

	// Buffer of one fills on the welcome message; the next send stalls.
	client := newTestClient(hub, 1)
	hub.register <- client
	waitFor(t, "client registration", func() bool { return hub.hasClient(client) })

	hub.SendToUser(client.UserID, Message{Type: "trip_update", Timestamp: time.Now().Unix()})

	waitFor(t, "stalled client removal", func() bool { return !hub.hasClient(client) })

	// Unregistration closes the send channel exactly once.
	<-client.send
	if _, open := <-client.send; open {
		t.Error("send channel still open after unregistration")
	}
}

func TestHubConcurrentSendsAndDisconnects(t *testing.T) {
	hub := newTestHub(t)

	clients := make([]*Client, 20)
	for i := range clients {
		clients[i] = newTestClient(hub, 1)
		hub.register <- clients[i]
	}
	for _, client := range clients {
		waitFor(t, "client registration", func() bool { return hub.hasClient(client) })
	}

	var wg sync.WaitGroup
	for _, client := range clients {
		wg.Add(2)
		go func(c *Client) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				hub.SendToUser(c.UserID, Message{Type: "trip_update", Timestamp: time.Now().Unix()})
			}
		}(client)
		go func(c *Client) {
			defer wg.Done()
			hub.unregister <- c
		}(client)
	}
	wg.Wait()

	for _, client := range clients {
		waitFor(t, "client removal", func() bool { return !hub.hasClient(client) })
	}
}
