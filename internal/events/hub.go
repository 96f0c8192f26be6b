package events

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/gofiber/websocket/v2"
)

const maxTotalConns = 10000

// FeedHub fans feed events out to every connected subscriber. The feed is the
// same for everyone, so clients are not keyed by user.
type FeedHub struct {
	mu    sync.RWMutex
	conns map[*Client]struct{}
}

func NewFeedHub() *FeedHub {
	return &FeedHub{conns: make(map[*Client]struct{})}
}

// Register adds a connection. userID is zero for anonymous subscribers.
func (h *FeedHub) Register(conn *websocket.Conn, userID uint) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.conns) >= maxTotalConns {
		return nil, errors.New("server connection limit reached")
	}

	client := newClient(h, conn, userID)
	h.conns[client] = struct{}{}
	return client, nil
}

func (h *FeedHub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, client)
}

// Len reports the number of connected subscribers.
func (h *FeedHub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// BroadcastAll sends the message to every connected subscriber.
func (h *FeedHub) BroadcastAll(message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.conns {
		c.TrySend(message)
	}
}

// StartWiring forwards Redis feed events into this hub.
func (h *FeedHub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartFeedSubscriber(ctx, func(payload string) {
		h.BroadcastAll([]byte(payload))
	})
}

// Shutdown closes every connection gracefully.
func (h *FeedHub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.conns {
		if client.Conn == nil {
			continue
		}
		if err := client.Conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutting down")); err != nil {
			log.Printf("failed to write close message for user %d: %v", client.UserID, err)
		}
		if err := client.Conn.Close(); err != nil {
			log.Printf("failed to close websocket for user %d: %v", client.UserID, err)
		}
	}
	h.conns = make(map[*Client]struct{})
	return nil
}
