package server

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// requireWebSocketUpgrade rejects plain HTTP requests on websocket routes.
func requireWebSocketUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// FeedWebsocketHandler returns the handler for GET /api/ws/feed. Every
// subscriber receives every feed event; authentication is optional.
func (s *Server) FeedWebsocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, _ := conn.Locals("userID").(uint)

		client, err := s.feedHub.Register(conn, userID)
		if err != nil {
			log.Printf("feed subscriber rejected: %v", err)
			_ = conn.Close()
			return
		}

		go client.WritePump()
		client.ReadPump()
	})
}
