package middleware

import (
	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by command name.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dreamcore_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})

	// LikeToggles counts like toggle outcomes (liked / unliked / conflict).
	LikeToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dreamcore_like_toggles_total",
		Help: "Total number of like toggles by outcome",
	}, []string{"outcome"})

	// FeedSearches counts ranked listing requests by sort mode.
	FeedSearches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dreamcore_feed_requests_total",
		Help: "Total number of ranked listing requests by sort mode",
	}, []string{"sort"})

	// WebSocketDrops counts feed events dropped on slow or closed clients.
	WebSocketDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dreamcore_websocket_drops_total",
		Help: "Total number of websocket messages dropped by reason",
	}, []string{"reason"})
)

// InitMetrics creates the Prometheus middleware for the given service name.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	return fiberprometheus.New(serviceName)
}

// MetricsMiddleware returns the Fiber handler recording per-request metrics.
func MetricsMiddleware(prom *fiberprometheus.FiberPrometheus) fiber.Handler {
	return prom.Middleware
}
