// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"dreamcore/internal/cache"
	"dreamcore/internal/config"
	"dreamcore/internal/database"
	"dreamcore/internal/events"
	"dreamcore/internal/media"
	"dreamcore/internal/middleware"
	"dreamcore/internal/models"
	"dreamcore/internal/repository"
	"dreamcore/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	userRepo       repository.UserRepository
	gameRepo       repository.GameRepository
	postRepo       repository.PostRepository
	likeRepo       repository.LikeRepository
	mediaStore     media.Store
	feedService    *service.FeedService
	gameService    *service.GameService
	postService    *service.PostService
	notifier       *events.Notifier
	feedHub        *events.FeedHub
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	return NewServerWithDeps(cfg, db, cache.GetClient())
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis and
// optionally performs explicit seeding.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	userRepo := repository.NewUserRepository(db)
	gameRepo := repository.NewGameRepository(db)
	postRepo := repository.NewPostRepository(db)
	likeRepo := repository.NewLikeRepository(db)

	prom := middleware.InitMetrics("dreamcore-api")
	mediaStore := media.NewDiskStore(cfg)

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: prom,
		userRepo:       userRepo,
		gameRepo:       gameRepo,
		postRepo:       postRepo,
		likeRepo:       likeRepo,
		mediaStore:     mediaStore,
	}
	server.feedService = service.NewFeedService(gameRepo, postRepo, likeRepo)
	server.gameService = service.NewGameService(gameRepo)
	server.postService = service.NewPostService(db, postRepo, likeRepo, gameRepo, mediaStore.Delete)

	// The hub serves local websocket subscribers even without Redis; the
	// notifier only exists when events must cross instances.
	server.feedHub = events.NewFeedHub()
	if redisClient != nil {
		server.notifier = events.NewNotifier(redisClient)
	}

	return server, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Context Middleware to propagate Request ID and User ID
	app.Use(middleware.ContextMiddleware())

	// OpenTelemetry tracing (no-op tracer when tracing is disabled)
	app.Use(middleware.TracingMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS middleware should run before middlewares that can short-circuit
	// (e.g. limiter) so browser clients still receive CORS headers on error
	// responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		// Never rate-limit preflight requests; they should be handled by CORS.
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	// Backwards-compatible legacy route: map /health to readiness
	app.Get("/health", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Dreamcore Backend Metrics Dashboard",
	}))

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/signup", middleware.RateLimit(
		s.redis, 3, 10*time.Minute, "signup"), s.Signup)
	auth.Post("/login", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "login"), s.Login)

	// Public browse routes. OptionalAuth resolves the viewer so posts carry
	// the per-viewer liked flag without requiring a login.
	games := api.Group("/games")
	games.Get("/", middleware.OptionalAuth, s.GetGames)
	games.Get("/:id", middleware.OptionalAuth, s.GetGame)
	api.Get("/posts/:id", middleware.OptionalAuth, s.GetPost)

	// Stored media is public; refs are unguessable UUIDs.
	app.Get("/media/:ref", s.ServeMedia)

	// Protected routes
	protected := api.Group("", middleware.AuthRequired)
	protected.Post("/games", middleware.RateLimit(
		s.redis, 10, 10*time.Minute, "create_game"), s.CreateGame)
	protected.Delete("/games/:id", s.DeleteGame)
	protected.Post("/games/:id/posts", middleware.RateLimit(
		s.redis, 15, time.Minute, "create_post"), s.CreatePost)
	protected.Delete("/posts/:id", s.DeletePost)
	protected.Post("/posts/:id/like", s.ToggleLike)
	protected.Post("/media", middleware.RateLimit(
		s.redis, 20, 10*time.Minute, "upload_media"), s.UploadMedia)

	// Live feed websocket; anonymous subscribers are welcome.
	api.Get("/ws/feed", middleware.OptionalAuth, requireWebSocketUpgrade, s.FeedWebsocketHandler())
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	// Redis is optional: the app degrades to uncached, single-instance
	// operation without it, so only the database gates readiness.
	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"version": "1.0.0",
		"status":  overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// publishFeed fans a feed mutation out to live subscribers. With Redis the
// event crosses instances through pub/sub; without it the local hub gets it
// directly. Delivery is best effort, the HTTP response never waits on it.
func (s *Server) publishFeed(ctx context.Context, eventType string, gameID, postID uint, payload any) {
	ev, err := events.NewFeedEvent(eventType, gameID, postID, payload)
	if err != nil {
		log.Printf("failed to build %s feed event: %v", eventType, err)
		return
	}

	if s.notifier != nil {
		if err := s.notifier.PublishFeed(ctx, ev); err != nil {
			log.Printf("failed to publish %s feed event: %v", eventType, err)
		}
		return
	}

	if s.feedHub != nil {
		msg, err := json.Marshal(ev)
		if err != nil {
			log.Printf("failed to marshal %s feed event: %v", eventType, err)
			return
		}
		s.feedHub.BroadcastAll(msg)
	}
}

// newApp builds the Fiber app. The body limit tracks the media upload cap
// with headroom for multipart framing, so oversized uploads are rejected by
// the media store's own size check rather than a bare 413.
func (s *Server) newApp() *fiber.App {
	maxMB := s.config.MediaMaxSizeMB
	if maxMB <= 0 {
		maxMB = media.DefaultMaxSizeMB
	}

	return fiber.New(fiber.Config{
		AppName:   "Dreamcore API",
		BodyLimit: (maxMB + 1) * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fiberErr *fiber.Error
			if errors.As(err, &fiberErr) {
				return models.RespondWithError(c, fiberErr.Code, err)
			}
			log.Printf("Error: %v", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := s.newApp()
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	// Wire the hub to the Redis subscriber if available
	if s.notifier != nil {
		if err := s.feedHub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
			log.Printf("failed to start feed hub wiring: %v", err)
		}
	}

	log.Printf("Server starting on port %s...", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	// Cancel the server-scoped context to stop the subscriber goroutine
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	// Shutdown the HTTP/WS server
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	// Close WebSocket connections gracefully
	if s.feedHub != nil {
		if err := s.feedHub.Shutdown(ctx); err != nil {
			log.Printf("error shutting down feed hub: %v", err)
		}
	}

	// Close database connection
	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("error closing sql DB: %v", cerr)
		}
	}

	// Close Redis connection
	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
