package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"dreamcore/internal/config"
	"dreamcore/internal/database"
	"dreamcore/internal/events"
	"dreamcore/internal/media"
	"dreamcore/internal/middleware"
	"dreamcore/internal/models"
	"dreamcore/internal/repository"
	"dreamcore/internal/service"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// newTestServer builds a Server over an in-memory sqlite database. The
// Prometheus middleware is left nil so repeated construction across tests
// does not re-register collectors.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	t.Setenv("APP_ENV", "test") // disables the Redis-backed rate limiter

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}

	cfg := &config.Config{
		JWTSecret: "test-secret-test-secret-test-secret",
		Env:       "test",
		MediaDir:  t.TempDir(),
	}
	middleware.InitMiddleware(cfg)

	userRepo := repository.NewUserRepository(db)
	gameRepo := repository.NewGameRepository(db)
	postRepo := repository.NewPostRepository(db)
	likeRepo := repository.NewLikeRepository(db)
	mediaStore := media.NewDiskStore(cfg)

	s := &Server{
		config:     cfg,
		db:         db,
		userRepo:   userRepo,
		gameRepo:   gameRepo,
		postRepo:   postRepo,
		likeRepo:   likeRepo,
		mediaStore: mediaStore,
		feedHub:    events.NewFeedHub(),
	}
	s.feedService = service.NewFeedService(gameRepo, postRepo, likeRepo)
	s.gameService = service.NewGameService(gameRepo)
	s.postService = service.NewPostService(db, postRepo, likeRepo, gameRepo, mediaStore.Delete)

	return s
}

// createUser inserts a user with a bcrypt-hashed password and returns it.
func createUser(t *testing.T, s *Server, username, password string) *models.User {
	t.Helper()

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := &models.User{Username: username, Password: string(hashed)}
	if err := s.db.Create(user).Error; err != nil {
		t.Fatalf("create user %q: %v", username, err)
	}
	return user
}

// jsonRequest builds an httptest request with a JSON body and optional bearer token.
func jsonRequest(t *testing.T, method, target string, body any, token string) *http.Request {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

// decodeJSON reads and unmarshals a response body.
func decodeJSON(t *testing.T, resp *http.Response, v any) {
	t.Helper()

	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("unmarshal body %q: %v", data, err)
	}
}

// authedApp returns a fiber app that injects the given user ID into locals,
// mirroring what AuthRequired does after validating a token.
func authedApp(userID uint) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("userID", userID)
		return c.Next()
	})
	return app
}
