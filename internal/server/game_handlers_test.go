package server

import (
	"context"
	"net/http"
	"testing"
	"time"

	"dreamcore/internal/models"
	"dreamcore/internal/repository"
	"dreamcore/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// downGameRepo simulates a database that dropped its connections.
type downGameRepo struct{}

func (r *downGameRepo) storeDown() error {
	return &pgconn.PgError{Code: "08006", Message: "connection failure"}
}
func (r *downGameRepo) Create(context.Context, *models.Game) error { return r.storeDown() }
func (r *downGameRepo) GetByID(context.Context, uint) (*models.Game, error) {
	return nil, r.storeDown()
}
func (r *downGameRepo) List(context.Context, repository.GameSort, int, int) ([]*models.Game, error) {
	return nil, r.storeDown()
}
func (r *downGameRepo) Delete(context.Context, uint) error { return r.storeDown() }

func seedGame(t *testing.T, s *Server, userID uint, title string, createdAt time.Time) *models.Game {
	t.Helper()

	game := &models.Game{Title: title, UserID: userID, CreatedAt: createdAt}
	if err := s.db.Create(game).Error; err != nil {
		t.Fatalf("seed game %q: %v", title, err)
	}
	return game
}

func seedPost(t *testing.T, s *Server, gameID, userID uint, content string, createdAt time.Time) *models.Post {
	t.Helper()

	post := &models.Post{GameID: gameID, UserID: userID, Content: content, CreatedAt: createdAt}
	if err := s.db.Create(post).Error; err != nil {
		t.Fatalf("seed post %q: %v", content, err)
	}
	return post
}

type gameListResponse struct {
	Games []*models.Game `json:"games"`
	Count int            `json:"count"`
}

func listedTitles(resp gameListResponse) []string {
	titles := make([]string, 0, len(resp.Games))
	for _, g := range resp.Games {
		titles = append(titles, g.Title)
	}
	return titles
}

func TestGetGames(t *testing.T) {
	s := newTestServer(t)
	user := createUser(t, s, "curator", "dreamland42")

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	old := seedGame(t, s, user.ID, "Yume Nikki", base)
	mid := seedGame(t, s, user.ID, "Yume 2kki", base.Add(time.Hour))
	seedGame(t, s, user.ID, "Hylics", base.Add(2*time.Hour))

	// Two posts on the oldest game, one on the middle one.
	seedPost(t, s, old.ID, user.ID, "first", base.Add(time.Minute))
	seedPost(t, s, old.ID, user.ID, "second", base.Add(2*time.Minute))
	seedPost(t, s, mid.ID, user.ID, "only", base.Add(3*time.Minute))

	app := fiber.New()
	app.Get("/games", s.GetGames)

	t.Run("recent orders newest first", func(t *testing.T) {
		resp, err := app.Test(jsonRequest(t, http.MethodGet, "/games", nil, ""))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body gameListResponse
		decodeJSON(t, resp, &body)
		assert.Equal(t, []string{"Hylics", "Yume 2kki", "Yume Nikki"}, listedTitles(body))
	})

	t.Run("most_commented orders by post count", func(t *testing.T) {
		resp, err := app.Test(jsonRequest(t, http.MethodGet, "/games?sort=most_commented", nil, ""))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body gameListResponse
		decodeJSON(t, resp, &body)
		require.Len(t, body.Games, 3)
		assert.Equal(t, []string{"Yume Nikki", "Yume 2kki", "Hylics"}, listedTitles(body))
		assert.Equal(t, 2, body.Games[0].PostsCount)
	})

	t.Run("search filters fuzzily and keeps rank order", func(t *testing.T) {
		resp, err := app.Test(jsonRequest(t, http.MethodGet, "/games?q=yume", nil, ""))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body gameListResponse
		decodeJSON(t, resp, &body)
		assert.Equal(t, []string{"Yume 2kki", "Yume Nikki"}, listedTitles(body))
	})

	t.Run("pagination", func(t *testing.T) {
		resp, err := app.Test(jsonRequest(t, http.MethodGet, "/games?limit=1&offset=1", nil, ""))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body gameListResponse
		decodeJSON(t, resp, &body)
		assert.Equal(t, []string{"Yume 2kki"}, listedTitles(body))
	})

	t.Run("overlong query rejected", func(t *testing.T) {
		q := make([]byte, 101)
		for i := range q {
			q[i] = 'a'
		}
		resp, err := app.Test(jsonRequest(t, http.MethodGet, "/games?q="+string(q), nil, ""))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestGetGame(t *testing.T) {
	s := newTestServer(t)
	user := createUser(t, s, "curator", "dreamland42")

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	game := seedGame(t, s, user.ID, "Yume Nikki", base)
	seedPost(t, s, game.ID, user.ID, "first", base.Add(time.Minute))
	seedPost(t, s, game.ID, user.ID, "second", base.Add(2*time.Minute))

	app := fiber.New()
	app.Get("/games/:id", s.GetGame)

	t.Run("detail with posts in reading order", func(t *testing.T) {
		resp, err := app.Test(jsonRequest(t, http.MethodGet, "/games/1", nil, ""))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body struct {
			Game  *models.Game   `json:"game"`
			Posts []*models.Post `json:"posts"`
		}
		decodeJSON(t, resp, &body)
		assert.Equal(t, "Yume Nikki", body.Game.Title)
		require.Len(t, body.Posts, 2)
		assert.Equal(t, "first", body.Posts[0].Content)
		assert.Equal(t, 1, body.Posts[0].SeqNo)
		assert.Equal(t, 2, body.Posts[1].SeqNo)
	})

	t.Run("missing game is 404", func(t *testing.T) {
		resp, err := app.Test(jsonRequest(t, http.MethodGet, "/games/999", nil, ""))
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("invalid id is 400", func(t *testing.T) {
		resp, err := app.Test(jsonRequest(t, http.MethodGet, "/games/abc", nil, ""))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestGetGameStoreUnavailable(t *testing.T) {
	s := newTestServer(t)
	s.feedService = service.NewFeedService(&downGameRepo{}, s.postRepo, s.likeRepo)

	app := fiber.New()
	app.Get("/games/:id", s.GetGame)

	resp, err := app.Test(jsonRequest(t, http.MethodGet, "/games/1", nil, ""))
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var body models.ErrorResponse
	decodeJSON(t, resp, &body)
	assert.Equal(t, models.CodeTransient, body.Code)
}

func TestCreateGame(t *testing.T) {
	s := newTestServer(t)
	user := createUser(t, s, "curator", "dreamland42")

	app := authedApp(user.ID)
	app.Post("/games", s.CreateGame)

	tests := []struct {
		name           string
		body           map[string]string
		expectedStatus int
	}{
		{
			name:           "Success",
			body:           map[string]string{"title": "Yume Nikki", "game_url": "https://example.com/yn"},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "No URL",
			body:           map[string]string{"title": "Hylics"},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "Missing Title",
			body:           map[string]string{"game_url": "https://example.com"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Bad URL",
			body:           map[string]string{"title": "Broken", "game_url": "not a url"},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := app.Test(jsonRequest(t, http.MethodPost, "/games", tt.body, ""))
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
		})
	}

	t.Run("created game carries owner", func(t *testing.T) {
		resp, err := app.Test(jsonRequest(t, http.MethodPost, "/games",
			map[string]string{"title": "  OFF  "}, ""))
		require.NoError(t, err)
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		var game models.Game
		decodeJSON(t, resp, &game)
		assert.Equal(t, "OFF", game.Title)
		assert.Equal(t, user.ID, game.UserID)
	})
}

func TestDeleteGame(t *testing.T) {
	s := newTestServer(t)
	owner := createUser(t, s, "owner", "dreamland42")
	other := createUser(t, s, "other", "dreamland42")

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	game := seedGame(t, s, owner.ID, "Yume Nikki", base)
	seedPost(t, s, game.ID, other.ID, "a post", base.Add(time.Minute))

	t.Run("non-owner is forbidden", func(t *testing.T) {
		app := authedApp(other.ID)
		app.Delete("/games/:id", s.DeleteGame)

		resp, err := app.Test(jsonRequest(t, http.MethodDelete, "/games/1", nil, ""))
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("owner deletes game and its posts", func(t *testing.T) {
		app := authedApp(owner.ID)
		app.Delete("/games/:id", s.DeleteGame)

		resp, err := app.Test(jsonRequest(t, http.MethodDelete, "/games/1", nil, ""))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var posts int64
		require.NoError(t, s.db.Model(&models.Post{}).Where("game_id = ?", game.ID).Count(&posts).Error)
		assert.Zero(t, posts)
	})

	t.Run("deleting again is 404", func(t *testing.T) {
		app := authedApp(owner.ID)
		app.Delete("/games/:id", s.DeleteGame)

		resp, err := app.Test(jsonRequest(t, http.MethodDelete, "/games/1", nil, ""))
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}
