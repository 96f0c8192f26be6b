package server

import (
	"dreamcore/internal/events"
	"dreamcore/internal/middleware"
	"dreamcore/internal/models"
	"dreamcore/internal/repository"
	"dreamcore/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetGames handles GET /api/games?sort=recent|most_commented&q=...&limit=&offset=
func (s *Server) GetGames(c *fiber.Ctx) error {
	sort := repository.ParseGameSort(c.Query("sort"))
	page := parsePagination(c, 20)

	middleware.FeedSearches.WithLabelValues(string(sort)).Inc()

	games, err := s.feedService.ListGames(c.Context(), service.ListGamesInput{
		Sort:   sort,
		Query:  c.Query("q"),
		Limit:  page.Limit,
		Offset: page.Offset,
	})
	if err != nil {
		return models.RespondAppError(c, err)
	}

	return c.JSON(fiber.Map{
		"games":  games,
		"count":  len(games),
		"sort":   sort,
		"limit":  page.Limit,
		"offset": page.Offset,
	})
}

// GetGame handles GET /api/games/:id?sort=recent|most_liked
func (s *Server) GetGame(c *fiber.Ctx) error {
	gameID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	sort := repository.ParsePostSort(c.Query("sort"))
	detail, err := s.feedService.GameDetail(c.Context(), gameID, optionalUserID(c), sort)
	if err != nil {
		return models.RespondAppError(c, err)
	}

	return c.JSON(detail)
}

// CreateGame handles POST /api/games
func (s *Server) CreateGame(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var req struct {
		Title   string `json:"title"`
		GameURL string `json:"game_url"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	game, err := s.gameService.CreateGame(c.Context(), service.CreateGameInput{
		UserID:  userID,
		Title:   req.Title,
		GameURL: req.GameURL,
	})
	if err != nil {
		return models.RespondAppError(c, err)
	}

	s.publishFeed(c.Context(), events.EventGameCreated, game.ID, 0, game)

	return c.Status(fiber.StatusCreated).JSON(game)
}

// DeleteGame handles DELETE /api/games/:id
func (s *Server) DeleteGame(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	gameID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.gameService.DeleteGame(c.Context(), userID, gameID); err != nil {
		return models.RespondAppError(c, err)
	}

	s.publishFeed(c.Context(), events.EventGameDeleted, gameID, 0, nil)

	return c.JSON(fiber.Map{
		"message": "Game deleted successfully",
	})
}
