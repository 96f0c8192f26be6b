package service

import (
	"context"
	"net/url"
	"strings"

	"dreamcore/internal/cache"
	"dreamcore/internal/models"
	"dreamcore/internal/repository"
)

const (
	maxTitleLen   = 200
	maxGameURLLen = 2000
)

type GameService struct {
	gameRepo repository.GameRepository
}

type CreateGameInput struct {
	UserID  uint
	Title   string
	GameURL string
}

func NewGameService(gameRepo repository.GameRepository) *GameService {
	return &GameService{gameRepo: gameRepo}
}

func (s *GameService) CreateGame(ctx context.Context, in CreateGameInput) (*models.Game, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, models.NewValidationError("Title is required")
	}
	if len(title) > maxTitleLen {
		return nil, models.NewValidationError("Title too long (max 200 characters)")
	}

	gameURL := strings.TrimSpace(in.GameURL)
	if gameURL != "" {
		if len(gameURL) > maxGameURLLen {
			return nil, models.NewValidationError("game_url too long")
		}
		if _, err := url.ParseRequestURI(gameURL); err != nil {
			return nil, models.NewValidationError("game_url must be a valid URL")
		}
	}

	game := &models.Game{
		Title:   title,
		GameURL: gameURL,
		UserID:  in.UserID,
	}
	if err := s.gameRepo.Create(ctx, game); err != nil {
		return nil, storeErr(err, "Game", 0)
	}

	cache.InvalidateGameLists(ctx)

	created, err := s.gameRepo.GetByID(ctx, game.ID)
	if err != nil {
		return nil, storeErr(err, "Game", game.ID)
	}
	return created, nil
}

func (s *GameService) DeleteGame(ctx context.Context, userID, gameID uint) error {
	game, err := s.gameRepo.GetByID(ctx, gameID)
	if err != nil {
		return storeErr(err, "Game", gameID)
	}
	if err := assertOwner(game.UserID, userID, "You can only delete your own games"); err != nil {
		return err
	}

	if err := s.gameRepo.Delete(ctx, gameID); err != nil {
		return storeErr(err, "Game", gameID)
	}

	cache.InvalidateGame(ctx, gameID)
	cache.InvalidateGameLists(ctx)
	return nil
}
