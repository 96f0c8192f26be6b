package repository

import (
	"context"

	"dreamcore/internal/models"
	"dreamcore/internal/observability"

	"gorm.io/gorm"
)

// GameSort selects the ordering of a game listing.
type GameSort string

const (
	// GameSortRecent orders by creation time, newest first.
	GameSortRecent GameSort = "recent"
	// GameSortMostCommented orders by post count, ties broken by creation
	// time descending.
	GameSortMostCommented GameSort = "most_commented"
)

// ParseGameSort maps a query-string value onto a GameSort, defaulting to recent.
func ParseGameSort(s string) GameSort {
	if GameSort(s) == GameSortMostCommented {
		return GameSortMostCommented
	}
	return GameSortRecent
}

// GameRepository defines the interface for game (thread) data operations
type GameRepository interface {
	Create(ctx context.Context, game *models.Game) error
	GetByID(ctx context.Context, id uint) (*models.Game, error)
	List(ctx context.Context, sort GameSort, limit, offset int) ([]*models.Game, error)
	Delete(ctx context.Context, id uint) error
}

type gameRepository struct {
	db *gorm.DB
}

// NewGameRepository creates a new game repository
func NewGameRepository(db *gorm.DB) GameRepository {
	return &gameRepository{db: db}
}

// postsCountSelect annotates each game row with its post count in the same query.
const postsCountSelect = "games.*, " +
	"(SELECT COUNT(*) FROM posts WHERE posts.game_id = games.id) AS posts_count"

func (r *gameRepository) Create(ctx context.Context, game *models.Game) error {
	return r.db.WithContext(ctx).Create(game).Error
}

func (r *gameRepository) GetByID(ctx context.Context, id uint) (*models.Game, error) {
	var game models.Game
	err := r.db.WithContext(ctx).
		Model(&models.Game{}).
		Select(postsCountSelect).
		Preload("User").
		First(&game, id).Error
	if err != nil {
		return nil, err
	}
	return &game, nil
}

func (r *gameRepository) List(ctx context.Context, sort GameSort, limit, offset int) ([]*models.Game, error) {
	ctx, span := observability.TraceRepositoryMethod(ctx, "List", "games")
	defer span.End()

	var games []*models.Game
	base := r.db.WithContext(ctx).
		Model(&models.Game{}).
		Select(postsCountSelect).
		Preload("User")

	// The trailing id tie-break makes every ordering total, so listings are
	// reproducible even when timestamps collide.
	switch sort {
	case GameSortMostCommented:
		base = base.Order("posts_count DESC, created_at DESC, id DESC")
	default:
		base = base.Order("created_at DESC, id DESC")
	}

	err := base.Limit(limit).Offset(offset).Find(&games).Error
	return games, err
}

// Delete removes the game together with its posts and those posts' likes in
// one transaction. Returns gorm.ErrRecordNotFound if the game does not exist.
func (r *gameRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		postIDs := tx.Model(&models.Post{}).Select("id").Where("game_id = ?", id)
		if err := tx.Where("post_id IN (?)", postIDs).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("game_id = ?", id).Delete(&models.Post{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Game{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
