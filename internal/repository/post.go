package repository

import (
	"context"

	"dreamcore/internal/models"
	"dreamcore/internal/observability"

	"gorm.io/gorm"
)

// PostSort selects the ordering of a post listing within a game.
type PostSort string

const (
	// PostSortRecent orders chronologically, oldest first (reading order).
	PostSortRecent PostSort = "recent"
	// PostSortMostLiked orders by like count, ties broken by creation time
	// descending.
	PostSortMostLiked PostSort = "most_liked"
)

// ParsePostSort maps a query-string value onto a PostSort, defaulting to recent.
func ParsePostSort(s string) PostSort {
	if PostSort(s) == PostSortMostLiked {
		return PostSortMostLiked
	}
	return PostSortRecent
}

// PostRepository defines the interface for post (comment) data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint, viewerID uint) (*models.Post, error)
	ListByGame(ctx context.Context, gameID uint, sort PostSort, viewerID uint) ([]*models.Post, error)
	Delete(ctx context.Context, id uint) error
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

// seqNoSubquery computes the post's 1-based chronological position within its
// game: how many posts in the same game were created at or before it, ties on
// created_at broken by id ascending. The number is stable across sort modes.
const seqNoSubquery = "(SELECT COUNT(*) FROM posts p2 WHERE p2.game_id = posts.game_id " +
	"AND (p2.created_at < posts.created_at OR (p2.created_at = posts.created_at AND p2.id <= posts.id)))"

// applyPostDetails adds subqueries to fetch the like count, sequence number,
// and the viewer's liked flag in a single query.
func (r *postRepository) applyPostDetails(db *gorm.DB, viewerID uint) *gorm.DB {
	selectQuery := "posts.*, " +
		"(SELECT COUNT(*) FROM likes WHERE likes.post_id = posts.id) AS likes_count, " +
		seqNoSubquery + " AS seq_no"

	if viewerID != 0 {
		return db.Select(selectQuery+", EXISTS(SELECT 1 FROM likes WHERE likes.post_id = posts.id AND likes.user_id = ?) AS liked", viewerID)
	}

	return db.Select(selectQuery + ", false AS liked")
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *postRepository) GetByID(ctx context.Context, id uint, viewerID uint) (*models.Post, error) {
	var post models.Post
	err := r.applyPostDetails(r.db.WithContext(ctx).Model(&models.Post{}), viewerID).
		Preload("User").
		First(&post, id).Error
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) ListByGame(ctx context.Context, gameID uint, sort PostSort, viewerID uint) ([]*models.Post, error) {
	ctx, span := observability.TraceRepositoryMethod(ctx, "ListByGame", "posts")
	defer span.End()

	var posts []*models.Post
	base := r.applyPostDetails(r.db.WithContext(ctx).Model(&models.Post{}), viewerID).
		Preload("User").
		Where("game_id = ?", gameID)

	switch sort {
	case PostSortMostLiked:
		base = base.Order("likes_count DESC, created_at DESC, id DESC")
	default:
		base = base.Order("created_at ASC, id ASC")
	}

	err := base.Find(&posts).Error
	return posts, err
}

// Delete removes the post and its likes in one transaction.
// Returns gorm.ErrRecordNotFound if the post does not exist.
func (r *postRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Post{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
