package service

import (
	"context"
	"strings"

	"dreamcore/internal/cache"
	"dreamcore/internal/middleware"
	"dreamcore/internal/models"
	"dreamcore/internal/observability"
	"dreamcore/internal/repository"

	"gorm.io/gorm"
)

const maxContentLen = 10000

type PostService struct {
	db       *gorm.DB
	postRepo repository.PostRepository
	likeRepo repository.LikeRepository
	gameRepo repository.GameRepository
	// releaseMedia frees stored media after its owning post is deleted.
	// Nil when media support is disabled.
	releaseMedia func(ctx context.Context, ref string) error
}

type CreatePostInput struct {
	UserID   uint
	GameID   uint
	Content  string
	MediaRef string
}

func NewPostService(
	db *gorm.DB,
	postRepo repository.PostRepository,
	likeRepo repository.LikeRepository,
	gameRepo repository.GameRepository,
	releaseMedia func(ctx context.Context, ref string) error,
) *PostService {
	return &PostService{
		db:           db,
		postRepo:     postRepo,
		likeRepo:     likeRepo,
		gameRepo:     gameRepo,
		releaseMedia: releaseMedia,
	}
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	content := strings.TrimSpace(in.Content)
	mediaRef := strings.TrimSpace(in.MediaRef)

	if content == "" && mediaRef == "" {
		return nil, models.NewValidationError("Post needs text or media")
	}
	if len(content) > maxContentLen {
		return nil, models.NewValidationError("Content too long (max 10000 characters)")
	}

	if _, err := s.gameRepo.GetByID(ctx, in.GameID); err != nil {
		return nil, storeErr(err, "Game", in.GameID)
	}

	post := &models.Post{
		GameID:   in.GameID,
		UserID:   in.UserID,
		Content:  content,
		MediaRef: mediaRef,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, storeErr(err, "Post", 0)
	}

	// Post counts feed both the game detail and the most_commented listing.
	cache.InvalidateGame(ctx, in.GameID)
	cache.InvalidateGameLists(ctx)

	created, err := s.postRepo.GetByID(ctx, post.ID, in.UserID)
	if err != nil {
		return nil, storeErr(err, "Post", post.ID)
	}
	return created, nil
}

func (s *PostService) GetPost(ctx context.Context, postID, viewerID uint) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID, viewerID)
	if err != nil {
		return nil, storeErr(err, "Post", postID)
	}
	return post, nil
}

func (s *PostService) DeletePost(ctx context.Context, userID, postID uint) error {
	post, err := s.postRepo.GetByID(ctx, postID, userID)
	if err != nil {
		return storeErr(err, "Post", postID)
	}
	if err := assertOwner(post.UserID, userID, "You can only delete your own posts"); err != nil {
		return err
	}

	if err := s.postRepo.Delete(ctx, postID); err != nil {
		return storeErr(err, "Post", postID)
	}

	if post.MediaRef != "" && s.releaseMedia != nil {
		// Best effort: the post is gone either way.
		if err := s.releaseMedia(ctx, post.MediaRef); err != nil {
			middleware.Logger.WarnContext(ctx, "Failed to release media for deleted post",
				"post_id", postID, "media_ref", post.MediaRef, "error", err)
		}
	}

	cache.InvalidateGame(ctx, post.GameID)
	cache.InvalidateGameLists(ctx)
	return nil
}

// ToggleLike flips the (post, user) like state and returns the resulting
// state with a fresh count. The check and the flip run in one transaction;
// concurrent toggles on the same pair converge instead of erroring, and the
// returned count is read after the flip inside the same transaction.
func (s *PostService) ToggleLike(ctx context.Context, userID, postID uint) (*models.LikeState, error) {
	post, err := s.postRepo.GetByID(ctx, postID, 0)
	if err != nil {
		return nil, storeErr(err, "Post", postID)
	}

	var state models.LikeState
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ledger := s.likeRepo.WithTx(tx)

		liked, err := ledger.IsLiked(ctx, postID, userID)
		if err != nil {
			return err
		}

		if liked {
			// A racing remove may have won; zero rows still means unliked.
			if _, err := ledger.Remove(ctx, postID, userID); err != nil {
				return err
			}
			state.Liked = false
		} else {
			// A racing insert may have won; the pair is liked either way.
			if _, err := ledger.Insert(ctx, postID, userID); err != nil {
				return err
			}
			state.Liked = true
		}

		count, err := ledger.Count(ctx, postID)
		if err != nil {
			return err
		}
		state.LikesCount = count
		return nil
	})
	if err != nil {
		observability.RecordErrorInContext(ctx, err)
		if repository.IsUniqueViolation(err) {
			return nil, models.NewConflictError("Like toggled concurrently, retry", err)
		}
		return nil, storeErr(err, "Post", postID)
	}

	// The count and the most_liked order of this game's posts just moved.
	cache.InvalidateGamePosts(ctx, post.GameID)

	return &state, nil
}
