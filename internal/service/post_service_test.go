package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"dreamcore/internal/cache"
	"dreamcore/internal/models"
	"dreamcore/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn     func(context.Context, *models.Post) error
	getByIDFn    func(context.Context, uint, uint) (*models.Post, error)
	listByGameFn func(context.Context, uint, repository.PostSort, uint) ([]*models.Post, error)
	deleteFn     func(context.Context, uint) error
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id, viewerID uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id, viewerID)
}
func (s *postRepoStub) ListByGame(ctx context.Context, gameID uint, sort repository.PostSort, viewerID uint) ([]*models.Post, error) {
	return s.listByGameFn(ctx, gameID, sort, viewerID)
}
func (s *postRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn: func(_ context.Context, _ *models.Post) error { return nil },
		getByIDFn: func(_ context.Context, _, _ uint) (*models.Post, error) {
			return &models.Post{}, nil
		},
		listByGameFn: func(_ context.Context, _ uint, _ repository.PostSort, _ uint) ([]*models.Post, error) {
			return nil, nil
		},
		deleteFn: func(_ context.Context, _ uint) error { return nil },
	}
}

// likeRepoStub is a stub for repository.LikeRepository.
type likeRepoStub struct {
	insertFn       func(context.Context, uint, uint) (bool, error)
	removeFn       func(context.Context, uint, uint) (bool, error)
	countFn        func(context.Context, uint) (int64, error)
	isLikedFn      func(context.Context, uint, uint) (bool, error)
	likedPostIDsFn func(context.Context, uint, []uint) ([]uint, error)
}

func (s *likeRepoStub) WithTx(_ *gorm.DB) repository.LikeRepository { return s }
func (s *likeRepoStub) Insert(ctx context.Context, postID, userID uint) (bool, error) {
	return s.insertFn(ctx, postID, userID)
}
func (s *likeRepoStub) Remove(ctx context.Context, postID, userID uint) (bool, error) {
	return s.removeFn(ctx, postID, userID)
}
func (s *likeRepoStub) Count(ctx context.Context, postID uint) (int64, error) {
	return s.countFn(ctx, postID)
}
func (s *likeRepoStub) IsLiked(ctx context.Context, postID, userID uint) (bool, error) {
	return s.isLikedFn(ctx, postID, userID)
}
func (s *likeRepoStub) LikedPostIDs(ctx context.Context, userID uint, postIDs []uint) ([]uint, error) {
	return s.likedPostIDsFn(ctx, userID, postIDs)
}

func noopLikeRepo() *likeRepoStub {
	return &likeRepoStub{
		insertFn:       func(_ context.Context, _, _ uint) (bool, error) { return true, nil },
		removeFn:       func(_ context.Context, _, _ uint) (bool, error) { return true, nil },
		countFn:        func(_ context.Context, _ uint) (int64, error) { return 0, nil },
		isLikedFn:      func(_ context.Context, _, _ uint) (bool, error) { return false, nil },
		likedPostIDsFn: func(_ context.Context, _ uint, _ []uint) ([]uint, error) { return nil, nil },
	}
}

// newTestTxDB opens an in-memory database used only as a transaction host.
func newTestTxDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	return db
}

// assertAppErrorCode asserts that err is an AppError carrying the given code.
func assertAppErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

func TestPostService_CreatePost_Validation(t *testing.T) {
	svc := NewPostService(newTestTxDB(t), noopPostRepo(), noopLikeRepo(), noopGameRepo(), nil)
	ctx := context.Background()

	t.Run("empty post rejected", func(t *testing.T) {
		_, err := svc.CreatePost(ctx, CreatePostInput{UserID: 1, GameID: 1})
		assertAppErrorCode(t, err, models.CodeValidation)
	})

	t.Run("whitespace only rejected", func(t *testing.T) {
		_, err := svc.CreatePost(ctx, CreatePostInput{UserID: 1, GameID: 1, Content: "   "})
		assertAppErrorCode(t, err, models.CodeValidation)
	})

	t.Run("content too long rejected", func(t *testing.T) {
		_, err := svc.CreatePost(ctx, CreatePostInput{
			UserID: 1, GameID: 1, Content: strings.Repeat("a", maxContentLen+1),
		})
		assertAppErrorCode(t, err, models.CodeValidation)
	})
}

func TestPostService_CreatePost_MissingGame(t *testing.T) {
	gameRepo := noopGameRepo()
	gameRepo.getByIDFn = func(_ context.Context, _ uint) (*models.Game, error) {
		return nil, gorm.ErrRecordNotFound
	}
	svc := NewPostService(newTestTxDB(t), noopPostRepo(), noopLikeRepo(), gameRepo, nil)

	_, err := svc.CreatePost(context.Background(), CreatePostInput{UserID: 1, GameID: 42, Content: "hi"})
	assertAppErrorCode(t, err, models.CodeNotFound)
}

func TestPostService_CreatePost_Success(t *testing.T) {
	var created *models.Post
	postRepo := noopPostRepo()
	postRepo.createFn = func(_ context.Context, post *models.Post) error {
		post.ID = 7
		created = post
		return nil
	}
	postRepo.getByIDFn = func(_ context.Context, id, viewerID uint) (*models.Post, error) {
		require.Equal(t, uint(7), id)
		return &models.Post{ID: id, UserID: viewerID, Content: created.Content, SeqNo: 1}, nil
	}
	svc := NewPostService(newTestTxDB(t), postRepo, noopLikeRepo(), noopGameRepo(), nil)

	post, err := svc.CreatePost(context.Background(), CreatePostInput{
		UserID: 3, GameID: 1, Content: "  hello  ",
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", created.Content)
	assert.Equal(t, 1, post.SeqNo)
}

func TestPostService_CreatePost_MediaOnly(t *testing.T) {
	postRepo := noopPostRepo()
	var created *models.Post
	postRepo.createFn = func(_ context.Context, post *models.Post) error {
		post.ID = 1
		created = post
		return nil
	}
	svc := NewPostService(newTestTxDB(t), postRepo, noopLikeRepo(), noopGameRepo(), nil)

	_, err := svc.CreatePost(context.Background(), CreatePostInput{
		UserID: 3, GameID: 1, MediaRef: "abc123.webp",
	})
	require.NoError(t, err)
	assert.Empty(t, created.Content)
	assert.Equal(t, "abc123.webp", created.MediaRef)
}

func TestPostService_DeletePost(t *testing.T) {
	ctx := context.Background()

	t.Run("missing post", func(t *testing.T) {
		postRepo := noopPostRepo()
		postRepo.getByIDFn = func(_ context.Context, _, _ uint) (*models.Post, error) {
			return nil, gorm.ErrRecordNotFound
		}
		svc := NewPostService(newTestTxDB(t), postRepo, noopLikeRepo(), noopGameRepo(), nil)
		err := svc.DeletePost(ctx, 1, 42)
		assertAppErrorCode(t, err, models.CodeNotFound)
	})

	t.Run("only the author may delete", func(t *testing.T) {
		postRepo := noopPostRepo()
		postRepo.getByIDFn = func(_ context.Context, id, _ uint) (*models.Post, error) {
			return &models.Post{ID: id, UserID: 9}, nil
		}
		svc := NewPostService(newTestTxDB(t), postRepo, noopLikeRepo(), noopGameRepo(), nil)
		err := svc.DeletePost(ctx, 1, 5)
		assertAppErrorCode(t, err, models.CodeForbidden)
	})

	t.Run("releases media on delete", func(t *testing.T) {
		postRepo := noopPostRepo()
		postRepo.getByIDFn = func(_ context.Context, id, _ uint) (*models.Post, error) {
			return &models.Post{ID: id, UserID: 1, MediaRef: "img.webp"}, nil
		}
		var released string
		release := func(_ context.Context, ref string) error {
			released = ref
			return nil
		}
		svc := NewPostService(newTestTxDB(t), postRepo, noopLikeRepo(), noopGameRepo(), release)
		require.NoError(t, svc.DeletePost(ctx, 1, 5))
		assert.Equal(t, "img.webp", released)
	})

	t.Run("media release failure does not fail the delete", func(t *testing.T) {
		postRepo := noopPostRepo()
		postRepo.getByIDFn = func(_ context.Context, id, _ uint) (*models.Post, error) {
			return &models.Post{ID: id, UserID: 1, MediaRef: "img.webp"}, nil
		}
		release := func(_ context.Context, _ string) error {
			return errors.New("disk gone")
		}
		svc := NewPostService(newTestTxDB(t), postRepo, noopLikeRepo(), noopGameRepo(), release)
		assert.NoError(t, svc.DeletePost(ctx, 1, 5))
	})
}

func TestPostService_ToggleLike_Alternates(t *testing.T) {
	ctx := context.Background()

	// Stateful ledger: toggling flips membership and the count follows.
	liked := false
	likeRepo := noopLikeRepo()
	likeRepo.isLikedFn = func(_ context.Context, _, _ uint) (bool, error) { return liked, nil }
	likeRepo.insertFn = func(_ context.Context, _, _ uint) (bool, error) {
		liked = true
		return true, nil
	}
	likeRepo.removeFn = func(_ context.Context, _, _ uint) (bool, error) {
		liked = false
		return true, nil
	}
	likeRepo.countFn = func(_ context.Context, _ uint) (int64, error) {
		if liked {
			return 1, nil
		}
		return 0, nil
	}

	svc := NewPostService(newTestTxDB(t), noopPostRepo(), likeRepo, noopGameRepo(), nil)

	state, err := svc.ToggleLike(ctx, 1, 1)
	require.NoError(t, err)
	assert.True(t, state.Liked)
	assert.Equal(t, int64(1), state.LikesCount)

	state, err = svc.ToggleLike(ctx, 1, 1)
	require.NoError(t, err)
	assert.False(t, state.Liked)
	assert.Equal(t, int64(0), state.LikesCount)

	state, err = svc.ToggleLike(ctx, 1, 1)
	require.NoError(t, err)
	assert.True(t, state.Liked)
	assert.Equal(t, int64(1), state.LikesCount)
}

func TestPostService_ToggleLike_MissingPost(t *testing.T) {
	postRepo := noopPostRepo()
	postRepo.getByIDFn = func(_ context.Context, _, _ uint) (*models.Post, error) {
		return nil, gorm.ErrRecordNotFound
	}
	svc := NewPostService(newTestTxDB(t), postRepo, noopLikeRepo(), noopGameRepo(), nil)

	_, err := svc.ToggleLike(context.Background(), 1, 404)
	assertAppErrorCode(t, err, models.CodeNotFound)
}

func TestPostService_ToggleLike_DropsCachedPostListings(t *testing.T) {
	mr := withCache(t)
	ctx := context.Background()

	postRepo := noopPostRepo()
	postRepo.getByIDFn = func(_ context.Context, id, _ uint) (*models.Post, error) {
		return &models.Post{ID: id, GameID: 3}, nil
	}
	svc := NewPostService(newTestTxDB(t), postRepo, noopLikeRepo(), noopGameRepo(), nil)

	require.NoError(t, cache.SetJSON(ctx, cache.GamePostsKey(3, "recent"), []uint{1}, time.Minute))
	require.NoError(t, cache.SetJSON(ctx, cache.GamePostsKey(3, "most_liked"), []uint{1}, time.Minute))

	_, err := svc.ToggleLike(ctx, 1, 7)
	require.NoError(t, err)

	assert.False(t, mr.Exists(cache.GamePostsKey(3, "recent")))
	assert.False(t, mr.Exists(cache.GamePostsKey(3, "most_liked")))
}

func TestPostService_GetPost_TransientStoreFailure(t *testing.T) {
	postRepo := noopPostRepo()
	postRepo.getByIDFn = func(_ context.Context, _, _ uint) (*models.Post, error) {
		return nil, &pgconn.PgError{Code: "08006", Message: "connection failure"}
	}
	svc := NewPostService(newTestTxDB(t), postRepo, noopLikeRepo(), noopGameRepo(), nil)

	_, err := svc.GetPost(context.Background(), 1, 0)
	assertAppErrorCode(t, err, models.CodeTransient)
	assert.Equal(t, http.StatusServiceUnavailable, models.StatusForError(err))
}

func TestPostService_ToggleLike_LostInsertRace(t *testing.T) {
	// The racing writer inserted first: our insert is a no-op but the pair
	// is liked, which is the state we report.
	likeRepo := noopLikeRepo()
	likeRepo.insertFn = func(_ context.Context, _, _ uint) (bool, error) { return false, nil }
	likeRepo.countFn = func(_ context.Context, _ uint) (int64, error) { return 1, nil }

	svc := NewPostService(newTestTxDB(t), noopPostRepo(), likeRepo, noopGameRepo(), nil)

	state, err := svc.ToggleLike(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.True(t, state.Liked)
	assert.Equal(t, int64(1), state.LikesCount)
}
