package service

import (
	"context"
	"strings"

	"dreamcore/internal/cache"
	"dreamcore/internal/models"
	"dreamcore/internal/repository"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
)

const (
	// fuzzyMatchThreshold is the minimum partial-ratio score for a title to
	// survive a search filter.
	fuzzyMatchThreshold = 75
	maxQueryLen         = 100
	defaultListLimit    = 20
)

// FeedService assembles the ranked game listings and game detail views.
type FeedService struct {
	gameRepo repository.GameRepository
	postRepo repository.PostRepository
	likeRepo repository.LikeRepository
}

type ListGamesInput struct {
	Sort   repository.GameSort
	Query  string
	Limit  int
	Offset int
}

// GameDetail is a game together with its posts in the requested order.
type GameDetail struct {
	Game  *models.Game   `json:"game"`
	Posts []*models.Post `json:"posts"`
}

func NewFeedService(gameRepo repository.GameRepository, postRepo repository.PostRepository, likeRepo repository.LikeRepository) *FeedService {
	return &FeedService{gameRepo: gameRepo, postRepo: postRepo, likeRepo: likeRepo}
}

// ListGames returns games in the requested order, optionally filtered by a
// fuzzy title match. Filtering runs after ranking and preserves the ranked
// order; it never reorders by match score.
func (s *FeedService) ListGames(ctx context.Context, in ListGamesInput) ([]*models.Game, error) {
	query := strings.TrimSpace(in.Query)
	if len(query) > maxQueryLen {
		return nil, models.NewValidationError("Search query too long (max 100 characters)")
	}

	if in.Limit <= 0 {
		in.Limit = defaultListLimit
	}

	if query == "" {
		return s.listRanked(ctx, in)
	}

	// Searches filter the full ranked listing, then page over the matches.
	ranked, err := s.gameRepo.List(ctx, in.Sort, -1, 0)
	if err != nil {
		return nil, storeErr(err, "Game", 0)
	}

	matched := filterGames(ranked, query)
	if in.Offset >= len(matched) {
		return []*models.Game{}, nil
	}
	end := in.Offset + in.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[in.Offset:end], nil
}

// listRanked serves the unfiltered listing. Only the default first page goes
// through the cache: the cache key carries the sort but not the page shape,
// so any other limit or offset must bypass it or a short page would be
// served to everyone.
func (s *FeedService) listRanked(ctx context.Context, in ListGamesInput) ([]*models.Game, error) {
	if in.Offset == 0 && in.Limit == defaultListLimit {
		var games []*models.Game
		key := cache.GameListKey(string(in.Sort))
		err := cache.Aside(ctx, key, &games, cache.GameListTTL, func() error {
			var fetchErr error
			games, fetchErr = s.gameRepo.List(ctx, in.Sort, in.Limit, in.Offset)
			return fetchErr
		})
		if err != nil {
			return nil, storeErr(err, "Game", 0)
		}
		return games, nil
	}

	games, err := s.gameRepo.List(ctx, in.Sort, in.Limit, in.Offset)
	if err != nil {
		return nil, storeErr(err, "Game", 0)
	}
	return games, nil
}

// GameDetail returns the game and its posts. The viewer id controls the
// per-post liked flag; zero means anonymous.
//
// Both the game row and the post listing are cached in their anonymous form;
// one cached listing serves every viewer, and the viewer's liked flags are
// re-applied from the like ledger after a hit.
func (s *FeedService) GameDetail(ctx context.Context, gameID, viewerID uint, sort repository.PostSort) (*GameDetail, error) {
	var game *models.Game
	err := cache.Aside(ctx, cache.GameKey(gameID), &game, cache.GameTTL, func() error {
		var fetchErr error
		game, fetchErr = s.gameRepo.GetByID(ctx, gameID)
		return fetchErr
	})
	if err != nil {
		return nil, storeErr(err, "Game", gameID)
	}

	var posts []*models.Post
	err = cache.Aside(ctx, cache.GamePostsKey(gameID, string(sort)), &posts, cache.GamePostsTTL, func() error {
		var fetchErr error
		posts, fetchErr = s.postRepo.ListByGame(ctx, gameID, sort, 0)
		return fetchErr
	})
	if err != nil {
		return nil, storeErr(err, "Post", 0)
	}

	if err := s.annotateViewerLikes(ctx, viewerID, posts); err != nil {
		return nil, storeErr(err, "Post", 0)
	}

	return &GameDetail{Game: game, Posts: posts}, nil
}

// annotateViewerLikes sets the liked flag on each post the viewer has liked.
func (s *FeedService) annotateViewerLikes(ctx context.Context, viewerID uint, posts []*models.Post) error {
	if viewerID == 0 || len(posts) == 0 {
		return nil
	}

	ids := make([]uint, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	likedIDs, err := s.likeRepo.LikedPostIDs(ctx, viewerID, ids)
	if err != nil {
		return err
	}

	liked := make(map[uint]struct{}, len(likedIDs))
	for _, id := range likedIDs {
		liked[id] = struct{}{}
	}
	for _, p := range posts {
		_, p.Liked = liked[p.ID]
	}
	return nil
}

// filterGames keeps games whose title fuzzily matches query, case-insensitive,
// in their incoming order.
func filterGames(games []*models.Game, query string) []*models.Game {
	q := strings.ToLower(query)
	matched := make([]*models.Game, 0, len(games))
	for _, g := range games {
		if fuzzy.PartialRatio(q, strings.ToLower(g.Title)) >= fuzzyMatchThreshold {
			matched = append(matched, g)
		}
	}
	return matched
}
