package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	GameKeyPrefix      = "game:%d"
	GameListKeyPrefix  = "games:list:%s"
	GamePostsKeyPrefix = "game:%d:posts:%s"
)

const (
	GameTTL     = 10 * time.Minute
	GameListTTL = 1 * time.Minute
	// Post listings carry like counts, which move fast.
	GamePostsTTL = 1 * time.Minute
)

func GameKey(gameID uint) string {
	return fmt.Sprintf(GameKeyPrefix, gameID)
}

// GamePostsKey keys the anonymous post listing of a game for a given sort
// mode. Viewer-specific liked flags are re-applied after a cache hit, so one
// cached listing serves every viewer.
func GamePostsKey(gameID uint, sort string) string {
	return fmt.Sprintf(GamePostsKeyPrefix, gameID, sort)
}

// GameListKey keys the default first page of the game listing for a given
// sort mode. The key carries no page shape, so only that one page may be
// cached under it. Game rows have no viewer-specific fields.
func GameListKey(sort string) string {
	return fmt.Sprintf(GameListKeyPrefix, sort)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

// InvalidateGame drops the cached game row and its post listings.
func InvalidateGame(ctx context.Context, gameID uint) {
	Invalidate(ctx, GameKey(gameID))
	InvalidateGamePosts(ctx, gameID)
}

// InvalidateGamePosts drops the cached post listings of one game; called on
// like toggles, which change counts and the most_liked order but leave the
// game row alone.
func InvalidateGamePosts(ctx context.Context, gameID uint) {
	for _, sort := range []string{"recent", "most_liked"} {
		Invalidate(ctx, GamePostsKey(gameID, sort))
	}
}

// InvalidateGameLists drops every cached listing; called on any game or post
// mutation since both sorts depend on post counts.
func InvalidateGameLists(ctx context.Context) {
	for _, sort := range []string{"recent", "most_commented"} {
		Invalidate(ctx, GameListKey(sort))
	}
}
