package seed

import (
	"fmt"
	"log"

	"dreamcore/internal/models"

	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers     int
	NumGames     int
	PostsPerGame int
	// LikeRatio is the chance (0..1) that any given user likes any given post.
	LikeRatio float64
	// SkipBcrypt stores a plaintext password for faster dev seeding.
	SkipBcrypt bool
	// MaxDays is the history window for generated timestamps.
	MaxDays     int
	ShouldClean bool
}

// DefaultOptions returns a sensible demo dataset shape.
func DefaultOptions() Options {
	return Options{
		NumUsers:     12,
		NumGames:     20,
		PostsPerGame: 6,
		LikeRatio:    0.2,
		MaxDays:      90,
	}
}

// Seed populates the database with test data
func Seed(db *gorm.DB, opts Options) error {
	log.Printf("Seeding database: %d users, %d games, ~%d posts per game...",
		opts.NumUsers, opts.NumGames, opts.PostsPerGame)

	if opts.ShouldClean {
		if err := clearData(db); err != nil {
			log.Println("Warning: could not clear all existing data, continuing anyway...")
		}
	}

	f := NewFactory(db, opts)

	users := make([]*models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		user, err := f.CreateUser()
		if err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		users = append(users, user)
	}
	log.Printf("Created %d users", len(users))

	if len(users) == 0 {
		return nil
	}

	totalPosts := 0
	totalLikes := 0
	for i := 0; i < opts.NumGames; i++ {
		owner := users[f.rng.Intn(len(users))]
		game, err := f.CreateGame(owner)
		if err != nil {
			return fmt.Errorf("failed to create game: %w", err)
		}

		// Uneven post counts make the most_commented listing interesting.
		postCount := f.rng.Intn(opts.PostsPerGame*2 + 1)
		for j := 0; j < postCount; j++ {
			author := users[f.rng.Intn(len(users))]
			post, err := f.CreatePost(game, author)
			if err != nil {
				return fmt.Errorf("failed to create post: %w", err)
			}
			totalPosts++

			for _, user := range users {
				if f.rng.Float64() < opts.LikeRatio {
					if err := f.CreateLike(post, user); err != nil {
						return fmt.Errorf("failed to create like: %w", err)
					}
					totalLikes++
				}
			}
		}
	}
	log.Printf("Created %d games, %d posts, %d likes", opts.NumGames, totalPosts, totalLikes)

	return nil
}

// clearData removes existing rows in dependency order.
func clearData(db *gorm.DB) error {
	for _, model := range []any{
		&models.Like{},
		&models.Post{},
		&models.Game{},
		&models.User{},
	} {
		if err := db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
			return err
		}
	}
	return nil
}
