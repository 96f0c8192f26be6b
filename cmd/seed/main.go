// Command seed runs the database seeder for dreamcore.
package main

import (
	"flag"
	"log"

	"dreamcore/internal/config"
	"dreamcore/internal/database"
	"dreamcore/internal/middleware"
	"dreamcore/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 12, "Number of users to create")
	numGames := flag.Int("games", 20, "Number of games to create")
	postsPerGame := flag.Int("posts", 6, "Average posts per game")
	likeRatio := flag.Float64("likes", 0.2, "Chance that a user likes a post (0..1)")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	skipBcrypt := flag.Bool("fast", false, "Skip bcrypt hashing for faster seeding")
	flag.Parse()

	log.Println("Database Seeder")
	log.Printf("Target: %d users, %d games, ~%d posts per game, clean=%v",
		*numUsers, *numGames, *postsPerGame, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	middleware.InitMiddleware(cfg)

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := seed.Seed(db, seed.Options{
		NumUsers:     *numUsers,
		NumGames:     *numGames,
		PostsPerGame: *postsPerGame,
		LikeRatio:    *likeRatio,
		SkipBcrypt:   *skipBcrypt,
		ShouldClean:  *shouldClean,
	}); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Println("All done! Your database is now populated with test data.")
	log.Println("All test users have the password: password123")
}
