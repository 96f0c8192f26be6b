package repository

import (
	"testing"
	"time"

	"dreamcore/internal/database"
	"dreamcore/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		t.Fatalf("Failed to migrate database: %v", err)
	}

	return db
}

func createTestUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{Username: username, Password: "hashed"}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	return user
}

func createTestGame(t *testing.T, db *gorm.DB, userID uint, title string, createdAt time.Time) *models.Game {
	t.Helper()
	game := &models.Game{Title: title, UserID: userID, CreatedAt: createdAt}
	if err := db.Create(game).Error; err != nil {
		t.Fatalf("Failed to create game: %v", err)
	}
	return game
}

func createTestPost(t *testing.T, db *gorm.DB, gameID, userID uint, content string, createdAt time.Time) *models.Post {
	t.Helper()
	post := &models.Post{GameID: gameID, UserID: userID, Content: content, CreatedAt: createdAt}
	if err := db.Create(post).Error; err != nil {
		t.Fatalf("Failed to create post: %v", err)
	}
	return post
}
