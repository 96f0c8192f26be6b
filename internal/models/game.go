package models

import (
	"time"
)

// Game represents a top-level discussion thread about a game.
// GameURL is optional; a game may be discussed without a playable link.
type Game struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	Title   string `gorm:"not null" json:"title"`
	GameURL string `json:"game_url,omitempty"`
	UserID  uint   `gorm:"not null;index" json:"user_id"`
	User    User   `gorm:"foreignKey:UserID" json:"user"`
	// PostsCount is not persisted; computed at query time
	PostsCount int       `gorm:"->" json:"posts_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
