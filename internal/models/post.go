package models

import (
	"time"
)

// Post represents a comment attached to a Game. Content may be empty when
// the post carries media, but never both.
type Post struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	GameID   uint   `gorm:"not null;index" json:"game_id"`
	Game     Game   `gorm:"foreignKey:GameID" json:"-"`
	UserID   uint   `gorm:"not null;index" json:"user_id"`
	User     User   `gorm:"foreignKey:UserID" json:"user"`
	Content  string `gorm:"type:text" json:"content"`
	MediaRef string `json:"media_ref,omitempty"`
	// LikesCount is not persisted; computed at query time
	LikesCount int `gorm:"->" json:"likes_count"`
	// Liked indicates whether the current requesting user liked this post (computed)
	Liked bool `gorm:"->" json:"liked"`
	// SeqNo is the post's 1-based chronological position within its game,
	// independent of the requested display order (computed)
	SeqNo     int       `gorm:"->" json:"seq_no"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
