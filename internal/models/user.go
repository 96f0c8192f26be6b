// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// User represents a registered member of the board.
// Users are created at signup and never deleted.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"unique;not null" json:"username"`
	Password  string    `gorm:"not null" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Games []Game `gorm:"foreignKey:UserID" json:"games,omitempty"`
}
