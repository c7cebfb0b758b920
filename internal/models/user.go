// Package models contains the persisted tables and the feed result shapes.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the author/viewer row. Only the columns the feed reads are mapped.
type User struct {
	ID           string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name         string     `gorm:"not null" json:"name"`
	Username     string     `gorm:"uniqueIndex" json:"username"`
	Email        string     `gorm:"uniqueIndex" json:"email,omitempty"`
	Image        string     `json:"image,omitempty"`
	LastActiveAt *time.Time `gorm:"index" json:"last_active_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// BeforeCreate assigns a UUID when the caller did not supply one.
func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// LastSeen returns the best known activity timestamp for the user.
func (u *User) LastSeen() time.Time {
	if u.LastActiveAt != nil {
		return *u.LastActiveAt
	}
	return u.UpdatedAt
}
