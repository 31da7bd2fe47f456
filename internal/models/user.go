// Package models contains data structures for the application's domain models.
package models

import (
	"strings"
	"time"
)

// User represents an identity created lazily on first successful Google login.
type User struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Email      string    `gorm:"uniqueIndex;not null" json:"email"`
	GivenName  string    `json:"given_name"`
	FamilyName string    `json:"family_name"`
	Picture    string    `gorm:"size:255" json:"avatar_url"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Dreams     []Dream   `gorm:"foreignKey:UserID" json:"dreams,omitempty"`
	Comments   []Comment `gorm:"foreignKey:UserID" json:"comments,omitempty"`
}

// Name returns the display name, falling back to the email when both name
// parts are empty.
func (u *User) Name() string {
	name := strings.TrimSpace(u.GivenName + " " + u.FamilyName)
	if name == "" {
		return u.Email
	}
	return name
}
