package models

import "time"

// Comment is a threaded reply on a dream. Top-level comments have a nil
// ParentID; replies reference a parent comment belonging to the same dream.
// Deleting a comment removes its whole reply subtree.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	DreamID   uint      `gorm:"not null;index" json:"dream_id"`
	Dream     Dream     `gorm:"foreignKey:DreamID" json:"-"`
	UserID    uint      `gorm:"index" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID" json:"-"`
	ParentID  *uint     `gorm:"index" json:"parent_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`
}
