package models

import "time"

// Dream is a user-submitted journal entry. Content is the raw user input;
// Summary, Analysis and Tags are written exactly once by the interpretation
// pipeline when the dream is created and are immutable afterwards.
type Dream struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID" json:"user"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Summary   string    `gorm:"type:text" json:"summary"`
	Analysis  string    `gorm:"type:text" json:"analysis"`
	Tags      []Tag     `gorm:"many2many:dream_tags" json:"tags"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"-"`
}
