package models

import (
	"strings"
	"time"
)

// Tag is a globally shared category label. Names are stored normalized
// (lowercased, trimmed) and are unique across the system.
type Tag struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:64;uniqueIndex;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	Dreams      []Dream   `gorm:"many2many:dream_tags" json:"-"`
}

// NormalizeTagName lowercases and trims a tag name before lookup or insert.
// Plain ASCII lowercasing, matching the upstream behavior; Unicode case
// folding is intentionally not applied.
func NormalizeTagName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
