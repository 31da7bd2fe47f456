package repository

import (
	"context"
	"errors"

	"dreamscope/internal/cache"
	"dreamscope/internal/models"

	"gorm.io/gorm"
)

// TagRepository defines persistence operations for the shared tag vocabulary.
type TagRepository interface {
	GetOrCreate(ctx context.Context, name, description string) (*models.Tag, error)
	ListByNames(ctx context.Context, names []string) ([]models.Tag, error)
	ListAll(ctx context.Context) ([]models.Tag, error)
}

type tagRepository struct {
	db *gorm.DB
}

// NewTagRepository returns a new TagRepository implementation.
func NewTagRepository(db *gorm.DB) TagRepository {
	return &tagRepository{db: db}
}

// GetOrCreate resolves a tag name to the single canonical row, creating it
// with the given description on first use. Names are normalized before
// lookup so "Falling" and " falling " map to the same tag. The description
// of an existing tag is never overwritten.
func (r *tagRepository) GetOrCreate(ctx context.Context, name, description string) (*models.Tag, error) {
	normalized := models.NormalizeTagName(name)
	if normalized == "" {
		return nil, models.NewValidationError("tag name must not be empty")
	}

	var tag models.Tag
	err := r.db.WithContext(ctx).Where("name = ?", normalized).First(&tag).Error
	if err == nil {
		return &tag, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewInternalError(err)
	}

	tag = models.Tag{Name: normalized, Description: description}
	if err := r.db.WithContext(ctx).Create(&tag).Error; err != nil {
		// Lost a concurrent insert race on the unique name index.
		if isUniqueConstraintError(err) {
			var existing models.Tag
			if err := r.db.WithContext(ctx).Where("name = ?", normalized).First(&existing).Error; err != nil {
				return nil, models.NewInternalError(err)
			}
			return &existing, nil
		}
		return nil, models.NewInternalError(err)
	}

	cache.InvalidateTagVocabulary(ctx)
	return &tag, nil
}

// ListByNames returns the tags matching the given names after normalization.
// Unknown names are silently skipped.
func (r *tagRepository) ListByNames(ctx context.Context, names []string) ([]models.Tag, error) {
	normalized := make([]string, 0, len(names))
	for _, name := range names {
		if n := models.NormalizeTagName(name); n != "" {
			normalized = append(normalized, n)
		}
	}
	if len(normalized) == 0 {
		return []models.Tag{}, nil
	}

	var tags []models.Tag
	if err := r.db.WithContext(ctx).Where("name IN ?", normalized).Order("name").Find(&tags).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return tags, nil
}

// ListAll returns the full tag vocabulary ordered by name, cached briefly so
// the interpretation prompt does not hit the database on every request.
func (r *tagRepository) ListAll(ctx context.Context) ([]models.Tag, error) {
	var tags []models.Tag

	err := cache.Aside(ctx, cache.TagVocabularyKey, &tags, cache.TagVocabularyTTL, func() error {
		if err := r.db.WithContext(ctx).Order("name").Find(&tags).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	if tags == nil {
		tags = []models.Tag{}
	}
	return tags, nil
}
