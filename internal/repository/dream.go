package repository

import (
	"context"
	"errors"
	"strings"

	"dreamscope/internal/cache"
	"dreamscope/internal/models"

	"gorm.io/gorm"
)

// TagInput is a tag name/description pair produced by the interpretation
// pipeline, resolved to canonical tag rows at persistence time.
type TagInput struct {
	Name        string
	Description string
}

// ListOptions control pagination and tag filtering of the dream feed.
type ListOptions struct {
	Tags  []string
	Page  int
	Limit int
}

// DreamRepository defines persistence operations for dreams.
type DreamRepository interface {
	CreateWithTags(ctx context.Context, dream *models.Dream, tags []TagInput) error
	GetByID(ctx context.Context, id uint) (*models.Dream, error)
	List(ctx context.Context, opts ListOptions) ([]models.Dream, int64, error)
	ListRecentByUser(ctx context.Context, userID uint, limit int) ([]models.Dream, error)
	Search(ctx context.Context, query string, limit int) ([]models.Dream, error)
}

type dreamRepository struct {
	db *gorm.DB
}

// NewDreamRepository returns a new DreamRepository implementation.
func NewDreamRepository(db *gorm.DB) DreamRepository {
	return &dreamRepository{db: db}
}

// CreateWithTags persists a dream and attaches its tags in one transaction.
// Tag names are normalized and resolved get-or-create style against the
// shared vocabulary; duplicate suggestions collapse to a single association.
// Nothing is written when any step fails.
func (r *dreamRepository) CreateWithTags(ctx context.Context, dream *models.Dream, tags []TagInput) error {
	createdTag := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seen := make(map[string]bool, len(tags))
		resolved := make([]models.Tag, 0, len(tags))

		for _, input := range tags {
			normalized := models.NormalizeTagName(input.Name)
			if normalized == "" || seen[normalized] {
				continue
			}
			seen[normalized] = true

			var tag models.Tag
			err := tx.Where("name = ?", normalized).First(&tag).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				tag = models.Tag{Name: normalized, Description: input.Description}
				if err := tx.Create(&tag).Error; err != nil {
					if !isUniqueConstraintError(err) {
						return err
					}
					// Lost a concurrent insert race on the unique name index.
					if err := tx.Where("name = ?", normalized).First(&tag).Error; err != nil {
						return err
					}
				} else {
					createdTag = true
				}
			} else if err != nil {
				return err
			}
			resolved = append(resolved, tag)
		}

		dream.Tags = resolved
		return tx.Create(dream).Error
	})

	if err != nil {
		return models.NewInternalError(err)
	}
	if createdTag {
		cache.InvalidateTagVocabulary(ctx)
	}
	return nil
}

// GetByID reads through the dream cache. Dreams are immutable once created,
// so the cached entry only ever ages out.
func (r *dreamRepository) GetByID(ctx context.Context, id uint) (*models.Dream, error) {
	var dream models.Dream
	err := cache.Aside(ctx, cache.DreamKey(id), &dream, cache.DreamTTL, func() error {
		if err := r.db.WithContext(ctx).
			Preload("Tags").
			Preload("User").
			First(&dream, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Dream", id)
			}
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &dream, nil
}

// List returns a page of the dream feed, newest first with id as tiebreak.
// When tag names are given, a dream matches if it carries any of them (OR
// semantics) and the returned total counts only matching dreams.
func (r *dreamRepository) List(ctx context.Context, opts ListOptions) ([]models.Dream, int64, error) {
	page := opts.Page
	if page < 1 {
		page = 1
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	normalized := make([]string, 0, len(opts.Tags))
	for _, name := range opts.Tags {
		if n := models.NormalizeTagName(name); n != "" {
			normalized = append(normalized, n)
		}
	}

	// Fresh builder per query; gorm chains mutate the statement in place.
	filtered := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&models.Dream{})
		if len(normalized) > 0 {
			q = q.
				Joins("JOIN dream_tags ON dream_tags.dream_id = dreams.id").
				Joins("JOIN tags ON tags.id = dream_tags.tag_id").
				Where("tags.name IN ?", normalized)
		}
		return q
	}

	var total int64
	if err := filtered().Distinct("dreams.id").Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	// GROUP BY instead of DISTINCT so the ordering column need not appear in
	// the select list (postgres rejects that combination).
	var ids []uint
	if err := filtered().
		Group("dreams.id").
		Order("MAX(dreams.created_at) DESC, dreams.id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Pluck("dreams.id", &ids).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	if len(ids) == 0 {
		return []models.Dream{}, total, nil
	}

	var dreams []models.Dream
	if err := r.db.WithContext(ctx).
		Preload("Tags").
		Preload("User").
		Where("id IN ?", ids).
		Order("created_at DESC, id DESC").
		Find(&dreams).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return dreams, total, nil
}

// ListRecentByUser returns the caller's most recent dreams, newest first,
// used to build the interpretation memory context.
func (r *dreamRepository) ListRecentByUser(ctx context.Context, userID uint, limit int) ([]models.Dream, error) {
	if limit <= 0 {
		limit = 5
	}
	var dreams []models.Dream
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&dreams).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return dreams, nil
}

// Search finds dreams whose content, summary or tag names contain the query,
// case-insensitively. LOWER(...) LIKE keeps the predicate portable across
// postgres and the sqlite test backend.
func (r *dreamRepository) Search(ctx context.Context, query string, limit int) ([]models.Dream, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.Dream{}, nil
	}
	if limit <= 0 {
		limit = 50
	}
	pattern := "%" + strings.ToLower(query) + "%"

	var ids []uint
	if err := r.db.WithContext(ctx).Model(&models.Dream{}).
		Joins("LEFT JOIN dream_tags ON dream_tags.dream_id = dreams.id").
		Joins("LEFT JOIN tags ON tags.id = dream_tags.tag_id").
		Where("LOWER(dreams.content) LIKE ? OR LOWER(dreams.summary) LIKE ? OR LOWER(tags.name) LIKE ?",
			pattern, pattern, pattern).
		Group("dreams.id").
		Order("MAX(dreams.created_at) DESC, dreams.id DESC").
		Limit(limit).
		Pluck("dreams.id", &ids).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	if len(ids) == 0 {
		return []models.Dream{}, nil
	}

	var dreams []models.Dream
	if err := r.db.WithContext(ctx).
		Preload("Tags").
		Preload("User").
		Where("id IN ?", ids).
		Order("created_at DESC, id DESC").
		Find(&dreams).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return dreams, nil
}
