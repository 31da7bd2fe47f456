package repository

import (
	"context"
	"errors"

	"dreamscope/internal/models"

	"gorm.io/gorm"
)

// CommentRepository defines persistence operations for threaded comments.
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, dreamID, commentID uint) (*models.Comment, error)
	ListByDream(ctx context.Context, dreamID uint) ([]models.Comment, error)
	UpdateContent(ctx context.Context, dreamID, commentID uint, content string) (*models.Comment, error)
	Delete(ctx context.Context, dreamID, commentID uint) error
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository returns a new CommentRepository implementation.
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

// Create stores a comment. A reply must reference a parent that exists and
// belongs to the same dream; otherwise the parent is reported as not found.
func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if comment.ParentID != nil {
		var parent models.Comment
		err := r.db.WithContext(ctx).
			Where("id = ? AND dream_id = ?", *comment.ParentID, comment.DreamID).
			First(&parent).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Parent comment", *comment.ParentID)
		}
		if err != nil {
			return models.NewInternalError(err)
		}
	}

	if err := r.db.WithContext(ctx).Create(comment).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *commentRepository) GetByID(ctx context.Context, dreamID, commentID uint) (*models.Comment, error) {
	var comment models.Comment
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("id = ? AND dream_id = ?", commentID, dreamID).
		First(&comment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewNotFoundError("Comment", commentID)
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &comment, nil
}

// ListByDream returns all comments of a dream oldest first. Threading is
// reconstructed by the caller from ParentID.
func (r *commentRepository) ListByDream(ctx context.Context, dreamID uint) ([]models.Comment, error) {
	var comments []models.Comment
	if err := r.db.WithContext(ctx).
		Preload("User").
		Where("dream_id = ?", dreamID).
		Order("created_at ASC, id ASC").
		Find(&comments).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return comments, nil
}

// UpdateContent replaces a comment's text. Only the content is mutable;
// authorship, parent and dream binding never change after creation.
func (r *commentRepository) UpdateContent(ctx context.Context, dreamID, commentID uint, content string) (*models.Comment, error) {
	comment, err := r.GetByID(ctx, dreamID, commentID)
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).
		Model(comment).
		Update("content", content).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return comment, nil
}

// Delete removes a comment and its entire reply subtree in one transaction.
func (r *commentRepository) Delete(ctx context.Context, dreamID, commentID uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var root models.Comment
		err := tx.Where("id = ? AND dream_id = ?", commentID, dreamID).First(&root).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Comment", commentID)
		}
		if err != nil {
			return err
		}

		// Breadth-first collection of the reply subtree.
		toDelete := []uint{root.ID}
		frontier := []uint{root.ID}
		for len(frontier) > 0 {
			var children []uint
			if err := tx.Model(&models.Comment{}).
				Where("parent_id IN ?", frontier).
				Pluck("id", &children).Error; err != nil {
				return err
			}
			toDelete = append(toDelete, children...)
			frontier = children
		}

		return tx.Where("id IN ?", toDelete).Delete(&models.Comment{}).Error
	})

	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return appErr
		}
		return models.NewInternalError(err)
	}
	return nil
}
