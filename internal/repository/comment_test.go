package repository

import (
	"context"
	"testing"
	"time"

	"dreamscope/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentRepositoryCreate(t *testing.T) {
	db := setupTestDB(t)
	dreams := NewDreamRepository(db)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	user := createTestUser(t, db, "dreamer@example.com")
	dream := createTestDream(t, dreams, user.ID, "a dream", time.Now())
	other := createTestDream(t, dreams, user.ID, "another dream", time.Now())

	t.Run("TopLevel", func(t *testing.T) {
		comment := &models.Comment{DreamID: dream.ID, UserID: user.ID, Content: "vivid"}
		err := repo.Create(ctx, comment)
		require.NoError(t, err)
		assert.NotZero(t, comment.ID)
		assert.Nil(t, comment.ParentID)
	})

	t.Run("Reply", func(t *testing.T) {
		parent := &models.Comment{DreamID: dream.ID, UserID: user.ID, Content: "parent"}
		require.NoError(t, repo.Create(ctx, parent))

		reply := &models.Comment{DreamID: dream.ID, UserID: user.ID, ParentID: &parent.ID, Content: "reply"}
		err := repo.Create(ctx, reply)
		require.NoError(t, err)
		assert.NotZero(t, reply.ID)
	})

	t.Run("ReplyToMissingParent", func(t *testing.T) {
		missing := uint(99999)
		reply := &models.Comment{DreamID: dream.ID, UserID: user.ID, ParentID: &missing, Content: "orphan"}
		err := repo.Create(ctx, reply)
		require.Error(t, err)
		appErr, ok := err.(*models.AppError)
		require.True(t, ok)
		assert.Equal(t, models.CodeNotFound, appErr.Code)
	})

	t.Run("ReplyAcrossDreamsRejected", func(t *testing.T) {
		parent := &models.Comment{DreamID: dream.ID, UserID: user.ID, Content: "on first dream"}
		require.NoError(t, repo.Create(ctx, parent))

		reply := &models.Comment{DreamID: other.ID, UserID: user.ID, ParentID: &parent.ID, Content: "wrong thread"}
		err := repo.Create(ctx, reply)
		require.Error(t, err)
		appErr, ok := err.(*models.AppError)
		require.True(t, ok)
		assert.Equal(t, models.CodeNotFound, appErr.Code)
	})
}

func TestCommentRepositoryUpdateContent(t *testing.T) {
	db := setupTestDB(t)
	dreams := NewDreamRepository(db)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	user := createTestUser(t, db, "dreamer@example.com")
	dream := createTestDream(t, dreams, user.ID, "a dream", time.Now())
	other := createTestDream(t, dreams, user.ID, "another dream", time.Now())

	comment := &models.Comment{DreamID: dream.ID, UserID: user.ID, Content: "before"}
	require.NoError(t, repo.Create(ctx, comment))

	t.Run("UpdatesContentOnly", func(t *testing.T) {
		updated, err := repo.UpdateContent(ctx, dream.ID, comment.ID, "after")
		require.NoError(t, err)
		assert.Equal(t, "after", updated.Content)
		assert.Equal(t, dream.ID, updated.DreamID)
		assert.Equal(t, user.ID, updated.UserID)
	})

	t.Run("DreamMismatchIsNotFound", func(t *testing.T) {
		_, err := repo.UpdateContent(ctx, other.ID, comment.ID, "hijack")
		require.Error(t, err)
		appErr, ok := err.(*models.AppError)
		require.True(t, ok)
		assert.Equal(t, models.CodeNotFound, appErr.Code)
	})
}

func TestCommentRepositoryDeleteCascades(t *testing.T) {
	db := setupTestDB(t)
	dreams := NewDreamRepository(db)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	user := createTestUser(t, db, "dreamer@example.com")
	dream := createTestDream(t, dreams, user.ID, "a dream", time.Now())

	root := &models.Comment{DreamID: dream.ID, UserID: user.ID, Content: "root"}
	require.NoError(t, repo.Create(ctx, root))
	child := &models.Comment{DreamID: dream.ID, UserID: user.ID, ParentID: &root.ID, Content: "child"}
	require.NoError(t, repo.Create(ctx, child))
	grandchild := &models.Comment{DreamID: dream.ID, UserID: user.ID, ParentID: &child.ID, Content: "grandchild"}
	require.NoError(t, repo.Create(ctx, grandchild))
	sibling := &models.Comment{DreamID: dream.ID, UserID: user.ID, Content: "unrelated"}
	require.NoError(t, repo.Create(ctx, sibling))

	require.NoError(t, repo.Delete(ctx, dream.ID, root.ID))

	var count int64
	db.Model(&models.Comment{}).Where("dream_id = ?", dream.ID).Count(&count)
	assert.Equal(t, int64(1), count)

	remaining, err := repo.ListByDream(ctx, dream.ID)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "unrelated", remaining[0].Content)

	t.Run("DeleteMissing", func(t *testing.T) {
		err := repo.Delete(ctx, dream.ID, root.ID)
		require.Error(t, err)
		appErr, ok := err.(*models.AppError)
		require.True(t, ok)
		assert.Equal(t, models.CodeNotFound, appErr.Code)
	})
}

func TestCommentRepositoryListByDream(t *testing.T) {
	db := setupTestDB(t)
	dreams := NewDreamRepository(db)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	user := createTestUser(t, db, "dreamer@example.com")
	dream := createTestDream(t, dreams, user.ID, "a dream", time.Now())

	for _, content := range []string{"first", "second", "third"} {
		require.NoError(t, repo.Create(ctx, &models.Comment{DreamID: dream.ID, UserID: user.ID, Content: content}))
	}

	comments, err := repo.ListByDream(ctx, dream.ID)
	require.NoError(t, err)
	require.Len(t, comments, 3)
	assert.Equal(t, "first", comments[0].Content)
	assert.Equal(t, "third", comments[2].Content)
	assert.Equal(t, "dreamer@example.com", comments[0].User.Email)
}
