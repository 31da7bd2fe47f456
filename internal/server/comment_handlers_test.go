package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dreamscope/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentLifecycle(t *testing.T) {
	s, app, db := setupTestServer(t, nil)
	alice := createUser(t, db, "alice@example.com")
	bob := createUser(t, db, "bob@example.com")
	dream := seedDream(t, db, alice.ID, "a shared dream", time.Now())

	aliceAccess, _ := loginCookies(t, s, alice.ID)
	bobAccess, _ := loginCookies(t, s, bob.ID)

	commentsPath := fmt.Sprintf("/dreams/%d/comments", dream.ID)

	var rootID uint
	t.Run("Create", func(t *testing.T) {
		resp, err := app.Test(authedJSONRequest(t, http.MethodPost, commentsPath, bobAccess,
			map[string]string{"content": "what a vivid dream"}))
		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var body commentResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, dream.ID, body.DreamID)
		assert.Equal(t, bob.ID, body.UserID)
		assert.Nil(t, body.ParentID)
		assert.NotEmpty(t, body.Author.Name)
		rootID = body.ID
	})

	t.Run("Reply", func(t *testing.T) {
		resp, err := app.Test(authedJSONRequest(t, http.MethodPost,
			fmt.Sprintf("%s/%d/replies", commentsPath, rootID), aliceAccess,
			map[string]string{"content": "thanks!"}))
		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var body commentResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		require.NotNil(t, body.ParentID)
		assert.Equal(t, rootID, *body.ParentID)
	})

	t.Run("ReplyToMissingParent", func(t *testing.T) {
		resp, err := app.Test(authedJSONRequest(t, http.MethodPost,
			commentsPath+"/9999/replies", aliceAccess,
			map[string]string{"content": "orphan"}))
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("ListIsPublic", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, commentsPath, nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body []commentResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Len(t, body, 2)
	})

	t.Run("UpdateByAuthor", func(t *testing.T) {
		resp, err := app.Test(authedJSONRequest(t, http.MethodPost,
			fmt.Sprintf("%s/%d", commentsPath, rootID), bobAccess,
			map[string]string{"content": "edited"}))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body commentResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "edited", body.Content)
	})

	t.Run("UpdateByOtherUserForbidden", func(t *testing.T) {
		resp, err := app.Test(authedJSONRequest(t, http.MethodPost,
			fmt.Sprintf("%s/%d", commentsPath, rootID), aliceAccess,
			map[string]string{"content": "hijack"}))
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("DeleteByOtherUserForbidden", func(t *testing.T) {
		resp, err := app.Test(authedJSONRequest(t, http.MethodDelete,
			fmt.Sprintf("%s/%d", commentsPath, rootID), aliceAccess, nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("DeleteCascades", func(t *testing.T) {
		resp, err := app.Test(authedJSONRequest(t, http.MethodDelete,
			fmt.Sprintf("%s/%d", commentsPath, rootID), bobAccess, nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		// The reply went with its parent.
		var count int64
		db.Model(&models.Comment{}).Where("dream_id = ?", dream.ID).Count(&count)
		assert.Zero(t, count)
	})
}

func TestComments_UnknownDream(t *testing.T) {
	s, app, db := setupTestServer(t, nil)
	user := createUser(t, db, "alice@example.com")
	access, _ := loginCookies(t, s, user.ID)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/dreams/42/comments", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = app.Test(authedJSONRequest(t, http.MethodPost, "/dreams/42/comments", access,
		map[string]string{"content": "into the void"}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
