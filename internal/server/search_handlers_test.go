package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchDreams(t *testing.T) {
	_, app, db := setupTestServer(t, nil)
	user := createUser(t, db, "alice@example.com")

	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	seedDream(t, db, user.ID, "I was swimming in the ocean", base, "water")
	seedDream(t, db, user.ID, "walking in a forest", base.Add(time.Hour), "trees")

	search := func(q string) (int, []dreamResponse) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/search?q="+q, nil))
		require.NoError(t, err)
		var body struct {
			Dreams []dreamResponse `json:"dreams"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		return resp.StatusCode, body.Dreams
	}

	t.Run("MatchesContent", func(t *testing.T) {
		status, dreams := search("OCEAN")
		assert.Equal(t, http.StatusOK, status)
		require.Len(t, dreams, 1)
		assert.Equal(t, "I was swimming in the ocean", dreams[0].Content)
	})

	t.Run("MatchesTagName", func(t *testing.T) {
		status, dreams := search("trees")
		assert.Equal(t, http.StatusOK, status)
		require.Len(t, dreams, 1)
	})

	t.Run("EmptyQueryReturnsEmptyList", func(t *testing.T) {
		status, dreams := search("")
		assert.Equal(t, http.StatusOK, status)
		assert.Empty(t, dreams)
	})

	t.Run("NoMatches", func(t *testing.T) {
		status, dreams := search("unicorns")
		assert.Equal(t, http.StatusOK, status)
		assert.Empty(t, dreams)
	})
}

func TestGetTags(t *testing.T) {
	_, app, db := setupTestServer(t, nil)
	user := createUser(t, db, "alice@example.com")
	seedDream(t, db, user.ID, "dream", time.Now(), "water", "teeth")

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/tags", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Tags []string `json:"tags"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, []string{"teeth", "water"}, body.Tags)
}

func TestGetTagsMeta(t *testing.T) {
	_, app, db := setupTestServer(t, nil)
	user := createUser(t, db, "alice@example.com")
	seedDream(t, db, user.ID, "dream", time.Now(), "water")

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/tags/meta?names=Water,unknown", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Tags []tagResponse `json:"tags"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Tags, 1)
	assert.Equal(t, "water", body.Tags[0].Name)
}
