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

func whoamiRequest(cookies map[string]string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/auth/whoami", nil)
	for name, value := range cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}
	return req
}

func responseCookies(resp *http.Response) map[string]*http.Cookie {
	out := map[string]*http.Cookie{}
	for _, cookie := range resp.Cookies() {
		out[cookie.Name] = cookie
	}
	return out
}

func TestAuthRequired_NoCredentials(t *testing.T) {
	_, app, _ := setupTestServer(t, nil)

	resp, err := app.Test(whoamiRequest(nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuthRequired_ValidAccessCookie(t *testing.T) {
	s, app, db := setupTestServer(t, nil)
	user := createUser(t, db, "alice@example.com")
	access, _ := loginCookies(t, s, user.ID)

	resp, err := app.Test(whoamiRequest(map[string]string{"access_token": access}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "alice@example.com", body["email"])

	// A straight access-token hit does not rotate anything.
	assert.Empty(t, responseCookies(resp))
}

func TestAuthRequired_ExpiredAccessFallsBackToRefresh(t *testing.T) {
	s, app, db := setupTestServer(t, nil)
	user := createUser(t, db, "alice@example.com")
	_, refresh := loginCookies(t, s, user.ID)
	expiredAccess := signToken(t, s.config, "access", "1", time.Now().Add(-time.Minute))

	resp, err := app.Test(whoamiRequest(map[string]string{
		"access_token":  expiredAccess,
		"refresh_token": refresh,
	}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cookies := responseCookies(resp)
	require.Contains(t, cookies, "access_token")
	require.Contains(t, cookies, "refresh_token")
	assert.NotEqual(t, expiredAccess, cookies["access_token"].Value)
	assert.NotEqual(t, refresh, cookies["refresh_token"].Value)
	assert.True(t, cookies["access_token"].HttpOnly)
	assert.True(t, cookies["refresh_token"].HttpOnly)

	// The re-issued pair is immediately usable.
	resp2, err := app.Test(whoamiRequest(map[string]string{
		"access_token": cookies["access_token"].Value,
	}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp2.StatusCode)
}

func TestAuthRequired_MalformedAccessFallsBackToRefresh(t *testing.T) {
	s, app, db := setupTestServer(t, nil)
	user := createUser(t, db, "alice@example.com")
	_, refresh := loginCookies(t, s, user.ID)

	resp, err := app.Test(whoamiRequest(map[string]string{
		"access_token":  "not-a-jwt",
		"refresh_token": refresh,
	}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cookies := responseCookies(resp)
	require.Contains(t, cookies, "access_token")
	require.Contains(t, cookies, "refresh_token")
	assert.NotEqual(t, refresh, cookies["refresh_token"].Value)
}

func TestAuthRequired_RefreshOnly(t *testing.T) {
	s, app, db := setupTestServer(t, nil)
	user := createUser(t, db, "alice@example.com")
	_, refresh := loginCookies(t, s, user.ID)

	resp, err := app.Test(whoamiRequest(map[string]string{"refresh_token": refresh}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cookies := responseCookies(resp)
	assert.Contains(t, cookies, "access_token")
	assert.Contains(t, cookies, "refresh_token")
}

func TestAuthRequired_Rejections(t *testing.T) {
	s, app, db := setupTestServer(t, nil)
	user := createUser(t, db, "alice@example.com")

	t.Run("GarbageAccessToken", func(t *testing.T) {
		resp, err := app.Test(whoamiRequest(map[string]string{"access_token": "not-a-jwt"}))
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("RefreshTokenInAccessCookie", func(t *testing.T) {
		_, refresh := loginCookies(t, s, user.ID)
		resp, err := app.Test(whoamiRequest(map[string]string{"access_token": refresh}))
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("AccessTokenInRefreshCookie", func(t *testing.T) {
		access, _ := loginCookies(t, s, user.ID)
		resp, err := app.Test(whoamiRequest(map[string]string{"refresh_token": access}))
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("ExpiredRefreshToken", func(t *testing.T) {
		expired := signToken(t, s.config, "refresh", "1", time.Now().Add(-time.Minute))
		resp, err := app.Test(whoamiRequest(map[string]string{"refresh_token": expired}))
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("DeletedSubject", func(t *testing.T) {
		ghost := createUser(t, db, "ghost@example.com")
		access, _ := loginCookies(t, s, ghost.ID)
		require.NoError(t, db.Delete(ghost).Error)

		resp, err := app.Test(whoamiRequest(map[string]string{"access_token": access}))
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}
