package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthCodeURL(t *testing.T) {
	g := &GoogleClient{
		ClientID:     "client-id",
		RedirectURI:  "http://localhost:8000/auth/google/callback",
		AuthEndpoint: googleAuthEndpoint,
	}

	raw := g.AuthCodeURL("state-token")
	u, err := url.Parse(raw)
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "openid email profile", q.Get("scope"))
	assert.Equal(t, "state-token", q.Get("state"))
}

func TestExchange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "the-code", r.PostForm.Get("code"))
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))

		_ = json.NewEncoder(w).Encode(map[string]string{
			"access_token": "provider-access",
			"id_token":     "provider-id",
		})
	}))
	defer srv.Close()

	g := &GoogleClient{
		ClientID:      "id",
		ClientSecret:  "secret",
		TokenEndpoint: srv.URL,
		HTTPClient:    srv.Client(),
	}

	tokens, err := g.Exchange(context.Background(), "the-code")
	require.NoError(t, err)
	assert.Equal(t, "provider-access", tokens.AccessToken)
	assert.Equal(t, "provider-id", tokens.IDToken)
}

func TestExchange_UpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	g := &GoogleClient{TokenEndpoint: srv.URL, HTTPClient: srv.Client()}

	_, err := g.Exchange(context.Background(), "bad-code")
	assert.Error(t, err)
}

func TestFetchUserInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer provider-access", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]string{
			"email":       "dreamer@example.com",
			"given_name":  "Ada",
			"family_name": "Lovelace",
			"picture":     "https://example.com/a.png",
		})
	}))
	defer srv.Close()

	g := &GoogleClient{UserinfoEndpoint: srv.URL, HTTPClient: srv.Client()}

	info, err := g.FetchUserInfo(context.Background(), "provider-access")
	require.NoError(t, err)
	assert.Equal(t, "dreamer@example.com", info.Email)
	assert.Equal(t, "Ada", info.GivenName)
}

func TestFetchUserInfo_MissingEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"given_name": "Ada"})
	}))
	defer srv.Close()

	g := &GoogleClient{UserinfoEndpoint: srv.URL, HTTPClient: srv.Client()}

	_, err := g.FetchUserInfo(context.Background(), "provider-access")
	assert.Error(t, err)
}
