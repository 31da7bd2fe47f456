package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dreamscope/internal/config"
	"dreamscope/internal/models"
)

// Default Google OAuth2 endpoints. Overridable for tests.
const (
	googleAuthEndpoint     = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenEndpoint    = "https://oauth2.googleapis.com/token"
	googleUserinfoEndpoint = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// GoogleUserInfo is the subset of the provider profile this service consumes.
type GoogleUserInfo struct {
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Picture    string `json:"picture"`
}

// GoogleTokens is the provider token exchange response.
type GoogleTokens struct {
	AccessToken string `json:"access_token"`
	IDToken     string `json:"id_token"`
}

// GoogleClient exchanges authorization codes and fetches profiles from the
// Google identity provider.
type GoogleClient struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string

	AuthEndpoint     string
	TokenEndpoint    string
	UserinfoEndpoint string

	HTTPClient *http.Client
}

// NewGoogleClient builds the provider client from configuration.
func NewGoogleClient(cfg *config.Config) *GoogleClient {
	return &GoogleClient{
		ClientID:         cfg.GoogleClientID,
		ClientSecret:     cfg.GoogleClientSecret,
		RedirectURI:      cfg.GoogleRedirectURI,
		AuthEndpoint:     googleAuthEndpoint,
		TokenEndpoint:    googleTokenEndpoint,
		UserinfoEndpoint: googleUserinfoEndpoint,
		HTTPClient:       &http.Client{Timeout: 15 * time.Second},
	}
}

// Configured reports whether provider credentials are present. Missing
// credentials are a deployment problem, surfaced as 500 by callers.
func (g *GoogleClient) Configured() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

// AuthCodeURL builds the provider authorization redirect URL carrying the
// opaque state parameter.
func (g *GoogleClient) AuthCodeURL(state string) string {
	q := url.Values{}
	q.Set("client_id", g.ClientID)
	q.Set("redirect_uri", g.RedirectURI)
	q.Set("response_type", "code")
	q.Set("scope", "openid email profile")
	q.Set("access_type", "online")
	if state != "" {
		q.Set("state", state)
	}
	return g.AuthEndpoint + "?" + q.Encode()
}

// Exchange trades an authorization code for provider tokens.
func (g *GoogleClient) Exchange(ctx context.Context, code string) (*GoogleTokens, error) {
	form := url.Values{}
	form.Set("code", code)
	form.Set("client_id", g.ClientID)
	form.Set("client_secret", g.ClientSecret)
	form.Set("redirect_uri", g.RedirectURI)
	form.Set("grant_type", "authorization_code")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.TokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.HTTPClient.Do(req)
	if err != nil {
		return nil, models.NewUpstreamError("Google token exchange failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, models.NewUpstreamError("Google token exchange failed", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, models.NewUpstreamError(
			fmt.Sprintf("Google token exchange failed with status %d", resp.StatusCode),
			fmt.Errorf("%s", strings.TrimSpace(string(body))))
	}

	var tokens GoogleTokens
	if err := json.Unmarshal(body, &tokens); err != nil {
		return nil, models.NewUpstreamError("Google token exchange returned malformed JSON", err)
	}
	if tokens.AccessToken == "" {
		return nil, models.NewUpstreamError("Google token exchange response missing access_token", nil)
	}
	return &tokens, nil
}

// FetchUserInfo retrieves the provider profile for a provider access token.
func (g *GoogleClient) FetchUserInfo(ctx context.Context, accessToken string) (*GoogleUserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.UserinfoEndpoint, nil)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := g.HTTPClient.Do(req)
	if err != nil {
		return nil, models.NewUpstreamError("Google user info fetch failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, models.NewUpstreamError(
			fmt.Sprintf("Google user info fetch failed with status %d", resp.StatusCode), nil)
	}

	var info GoogleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, models.NewUpstreamError("Google user info returned malformed JSON", err)
	}
	if info.Email == "" {
		return nil, models.NewUpstreamError("Google user info missing email", nil)
	}
	return &info, nil
}
