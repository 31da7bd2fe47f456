package server

import (
	"encoding/base64"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"dreamscope/internal/auth"
	"dreamscope/internal/middleware"
	"dreamscope/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const oauthStateCookie = "oauth_state"

// oauthState is round-tripped through the provider as an opaque blob: a
// CSRF nonce plus the in-app path to land on after login.
type oauthState struct {
	Nonce string `json:"nonce"`
	Next  string `json:"next,omitempty"`
}

func encodeState(st oauthState) string {
	raw, _ := json.Marshal(st)
	return base64.RawURLEncoding.EncodeToString(raw)
}

// decodeState tolerates malformed state: login still succeeds, only the
// post-login redirect target degrades to the default.
func decodeState(s string) oauthState {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return oauthState{}
	}
	var st oauthState
	if err := json.Unmarshal(raw, &st); err != nil {
		return oauthState{}
	}
	return st
}

// safeNext only allows in-app relative paths as redirect targets.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return "/"
	}
	return next
}

// GoogleLogin redirects the browser to the Google consent screen.
func (s *Server) GoogleLogin(c *fiber.Ctx) error {
	if !s.google.Configured() {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(nil))
	}

	state := oauthState{
		Nonce: uuid.NewString(),
		Next:  safeNext(c.Query("next")),
	}

	c.Cookie(&fiber.Cookie{
		Name:     oauthStateCookie,
		Value:    state.Nonce,
		HTTPOnly: true,
		Secure:   s.config.CookieSecure,
		SameSite: "Lax",
		Expires:  time.Now().Add(10 * time.Minute),
	})

	return c.Redirect(s.google.AuthCodeURL(encodeState(state)), fiber.StatusFound)
}

// GoogleCallback finalizes the login: exchanges the authorization code,
// fetches the verified profile, upserts the user and installs the credential
// cookies before bouncing back to the frontend.
func (s *Server) GoogleCallback(c *fiber.Ctx) error {
	if !s.google.Configured() {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(nil))
	}

	code := c.Query("code")
	if code == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Missing authorization code"))
	}

	state := decodeState(c.Query("state"))
	if nonce := c.Cookies(oauthStateCookie); nonce != "" && state.Nonce != "" && nonce != state.Nonce {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("OAuth state mismatch"))
	}
	c.Cookie(&fiber.Cookie{Name: oauthStateCookie, Value: "", Expires: time.Now().Add(-time.Hour), HTTPOnly: true})

	providerTokens, err := s.google.Exchange(c.UserContext(), code)
	if err != nil {
		middleware.Logger.WarnContext(c.UserContext(), "OAuth code exchange failed", "error", err.Error())
		return models.RespondWithError(c, fiber.StatusBadRequest, err)
	}

	info, err := s.google.FetchUserInfo(c.UserContext(), providerTokens.AccessToken)
	if err != nil {
		middleware.Logger.WarnContext(c.UserContext(), "OAuth userinfo fetch failed", "error", err.Error())
		return models.RespondWithError(c, fiber.StatusBadRequest, err)
	}

	user, err := s.userRepo.UpsertByEmail(c.UserContext(), &models.User{
		Email:      info.Email,
		GivenName:  info.GivenName,
		FamilyName: info.FamilyName,
		Picture:    info.Picture,
	})
	if err != nil {
		return respondAppError(c, err)
	}

	access, refresh, err := s.tokens.Issue(user.ID)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}
	auth.SetAuthCookies(c, s.config, access, refresh)

	middleware.Logger.InfoContext(c.UserContext(), "User signed in",
		"user_id", user.ID,
		"email", user.Email,
	)

	// Legacy query params kept for the frontend's auth completion page.
	params := url.Values{}
	params.Set("id_token", providerTokens.IDToken)
	params.Set("name", user.Name())
	params.Set("email", user.Email)
	params.Set("avatar_url", user.Picture)
	params.Set("next", safeNext(state.Next))

	return c.Redirect(
		strings.TrimRight(s.config.FrontendURL, "/")+"/auth/complete?"+params.Encode(),
		fiber.StatusFound,
	)
}

// Logout clears the credential cookies. Tokens are stateless, so this is a
// purely client-side sign-out.
func (s *Server) Logout(c *fiber.Ctx) error {
	auth.ClearAuthCookies(c, s.config)
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Logged out",
	})
}

// WhoAmI returns the authenticated user's profile.
func (s *Server) WhoAmI(c *fiber.Ctx) error {
	user := s.currentUser(c)
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"id":          user.ID,
		"email":       user.Email,
		"given_name":  user.GivenName,
		"family_name": user.FamilyName,
		"name":        user.Name(),
		"avatar_url":  user.Picture,
	})
}
