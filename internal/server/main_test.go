package server

import (
	"context"
	"testing"
	"time"

	"dreamscope/internal/config"
	"dreamscope/internal/database"
	"dreamscope/internal/llm"
	"dreamscope/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:              "8000",
		Env:               "test",
		AllowedOrigins:    "http://localhost:5173",
		FrontendURL:       "http://localhost:5173",
		JWTSecret:         "test-secret-not-for-production-use",
		JWTAlgorithm:      "HS256",
		AccessTokenMin:    15,
		RefreshTokenDays:  14,
		CookieSameSite:    "lax",
		AccessCookieName:  "access_token",
		RefreshCookieName: "refresh_token",
		MemoryContextSize: 5,
	}
}

type stubInterpreter struct {
	result   *llm.Interpretation
	err      error
	requests []llm.Request
}

func (s *stubInterpreter) Interpret(_ context.Context, req llm.Request) (*llm.Interpretation, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func setupTestServer(t *testing.T, interpreter llm.Interpreter) (*Server, *fiber.App, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}

	if interpreter == nil {
		interpreter = &stubInterpreter{result: &llm.Interpretation{Summary: "s", Analysis: "a"}}
	}

	s, err := NewServerWithDeps(testConfig(), db, nil, interpreter)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	app := fiber.New()
	s.SetupRoutes(app)
	return s, app, db
}

func createUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	user := &models.User{Email: email, GivenName: "Test"}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

// loginCookies mints a valid credential pair for the user.
func loginCookies(t *testing.T, s *Server, userID uint) (access, refresh string) {
	t.Helper()

	access, refresh, err := s.tokens.Issue(userID)
	if err != nil {
		t.Fatalf("issue tokens: %v", err)
	}
	return access, refresh
}

// signToken signs arbitrary claims with the test secret, used to craft
// expired or malformed-by-construction credentials.
func signToken(t *testing.T, cfg *config.Config, tokenType string, userID string, expiresAt time.Time) string {
	t.Helper()

	claims := jwt.MapClaims{
		"type": tokenType,
		"sub":  userID,
		"iat":  jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		"exp":  jwt.NewNumericDate(expiresAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}
