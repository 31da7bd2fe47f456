// Package auth implements the stateless credential service: signing,
// verification and rotation of access/refresh token pairs.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"dreamscope/internal/cache"
	"dreamscope/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token types carried in the "type" claim.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// Credential verification and rotation failures.
var (
	ErrExpiredCredential = errors.New("credential expired")
	ErrInvalidCredential = errors.New("credential invalid")
	ErrTokenTypeMismatch = errors.New("unexpected token type")
	ErrSubjectMismatch   = errors.New("token subject mismatch")
	ErrTokenRevoked      = errors.New("refresh token has been rotated out")
)

// Claims are the signed contents of an access or refresh credential.
// Refresh tokens additionally carry a unique ID (jti) used as rotation nonce.
type Claims struct {
	Type string `json:"type"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim as a user ID.
func (c *Claims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 32)
	if err != nil || id == 0 {
		return 0, ErrInvalidCredential
	}
	return uint(id), nil
}

// Tokens mints and verifies stateless signed credentials. It is pure and
// side-effect free except for the optional rotation denylist kept in Redis.
type Tokens struct {
	secret     []byte
	method     jwt.SigningMethod
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokens builds the token service from process-wide read-only configuration.
func NewTokens(cfg *config.Config) (*Tokens, error) {
	method := jwt.GetSigningMethod(cfg.JWTAlgorithm)
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", cfg.JWTAlgorithm)
	}
	return &Tokens{
		secret:     []byte(cfg.JWTSecret),
		method:     method,
		accessTTL:  cfg.AccessTokenTTL(),
		refreshTTL: cfg.RefreshTokenTTL(),
		now:        time.Now,
	}, nil
}

// Issue mints an (access, refresh) credential pair for the given user.
func (t *Tokens) Issue(userID uint) (access string, refresh string, err error) {
	now := t.now()
	sub := strconv.FormatUint(uint64(userID), 10)

	access, err = t.sign(&Claims{
		Type: TypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.accessTTL)),
		},
	})
	if err != nil {
		return "", "", err
	}

	refresh, err = t.sign(&Claims{
		Type: TypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.refreshTTL)),
			ID:        uuid.NewString(),
		},
	})
	if err != nil {
		return "", "", err
	}

	return access, refresh, nil
}

func (t *Tokens) sign(claims *Claims) (string, error) {
	return jwt.NewWithClaims(t.method, claims).SignedString(t.secret)
}

// Verify parses and validates a credential. It fails with ErrExpiredCredential
// when the encoded expiry has passed and ErrInvalidCredential when the
// signature or structure is malformed.
func (t *Tokens) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidCredential
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredCredential
		}
		return nil, ErrInvalidCredential
	}
	if !parsed.Valid || claims.Type == "" || claims.Subject == "" {
		return nil, ErrInvalidCredential
	}
	return claims, nil
}

// VerifyRefresh validates a refresh credential, including the rotation
// denylist when Redis is wired. Without Redis, rotated-out refresh tokens
// remain valid until their natural expiry, matching the upstream behavior.
func (t *Tokens) VerifyRefresh(ctx context.Context, token string) (*Claims, error) {
	claims, err := t.Verify(token)
	if err != nil {
		return nil, err
	}
	if claims.Type != TypeRefresh {
		return nil, ErrTokenTypeMismatch
	}
	if claims.ID != "" && cache.IsRefreshTokenDenied(ctx, claims.ID) {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

// Rotate verifies that oldRefresh is a refresh credential belonging to userID
// and mints a fresh pair. The old token's nonce is denylisted for its
// remaining lifetime (best-effort, Redis only).
func (t *Tokens) Rotate(ctx context.Context, userID uint, oldRefresh string) (access string, refresh string, err error) {
	claims, err := t.VerifyRefresh(ctx, oldRefresh)
	if err != nil {
		return "", "", err
	}

	sub, err := claims.UserID()
	if err != nil || sub != userID {
		return "", "", ErrSubjectMismatch
	}

	if claims.ExpiresAt != nil {
		cache.DenyRefreshToken(ctx, claims.ID, claims.ExpiresAt.Sub(t.now()))
	}

	return t.Issue(userID)
}
