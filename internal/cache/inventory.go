package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix     = "user:%d"
	DreamKeyPrefix    = "dream:%d"
	TagVocabularyKey  = "tags:all"
	RefreshDenyPrefix = "refresh_deny:%s"
)

const (
	UserTTL          = 5 * time.Minute
	DreamTTL         = 10 * time.Minute
	TagVocabularyTTL = 5 * time.Minute
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func DreamKey(dreamID uint) string {
	return fmt.Sprintf(DreamKeyPrefix, dreamID)
}

func refreshDenyKey(jti string) string {
	return fmt.Sprintf(RefreshDenyPrefix, jti)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

func InvalidateTagVocabulary(ctx context.Context) {
	Invalidate(ctx, TagVocabularyKey)
}

// DenyRefreshToken records a rotated-out refresh token nonce until its natural
// expiry. Best-effort: without Redis the source behavior (rotated refresh
// tokens stay valid until expiry) is preserved.
func DenyRefreshToken(ctx context.Context, jti string, ttl time.Duration) {
	if client == nil || jti == "" || ttl <= 0 {
		return
	}
	client.Set(ctx, refreshDenyKey(jti), "1", ttl)
}

// IsRefreshTokenDenied reports whether a refresh token nonce has been rotated out.
func IsRefreshTokenDenied(ctx context.Context, jti string) bool {
	if client == nil || jti == "" {
		return false
	}
	n, err := client.Exists(ctx, refreshDenyKey(jti)).Result()
	return err == nil && n > 0
}
