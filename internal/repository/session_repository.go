package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	revokedTokenPrefix  = "auth:revoked:"
	loginThrottlePrefix = "auth:login:"
)

// SessionRepository keeps short-lived auth state in Redis: revoked token ids and login throttle
// locks. Without a client every token is valid and every login attempt is allowed.
type SessionRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewSessionRepository constructs a session repository. client may be nil.
func NewSessionRepository(client *redis.Client, logger *zap.Logger) *SessionRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionRepository{client: client, logger: logger}
}

// Revoke denies the token id until ttl elapses.
func (r *SessionRepository) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if r.client == nil || jti == "" || ttl <= 0 {
		return nil
	}
	key := revokedTokenPrefix + jti
	if err := r.client.Set(ctx, key, "1", ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// IsRevoked reports whether the token id has been revoked.
func (r *SessionRepository) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if r.client == nil || jti == "" {
		return false, nil
	}
	key := revokedTokenPrefix + jti
	n, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists %s: %w", key, err)
	}
	return n > 0, nil
}

// AcquireLoginSlot takes the per-email login lock for window. It returns false while a previous
// attempt still holds the lock.
func (r *SessionRepository) AcquireLoginSlot(ctx context.Context, email string, window time.Duration) (bool, error) {
	if r.client == nil || window <= 0 {
		return true, nil
	}
	key := loginThrottlePrefix + strings.ToLower(strings.TrimSpace(email))
	acquired, err := r.client.SetNX(ctx, key, "locked", window).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx %s: %w", key, err)
	}
	if !acquired {
		r.logger.Debug("login throttled", zap.String("key", key))
	}
	return acquired, nil
}
