package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"clouddesign.com.br/storefront/pkg/models"
)

const (
	maxLoginFailures = 5
	loginLockout     = 15 * time.Minute
)

var ErrTooManyAttempts = errors.New("too many failed login attempts")

// Sessions issues and checks admin bearer tokens. A token maps to the
// username that logged in and expires after ttl.
type Sessions struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessions(client *redis.Client, ttl time.Duration) *Sessions {
	return &Sessions{client: client, ttl: ttl}
}

func sessionKey(token string) string { return "admin:session:" + token }
func loginFailKey(subject string) string { return "admin:login:fail:" + subject }

func (s *Sessions) TTL() time.Duration { return s.ttl }

func (s *Sessions) Create(ctx context.Context, username string) (string, error) {
	token := uuid.NewString()
	if err := s.client.Set(ctx, sessionKey(token), username, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("create admin session: %w", err)
	}
	return token, nil
}

// Lookup returns the username behind token, or models.ErrNotFound when the
// token is unknown or expired.
func (s *Sessions) Lookup(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", models.ErrNotFound
	}
	username, err := s.client.Get(ctx, sessionKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return "", models.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("lookup admin session: %w", err)
	}
	return username, nil
}

func (s *Sessions) Revoke(ctx context.Context, token string) error {
	return s.client.Del(ctx, sessionKey(token)).Err()
}

// CheckLoginAllowed fails with ErrTooManyAttempts once subject (usually the
// client IP) has failed to log in maxLoginFailures times within the lockout
// window.
func (s *Sessions) CheckLoginAllowed(ctx context.Context, subject string) error {
	n, err := s.client.Get(ctx, loginFailKey(subject)).Int()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("check login attempts: %w", err)
	}
	if n >= maxLoginFailures {
		return ErrTooManyAttempts
	}
	return nil
}

func (s *Sessions) RecordLoginFailure(ctx context.Context, subject string) error {
	pipe := s.client.TxPipeline()
	pipe.Incr(ctx, loginFailKey(subject))
	pipe.Expire(ctx, loginFailKey(subject), loginLockout)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Sessions) ClearLoginFailures(ctx context.Context, subject string) error {
	return s.client.Del(ctx, loginFailKey(subject)).Err()
}
