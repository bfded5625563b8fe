// Package redis provides Redis-based adapters for the auth gateway.
package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/target/auth-bff/internal/ports"
)

const (
	defaultPrefix      = "authbff:login_failures:"
	defaultMaxFailures = 5
	defaultWindow      = 15 * time.Minute
)

// LoginLimiterOptions configures a LoginLimiter. Zero values use defaults.
type LoginLimiterOptions struct {
	Prefix      string
	MaxFailures int
	Window      time.Duration
}

// LoginLimiter counts failed logins per account in fixed windows.
// Account identifiers are hashed before they become keys.
type LoginLimiter struct {
	client      redis.UniversalClient
	prefix      string
	maxFailures int64
	window      time.Duration
}

var _ ports.LoginLimiter = (*LoginLimiter)(nil)

// NewLoginLimiter creates a Redis-backed login limiter.
func NewLoginLimiter(client redis.UniversalClient, opts LoginLimiterOptions) *LoginLimiter {
	l := &LoginLimiter{
		client:      client,
		prefix:      opts.Prefix,
		maxFailures: int64(opts.MaxFailures),
		window:      opts.Window,
	}
	if l.prefix == "" {
		l.prefix = defaultPrefix
	}
	if l.maxFailures <= 0 {
		l.maxFailures = defaultMaxFailures
	}
	if l.window <= 0 {
		l.window = defaultWindow
	}
	return l
}

// Allow reports whether key is below the failure limit for the current window.
func (l *LoginLimiter) Allow(ctx context.Context, key string) (bool, error) {
	n, err := l.client.Get(ctx, l.key(key)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return true, nil
		}
		return false, fmt.Errorf("redis get: %w", err)
	}
	return n < l.maxFailures, nil
}

// Failure records one failed attempt. The window starts at the first failure.
// INCR and EXPIRE NX run in one transaction so a counter never outlives its
// window, even when an earlier expiry was lost.
func (l *LoginLimiter) Failure(ctx context.Context, key string) error {
	k := l.key(key)
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, k)
		pipe.ExpireNX(ctx, k, l.window)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis incr: %w", err)
	}
	return nil
}

// Reset forgets all failures for key.
func (l *LoginLimiter) Reset(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, l.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (l *LoginLimiter) key(account string) string {
	sum := sha256.Sum256([]byte(account))
	return l.prefix + hex.EncodeToString(sum[:])
}
