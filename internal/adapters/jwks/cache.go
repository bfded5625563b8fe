// Package jwks owns the process-wide cache of identity provider signing keys.
//
// One registration exists per JWKS URL. The first use fetches the key set,
// later uses share it. Sets are refreshed once they are older than the TTL and
// on demand when a token names a key id the cached set does not contain, at
// most once per MinRefreshInterval.
package jwks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/lestrrat-go/httprc/v3"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"golang.org/x/sync/singleflight"

	"github.com/target/auth-bff/internal/observability/metrics"
	"github.com/target/auth-bff/internal/observability/statsd"
	"github.com/target/auth-bff/internal/ports"
)

var (
	// ErrKeyNotFound is returned when no published key matches the token.
	ErrKeyNotFound = errors.New("jwks: no matching key")
	// ErrFetch wraps key-set retrieval failures.
	ErrFetch = errors.New("jwks: fetch failed")
	// ErrEmptyURL is returned when a lookup names no JWKS URL.
	ErrEmptyURL = errors.New("jwks: empty url")
)

const (
	defaultTTL                = 15 * time.Minute
	defaultMinRefreshInterval = time.Minute
	defaultFetchTimeout       = 5 * time.Second

	reasonInitial   = "initial"
	reasonTTL       = "ttl"
	reasonUnknownID = "unknown_kid"
)

// Options configures a Cache. Zero values fall back to defaults.
type Options struct {
	HTTPClient         *http.Client
	TTL                time.Duration
	MinRefreshInterval time.Duration
	FetchTimeout       time.Duration
	Logger             *slog.Logger
	Metrics            statsd.Sink

	// Now is overridable for tests.
	Now func() time.Time
}

// Cache implements ports.KeySource on top of a jwk.Cache.
// It is safe for concurrent use.
type Cache struct {
	keys *jwk.Cache

	ttl          time.Duration
	minRefresh   time.Duration
	fetchTimeout time.Duration
	logger       *slog.Logger
	metrics      statsd.Sink
	now          func() time.Time

	group   singleflight.Group
	mu      sync.Mutex
	entries map[string]*entry
}

// entry tracks the lifecycle of one registered URL.
type entry struct {
	registered  bool
	fetchedAt   time.Time
	lastAttempt time.Time
	lastErr     error
}

var _ ports.KeySource = (*Cache)(nil)

// New creates a Cache whose background workers live until ctx is cancelled.
func New(ctx context.Context, opts Options) (*Cache, error) {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: defaultFetchTimeout}
	}
	keys, err := jwk.NewCache(ctx, httprc.NewClient(httprc.WithHTTPClient(hc)))
	if err != nil {
		return nil, fmt.Errorf("create jwks cache: %w", err)
	}

	c := &Cache{
		keys:         keys,
		ttl:          opts.TTL,
		minRefresh:   opts.MinRefreshInterval,
		fetchTimeout: opts.FetchTimeout,
		logger:       opts.Logger,
		metrics:      opts.Metrics,
		now:          opts.Now,
		entries:      make(map[string]*entry),
	}
	if c.ttl <= 0 {
		c.ttl = defaultTTL
	}
	if c.minRefresh <= 0 {
		c.minRefresh = defaultMinRefreshInterval
	}
	if c.fetchTimeout <= 0 {
		c.fetchTimeout = defaultFetchTimeout
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c, nil
}

// VerificationKeys returns the raw public key for kid, or every published key
// when kid is empty.
func (c *Cache) VerificationKeys(ctx context.Context, jwksURL, kid string) ([]any, error) {
	jwksURL = strings.TrimSpace(jwksURL)
	if jwksURL == "" {
		return nil, ErrEmptyURL
	}

	set, err := c.keySet(ctx, jwksURL)
	if err != nil {
		return nil, err
	}

	if kid == "" {
		return exportAll(set)
	}

	key, ok := set.LookupKeyID(kid)
	if !ok {
		// Provider may have rotated keys since the last fetch.
		if !c.refreshDue(jwksURL, c.minRefresh) {
			return nil, fmt.Errorf("%w: kid %q", ErrKeyNotFound, kid)
		}
		if set, err = c.refresh(ctx, jwksURL, reasonUnknownID); err != nil {
			return nil, err
		}
		if key, ok = set.LookupKeyID(kid); !ok {
			return nil, fmt.Errorf("%w: kid %q", ErrKeyNotFound, kid)
		}
	}

	var raw any
	if err := jwk.Export(key, &raw); err != nil {
		return nil, fmt.Errorf("export key %q: %w", kid, err)
	}
	return []any{raw}, nil
}

// keySet returns a complete key set for url, registering it on first use and
// refreshing it once it is older than the TTL.
func (c *Cache) keySet(ctx context.Context, url string) (jwk.Set, error) {
	if err := c.ensureRegistered(ctx, url); err != nil {
		return nil, err
	}

	if c.refreshDue(url, c.ttl) {
		set, err := c.refresh(ctx, url, reasonTTL)
		if err == nil {
			return set, nil
		}
		// Keep serving the previous set until a later retry succeeds.
		c.logger.WarnContext(ctx, "jwks ttl refresh failed, serving cached keys", "url", url, "error", err)
	}

	set, err := c.keys.Lookup(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: lookup %s: %w", ErrFetch, url, err)
	}
	return set, nil
}

func (c *Cache) ensureRegistered(ctx context.Context, url string) error {
	c.mu.Lock()
	e := c.entryLocked(url)
	if e.registered {
		c.mu.Unlock()
		return nil
	}
	// Failed registrations are retried no more often than the refresh interval.
	if e.lastErr != nil && c.now().Sub(e.lastAttempt) < c.minRefresh {
		err := e.lastErr
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()

	_, err, _ := c.group.Do("register:"+url, func() (any, error) {
		c.mu.Lock()
		if c.entryLocked(url).registered {
			c.mu.Unlock()
			return nil, nil
		}
		c.mu.Unlock()

		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
		defer cancel()

		err := c.keys.Register(fetchCtx, url)
		if err != nil {
			// A previous failed attempt may have left the URL registered without data.
			if _, rerr := c.keys.Refresh(fetchCtx, url); rerr == nil {
				err = nil
			}
		}
		metrics.EmitJWKSFetch(c.metrics, reasonInitial, err)

		c.mu.Lock()
		defer c.mu.Unlock()
		e := c.entryLocked(url)
		e.lastAttempt = c.now()
		if err != nil {
			e.lastErr = fmt.Errorf("%w: register %s: %w", ErrFetch, url, err)
			c.logger.WarnContext(ctx, "jwks registration failed", "url", url, "error", err)
			return nil, e.lastErr
		}
		e.registered = true
		e.fetchedAt = e.lastAttempt
		e.lastErr = nil
		c.logger.DebugContext(ctx, "jwks registered", "url", url)
		return nil, nil
	})
	return err
}

// refreshDue reports whether url's set is older than age and no fetch was
// attempted within the minimum refresh interval.
func (c *Cache) refreshDue(url string, age time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entryLocked(url)
	now := c.now()
	return now.Sub(e.fetchedAt) >= age && now.Sub(e.lastAttempt) >= c.minRefresh
}

func (c *Cache) refresh(ctx context.Context, url, reason string) (jwk.Set, error) {
	v, err, _ := c.group.Do("refresh:"+url, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
		defer cancel()

		set, err := c.keys.Refresh(fetchCtx, url)
		metrics.EmitJWKSFetch(c.metrics, reason, err)

		c.mu.Lock()
		e := c.entryLocked(url)
		e.lastAttempt = c.now()
		if err == nil {
			e.fetchedAt = e.lastAttempt
		}
		c.mu.Unlock()

		if err != nil {
			return nil, fmt.Errorf("%w: refresh %s: %w", ErrFetch, url, err)
		}
		c.logger.DebugContext(ctx, "jwks refreshed", "url", url, "reason", reason, "keys", set.Len())
		return set, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(jwk.Set), nil
}

func (c *Cache) entryLocked(url string) *entry {
	e, ok := c.entries[url]
	if !ok {
		e = &entry{}
		c.entries[url] = e
	}
	return e
}

func exportAll(set jwk.Set) ([]any, error) {
	out := make([]any, 0, set.Len())
	for i := range set.Len() {
		key, ok := set.Key(i)
		if !ok {
			continue
		}
		var raw any
		if err := jwk.Export(key, &raw); err != nil {
			continue
		}
		out = append(out, raw)
	}
	if len(out) == 0 {
		return nil, ErrKeyNotFound
	}
	return out, nil
}
