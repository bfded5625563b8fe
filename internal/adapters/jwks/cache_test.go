package jwks

import (
	"context"
	"crypto/rsa"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/auth-bff/internal/observability/metrics"
	"github.com/target/auth-bff/internal/observability/statsd"
	"github.com/target/auth-bff/internal/testutil"
)

func newTestCache(t *testing.T, clock *testutil.Clock, sink statsd.Sink) *Cache {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	c, err := New(ctx, Options{
		TTL:                10 * time.Minute,
		MinRefreshInterval: time.Minute,
		Now:                clock.Now,
		Metrics:            sink,
	})
	require.NoError(t, err)
	return c
}

func TestCache_LookupByKID(t *testing.T) {
	ti := testutil.NewTestIssuer(t)
	c := newTestCache(t, testutil.NewClock(time.Now()), nil)

	keys, err := c.VerificationKeys(context.Background(), ti.JWKSURL(), "key-1")
	require.NoError(t, err)
	require.Len(t, keys, 1)

	pub, ok := keys[0].(*rsa.PublicKey)
	require.True(t, ok, "expected *rsa.PublicKey, got %T", keys[0])
	assert.Equal(t, ti.Signer().Key.PublicKey.N, pub.N)
}

func TestCache_ReusesRegistration(t *testing.T) {
	ti := testutil.NewTestIssuer(t)
	c := newTestCache(t, testutil.NewClock(time.Now()), nil)
	ctx := context.Background()

	for range 5 {
		_, err := c.VerificationKeys(ctx, ti.JWKSURL(), "key-1")
		require.NoError(t, err)
	}
	assert.LessOrEqual(t, ti.Fetches(), int64(2))
}

func TestCache_ConcurrentFirstUse(t *testing.T) {
	ti := testutil.NewTestIssuer(t)
	c := newTestCache(t, testutil.NewClock(time.Now()), nil)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			keys, err := c.VerificationKeys(context.Background(), ti.JWKSURL(), "key-1")
			if err == nil && len(keys) != 1 {
				err = ErrKeyNotFound
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
	assert.LessOrEqual(t, ti.Fetches(), int64(3))
}

func TestCache_UnknownKIDTriggersRateLimitedRefresh(t *testing.T) {
	ti := testutil.NewTestIssuer(t)
	clock := testutil.NewClock(time.Now())
	var rec statsd.Recorder
	c := newTestCache(t, clock, &rec)
	ctx := context.Background()

	_, err := c.VerificationKeys(ctx, ti.JWKSURL(), "key-1")
	require.NoError(t, err)

	ti.Rotate(t, "key-2")

	// Within the minimum interval the cache does not refetch.
	_, err = c.VerificationKeys(ctx, ti.JWKSURL(), "key-2")
	require.ErrorIs(t, err, ErrKeyNotFound)

	clock.Advance(2 * time.Minute)
	keys, err := c.VerificationKeys(ctx, ti.JWKSURL(), "key-2")
	require.NoError(t, err)
	assert.Len(t, keys, 1)

	var reasons []string
	for _, s := range rec.Samples(metrics.NameJWKSFetch) {
		reasons = append(reasons, s.Tags["reason"])
	}
	assert.Contains(t, reasons, reasonUnknownID)

	// Still unknown after a refresh.
	clock.Advance(2 * time.Minute)
	_, err = c.VerificationKeys(ctx, ti.JWKSURL(), "nope")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestCache_TTLRefreshPicksUpNewKeys(t *testing.T) {
	ti := testutil.NewTestIssuer(t)
	clock := testutil.NewClock(time.Now())
	c := newTestCache(t, clock, nil)
	ctx := context.Background()

	keys, err := c.VerificationKeys(ctx, ti.JWKSURL(), "")
	require.NoError(t, err)
	assert.Len(t, keys, 1)

	ti.Rotate(t, "key-2")
	clock.Advance(11 * time.Minute)

	keys, err = c.VerificationKeys(ctx, ti.JWKSURL(), "")
	require.NoError(t, err)
	assert.Len(t, keys, 2)
}

func TestCache_TTLRefreshFailureServesCachedKeys(t *testing.T) {
	ti := testutil.NewTestIssuer(t)
	clock := testutil.NewClock(time.Now())
	c := newTestCache(t, clock, nil)
	ctx := context.Background()

	_, err := c.VerificationKeys(ctx, ti.JWKSURL(), "key-1")
	require.NoError(t, err)

	ti.SetFailing(true)
	clock.Advance(11 * time.Minute)

	keys, err := c.VerificationKeys(ctx, ti.JWKSURL(), "key-1")
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}

func TestCache_FetchFailureIsAnError(t *testing.T) {
	ti := testutil.NewTestIssuer(t)
	ti.SetFailing(true)
	c := newTestCache(t, testutil.NewClock(time.Now()), nil)

	_, err := c.VerificationKeys(context.Background(), ti.JWKSURL(), "key-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFetch)
}

func TestCache_EmptyURL(t *testing.T) {
	c := newTestCache(t, testutil.NewClock(time.Now()), nil)
	_, err := c.VerificationKeys(context.Background(), "  ", "key-1")
	assert.ErrorIs(t, err, ErrEmptyURL)
}
