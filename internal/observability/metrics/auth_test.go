package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/target/auth-bff/internal/errors"
	"github.com/target/auth-bff/internal/observability/statsd"
)

func TestEmitLogin(t *testing.T) {
	var rec statsd.Recorder
	EmitLogin(&rec, LoginMetric{
		Provider: "supabase",
		Result:   ResultError,
		Duration: 20 * time.Millisecond,
		Err:      apperrors.Upstream("Invalid login credentials"),
	})

	counts := rec.Samples(NameLogin)
	require.Len(t, counts, 1)
	assert.Equal(t, map[string]string{
		"provider":    "supabase",
		"result":      ResultError,
		"error_class": "upstream",
	}, counts[0].Tags)
	assert.Len(t, rec.Samples(NameLoginTime), 1)
}

func TestEmitResolve_SuccessHasNoErrorClass(t *testing.T) {
	var rec statsd.Recorder
	EmitResolve(&rec, "bearer", ResultSuccess, errors.New("ignored"))
	s := rec.Samples(NameResolve)
	require.Len(t, s, 1)
	assert.NotContains(t, s[0].Tags, "error_class")
	assert.Equal(t, "bearer", s[0].Tags["method"])
}

func TestEmit_NilSink(t *testing.T) {
	assert.NotPanics(t, func() {
		EmitResolve(nil, "", ResultAbsent, nil)
		EmitCSRF(nil, ResultRejected)
		EmitLogin(nil, LoginMetric{})
		EmitJWKSFetch(nil, "initial", nil)
	})
}

func TestEmitJWKSFetch(t *testing.T) {
	var rec statsd.Recorder
	EmitJWKSFetch(&rec, "unknown_kid", errors.New("boom"))
	s := rec.Samples(NameJWKSFetch)
	require.Len(t, s, 1)
	assert.Equal(t, ResultError, s[0].Tags["result"])
	assert.Equal(t, "unknown_kid", s[0].Tags["reason"])
}
