// Package metrics emits the gateway's standard auth metrics through a StatsD sink.
package metrics

import (
	"time"

	obserrors "github.com/target/auth-bff/internal/observability/errors"
	"github.com/target/auth-bff/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess  = "success"
	ResultError    = "error"
	ResultRejected = "rejected"
	ResultAbsent   = "absent"
	ResultLimited  = "limited"
)

// Metric names.
const (
	NameResolve   = "auth.resolve"
	NameCSRF      = "auth.csrf"
	NameLogin     = "auth.login"
	NameLoginTime = "auth.login.duration"
	NameJWKSFetch = "jwks.fetch"
)

// EmitResolve records the outcome of resolving a request credential.
func EmitResolve(sink statsd.Sink, method, result string, err error) {
	if sink == nil {
		return
	}
	tags := map[string]string{"result": result}
	if method != "" {
		tags["method"] = method
	}
	addErrorClass(tags, result, err)
	sink.Count(NameResolve, 1, tags)
}

// EmitCSRF records a CSRF guard decision.
func EmitCSRF(sink statsd.Sink, result string) {
	if sink == nil {
		return
	}
	sink.Count(NameCSRF, 1, map[string]string{"result": result})
}

// LoginMetric captures one login attempt for metric emission.
type LoginMetric struct {
	Provider string
	Result   string
	Duration time.Duration
	Err      error
}

// EmitLogin records a login attempt and its duration.
func EmitLogin(sink statsd.Sink, in LoginMetric) {
	if sink == nil {
		return
	}
	tags := map[string]string{
		"provider": in.Provider,
		"result":   in.Result,
	}
	addErrorClass(tags, in.Result, in.Err)
	sink.Count(NameLogin, 1, tags)
	if in.Duration > 0 {
		sink.Timing(NameLoginTime, in.Duration, CloneTags(tags))
	}
}

// EmitJWKSFetch records a key-set fetch or refresh.
func EmitJWKSFetch(sink statsd.Sink, reason string, err error) {
	if sink == nil {
		return
	}
	result := ResultSuccess
	if err != nil {
		result = ResultError
	}
	tags := map[string]string{"reason": reason, "result": result}
	addErrorClass(tags, result, err)
	sink.Count(NameJWKSFetch, 1, tags)
}

func addErrorClass(tags map[string]string, result string, err error) {
	if err == nil || result == ResultSuccess {
		return
	}
	if class := obserrors.Classify(err); class != "" {
		tags["error_class"] = class
	}
}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
