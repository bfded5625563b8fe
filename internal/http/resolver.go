package httpx

import (
	"fmt"
	"net/http"
	"strings"
)

// Resolver yields a per-request value such as the identity provider or the
// session key. Fixed configuration uses Static; multi-tenant deployments
// supply their own implementation.
type Resolver[T any] interface {
	Resolve(r *http.Request) (T, error)
}

// Static resolves to the same value for every request.
type Static[T any] struct {
	Value T
}

func (s Static[T]) Resolve(*http.Request) (T, error) { return s.Value, nil }

// ResolverFunc adapts a function to Resolver.
type ResolverFunc[T any] func(r *http.Request) (T, error)

func (f ResolverFunc[T]) Resolve(r *http.Request) (T, error) { return f(r) }

// HeaderResolver picks a value by the (case-insensitive) contents of a
// request header, falling back to Default when the header is absent.
type HeaderResolver[T any] struct {
	Header  string
	Values  map[string]T
	Default Resolver[T]
}

func (h HeaderResolver[T]) Resolve(r *http.Request) (T, error) {
	name := strings.ToLower(strings.TrimSpace(r.Header.Get(h.Header)))
	if name == "" {
		if h.Default != nil {
			return h.Default.Resolve(r)
		}
		var zero T
		return zero, fmt.Errorf("missing %s header", h.Header)
	}
	if v, ok := h.Values[name]; ok {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("unknown %s %q", h.Header, name)
}
