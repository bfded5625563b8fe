// Package authroles provides configurable role sources for providers whose
// role claims do not follow the built-in conventions.
package authroles

import (
	"fmt"
	"strings"

	jmespath "github.com/jmespath-community/go-jmespath"

	domainauth "github.com/target/auth-bff/internal/domain/auth"
)

// JMESPathSource reads roles with a JMESPath expression, e.g.
// `realm_access.roles` for Keycloak or `"https://example.com/roles"` for Auth0
// namespaced claims. The expression may yield a string or an array of strings.
type JMESPathSource struct {
	expr string
}

var _ domainauth.RoleSource = JMESPathSource{}

// NewJMESPathSource validates expr and returns a source evaluating it.
func NewJMESPathSource(expr string) (JMESPathSource, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return JMESPathSource{}, fmt.Errorf("empty role claim expression")
	}
	if _, err := jmespath.Compile(expr); err != nil {
		return JMESPathSource{}, fmt.Errorf("invalid role claim expression %q: %w", expr, err)
	}
	return JMESPathSource{expr: expr}, nil
}

// Roles evaluates the expression; evaluation errors and unexpected shapes yield no roles.
func (s JMESPathSource) Roles(c domainauth.Claims) []string {
	if s.expr == "" || c == nil {
		return nil
	}
	out, err := jmespath.Search(s.expr, map[string]any(c))
	if err != nil {
		return nil
	}
	switch v := out.(type) {
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []any:
		roles := make([]string, 0, len(v))
		for _, item := range v {
			if r, ok := item.(string); ok {
				roles = append(roles, r)
			}
		}
		return roles
	default:
		return nil
	}
}

// String returns the expression.
func (s JMESPathSource) String() string { return s.expr }

// Sources builds the default role sources extended with one JMESPath source per expression.
func Sources(exprs []string) (domainauth.RoleSources, error) {
	sources := domainauth.DefaultRoleSources()
	for _, expr := range exprs {
		if strings.TrimSpace(expr) == "" {
			continue
		}
		src, err := NewJMESPathSource(expr)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, nil
}
