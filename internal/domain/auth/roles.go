package auth

// RoleSource extracts candidate role strings from one claim convention.
// Sources never fail: a missing or wrongly-shaped claim yields no roles.
type RoleSource interface {
	Roles(c Claims) []string
}

// StringClaim reads a single string-valued claim, e.g. Supabase's "role".
type StringClaim string

func (k StringClaim) Roles(c Claims) []string {
	if s, ok := c[string(k)].(string); ok && s != "" {
		return []string{s}
	}
	return nil
}

// ListClaim reads an array-valued claim, e.g. "roles" or Auth0's "permissions".
type ListClaim string

func (k ListClaim) Roles(c Claims) []string {
	return stringList(c[string(k)])
}

// NestedListClaim reads an array-valued claim below nested objects,
// e.g. {"app_metadata", "roles"}.
type NestedListClaim []string

func (p NestedListClaim) Roles(c Claims) []string {
	if len(p) == 0 {
		return nil
	}
	var cur any = map[string]any(c)
	for _, key := range p {
		m, ok := asObject(cur)
		if !ok {
			return nil
		}
		cur = m[key]
	}
	return stringList(cur)
}

// RoleSources unions the roles of every member source.
type RoleSources []RoleSource

func (s RoleSources) Roles(c Claims) []string {
	var out []string
	for _, src := range s {
		out = append(out, src.Roles(c)...)
	}
	return out
}

// DefaultRoleSources covers the conventions used by Supabase, Auth0 and generic OIDC providers.
func DefaultRoleSources() RoleSources {
	return RoleSources{
		StringClaim("role"),
		ListClaim("roles"),
		ListClaim("permissions"),
		NestedListClaim{"app_metadata", "roles"},
	}
}

// Decision is the outcome of an authorization check.
type Decision bool

const (
	Deny  Decision = false
	Allow Decision = true
)

// Authorize allows when any role found by src appears in required (logical OR).
// An empty required set, or claims without any roles, always deny.
func Authorize(src RoleSource, c Claims, required []string) Decision {
	if src == nil || len(required) == 0 {
		return Deny
	}
	have := make(map[string]struct{})
	for _, r := range src.Roles(c) {
		have[r] = struct{}{}
	}
	for _, r := range required {
		if _, ok := have[r]; ok {
			return Allow
		}
	}
	return Deny
}

func asObject(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Claims:
		return m, true
	default:
		return nil, false
	}
}

func stringList(v any) []string {
	switch vals := v.(type) {
	case []string:
		return append([]string(nil), vals...)
	case []any:
		out := make([]string, 0, len(vals))
		for _, item := range vals {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
