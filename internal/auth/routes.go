package auth

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sekolahku/portal/internal/domain"
)

// RouteRule binds a path prefix to the roles allowed behind it.
type RouteRule struct {
	Prefix string
	Roles  []domain.Role
}

// RouteTable resolves request paths to their protection rule.
type RouteTable struct {
	rules []RouteRule
}

// DefaultRoutes is the portal's protection table.
func DefaultRoutes() []RouteRule {
	return []RouteRule{
		{Prefix: "/dashboard-admin", Roles: []domain.Role{domain.RoleAdmin}},
		{Prefix: "/dashboard-kesiswaan", Roles: []domain.Role{domain.RoleKesiswaan}},
		{Prefix: "/dashboard-siswa", Roles: []domain.Role{domain.RoleSiswa}},
		{Prefix: "/dashboard-osis", Roles: []domain.Role{domain.RoleOsis}},
		{Prefix: "/dashboard-ppdb", Roles: []domain.Role{domain.RolePPDBAdmin}},
		{Prefix: "/api/admin", Roles: []domain.Role{domain.RoleAdmin}},
		{Prefix: "/api/kesiswaan", Roles: []domain.Role{domain.RoleKesiswaan, domain.RoleAdmin}},
		{Prefix: "/api/ppdb", Roles: []domain.Role{domain.RolePPDBAdmin, domain.RoleAdmin}},
	}
}

// NewRouteTable validates rules and orders them longest prefix first.
// Rules with equal prefix length keep their declaration order. Prefixes are
// stored lowercased and matched against the lowercased path, so the table
// holds no matter how the router treats letter case.
func NewRouteTable(rules []RouteRule) (*RouteTable, error) {
	out := make([]RouteRule, 0, len(rules))
	seen := make(map[string]struct{}, len(rules))
	for _, rule := range rules {
		if rule.Prefix == "" || !strings.HasPrefix(rule.Prefix, "/") {
			return nil, fmt.Errorf("%w: prefix %q must start with /", ErrInvalidRouteConfig, rule.Prefix)
		}
		if len(rule.Roles) == 0 {
			return nil, fmt.Errorf("%w: prefix %s has no allowed roles", ErrInvalidRouteConfig, rule.Prefix)
		}
		for _, role := range rule.Roles {
			if !role.Valid() {
				return nil, fmt.Errorf("%w: prefix %s lists unknown role %q", ErrInvalidRouteConfig, rule.Prefix, role)
			}
		}
		prefix := strings.ToLower(rule.Prefix)
		if _, dup := seen[prefix]; dup {
			return nil, fmt.Errorf("%w: duplicate prefix %s", ErrInvalidRouteConfig, rule.Prefix)
		}
		seen[prefix] = struct{}{}
		out = append(out, RouteRule{Prefix: prefix, Roles: append([]domain.Role(nil), rule.Roles...)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return len(out[i].Prefix) > len(out[j].Prefix)
	})
	return &RouteTable{rules: out}, nil
}

// MustRouteTable is NewRouteTable for static tables.
func MustRouteTable(rules []RouteRule) *RouteTable {
	table, err := NewRouteTable(rules)
	if err != nil {
		panic(err)
	}
	return table
}

// Match returns the rule protecting path, if any.
func (t *RouteTable) Match(path string) (RouteRule, bool) {
	path = strings.ToLower(path)
	for _, rule := range t.rules {
		if strings.HasPrefix(path, rule.Prefix) {
			return rule, true
		}
	}
	return RouteRule{}, false
}

// Allows reports whether role may access the rule's prefix.
func (r RouteRule) Allows(role domain.Role) bool {
	for _, allowed := range r.Roles {
		if allowed == role {
			return true
		}
	}
	return false
}

// Rules returns the table in match order.
func (t *RouteTable) Rules() []RouteRule {
	return append([]RouteRule(nil), t.rules...)
}
