package domain

import (
	"errors"
	"strings"
)

// Role enumerates the permission classes of portal accounts.
type Role string

const (
	RoleUnknown   Role = ""
	RoleAdmin     Role = "ADMIN"
	RoleKesiswaan Role = "KESISWAAN"
	RoleSiswa     Role = "SISWA"
	RoleOsis      Role = "OSIS"
	RolePPDBAdmin Role = "PPDB_ADMIN"
)

// ErrUnrecognizedRole is returned by ParseRole for strings outside the known vocabularies.
var ErrUnrecognizedRole = errors.New("unrecognized role")

// AllRoles lists every known role in canonical form.
var AllRoles = []Role{RoleAdmin, RoleKesiswaan, RoleSiswa, RoleOsis, RolePPDBAdmin}

// legacyRoles maps lowercase role tokens issued by older sessions and the
// login form onto canonical roles. Canonical spellings are listed too so that
// a single lookup covers both vocabularies.
var legacyRoles = map[string]Role{
	"admin":        RoleAdmin,
	"kesiswaan":    RoleKesiswaan,
	"siswa":        RoleSiswa,
	"osis":         RoleOsis,
	"ppdb-officer": RolePPDBAdmin,
	"ppdb-admin":   RolePPDBAdmin,
	"ppdb_admin":   RolePPDBAdmin,
	"ppdb_staff":   RolePPDBAdmin,
}

var rolePermissions = map[Role][]string{
	RoleAdmin:     {"read", "write", "delete", "manage_users", "view_reports"},
	RoleKesiswaan: {"read", "write", "manage_students", "view_reports"},
	RoleSiswa:     {"read", "view_profile", "submit_assignments"},
	RoleOsis:      {"read", "write", "manage_events", "view_reports"},
	RolePPDBAdmin: {"read", "write", "manage_ppdb", "view_applications"},
}

// ParseRole maps a legacy token or canonical value onto a Role.
// Unknown input is rejected rather than guessed.
func ParseRole(raw string) (Role, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		return RoleUnknown, ErrUnrecognizedRole
	}
	if role, ok := legacyRoles[key]; ok {
		return role, nil
	}
	return RoleUnknown, ErrUnrecognizedRole
}

// CanonicalRole returns the canonical spelling of raw. Strings outside the
// legacy map fall back to their uppercase form, so the result is not
// guaranteed to be a known role; use ParseRole when that matters.
func CanonicalRole(raw string) string {
	if raw == "" {
		return ""
	}
	if role, ok := legacyRoles[strings.ToLower(raw)]; ok {
		return string(role)
	}
	return strings.ToUpper(raw)
}

// NormalizeRole produces the lowercase comparison key for any role spelling.
// Empty input yields the empty string.
func NormalizeRole(raw string) string {
	return strings.ToLower(CanonicalRole(raw))
}

// IsRoleMatch reports whether candidate names one of the required roles,
// with every side normalized first.
func IsRoleMatch(candidate string, required ...string) bool {
	if candidate == "" {
		return false
	}
	want := NormalizeRole(candidate)
	for _, r := range required {
		if r != "" && NormalizeRole(r) == want {
			return true
		}
	}
	return false
}

func IsAdminRole(raw string) bool     { return CanonicalRole(raw) == string(RoleAdmin) }
func IsKesiswaanRole(raw string) bool { return CanonicalRole(raw) == string(RoleKesiswaan) }
func IsSiswaRole(raw string) bool     { return CanonicalRole(raw) == string(RoleSiswa) }
func IsOsisRole(raw string) bool      { return CanonicalRole(raw) == string(RoleOsis) }
func IsPPDBAdminRole(raw string) bool { return CanonicalRole(raw) == string(RolePPDBAdmin) }

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := rolePermissions[r]
	return ok
}

// Permissions returns a copy of the static permission set granted to r.
func (r Role) Permissions() []string {
	perms := rolePermissions[r]
	out := make([]string, len(perms))
	copy(out, perms)
	return out
}

// LegacyToken returns the lowercase token used by the login form.
func (r Role) LegacyToken() string {
	if r == RolePPDBAdmin {
		return "ppdb-officer"
	}
	return strings.ToLower(string(r))
}

// DashboardPath returns the landing page for r.
func (r Role) DashboardPath() string {
	if r == RolePPDBAdmin {
		return "/dashboard-ppdb"
	}
	return "/dashboard-" + strings.ToLower(string(r))
}

func (r Role) String() string {
	return string(r)
}
