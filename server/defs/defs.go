// Package defs contains small types shared between the server packages.
package defs

import "strings"

// Role is an application role. Every authenticated request resolves to exactly
// one of these four values, and each value maps to one proxy credential pair
// on the Strapi side.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleAuthor Role = "author"
	RoleViewer Role = "viewer"
)

// AllRoles is ordered from most to least privileged.
var AllRoles = []Role{RoleAdmin, RoleEditor, RoleAuthor, RoleViewer}

func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleEditor || r == RoleAuthor || r == RoleViewer
}

// CanWrite is true for roles that may create/update/delete content.
func (r Role) CanWrite() bool {
	return r == RoleAdmin || r == RoleEditor || r == RoleAuthor
}

// ParseRole collapses an arbitrary stored string onto one of the four roles.
// Unrecognized values become viewer. We never store an invalid role, but the
// collapse happens here, at the point of use, so a bad row can't escalate.
func ParseRole(s string) Role {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if r.IsValid() {
		return r
	}
	return RoleViewer
}

// RoleFromExternalClaim maps an externally-asserted role string (eg from an
// identity-provider claim) onto a local role using substring containment.
// These rules are intentionally blunt ("administrative-assistant" maps to
// admin); they mirror the platform's role vocabulary and must not be
// tightened without confirming what the identity provider actually emits.
func RoleFromExternalClaim(external string) Role {
	lower := strings.ToLower(external)
	switch {
	case strings.Contains(lower, "admin"):
		return RoleAdmin
	case strings.Contains(lower, "editor"):
		return RoleEditor
	case strings.Contains(lower, "author"):
		return RoleAuthor
	default:
		return RoleViewer
	}
}
