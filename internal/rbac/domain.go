package rbac

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Role names a permission grouping assigned to a principal.
type Role string

// Configured roles.
const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// Capability is an atomic permission a role may grant.
type Capability string

// Dashboard capabilities.
const (
	CapImport  Capability = "import"
	CapView    Capability = "view"
	CapEdit    Capability = "edit"
	CapSave    Capability = "save"
	CapSummary Capability = "summary"
)

// grants maps every configured role to the capabilities it holds.
// A role without an entry holds nothing.
var grants = map[Role][]Capability{
	RoleAdmin:  {CapImport, CapView, CapEdit, CapSave, CapSummary},
	RoleEditor: {CapView, CapEdit, CapSave, CapSummary},
	RoleViewer: {CapView, CapSummary},
}

// Roles lists the configured roles, most privileged first.
func Roles() []Role {
	return []Role{RoleAdmin, RoleEditor, RoleViewer}
}

// Capabilities lists every known capability in menu order.
func Capabilities() []Capability {
	return []Capability{CapImport, CapView, CapEdit, CapSave, CapSummary}
}

// Resolve reports whether role grants capability. Unknown roles and unknown
// capabilities always resolve to false.
func Resolve(role Role, capability Capability) bool {
	for _, granted := range grants[role] {
		if granted == capability {
			return true
		}
	}
	return false
}

// CapabilitiesFor returns a copy of the capabilities granted to role.
func CapabilitiesFor(role Role) []Capability {
	granted := grants[role]
	out := make([]Capability, len(granted))
	copy(out, granted)
	return out
}

// Known reports whether r is one of the configured roles.
func (r Role) Known() bool {
	_, ok := grants[r]
	return ok
}

// Label renders the role for display, e.g. "Admin".
func (r Role) Label() string {
	if r == "" {
		return ""
	}
	return cases.Title(language.English).String(string(r))
}

// ParseCapability maps a capability name to its typed value. Matching is
// exact; the second result is false for unknown names.
func ParseCapability(name string) (Capability, bool) {
	name = strings.TrimSpace(name)
	for _, c := range Capabilities() {
		if string(c) == name {
			return c, true
		}
	}
	return "", false
}
