package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrantsCoverEveryRole(t *testing.T) {
	for _, role := range Roles() {
		_, ok := grants[role]
		assert.True(t, ok, "role %q has no grant entry", role)
	}
	assert.Len(t, grants, len(Roles()), "grant table lists a role that Roles() does not")
}

func TestGrantsOnlyUseKnownCapabilities(t *testing.T) {
	known := make(map[Capability]struct{})
	for _, c := range Capabilities() {
		known[c] = struct{}{}
	}
	for role, caps := range grants {
		for _, c := range caps {
			_, ok := known[c]
			assert.True(t, ok, "role %q grants unknown capability %q", role, c)
		}
	}
}

func TestResolveMatrix(t *testing.T) {
	expected := map[Role]map[Capability]bool{
		RoleAdmin:  {CapImport: true, CapView: true, CapEdit: true, CapSave: true, CapSummary: true},
		RoleEditor: {CapImport: false, CapView: true, CapEdit: true, CapSave: true, CapSummary: true},
		RoleViewer: {CapImport: false, CapView: true, CapEdit: false, CapSave: false, CapSummary: true},
	}
	for role, row := range expected {
		for _, c := range Capabilities() {
			assert.Equal(t, row[c], Resolve(role, c), "Resolve(%s, %s)", role, c)
			// Repeated calls must agree.
			assert.Equal(t, Resolve(role, c), Resolve(role, c))
		}
	}
}

func TestResolveFailsClosed(t *testing.T) {
	tests := []struct {
		name string
		role Role
		cap  Capability
	}{
		{name: "unknown role", role: "auditor", cap: CapView},
		{name: "empty role", role: "", cap: CapView},
		{name: "case differs", role: "Admin", cap: CapImport},
		{name: "unknown capability", role: RoleAdmin, cap: "delete"},
		{name: "empty capability", role: RoleAdmin, cap: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, Resolve(tt.role, tt.cap))
		})
	}
	for _, c := range Capabilities() {
		assert.False(t, Resolve("ghost", c))
	}
}

func TestCapabilitiesForReturnsCopy(t *testing.T) {
	caps := CapabilitiesFor(RoleViewer)
	require.Equal(t, []Capability{CapView, CapSummary}, caps)
	caps[0] = CapImport
	assert.False(t, Resolve(RoleViewer, CapImport))
	assert.Empty(t, CapabilitiesFor("ghost"))
}

func TestRoleHelpers(t *testing.T) {
	assert.True(t, RoleEditor.Known())
	assert.False(t, Role("root").Known())
	assert.Equal(t, "Viewer", RoleViewer.Label())
	assert.Equal(t, "", Role("").Label())
}

func TestParseCapability(t *testing.T) {
	c, ok := ParseCapability(" save ")
	require.True(t, ok)
	assert.Equal(t, CapSave, c)

	_, ok = ParseCapability("SAVE")
	assert.False(t, ok)
	_, ok = ParseCapability("delete")
	assert.False(t, ok)
}
