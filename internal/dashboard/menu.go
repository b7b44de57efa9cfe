package dashboard

import (
	"strings"

	"github.com/dashboard-pro/dashboard-pro/internal/guard"
	"github.com/dashboard-pro/dashboard-pro/internal/rbac"
	"github.com/dashboard-pro/dashboard-pro/internal/view"
)

// HomePath is the landing page of the dashboard.
const HomePath = "/dashboard"

// Entry is a navigable dashboard page. An empty Required means any
// authenticated principal may open it.
type Entry struct {
	ID       string
	Label    string
	Path     string
	Required rbac.Capability
}

// Entries lists the dashboard pages in menu order.
var Entries = []Entry{
	{ID: "dashboard", Label: "Dashboard", Path: HomePath},
	{ID: "import", Label: "Import Excel", Path: "/dashboard/import", Required: rbac.CapImport},
	{ID: "data", Label: "View Data", Path: "/dashboard/data", Required: rbac.CapView},
	{ID: "save", Label: "Save Data", Path: "/dashboard/save", Required: rbac.CapSave},
	{ID: "summary", Label: "View Summary", Path: "/dashboard/summary", Required: rbac.CapSummary},
}

// Menu returns the entries a can open, marking the one that matches
// currentPath. Anonymous sessions get nothing.
func Menu(a guard.Authorizer, currentPath string) []view.MenuItem {
	if a == nil || !a.Authenticated() {
		return nil
	}
	items := make([]view.MenuItem, 0, len(Entries))
	for _, e := range Entries {
		if e.Required != "" && !a.HasCapability(e.Required) {
			continue
		}
		items = append(items, view.MenuItem{
			ID:     e.ID,
			Label:  e.Label,
			Path:   e.Path,
			Active: isActive(e.Path, currentPath),
		})
	}
	return items
}

// QuickActions is the menu without the dashboard home itself.
func QuickActions(a guard.Authorizer) []view.MenuItem {
	menu := Menu(a, "")
	actions := make([]view.MenuItem, 0, len(menu))
	for _, item := range menu {
		if item.Path != HomePath {
			actions = append(actions, item)
		}
	}
	return actions
}

func isActive(entryPath, currentPath string) bool {
	if currentPath == entryPath {
		return true
	}
	if entryPath == HomePath {
		return currentPath == HomePath+"/"
	}
	return strings.HasPrefix(currentPath, entryPath+"/")
}
