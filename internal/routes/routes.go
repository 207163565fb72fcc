// Package routes is the capability routing table: which dashboard routes each
// role sees in its navigation and which routes it may open.
//
// Access is inherited (admins may open every user route); navigation is not,
// so the admin dashboard lists only the admin tools.
package routes

import (
	_ "embed"
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"github.com/talkboard/talkboard-web/internal/domain"
)

//go:embed model.conf
var modelConf string

const (
	actNav    = "nav"
	actAccess = "access"
)

// Route is a navigable dashboard entry.
type Route struct {
	Path  string `json:"path"`
	Label string `json:"label"`
}

type rule struct {
	role  domain.Role
	route Route
	nav   bool
}

var rules = []rule{
	{domain.RoleUser, Route{"/dashboard", "Dashboard"}, false},
	{domain.RoleUser, Route{"/dashboard/profile", "My Profile"}, true},
	{domain.RoleUser, Route{"/dashboard/addPost", "Add Post"}, true},
	{domain.RoleUser, Route{"/dashboard/myPost", "My Posts"}, true},
	{domain.RoleUser, Route{"/dashboard/comments/:postId", "Comments"}, false},
	{domain.RoleUser, Route{"/membership", "Membership"}, false},
	{domain.RoleUser, Route{"/api/v1/posts", ""}, false},
	{domain.RoleUser, Route{"/api/v1/posts/*", ""}, false},
	{domain.RoleUser, Route{"/api/v1/comments/*", ""}, false},
	{domain.RoleUser, Route{"/api/v1/membership/*", ""}, false},

	{domain.RoleAdmin, Route{"/dashboard/adminProfile", "Admin Profile"}, true},
	{domain.RoleAdmin, Route{"/dashboard/makeAdmin", "Manage Users"}, true},
	{domain.RoleAdmin, Route{"/dashboard/makeAnnouncement", "Make Announcement"}, true},
	{domain.RoleAdmin, Route{"/dashboard/reportComments", "Reported Comments"}, true},
	{domain.RoleAdmin, Route{"/api/v1/admin/*", ""}, false},
}

// Table answers routing questions for a role.
type Table struct {
	enforcer *casbin.SyncedEnforcer
	nav      map[domain.Role][]Route
}

// New builds the routing table.
func New() (*Table, error) {
	m, err := model.NewModelFromString(modelConf)
	if err != nil {
		return nil, fmt.Errorf("parse routing model: %w", err)
	}

	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create routing enforcer: %w", err)
	}

	t := &Table{enforcer: enforcer, nav: make(map[domain.Role][]Route)}
	for _, r := range rules {
		if _, err := enforcer.AddPolicy(string(r.role), r.route.Path, actAccess); err != nil {
			return nil, fmt.Errorf("add access policy %s: %w", r.route.Path, err)
		}
		if r.nav {
			if _, err := enforcer.AddPolicy(string(r.role), r.route.Path, actNav); err != nil {
				return nil, fmt.Errorf("add nav policy %s: %w", r.route.Path, err)
			}
			t.nav[r.role] = append(t.nav[r.role], r.route)
		}
	}
	if _, err := enforcer.AddGroupingPolicy(string(domain.RoleAdmin), string(domain.RoleUser)); err != nil {
		return nil, fmt.Errorf("add role inheritance: %w", err)
	}

	return t, nil
}

// Visible returns the navigation entries shown to role, in display order.
func (t *Table) Visible(role domain.Role) []Route {
	var out []Route
	for _, r := range t.nav[role] {
		if ok, _ := t.enforcer.Enforce(string(role), r.Path, actNav); ok {
			out = append(out, r)
		}
	}
	return out
}

// Allowed reports whether role may open path. Errors deny.
func (t *Table) Allowed(role domain.Role, path string) bool {
	ok, err := t.enforcer.Enforce(string(role), path, actAccess)
	return err == nil && ok
}

// AdminOnly reports whether path is open to admins but not to users.
func (t *Table) AdminOnly(path string) bool {
	return t.Allowed(domain.RoleAdmin, path) && !t.Allowed(domain.RoleUser, path)
}

// Home returns the dashboard landing route for role.
func (t *Table) Home(role domain.Role) string {
	if nav := t.Visible(role); len(nav) > 0 {
		return nav[0].Path
	}
	return "/dashboard"
}
