// Package gate holds the navigation state machines: who may reach a route,
// whether onboarding still blocks them, and which dashboard the root route
// resolves to. It is pure decision logic; the HTTP layer turns decisions
// into responses.
package gate

import (
	"fmt"

	"reflectify/server/internal/model"
)

const (
	LoginPath = "/login"
	RootPath  = "/"
)

// Session is the resolved identity state a request carries into the gates.
// Loading means the initial session or profile check has not finished yet;
// the gates must treat it as unknown, never as anonymous.
type Session struct {
	Loading bool
	UserID  string
	Profile *model.Profile
}

func (s Session) Authenticated() bool {
	return !s.Loading && s.UserID != ""
}

// Route is a navigable path with its role allow-list. An empty allow-list
// admits any authenticated user.
type Route struct {
	Path    string
	Feature string
	Allowed []model.Role
}

func (r Route) allows(role model.Role) bool {
	if len(r.Allowed) == 0 {
		return true
	}
	for _, allowed := range r.Allowed {
		if allowed == role {
			return true
		}
	}
	return false
}

// Table is the fixed set of gated routes. The root route must never carry an
// allow-list: it is the target of every unauthorized redirect, so gating it
// by role could bounce a user between / and itself forever.
type Table struct {
	routes map[string]Route
}

func NewTable(routes []Route) (*Table, error) {
	table := &Table{routes: make(map[string]Route, len(routes))}
	for _, route := range routes {
		if route.Path == RootPath && len(route.Allowed) > 0 {
			return nil, fmt.Errorf("root route must not be role-gated")
		}
		if _, dup := table.routes[route.Path]; dup {
			return nil, fmt.Errorf("duplicate route %s", route.Path)
		}
		table.routes[route.Path] = route
	}
	return table, nil
}

func (t *Table) Lookup(path string) (Route, bool) {
	route, ok := t.routes[path]
	return route, ok
}

type Action int

const (
	// ActionWait renders a loading state and performs no redirect.
	ActionWait Action = iota
	ActionRender
	ActionRedirect
)

type Decision struct {
	Action Action
	Target string
}

// ResolveAccess composes the authentication check and the role check.
// While the session is loading nothing redirects, which is what prevents a
// flash-redirect to the login screen during the initial session check.
// Unauthorized roles are silently re-routed to the root route rather than
// shown a forbidden page.
func ResolveAccess(sess Session, route Route) Decision {
	if sess.Loading {
		return Decision{Action: ActionWait}
	}
	if sess.UserID == "" {
		return Decision{Action: ActionRedirect, Target: LoginPath}
	}
	if len(route.Allowed) == 0 {
		return Decision{Action: ActionRender}
	}
	if sess.Profile == nil {
		// Role check mirrors profile loading.
		return Decision{Action: ActionWait}
	}
	if route.allows(sess.Profile.Role) {
		return Decision{Action: ActionRender}
	}
	return Decision{Action: ActionRedirect, Target: RootPath}
}
