// Package dashboard decides which screen tree is mounted for the current
// session. Resolution is pure; Router only caches the last result and
// recomputes it on every session transition.
package dashboard

import (
	"sync"

	"github.com/ghaggin/citas/internal/model"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Kind int

const (
	KindLoading Kind = iota
	KindAuth
	KindDashboard
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindDashboard:
		return "dashboard"
	}
	return "loading"
}

// Tree is a mounted set of routes. Initial is the route shown first.
type Tree struct {
	Kind    Kind       `json:"kind"`
	Role    model.Role `json:"role,omitempty"`
	Initial string     `json:"initial"`
	Routes  []Route    `json:"routes"`
}

// Route looks up a mounted route by name.
func (t Tree) Route(name string) (Route, bool) {
	for _, r := range t.Routes {
		if r.Name == name {
			return r, true
		}
	}
	return Route{}, false
}

// Root is the initial route.
func (t Tree) Root() Route {
	r, _ := t.Route(t.Initial)
	return r
}

// Resolve maps a role to its dashboard tree. It is total: a role outside the
// known set gets the authentication tree, never another role's dashboard.
func Resolve(role model.Role) Tree {
	root, ok := dashboards[role]
	if !ok {
		return authTree()
	}

	routes := make([]Route, 0, 1+len(sharedRoutes)+1+len(roleRoutes[role]))
	routes = append(routes, root)
	routes = append(routes, sharedRoutes...)
	if role == model.RoleMedico {
		routes = append(routes, misCitasMedico)
	} else {
		routes = append(routes, misCitasPaciente)
	}
	routes = append(routes, roleRoutes[role]...)

	return Tree{
		Kind:    KindDashboard,
		Role:    role,
		Initial: RouteDashboard,
		Routes:  routes,
	}
}

// Mount picks the tree for a session: loading until bootstrap has
// finished, the role's dashboard when authenticated, auth screens otherwise.
func Mount(s model.Session) Tree {
	switch {
	case s.Status == model.StatusUnknown:
		return Tree{
			Kind:    KindLoading,
			Initial: RouteLoading,
			Routes:  append([]Route(nil), loadingRoutes...),
		}
	case s.IsAuthenticated():
		return Resolve(s.Role())
	}
	return authTree()
}

func authTree() Tree {
	return Tree{
		Kind:    KindAuth,
		Initial: RouteInicio,
		Routes:  append([]Route(nil), authRoutes...),
	}
}

// SessionSource is what Router reads; *session.Manager satisfies it.
type SessionSource interface {
	Session() model.Session
	Subscribe(fn func(model.Session))
}

type Router struct {
	log *zap.Logger

	mu   sync.RWMutex
	tree Tree
}

type Params struct {
	fx.In

	Session SessionSource
	Log     *zap.Logger
}

func NewRouter(p Params) *Router {
	r := &Router{log: p.Log, tree: Mount(p.Session.Session())}
	p.Session.Subscribe(r.update)
	return r
}

func (r *Router) update(s model.Session) {
	next := Mount(s)

	r.mu.Lock()
	prev := r.tree
	r.tree = next
	r.mu.Unlock()

	if prev.Kind != next.Kind || prev.Role != next.Role {
		r.log.Info("screen tree remounted",
			zap.Stringer("kind", next.Kind),
			zap.String("role", next.Role.String()),
			zap.String("initial", next.Initial),
		)
	}
}

// Current returns the mounted tree.
func (r *Router) Current() Tree {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tree
}
