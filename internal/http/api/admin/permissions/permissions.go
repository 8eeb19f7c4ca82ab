// Package permissions maps admin routes to the staff roles allowed to call them.
package permissions

import (
	"net/http"
	"sort"
	"strings"

	"github.com/larkspur-kitchen/rewards/internal/identity"
)

// Definition grants a route to a set of roles.
type Definition struct {
	Method string
	Path   string
	Roles  []identity.Role
}

var (
	staff     = []identity.Role{identity.RoleKitchen, identity.RoleAdmin}
	adminOnly = []identity.Role{identity.RoleAdmin}
)

// Definitions lists every admin route. Routes absent from this list are denied.
var Definitions = []Definition{
	{Method: http.MethodGet, Path: "/v0/admin/orders", Roles: staff},
	{Method: http.MethodGet, Path: "/v0/admin/orders/:id", Roles: staff},
	{Method: http.MethodPut, Path: "/v0/admin/orders/:id/status", Roles: staff},
	{Method: http.MethodPost, Path: "/v0/admin/orders/:id/verify-pickup", Roles: staff},

	{Method: http.MethodGet, Path: "/v0/admin/offers", Roles: adminOnly},
	{Method: http.MethodPost, Path: "/v0/admin/offers", Roles: adminOnly},
	{Method: http.MethodPut, Path: "/v0/admin/offers/:id", Roles: adminOnly},

	{Method: http.MethodGet, Path: "/v0/admin/users/:id/profile", Roles: adminOnly},
	{Method: http.MethodGet, Path: "/v0/admin/users/:id/ledger", Roles: adminOnly},
	{Method: http.MethodGet, Path: "/v0/admin/users/:id/audit", Roles: adminOnly},
	{Method: http.MethodPost, Path: "/v0/admin/users/:id/adjust", Roles: adminOnly},
	{Method: http.MethodPut, Path: "/v0/admin/users/:id/tier", Roles: adminOnly},
	{Method: http.MethodPut, Path: "/v0/admin/users/:id/can-spin", Roles: adminOnly},

	{Method: http.MethodGet, Path: "/v0/admin/analytics", Roles: adminOnly},

	{Method: http.MethodGet, Path: "/v0/admin/settings", Roles: adminOnly},
	{Method: http.MethodPut, Path: "/v0/admin/settings/:key", Roles: adminOnly},
}

// Key builds the lookup key for a method and route pattern.
func Key(method, path string) string {
	return strings.ToUpper(strings.TrimSpace(method)) + " " + strings.TrimSpace(path)
}

// DefinitionMap indexes Definitions by Key.
func DefinitionMap() map[string]Definition {
	out := make(map[string]Definition, len(Definitions))
	for _, def := range Definitions {
		out[Key(def.Method, def.Path)] = def
	}
	return out
}

// Allowed reports whether role may call the route identified by key.
func Allowed(defs map[string]Definition, key string, role identity.Role) bool {
	def, ok := defs[key]
	if !ok {
		return false
	}
	for _, r := range def.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// KeysFor returns the sorted route keys granted to role.
func KeysFor(role identity.Role) []string {
	var keys []string
	for _, def := range Definitions {
		for _, r := range def.Roles {
			if r == role {
				keys = append(keys, Key(def.Method, def.Path))
				break
			}
		}
	}
	sort.Strings(keys)
	return keys
}
