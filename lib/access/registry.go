// Package access implements the role registry, permission resolution and the
// access gate used before any sensitive operation.
package access

import (
	"fmt"
	"operations/lib/models"
	"sort"
	"strings"
)

// Registry is the load-time-fixed table of roles. It exposes no mutation API;
// changing roles means loading a new configuration.
type Registry struct {
	roles map[models.RoleName]models.Role
}

// NewRegistry builds a registry from role definitions. Later duplicates replace earlier ones.
func NewRegistry(roles []models.Role) *Registry {
	registry := &Registry{roles: make(map[models.RoleName]models.Role, len(roles))}
	for _, role := range roles {
		registry.roles[role.Name] = copyRole(role)
	}
	return registry
}

// Role returns the definition of name.
func (r *Registry) Role(name models.RoleName) (models.Role, bool) {
	role, ok := r.roles[name]
	if !ok {
		return models.Role{}, false
	}
	return copyRole(role), true
}

// Has reports whether name is registered.
func (r *Registry) Has(name models.RoleName) bool {
	_, ok := r.roles[name]
	return ok
}

// Roles lists every role, highest level first, then by name.
func (r *Registry) Roles() []models.Role {
	out := make([]models.Role, 0, len(r.roles))
	for _, role := range r.roles {
		out = append(out, copyRole(role))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Level != out[j].Level {
			return out[i].Level > out[j].Level
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Validate reports configuration problems without rejecting the registry:
// inherited roles that are not registered, exact grants outside the permission
// catalog, roles that grant nothing directly or through inheritance, and
// cycles in the hierarchy. Every returned
// error wraps models.ErrConfiguration.
func (r *Registry) Validate() []error {
	var problems []error

	for _, role := range r.Roles() {
		if !r.grantsAnything(role.Name) {
			problems = append(problems, fmt.Errorf("%w: role %q grants no permissions", models.ErrConfiguration, role.Name))
		}
		for _, grant := range role.Grants {
			switch grant.Kind {
			case models.GrantExact:
				if !grant.Permission.IsKnown() {
					problems = append(problems, fmt.Errorf("%w: role %q grants unknown permission %q", models.ErrConfiguration, role.Name, grant.Permission))
				}
			case models.GrantAllActions:
				if len(models.PermissionsOf(grant.Resource)) == 0 {
					problems = append(problems, fmt.Errorf("%w: role %q grants all actions on unknown resource %q", models.ErrConfiguration, role.Name, grant.Resource))
				}
			}
		}
		for _, parent := range role.Inherits {
			if !r.Has(parent) {
				problems = append(problems, fmt.Errorf("%w: role %q inherits unknown role %q", models.ErrConfiguration, role.Name, parent))
			}
		}
	}

	for _, cycle := range r.cycles() {
		problems = append(problems, fmt.Errorf("%w: role hierarchy cycle %s", models.ErrConfiguration, strings.Join(cycle, " -> ")))
	}

	return problems
}

// cycles finds each back edge of a depth-first walk and returns the path it closes.
func (r *Registry) cycles() [][]string {
	const (
		unvisited = iota
		inProgress
		done
	)
	state := make(map[models.RoleName]int, len(r.roles))
	var path []models.RoleName
	var found [][]string

	var visit func(name models.RoleName)
	visit = func(name models.RoleName) {
		state[name] = inProgress
		path = append(path, name)
		for _, parent := range r.roles[name].Inherits {
			if !r.Has(parent) {
				continue
			}
			switch state[parent] {
			case unvisited:
				visit(parent)
			case inProgress:
				var cycle []string
				for i := len(path) - 1; i >= 0; i-- {
					if path[i] == parent {
						for _, step := range path[i:] {
							cycle = append(cycle, string(step))
						}
						break
					}
				}
				found = append(found, append(cycle, string(parent)))
			}
		}
		path = path[:len(path)-1]
		state[name] = done
	}

	names := make([]models.RoleName, 0, len(r.roles))
	for name := range r.roles {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	for _, name := range names {
		if state[name] == unvisited {
			visit(name)
		}
	}
	return found
}

// grantsAnything reports whether name or any role it inherits carries a grant.
func (r *Registry) grantsAnything(name models.RoleName) bool {
	visited := map[models.RoleName]bool{name: true}
	queue := []models.RoleName{name}
	for len(queue) > 0 {
		role := r.roles[queue[0]]
		queue = queue[1:]
		if len(role.Grants) > 0 {
			return true
		}
		for _, parent := range role.Inherits {
			if !visited[parent] {
				visited[parent] = true
				queue = append(queue, parent)
			}
		}
	}
	return false
}

func copyRole(role models.Role) models.Role {
	role.Grants = append([]models.Grant(nil), role.Grants...)
	role.Inherits = append([]models.RoleName(nil), role.Inherits...)
	return role
}
