package access

import (
	"operations/lib/models"
	"sort"

	"github.com/sirupsen/logrus"
)

// PermissionSet is the effective permission set of a user: exact permissions
// plus any resource-wide or global wildcards. The zero value is empty.
type PermissionSet struct {
	all       bool
	resources map[models.Resource]struct{}
	exact     map[models.Permission]struct{}
}

func (s *PermissionSet) add(grant models.Grant) {
	switch grant.Kind {
	case models.GrantAllResources:
		s.all = true
	case models.GrantAllActions:
		if s.resources == nil {
			s.resources = make(map[models.Resource]struct{})
		}
		s.resources[grant.Resource] = struct{}{}
	default:
		if s.exact == nil {
			s.exact = make(map[models.Permission]struct{})
		}
		s.exact[grant.Permission] = struct{}{}
	}
}

// Has reports whether p is granted, directly or through a wildcard.
func (s PermissionSet) Has(p models.Permission) bool {
	if s.all {
		return true
	}
	if _, ok := s.resources[p.Resource()]; ok {
		return true
	}
	_, ok := s.exact[p]
	return ok
}

// HasAll is the conjunctive check. An empty list is vacuously satisfied.
func (s PermissionSet) HasAll(perms []models.Permission) bool {
	for _, p := range perms {
		if !s.Has(p) {
			return false
		}
	}
	return true
}

// HasAny is the disjunctive check. An empty list is never satisfied.
func (s PermissionSet) HasAny(perms []models.Permission) bool {
	for _, p := range perms {
		if s.Has(p) {
			return true
		}
	}
	return false
}

// Missing returns the members of perms that are not granted, in input order.
func (s PermissionSet) Missing(perms []models.Permission) []models.Permission {
	var missing []models.Permission
	for _, p := range perms {
		if !s.Has(p) {
			missing = append(missing, p)
		}
	}
	return missing
}

// IsEmpty reports whether nothing is granted.
func (s PermissionSet) IsEmpty() bool {
	return !s.all && len(s.resources) == 0 && len(s.exact) == 0
}

// Union returns a new set holding the grants of both.
func (s PermissionSet) Union(other PermissionSet) PermissionSet {
	var out PermissionSet
	for _, g := range s.Grants() {
		out.add(g)
	}
	for _, g := range other.Grants() {
		out.add(g)
	}
	return out
}

// Grants returns the set in normalized form: the global wildcard alone if
// present, otherwise resource wildcards followed by the exact permissions they
// do not already cover. Both groups are sorted.
func (s PermissionSet) Grants() []models.Grant {
	if s.all {
		return []models.Grant{models.AllResources()}
	}

	resources := make([]models.Resource, 0, len(s.resources))
	for r := range s.resources {
		resources = append(resources, r)
	}
	sort.Slice(resources, func(i, j int) bool { return resources[i] < resources[j] })

	grants := make([]models.Grant, 0, len(resources)+len(s.exact))
	for _, r := range resources {
		grants = append(grants, models.AllActions(r))
	}
	for _, p := range s.sortedExact() {
		if _, covered := s.resources[p.Resource()]; !covered {
			grants = append(grants, models.Exact(p))
		}
	}
	return grants
}

// Permissions expands the set against the catalog: every catalog permission a
// wildcard covers, plus every exact permission (known to the catalog or not).
// The result is sorted and free of duplicates.
func (s PermissionSet) Permissions() []models.Permission {
	seen := make(map[models.Permission]struct{})
	for _, p := range models.Catalog() {
		if s.Has(p) {
			seen[p] = struct{}{}
		}
	}
	for p := range s.exact {
		seen[p] = struct{}{}
	}

	out := make([]models.Permission, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	models.SortPermissions(out)
	return out
}

// Equal compares normalized grants.
func (s PermissionSet) Equal(other PermissionSet) bool {
	a, b := s.Grants(), other.Grants()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (s PermissionSet) sortedExact() []models.Permission {
	out := make([]models.Permission, 0, len(s.exact))
	for p := range s.exact {
		out = append(out, p)
	}
	models.SortPermissions(out)
	return out
}

// Resolver computes effective permissions from the registry. It only reads
// the registry, so one instance can serve concurrent callers.
type Resolver struct {
	registry *Registry
	logger   *logrus.Logger
}

// NewResolver creates a resolver over registry.
func NewResolver(registry *Registry, logger *logrus.Logger) *Resolver {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Resolver{registry: registry, logger: logger}
}

// Registry returns the table the resolver reads.
func (r *Resolver) Registry() *Registry {
	return r.registry
}

// Resolve returns the effective permissions of actor across all held roles.
func (r *Resolver) Resolve(actor models.Actor) PermissionSet {
	return r.ResolveRoles(actor.Roles...)
}

// ResolveRoles walks the hierarchy breadth-first from roles. Each role is
// expanded at most once, so a cyclic hierarchy still terminates. Unknown roles
// contribute nothing and are logged as configuration errors.
func (r *Resolver) ResolveRoles(roles ...models.RoleName) PermissionSet {
	var set PermissionSet
	visited := make(map[models.RoleName]struct{}, len(roles))
	queue := append([]models.RoleName(nil), roles...)

	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]

		if _, seen := visited[name]; seen {
			continue
		}
		visited[name] = struct{}{}

		role, ok := r.registry.Role(name)
		if !ok {
			r.logger.WithFields(logrus.Fields{
				"operation": "ResolveRoles",
				"role":      name,
				"error":     models.ErrConfiguration.Error(),
			}).Warn("Unknown role resolves to no permissions")
			continue
		}

		for _, grant := range role.Grants {
			set.add(grant)
		}
		queue = append(queue, role.Inherits...)
	}

	return set
}
