package access

import (
	"fmt"
	"operations/lib/models"
)

// Gate answers "is this permission, or set of permissions, held". It resolves
// on every call and keeps no state of its own.
type Gate struct {
	resolver *Resolver
}

// NewGate creates a gate backed by resolver.
func NewGate(resolver *Resolver) *Gate {
	return &Gate{resolver: resolver}
}

// Permissions returns the actor's effective permission set.
func (g *Gate) Permissions(actor models.Actor) PermissionSet {
	return g.resolver.Resolve(actor)
}

// HasPermission reports whether p is in the actor's effective set.
func (g *Gate) HasPermission(actor models.Actor, p models.Permission) bool {
	return g.resolver.Resolve(actor).Has(p)
}

// CanAccess is true only if every permission in perms is held.
func (g *Gate) CanAccess(actor models.Actor, perms []models.Permission) bool {
	return g.resolver.Resolve(actor).HasAll(perms)
}

// HasAny is true if at least one permission in perms is held.
func (g *Gate) HasAny(actor models.Actor, perms []models.Permission) bool {
	return g.resolver.Resolve(actor).HasAny(perms)
}

// Missing lists the permissions in perms the actor does not hold.
func (g *Gate) Missing(actor models.Actor, perms []models.Permission) []models.Permission {
	return g.resolver.Resolve(actor).Missing(perms)
}

// Authorize returns nil when CanAccess holds, otherwise an error wrapping
// models.ErrAccessDenied that names what is missing.
func (g *Gate) Authorize(actor models.Actor, perms []models.Permission) error {
	missing := g.Missing(actor, perms)
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("%w: user %s lacks %v", models.ErrAccessDenied, actor.ID, missing)
}
