package session

import (
	"context"

	"github.com/google/uuid"
)

// Role determines which mutations an actor may attempt
type Role string

// Marketplace roles
const (
	RoleSupplier Role = "supplier"
	RoleBuilder  Role = "builder"
	RoleAdmin    Role = "admin"
)

// Actor is the resolved identity of the caller. It is resolved once by
// the session middleware and passed explicitly to every service that
// needs identity or role, instead of each component re-querying it.
type Actor struct {
	UserID uuid.UUID
	Role   Role
	Name   string
}

// IsAdmin reports whether the actor has blanket access
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// CanMutateDelivery reports whether the actor may write to a delivery
// owned by the given supplier
func (a Actor) CanMutateDelivery(supplierID uuid.UUID) bool {
	if a.IsAdmin() {
		return true
	}
	return a.Role == RoleSupplier && a.UserID == supplierID
}

// CanViewDelivery reports whether the actor may read a delivery
func (a Actor) CanViewDelivery(supplierID uuid.UUID, builderID *uuid.UUID) bool {
	if a.IsAdmin() {
		return true
	}
	if a.Role == RoleSupplier && a.UserID == supplierID {
		return true
	}
	if a.Role == RoleBuilder && builderID != nil && a.UserID == *builderID {
		return true
	}
	return false
}

type contextKey struct{}

// NewContext returns a context carrying the actor
func NewContext(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, contextKey{}, actor)
}

// FromContext returns the actor stored in the context, if any
func FromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(contextKey{}).(Actor)
	return actor, ok
}
