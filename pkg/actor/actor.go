// Package actor provides a universal pattern for identifying the user
// performing actions across the supply backend.
//
// Authentication itself (token issuance and verification) lives in the
// gateway; by the time a request reaches this service the gateway has
// resolved the caller and forwards identity as trusted headers. This
// package carries that identity through request contexts for audit
// movements and location-scoped access checks.
package actor

import (
	"context"
	"fmt"
)

// Location kinds. CAF is the central warehouse; the rest are consuming
// health units.
const (
	LocationCentral  = "CAF"
	LocationBasic    = "UBS"
	LocationUrgent   = "UPA"
	LocationHospital = "HOSPITAL"
)

// Actor represents the user performing an action in the system.
type Actor struct {
	// ID is the unique identifier of the actor (user ID)
	ID string `json:"id"`

	// Name is the actor's display name
	Name string `json:"name"`

	// Email is the actor's email address
	Email string `json:"email"`

	// LocationID is the storage location (health unit) the actor belongs to
	LocationID string `json:"location_id"`

	// LocationKind is the kind of that location (CAF, UBS, UPA, HOSPITAL)
	LocationKind string `json:"location_kind"`
}

// IsCentral reports whether the actor works at the central warehouse.
// Central-only operations (receiving, disposal, approval, dispatch) gate
// on this.
func (a *Actor) IsCentral() bool {
	if a == nil {
		return false
	}
	return a.LocationKind == LocationCentral
}

// String returns a string representation of the actor for logging
func (a *Actor) String() string {
	if a == nil {
		return "system"
	}
	return fmt.Sprintf("%s (%s)", a.Name, a.Email)
}

// contextKey is the type for context keys to avoid collisions
type contextKey string

const actorContextKey contextKey = "actor"

// FromContext retrieves the Actor from the context.
// Returns nil if no actor is present (e.g., system operations).
func FromContext(ctx context.Context) *Actor {
	if ctx == nil {
		return nil
	}
	actor, ok := ctx.Value(actorContextKey).(*Actor)
	if !ok {
		return nil
	}
	return actor
}

// WithActor returns a new context with the Actor attached.
func WithActor(ctx context.Context, a *Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorContextKey, a)
}

// MustFromContext retrieves the Actor from the context.
// Panics if no actor is present. Use only when actor is guaranteed to exist.
func MustFromContext(ctx context.Context) *Actor {
	actor := FromContext(ctx)
	if actor == nil {
		panic("actor not found in context")
	}
	return actor
}
