// Package repositories defines interfaces for domain persistence.
package repositories

import (
	"context"
	"errors"
)

// ErrOwnerExists is returned when units are inserted for an owner that
// already has units.
var ErrOwnerExists = errors.New("owner already has units")

// UnitRepository indexes live units by the target that owns them. Static
// units are owned by the nil target.
type UnitRepository[U any] interface {
	// Insert stores the units of owner as one batch.
	Insert(ctx context.Context, owner any, units []U) error

	// Remove deletes and returns the units of owner.
	Remove(ctx context.Context, owner any) ([]U, bool)

	// Contains reports whether owner has units.
	Contains(ctx context.Context, owner any) bool

	// FindByOwner returns the units of owner in creation order.
	FindByOwner(ctx context.Context, owner any) []U

	// All returns every unit, owners in insertion order.
	All(ctx context.Context) []U
}
