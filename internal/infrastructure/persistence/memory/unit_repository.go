// Package memory provides in-memory implementations of domain repositories.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/reglet-dev/glimpse/internal/domain/repositories"
)

// UnitRepository is an in-memory implementation of
// repositories.UnitRepository. Owners are compared by identity, so they
// must be pointers or nil.
type UnitRepository[U any] struct {
	units  map[any][]U
	owners []any
	mu     sync.RWMutex
}

// NewUnitRepository creates a new in-memory repository.
func NewUnitRepository[U any]() *UnitRepository[U] {
	return &UnitRepository[U]{
		units: make(map[any][]U),
	}
}

// Insert stores the units of owner. The batch is stored whole or not at all.
func (r *UnitRepository[U]) Insert(_ context.Context, owner any, units []U) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.units[owner]; ok {
		return fmt.Errorf("%w: %T", repositories.ErrOwnerExists, owner)
	}
	// Callers keep ownership of their slice.
	r.units[owner] = slices.Clone(units)
	r.owners = append(r.owners, owner)
	return nil
}

// Remove deletes and returns the units of owner.
func (r *UnitRepository[U]) Remove(_ context.Context, owner any) ([]U, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	units, ok := r.units[owner]
	if !ok {
		return nil, false
	}
	delete(r.units, owner)
	if i := slices.Index(r.owners, owner); i >= 0 {
		r.owners = slices.Delete(r.owners, i, i+1)
	}
	return units, true
}

// Contains reports whether owner has units.
func (r *UnitRepository[U]) Contains(_ context.Context, owner any) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.units[owner]
	return ok
}

// FindByOwner returns the units of owner in creation order.
func (r *UnitRepository[U]) FindByOwner(_ context.Context, owner any) []U {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.units[owner])
}

// All returns every unit, grouped by owner in insertion order.
func (r *UnitRepository[U]) All(_ context.Context) []U {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []U
	for _, owner := range r.owners {
		out = append(out, r.units[owner]...)
	}
	return out
}

// Len returns the number of owners.
func (r *UnitRepository[U]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.owners)
}

var _ repositories.UnitRepository[int] = (*UnitRepository[int])(nil)
