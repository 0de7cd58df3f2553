package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/glimpse/internal/domain/repositories"
)

type owner struct{ name string }

func Test_UnitRepository_InsertAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewUnitRepository[string]()
	a, b := &owner{"a"}, &owner{"b"}

	require.NoError(t, repo.Insert(ctx, nil, []string{"static"}))
	require.NoError(t, repo.Insert(ctx, a, []string{"a1", "a2"}))
	require.NoError(t, repo.Insert(ctx, b, []string{"b1"}))

	assert.True(t, repo.Contains(ctx, a))
	assert.True(t, repo.Contains(ctx, nil))
	assert.False(t, repo.Contains(ctx, &owner{"a"}), "owners compare by identity")
	assert.Equal(t, []string{"a1", "a2"}, repo.FindByOwner(ctx, a))
	assert.Equal(t, []string{"static", "a1", "a2", "b1"}, repo.All(ctx))
	assert.Equal(t, 3, repo.Len())
}

func Test_UnitRepository_DuplicateOwner(t *testing.T) {
	ctx := context.Background()
	repo := NewUnitRepository[int]()
	a := &owner{"a"}

	require.NoError(t, repo.Insert(ctx, a, []int{1}))
	err := repo.Insert(ctx, a, []int{2, 3})
	assert.ErrorIs(t, err, repositories.ErrOwnerExists)
	assert.Equal(t, []int{1}, repo.FindByOwner(ctx, a))
}

func Test_UnitRepository_Remove(t *testing.T) {
	ctx := context.Background()
	repo := NewUnitRepository[int]()
	a, b := &owner{"a"}, &owner{"b"}
	require.NoError(t, repo.Insert(ctx, a, []int{1, 2}))
	require.NoError(t, repo.Insert(ctx, b, []int{3}))

	units, ok := repo.Remove(ctx, a)
	require.True(t, ok)
	assert.Equal(t, []int{1, 2}, units)
	assert.Equal(t, []int{3}, repo.All(ctx))

	_, ok = repo.Remove(ctx, a)
	assert.False(t, ok)

	// Removed owners can register again.
	require.NoError(t, repo.Insert(ctx, a, []int{4}))
	assert.Equal(t, []int{3, 4}, repo.All(ctx))
}

func Test_UnitRepository_InsertCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewUnitRepository[int]()
	a := &owner{"a"}
	batch := []int{1, 2}
	require.NoError(t, repo.Insert(ctx, a, batch))
	batch[0] = 9
	assert.Equal(t, []int{1, 2}, repo.FindByOwner(ctx, a))
}
