package shelflife

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/pantry-receipts/constants"
)

func pid(v int64) *int64 { return &v }
func cid(v int) *int     { return &v }

const (
	pantry int64 = 1
	fridge int64 = 2
)

func rules() *MemoryRules {
	return NewMemoryRules(
		Rule{CategoryID: cid(constants.CategoryMilk), StorageID: fridge, OpenState: constants.OpenStateSealed, Days: 5},
		Rule{ProductID: pid(42), StorageID: fridge, OpenState: constants.OpenStateSealed, Days: 10},
		Rule{ProductID: pid(42), StorageID: fridge, OpenState: constants.OpenStateOpened, Days: 3},
	)
}

func TestResolve_ProductRuleWins(t *testing.T) {
	r := NewResolver(rules(), nil)
	days, src, err := r.Resolve(context.Background(), Query{
		ProductID:  pid(42),
		CategoryID: cid(constants.CategoryMilk),
		StorageID:  fridge,
		OpenState:  constants.OpenStateSealed,
	})
	require.NoError(t, err)
	assert.Equal(t, 10, days)
	assert.Equal(t, SourceProduct, src)
}

func TestResolve_OpenStateSelectsRule(t *testing.T) {
	r := NewResolver(rules(), nil)
	days, src, err := r.Resolve(context.Background(), Query{ProductID: pid(42), StorageID: fridge, OpenState: constants.OpenStateOpened})
	require.NoError(t, err)
	assert.Equal(t, 3, days)
	assert.Equal(t, SourceProduct, src)
}

func TestResolve_CategoryFallback(t *testing.T) {
	r := NewResolver(rules(), nil)
	ctx := context.Background()

	// unlinked item: category only
	days, src, err := r.Resolve(ctx, Query{CategoryID: cid(constants.CategoryMilk), StorageID: fridge})
	require.NoError(t, err)
	assert.Equal(t, 5, days)
	assert.Equal(t, SourceCategory, src)

	// product without its own rule for this storage
	days, src, err = r.Resolve(ctx, Query{ProductID: pid(7), CategoryID: cid(constants.CategoryMilk), StorageID: fridge})
	require.NoError(t, err)
	assert.Equal(t, 5, days)
	assert.Equal(t, SourceCategory, src)
}

func TestResolve_Unresolved(t *testing.T) {
	r := NewResolver(rules(), nil)
	days, src, err := r.Resolve(context.Background(), Query{ProductID: pid(42), CategoryID: cid(constants.CategoryMilk), StorageID: pantry})
	require.NoError(t, err)
	assert.Zero(t, days)
	assert.Equal(t, SourceNone, src)
}

type brokenStore struct{}

func (brokenStore) ProductRule(context.Context, int64, int64, constants.OpenState) (int, bool, error) {
	return 0, false, errors.New("db down")
}

func (brokenStore) CategoryRule(context.Context, int, int64, constants.OpenState) (int, bool, error) {
	return 0, false, errors.New("db down")
}

func TestResolveOrDefault(t *testing.T) {
	ctx := context.Background()

	r := NewResolver(rules(), nil)
	days, src := r.ResolveOrDefault(ctx, Query{ProductID: pid(42), StorageID: fridge})
	assert.Equal(t, 10, days)
	assert.Equal(t, SourceProduct, src)

	days, src = r.ResolveOrDefault(ctx, Query{CategoryID: cid(constants.CategoryFlour), StorageID: pantry})
	assert.Equal(t, 365, days)
	assert.Equal(t, SourcePolicy, src)

	days, _ = r.ResolveOrDefault(ctx, Query{StorageID: pantry})
	assert.Equal(t, constants.DefaultShelfLifeDays, days)

	broken := NewResolver(brokenStore{}, nil)
	days, src = broken.ResolveOrDefault(ctx, Query{ProductID: pid(42), CategoryID: cid(constants.CategoryMilk), StorageID: fridge})
	assert.Equal(t, 3, days)
	assert.Equal(t, SourcePolicy, src)
}
