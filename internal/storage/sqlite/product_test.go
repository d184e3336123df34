package sqlite

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/pos-order-engine/internal/domain/auth"
	"github.com/xenking/pos-order-engine/internal/domain/product"
)

func TestProductRepository_ListAvailable(t *testing.T) {
	ctx := context.Background()
	repo := NewProductRepository(openTestDB(t))

	products := []product.Product{
		{ID: "1", Name: "Hamburguesa Clásica", Category: "Comida", Price: decimal.RequireFromString("85.00"), Available: true},
		{ID: "7", Name: "Coca-Cola", Category: "Bebida", Price: decimal.RequireFromString("25.00"), Available: true},
		{ID: "15", Name: "Mole", Category: "Comida", Price: decimal.RequireFromString("110.00"), Available: false},
	}
	for _, p := range products {
		require.NoError(t, repo.UpsertProduct(ctx, p))
	}

	got, err := repo.ListAvailable(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "7", got[0].ID, "ordered by category then name")
	assert.Equal(t, "1", got[1].ID)
	assert.True(t, got[1].Available)
	assert.True(t, decimal.RequireFromString("85").Equal(got[1].Price))

	// Price change through upsert.
	products[0].Price = decimal.RequireFromString("90.00")
	require.NoError(t, repo.UpsertProduct(ctx, products[0]))
	got, err = repo.ListAvailable(ctx)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("90").Equal(got[1].Price))
}

func TestProductRepository_ModifierGroups(t *testing.T) {
	ctx := context.Background()
	repo := NewProductRepository(openTestDB(t))

	size := product.ModifierGroup{
		ID: "size", Name: "Tamaño", Kind: product.SingleChoice,
		Options: []product.Option{
			{ID: "small", Label: "Chico"},
			{ID: "large", Label: "Grande"},
		},
	}
	extras := product.ModifierGroup{
		ID: "extras", Name: "Extras", Kind: product.MultiChoice,
		Options: []product.Option{
			{ID: "cheese", Label: "Queso Extra", PriceDelta: decimal.RequireFromString("15.00")},
		},
	}
	empty := product.ModifierGroup{ID: "notes", Name: "Notas", Kind: product.MultiChoice}

	require.NoError(t, repo.UpsertModifierGroup(ctx, 0, size))
	require.NoError(t, repo.UpsertModifierGroup(ctx, 1, extras))
	require.NoError(t, repo.UpsertModifierGroup(ctx, 2, empty))

	got, err := repo.ListModifierGroups(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "size", got[0].ID)
	assert.Equal(t, product.SingleChoice, got[0].Kind)
	assert.Equal(t, []string{"small", "large"}, optionIDs(got[0]))
	assert.Equal(t, "extras", got[1].ID)
	assert.True(t, decimal.RequireFromString("15").Equal(got[1].Options[0].PriceDelta))
	assert.Empty(t, got[2].Options)

	// Options are replaced, not merged.
	size.Options = []product.Option{{ID: "medium", Label: "Mediano"}}
	require.NoError(t, repo.UpsertModifierGroup(ctx, 0, size))
	got, err = repo.ListModifierGroups(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"medium"}, optionIDs(got[0]))

	err = repo.UpsertModifierGroup(ctx, 3, product.ModifierGroup{ID: "bad", Kind: "radio"})
	require.Error(t, err)
}

func optionIDs(g product.ModifierGroup) []string {
	ids := make([]string, len(g.Options))
	for i, o := range g.Options {
		ids[i] = o.ID
	}
	return ids
}

func TestAPIKeyRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewAPIKeyRepository(openTestDB(t))

	hash := auth.HashKey([]byte("pepper"), "register-1")
	require.NoError(t, repo.UpsertAPIKey(ctx, auth.APIKeyInfo{
		ID:      "register-1",
		KeyHash: hash,
		Name:    "Caja 1",
		Scopes:  []string{auth.ScopeCreateOrder, auth.ScopeReadReports},
	}))

	got, err := repo.FindByHash(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, "register-1", got.ID)
	assert.Equal(t, "Caja 1", got.Name)
	assert.True(t, got.HasScope(auth.ScopeReadReports))

	_, err = repo.FindByHash(ctx, auth.HashKey([]byte("pepper"), "unknown"))
	require.ErrorIs(t, err, auth.ErrKeyNotFound)
}
