package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleProducts(n int) []Product {
	products := make([]Product, n)
	for i := range products {
		products[i] = Product{
			ID:            fmt.Sprintf("p-%d", i+1),
			Name:          fmt.Sprintf("Brake Pad Set %d", i+1),
			Price:         19.99,
			Currency:      "EUR",
			Category:      "brakes",
			Manufacturer:  "Acme",
			PartNumber:    fmt.Sprintf("BP-%04d", i+1),
			StockQuantity: 12,
			Compatibility: []string{"Model A", "Model B"},
		}
	}
	return products
}

func TestMemoryPagination(t *testing.T) {
	store := NewMemoryStore(sampleProducts(10))
	ctx := context.Background()

	page, err := store.List(ctx, 1, 4)
	require.NoError(t, err)
	assert.Len(t, page.Products, 4)
	assert.Equal(t, 10, page.TotalProducts)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 1, page.CurrentPage)
	assert.Equal(t, "p-1", page.Products[0].ID)

	last, err := store.List(ctx, 3, 4)
	require.NoError(t, err)
	assert.Len(t, last.Products, 2)
	assert.Equal(t, "p-9", last.Products[0].ID)
}

func TestMemoryPaginationBounds(t *testing.T) {
	store := NewMemoryStore(sampleProducts(3))
	ctx := context.Background()

	// Page past the end is empty, not an error.
	page, err := store.List(ctx, 9, 4)
	require.NoError(t, err)
	assert.Empty(t, page.Products)

	// Nonsense values clamp to defaults.
	page, err = store.List(ctx, 0, -1)
	require.NoError(t, err)
	assert.Equal(t, 1, page.CurrentPage)
	assert.Equal(t, DefaultLimit, page.Limit)
}

func TestMemoryGet(t *testing.T) {
	store := NewMemoryStore(sampleProducts(3))
	ctx := context.Background()

	p, err := store.Get(ctx, "p-2")
	require.NoError(t, err)
	assert.Equal(t, "Brake Pad Set 2", p.Name)

	_, err = store.Get(ctx, "p-404")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.json")
	data := `[{"id":"p-1","name":"Oil Filter","price":7.5,"currency":"EUR","compatibility":["Model A"]}]`
	require.NoError(t, os.WriteFile(path, []byte(data), 0600))

	store, err := LoadJSON(path)
	require.NoError(t, err)

	p, err := store.Get(context.Background(), "p-1")
	require.NoError(t, err)
	assert.Equal(t, "Oil Filter", p.Name)
	assert.Equal(t, []string{"Model A"}, p.Compatibility)
}

func TestSQLiteRoundTrip(t *testing.T) {
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Import(ctx, sampleProducts(10)))

	page, err := store.List(ctx, 2, 4)
	require.NoError(t, err)
	assert.Equal(t, 10, page.TotalProducts)
	assert.Equal(t, 3, page.TotalPages)
	assert.Len(t, page.Products, 4)
	assert.Equal(t, "p-5", page.Products[0].ID)

	p, err := store.Get(ctx, "p-7")
	require.NoError(t, err)
	assert.Equal(t, "BP-0007", p.PartNumber)
	assert.Equal(t, []string{"Model A", "Model B"}, p.Compatibility)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteImportReplaces(t *testing.T) {
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Import(ctx, sampleProducts(5)))
	require.NoError(t, store.Import(ctx, sampleProducts(2)))

	page, err := store.List(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, page.TotalProducts)
}
