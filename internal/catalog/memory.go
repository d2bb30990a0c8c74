package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// MemoryStore serves the catalog from an in-memory snapshot. Used when no
// database is configured, and as the loader for `catalog import`.
type MemoryStore struct {
	products []Product
}

// NewMemoryStore wraps a fixed product slice.
func NewMemoryStore(products []Product) *MemoryStore {
	return &MemoryStore{products: products}
}

// LoadJSON reads a products JSON file (an array of records) into a
// MemoryStore.
func LoadJSON(path string) (*MemoryStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	var products []Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("catalog: parse %s: %w", path, err)
	}
	return NewMemoryStore(products), nil
}

// List returns one page of products in file order.
func (m *MemoryStore) List(_ context.Context, page, limit int) (Page, error) {
	page, limit = clampPage(page, limit)
	total := len(m.products)

	start := (page - 1) * limit
	end := start + limit
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	return Page{
		Products:      append([]Product{}, m.products[start:end]...),
		TotalProducts: total,
		TotalPages:    totalPages(total, limit),
		CurrentPage:   page,
		Limit:         limit,
	}, nil
}

// Get returns the product with the given id.
func (m *MemoryStore) Get(_ context.Context, id string) (Product, error) {
	for _, p := range m.products {
		if p.ID == id {
			return p, nil
		}
	}
	return Product{}, ErrNotFound
}

// Products exposes the snapshot, for `catalog import`.
func (m *MemoryStore) Products() []Product {
	return m.products
}
