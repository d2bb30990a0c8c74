// Package catalog provides read-only paginated access to product records.
// The gate never looks inside a product; records are opaque rows with
// stable identifiers, backed by sqlite or an in-memory JSON snapshot.
package catalog

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a product id does not exist.
var ErrNotFound = errors.New("catalog: product not found")

// DefaultLimit is the page size used when the caller passes none.
const DefaultLimit = 8

// MaxLimit caps the page size a client can request.
const MaxLimit = 100

// Product is one catalog record.
type Product struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Price         float64  `json:"price"`
	Currency      string   `json:"currency"`
	Category      string   `json:"category"`
	Manufacturer  string   `json:"manufacturer"`
	PartNumber    string   `json:"part_number"`
	StockQuantity int      `json:"stock_quantity"`
	ImageURL      string   `json:"image_url"`
	Compatibility []string `json:"compatibility"`
}

// Page is one page of the catalog plus pagination metadata.
type Page struct {
	Products      []Product `json:"products"`
	TotalProducts int       `json:"total_products"`
	TotalPages    int       `json:"total_pages"`
	CurrentPage   int       `json:"current_page"`
	Limit         int       `json:"limit"`
}

// Store is the read-only catalog collaborator consumed after an ALLOW.
type Store interface {
	List(ctx context.Context, page, limit int) (Page, error)
	Get(ctx context.Context, id string) (Product, error)
}

// clampPage normalizes page/limit to sane bounds.
func clampPage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}

// totalPages is ceil(total/limit) with zero rows yielding zero pages.
func totalPages(total, limit int) int {
	return (total + limit - 1) / limit
}
