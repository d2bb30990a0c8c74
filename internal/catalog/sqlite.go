package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS products (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL,
	description    TEXT NOT NULL DEFAULT '',
	price          REAL NOT NULL DEFAULT 0,
	currency       TEXT NOT NULL DEFAULT '',
	category       TEXT NOT NULL DEFAULT '',
	manufacturer   TEXT NOT NULL DEFAULT '',
	part_number    TEXT NOT NULL DEFAULT '',
	stock_quantity INTEGER NOT NULL DEFAULT 0,
	image_url      TEXT NOT NULL DEFAULT '',
	compatibility  TEXT NOT NULL DEFAULT '[]',
	position       INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_products_position ON products(position);
`

// SQLiteStore serves the catalog from a sqlite database. Read-only at
// serve time; rows are written only by `catalog import`.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the catalog database and ensures the
// schema exists.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("catalog: ensure schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// List returns one page of products in import order.
func (s *SQLiteStore) List(ctx context.Context, page, limit int) (Page, error) {
	page, limit = clampPage(page, limit)

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&total); err != nil {
		return Page{}, fmt.Errorf("catalog: count: %w", err)
	}

	offset := (page - 1) * limit
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, price, currency, category,
		       manufacturer, part_number, stock_quantity, image_url, compatibility
		FROM products ORDER BY position LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return Page{}, fmt.Errorf("catalog: list: %w", err)
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return Page{}, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return Page{}, fmt.Errorf("catalog: list: %w", err)
	}

	return Page{
		Products:      products,
		TotalProducts: total,
		TotalPages:    totalPages(total, limit),
		CurrentPage:   page,
		Limit:         limit,
	}, nil
}

// Get returns the product with the given id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (Product, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, price, currency, category,
		       manufacturer, part_number, stock_quantity, image_url, compatibility
		FROM products WHERE id = ?`, id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	return p, err
}

// Import replaces the catalog contents with the given products, preserving
// their order as the listing order.
func (s *SQLiteStore) Import(ctx context.Context, products []Product) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("catalog: begin import: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM products`); err != nil {
		return fmt.Errorf("catalog: clear: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO products (id, name, description, price, currency, category,
			manufacturer, part_number, stock_quantity, image_url, compatibility, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("catalog: prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, p := range products {
		compat, err := json.Marshal(p.Compatibility)
		if err != nil {
			return fmt.Errorf("catalog: encode compatibility for %s: %w", p.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, p.ID, p.Name, p.Description, p.Price,
			p.Currency, p.Category, p.Manufacturer, p.PartNumber,
			p.StockQuantity, p.ImageURL, string(compat), i); err != nil {
			return fmt.Errorf("catalog: insert %s: %w", p.ID, err)
		}
	}

	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (Product, error) {
	var p Product
	var compat string
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Currency,
		&p.Category, &p.Manufacturer, &p.PartNumber, &p.StockQuantity,
		&p.ImageURL, &compat)
	if err != nil {
		return Product{}, err
	}
	if err := json.Unmarshal([]byte(compat), &p.Compatibility); err != nil {
		return Product{}, fmt.Errorf("catalog: decode compatibility for %s: %w", p.ID, err)
	}
	return p, nil
}
