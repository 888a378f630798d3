package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmaier/catalog-crawler/internal/catalog"
)

// Config controls the Postgres connection pool behind the store.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// querier is the subset of pgxpool.Pool the store uses; pgxmock satisfies
// it in tests.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store is the Postgres-backed catalog persistence layer. Every write
// commits independently, so a crawl failure never rolls back rows already
// stored.
type Store struct {
	pool querier
}

// NewStore connects a pool using the provided config.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

// NewStoreWithPool constructs a store from an existing pool (primarily for
// testing with pgxmock).
func NewStoreWithPool(pool querier) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

const createCategoriesSQL = `
CREATE TABLE IF NOT EXISTS categories (
	id BIGSERIAL PRIMARY KEY,
	category_name TEXT NOT NULL,
	url TEXT UNIQUE NOT NULL,
	parent_id BIGINT REFERENCES categories(id)
)`

// products.category_id deliberately carries no foreign key: the caller owns
// referential integrity, and ingestion replaces rows wholesale.
const createProductsSQL = `
CREATE TABLE IF NOT EXISTS products (
	id BIGSERIAL PRIMARY KEY,
	title TEXT NOT NULL,
	rating TEXT,
	price TEXT,
	category_id BIGINT NOT NULL
)`

// EnsureSchema creates the catalog tables when absent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range []string{createCategoriesSQL, createProductsSQL} {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// InsertCategory stores a newly discovered category and returns its id. A
// nil id with a nil error means the URL was already present and nothing was
// inserted.
func (s *Store) InsertCategory(ctx context.Context, name, url string, parentID *int64) (*int64, error) {
	const query = `
INSERT INTO categories (category_name, url, parent_id)
VALUES ($1, $2, $3)
ON CONFLICT (url) DO NOTHING
RETURNING id`

	var id int64
	err := s.pool.QueryRow(ctx, query, name, url, parentID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("insert category: %w", err)
	}
	return &id, nil
}

// InsertProduct stores one parsed product row for a category.
func (s *Store) InsertProduct(ctx context.Context, title string, rating, price *string, categoryID int64) error {
	const query = `
INSERT INTO products (title, rating, price, category_id)
VALUES ($1, $2, $3, $4)`

	if _, err := s.pool.Exec(ctx, query, title, rating, price, categoryID); err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// GetCategory fetches one category by id, or ErrNotFound.
func (s *Store) GetCategory(ctx context.Context, id int64) (catalog.Category, error) {
	const query = `
SELECT id, category_name, url, parent_id
FROM categories
WHERE id = $1`

	var cat catalog.Category
	err := s.pool.QueryRow(ctx, query, id).Scan(&cat.ID, &cat.Name, &cat.URL, &cat.ParentID)
	if errors.Is(err, pgx.ErrNoRows) {
		return catalog.Category{}, ErrNotFound
	}
	if err != nil {
		return catalog.Category{}, fmt.Errorf("get category: %w", err)
	}
	return cat, nil
}

// CountProducts returns the number of product rows stored for a category.
func (s *Store) CountProducts(ctx context.Context, categoryID int64) (int, error) {
	const query = `SELECT COUNT(*) FROM products WHERE category_id = $1`

	var count int
	if err := s.pool.QueryRow(ctx, query, categoryID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return count, nil
}

// DeleteProducts removes every product row for a category and reports how
// many rows went away.
func (s *Store) DeleteProducts(ctx context.Context, categoryID int64) (int64, error) {
	const query = `DELETE FROM products WHERE category_id = $1`

	tag, err := s.pool.Exec(ctx, query, categoryID)
	if err != nil {
		return 0, fmt.Errorf("delete products: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ListCategories returns every category joined with its parent's name.
func (s *Store) ListCategories(ctx context.Context) ([]catalog.CategorySummary, error) {
	const query = `
SELECT c.id, c.category_name, c.url, c.parent_id, p.category_name
FROM categories c
LEFT JOIN categories p ON c.parent_id = p.id
ORDER BY c.id`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []catalog.CategorySummary
	for rows.Next() {
		var summary catalog.CategorySummary
		if err := rows.Scan(&summary.ID, &summary.Name, &summary.URL, &summary.ParentID, &summary.ParentName); err != nil {
			return nil, fmt.Errorf("scan category row: %w", err)
		}
		out = append(out, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return out, nil
}

// ListChildren returns the direct children of a category; a nil parentID
// selects the depth-1 roots.
func (s *Store) ListChildren(ctx context.Context, parentID *int64) ([]catalog.Category, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if parentID == nil {
		rows, err = s.pool.Query(ctx, `
SELECT id, category_name, url, parent_id
FROM categories
WHERE parent_id IS NULL
ORDER BY id`)
	} else {
		rows, err = s.pool.Query(ctx, `
SELECT id, category_name, url, parent_id
FROM categories
WHERE parent_id = $1
ORDER BY id`, *parentID)
	}
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	defer rows.Close()

	var out []catalog.Category
	for rows.Next() {
		var cat catalog.Category
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.URL, &cat.ParentID); err != nil {
			return nil, fmt.Errorf("scan child row: %w", err)
		}
		out = append(out, cat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	return out, nil
}

// ListProducts returns every product stored for a category.
func (s *Store) ListProducts(ctx context.Context, categoryID int64) ([]catalog.Product, error) {
	const query = `
SELECT id, title, rating, price, category_id
FROM products
WHERE category_id = $1
ORDER BY id`

	rows, err := s.pool.Query(ctx, query, categoryID)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var out []catalog.Product
	for rows.Next() {
		var p catalog.Product
		if err := rows.Scan(&p.ID, &p.Title, &p.Rating, &p.Price, &p.CategoryID); err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return out, nil
}
