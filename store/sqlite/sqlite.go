/*
Package sqlite provides the SQLite-backed implementation of the catalog
storage interfaces and the report queries.

PURPOSE:
  Implements catalog.TxStore (transactional entity persistence) and
  report.Querier (ranked read-only queries). In production the same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  stores:              Unique by name
  authors:             Unique by name
  books:               Unique by (name, author_id)
  inventory_positions: One row per (store_id, book_id), carries price,
                       copies and sold_out

  The unique indexes are the last line of defense against concurrent
  ingestions creating duplicate entities; a violation surfaces as
  catalog.ErrDuplicateKey so the reconciler can retry the find.

PRICES:
  Stored as TEXT in decimal string form to keep exactness; ranking
  queries order by CAST(price AS REAL).

CONCURRENCY:
  Uses a sync.Mutex around transactions. SQLite is opened in WAL mode
  for better read concurrency and crash recovery.

MIGRATION:
  Schema is auto-migrated on New(). Dedicated migration tooling is out
  of scope.

USAGE:
  st, err := sqlite.New("./data/bookstock.db")  // or ":memory:"
  defer st.Close()

SEE ALSO:
  - catalog/store.go: Interface definitions
  - catalog/store/memory.go: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/bookstock/catalog"
	"github.com/warp/bookstock/report"
)

// Store implements catalog.TxStore and report.Querier using SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// New creates a SQLite store at the given path. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single connection: SQLite has one writer anyway, and a ":memory:"
	// database exists per connection.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS stores (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		address TEXT NOT NULL DEFAULT '',
		logo TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_stores_name ON stores(name);

	CREATE TABLE IF NOT EXISTS authors (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_authors_name ON authors(name);

	CREATE TABLE IF NOT EXISTS books (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		author_id TEXT NOT NULL REFERENCES authors(id),
		pages INTEGER,
		created_at TEXT NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_books_name_author ON books(name, author_id);
	CREATE INDEX IF NOT EXISTS idx_books_author ON books(author_id);

	CREATE TABLE IF NOT EXISTS inventory_positions (
		store_id TEXT NOT NULL REFERENCES stores(id),
		book_id TEXT NOT NULL REFERENCES books(id),
		price TEXT NOT NULL,
		copies INTEGER NOT NULL DEFAULT 1,
		sold_out BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (store_id, book_id)
	);

	-- Hot path for the ranking reports
	CREATE INDEX IF NOT EXISTS idx_positions_store_live
		ON inventory_positions(store_id, sold_out);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTIONS (catalog.TxStore interface)
// =============================================================================

// WithTx executes fn within a database transaction. fn returning an
// error rolls everything back.
func (s *Store) WithTx(ctx context.Context, fn func(catalog.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", catalog.ErrStoreUnavailable, err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txView{tx: sqlTx}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", catalog.ErrStoreUnavailable, err)
	}
	return nil
}

type txView struct {
	tx *sql.Tx
}

func (t *txView) StoreByName(ctx context.Context, name string) (*catalog.Store, error) {
	var st catalog.Store
	var createdAt string
	err := t.tx.QueryRowContext(ctx,
		"SELECT id, name, address, logo, created_at FROM stores WHERE name = ?", name,
	).Scan(&st.ID, &st.Name, &st.Address, &st.Logo, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(err)
	}
	st.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &st, nil
}

func (t *txView) CreateStore(ctx context.Context, st *catalog.Store) error {
	st.CreatedAt = time.Now().UTC()
	_, err := t.tx.ExecContext(ctx,
		"INSERT INTO stores (id, name, address, logo, created_at) VALUES (?, ?, ?, ?, ?)",
		st.ID, st.Name, st.Address, st.Logo, st.CreatedAt.Format(time.RFC3339),
	)
	return mapError(err)
}

func (t *txView) UpdateStore(ctx context.Context, st *catalog.Store) error {
	_, err := t.tx.ExecContext(ctx,
		"UPDATE stores SET address = ?, logo = ? WHERE id = ?",
		st.Address, st.Logo, st.ID,
	)
	return mapError(err)
}

func (t *txView) AuthorByName(ctx context.Context, name string) (*catalog.Author, error) {
	var a catalog.Author
	var createdAt string
	err := t.tx.QueryRowContext(ctx,
		"SELECT id, name, created_at FROM authors WHERE name = ?", name,
	).Scan(&a.ID, &a.Name, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(err)
	}
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &a, nil
}

func (t *txView) CreateAuthor(ctx context.Context, a *catalog.Author) error {
	a.CreatedAt = time.Now().UTC()
	_, err := t.tx.ExecContext(ctx,
		"INSERT INTO authors (id, name, created_at) VALUES (?, ?, ?)",
		a.ID, a.Name, a.CreatedAt.Format(time.RFC3339),
	)
	return mapError(err)
}

func (t *txView) BookByTitle(ctx context.Context, name, authorID string) (*catalog.Book, error) {
	var b catalog.Book
	var pages sql.NullInt64
	var createdAt string
	err := t.tx.QueryRowContext(ctx,
		"SELECT id, name, author_id, pages, created_at FROM books WHERE name = ? AND author_id = ?",
		name, authorID,
	).Scan(&b.ID, &b.Name, &b.AuthorID, &pages, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(err)
	}
	if pages.Valid {
		p := int(pages.Int64)
		b.Pages = &p
	}
	b.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &b, nil
}

func (t *txView) CreateBook(ctx context.Context, b *catalog.Book) error {
	b.CreatedAt = time.Now().UTC()
	var pages sql.NullInt64
	if b.Pages != nil {
		pages = sql.NullInt64{Int64: int64(*b.Pages), Valid: true}
	}
	_, err := t.tx.ExecContext(ctx,
		"INSERT INTO books (id, name, author_id, pages, created_at) VALUES (?, ?, ?, ?, ?)",
		b.ID, b.Name, b.AuthorID, pages, b.CreatedAt.Format(time.RFC3339),
	)
	return mapError(err)
}

func (t *txView) UpdateBookPages(ctx context.Context, bookID string, pages int) error {
	_, err := t.tx.ExecContext(ctx,
		"UPDATE books SET pages = ? WHERE id = ?", pages, bookID,
	)
	return mapError(err)
}

func (t *txView) Position(ctx context.Context, storeID, bookID string) (*catalog.InventoryPosition, error) {
	var p catalog.InventoryPosition
	var price, createdAt, updatedAt string
	err := t.tx.QueryRowContext(ctx,
		`SELECT store_id, book_id, price, copies, sold_out, created_at, updated_at
		 FROM inventory_positions WHERE store_id = ? AND book_id = ?`,
		storeID, bookID,
	).Scan(&p.StoreID, &p.BookID, &price, &p.Copies, &p.SoldOut, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(err)
	}
	p.Price, err = decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("failed to parse stored price %q: %w", price, err)
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &p, nil
}

func (t *txView) CreatePosition(ctx context.Context, p *catalog.InventoryPosition) error {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO inventory_positions (store_id, book_id, price, copies, sold_out, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.StoreID, p.BookID, p.Price.String(), p.Copies, p.SoldOut,
		now.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	return mapError(err)
}

func (t *txView) UpdatePosition(ctx context.Context, p *catalog.InventoryPosition) error {
	p.UpdatedAt = time.Now().UTC()
	_, err := t.tx.ExecContext(ctx,
		`UPDATE inventory_positions SET price = ?, copies = ?, sold_out = ?, updated_at = ?
		 WHERE store_id = ? AND book_id = ?`,
		p.Price.String(), p.Copies, p.SoldOut, p.UpdatedAt.Format(time.RFC3339),
		p.StoreID, p.BookID,
	)
	return mapError(err)
}

// =============================================================================
// DIRECT READS
// =============================================================================

// ListStores returns all stores ordered by name.
func (s *Store) ListStores(ctx context.Context) ([]catalog.Store, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, address, logo, created_at FROM stores ORDER BY name",
	)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var stores []catalog.Store
	for rows.Next() {
		var st catalog.Store
		var createdAt string
		if err := rows.Scan(&st.ID, &st.Name, &st.Address, &st.Logo, &createdAt); err != nil {
			return nil, err
		}
		st.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		stores = append(stores, st)
	}
	return stores, rows.Err()
}

// StoreByName finds a store outside any transaction (for the CLI and
// report endpoints).
func (s *Store) StoreByName(ctx context.Context, name string) (*catalog.Store, error) {
	var st catalog.Store
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, address, logo, created_at FROM stores WHERE name = ?", name,
	).Scan(&st.ID, &st.Name, &st.Address, &st.Logo, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(err)
	}
	st.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &st, nil
}

// StoreByID finds a store outside any transaction.
func (s *Store) StoreByID(ctx context.Context, id string) (*catalog.Store, error) {
	var st catalog.Store
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, address, logo, created_at FROM stores WHERE id = ?", id,
	).Scan(&st.ID, &st.Name, &st.Address, &st.Logo, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(err)
	}
	st.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &st, nil
}

// =============================================================================
// RANKING QUERIES (report.Querier interface)
// =============================================================================

// TopPriciestBooks returns the store's non-sold-out positions ordered by
// price descending, ties in insertion order.
func (s *Store) TopPriciestBooks(ctx context.Context, storeID string, limit int) ([]report.PricedBook, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT b.name, a.name, b.pages, p.price, p.copies
		FROM inventory_positions p
		JOIN books b ON b.id = p.book_id
		JOIN authors a ON a.id = b.author_id
		WHERE p.store_id = ? AND p.sold_out = 0
		ORDER BY CAST(p.price AS REAL) DESC, p.rowid ASC
		LIMIT ?`,
		storeID, limit,
	)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var books []report.PricedBook
	for rows.Next() {
		var pb report.PricedBook
		var pages sql.NullInt64
		var price string
		if err := rows.Scan(&pb.Book, &pb.Author, &pages, &price, &pb.Copies); err != nil {
			return nil, err
		}
		if pages.Valid {
			p := int(pages.Int64)
			pb.Pages = &p
		}
		if pb.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("failed to parse stored price %q: %w", price, err)
		}
		books = append(books, pb)
	}
	return books, rows.Err()
}

// TopProlificAuthors ranks authors in the store's non-sold-out inventory
// by distinct book count, ties broken by summed copies.
func (s *Store) TopProlificAuthors(ctx context.Context, storeID string, limit int) ([]report.AuthorRank, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.name, COUNT(DISTINCT b.id) AS book_count, SUM(p.copies) AS total_copies
		FROM inventory_positions p
		JOIN books b ON b.id = p.book_id
		JOIN authors a ON a.id = b.author_id
		WHERE p.store_id = ? AND p.sold_out = 0
		GROUP BY a.id, a.name
		ORDER BY book_count DESC, total_copies DESC, MIN(p.rowid) ASC
		LIMIT ?`,
		storeID, limit,
	)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var ranks []report.AuthorRank
	for rows.Next() {
		var ar report.AuthorRank
		if err := rows.Scan(&ar.Author, &ar.Books, &ar.Copies); err != nil {
			return nil, err
		}
		ranks = append(ranks, ar)
	}
	return ranks, rows.Err()
}

// =============================================================================
// ERROR MAPPING
// =============================================================================

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if isUniqueConstraintError(err) {
		return fmt.Errorf("%w: %v", catalog.ErrDuplicateKey, err)
	}
	if isConnError(err) {
		return fmt.Errorf("%w: %v", catalog.ErrStoreUnavailable, err)
	}
	return err
}

func isUniqueConstraintError(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isConnError(err error) bool {
	return errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, driver.ErrBadConn) ||
		strings.Contains(err.Error(), "database is closed")
}
