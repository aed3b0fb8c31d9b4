/*
types.go - Persisted entities and ingestion results

PURPOSE:
  The four persisted entity kinds (Store, Author, Book,
  InventoryPosition) and the aggregate result types returned by the
  batch importer. Uniqueness is on natural keys: store name, author
  name, and the (book name, author) pair.

SEE ALSO:
  - store.go: Storage interfaces these types travel through
  - reconcile.go: Per-row find-or-create/update cascade
*/
package catalog

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/bookstock/ingest"
)

// Store is a book store. Name is the natural key. Address and Logo are
// optional and may be backfilled by later rows; Logo is an opaque string
// (URL or embedded image data).
type Store struct {
	ID        string
	Name      string
	Address   string
	Logo      string
	CreatedAt time.Time
}

// Author is created on first reference and never updated.
type Author struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// Book belongs to exactly one author; the same title under a different
// author is a distinct book. Pages is optional and may be backfilled.
type Book struct {
	ID        string
	Name      string
	AuthorID  string
	Pages     *int
	CreatedAt time.Time
}

// InventoryPosition is the per-(store, book) record carrying business
// data: price, copy count and sold-out status. Copies is only ever
// incremented; re-ingestion overwrites Price and clears SoldOut.
type InventoryPosition struct {
	StoreID   string
	BookID    string
	Price     decimal.Decimal
	Copies    int
	SoldOut   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RowOutcome reports what one successfully reconciled row did.
type RowOutcome struct {
	StoreCreated    bool
	AuthorCreated   bool
	BookCreated     bool
	PositionCreated bool
	PositionUpdated bool
}

// Created tallies newly created entities across a batch.
type Created struct {
	Stores    int
	Authors   int
	Books     int
	Positions int
}

// Summary is the aggregate result of one ingestion call.
// RowsProcessed counts every non-empty data record in the parsed batch,
// whether or not reconciliation reached it; Errors lists validation and
// reconciliation failures ordered by row ordinal.
type Summary struct {
	RowsProcessed    int
	Created          Created
	UpdatedPositions int
	Errors           []ingest.RowError

	succeeded int
}

// Succeeded returns the number of rows that reconciled cleanly. Rows the
// batch never reached (store-unavailability abort) count as neither
// succeeded nor failed.
func (s *Summary) Succeeded() int {
	return s.succeeded
}

func (s *Summary) apply(out RowOutcome) {
	s.succeeded++
	if out.StoreCreated {
		s.Created.Stores++
	}
	if out.AuthorCreated {
		s.Created.Authors++
	}
	if out.BookCreated {
		s.Created.Books++
	}
	if out.PositionCreated {
		s.Created.Positions++
	}
	if out.PositionUpdated {
		s.UpdatedPositions++
	}
}
