/*
report.go - Ranked inventory reports per store

PURPOSE:
  Read-only ranking reports over persisted inventory, consumed by an
  external rendering collaborator. This package only supplies accurately
  ranked, correctly typed rows; layout is someone else's job.

RANKING RULES:
  - Priciest books: non-sold-out positions, price descending, ties in
    insertion order.
  - Prolific authors: authors in the store's non-sold-out inventory,
    distinct book count descending, ties broken by summed copies
    descending.
*/
package report

import (
	"context"

	"github.com/shopspring/decimal"
)

// DefaultLimit is used when the caller does not supply a positive limit.
const DefaultLimit = 5

// PricedBook is one row of the top-priciest-books report.
type PricedBook struct {
	Book   string
	Author string
	Pages  *int
	Price  decimal.Decimal
	Copies int
}

// AuthorRank is one row of the top-prolific-authors report.
type AuthorRank struct {
	Author string
	Books  int // distinct books in the store's live inventory
	Copies int // summed copies across those books
}

// Querier is the read side the reporter needs from the store. Results
// must reflect a consistent snapshot: a half-committed row is never
// observed.
type Querier interface {
	TopPriciestBooks(ctx context.Context, storeID string, limit int) ([]PricedBook, error)
	TopProlificAuthors(ctx context.Context, storeID string, limit int) ([]AuthorRank, error)
}

// Reporter applies the default limit over a Querier.
type Reporter struct {
	Querier Querier
}

func NewReporter(q Querier) *Reporter {
	return &Reporter{Querier: q}
}

// PriciestBooks returns the store's most expensive live positions,
// truncated to limit (DefaultLimit when limit <= 0).
func (r *Reporter) PriciestBooks(ctx context.Context, storeID string, limit int) ([]PricedBook, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return r.Querier.TopPriciestBooks(ctx, storeID, limit)
}

// ProlificAuthors returns the store's most represented authors,
// truncated to limit (DefaultLimit when limit <= 0).
func (r *Reporter) ProlificAuthors(ctx context.Context, storeID string, limit int) ([]AuthorRank, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return r.Querier.TopProlificAuthors(ctx, storeID, limit)
}
