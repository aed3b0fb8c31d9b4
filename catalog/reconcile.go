/*
reconcile.go - Per-row transactional reconciliation

PURPOSE:
  For each validated row, runs the find-or-create/update cascade across
  the four entities inside a single transaction. A failure anywhere in
  the cascade discards every write the row made; one row's failure never
  affects another row.

LOCK ORDERING:
  Entities are always acquired in the fixed order
  Store -> Author -> Book -> InventoryPosition, so concurrent
  reconciliation of different rows cannot deadlock on crossed keys.

RACES:
  A unique-constraint violation during create means another ingestion
  created the entity between our find and our insert. The create is
  retried as a find instead of failing the row.
*/
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/warp/bookstock/ingest"
)

// Reconciler applies validated rows to a transactional store.
type Reconciler struct {
	Store TxStore
}

// NewReconciler creates a reconciler over the given store.
func NewReconciler(store TxStore) *Reconciler {
	return &Reconciler{Store: store}
}

// ReconcileRow applies one row atomically. On error, nothing the row
// did is kept.
func (r *Reconciler) ReconcileRow(ctx context.Context, row ingest.Row) (RowOutcome, error) {
	// Validation already rejects negative prices; guard again so direct
	// callers get the same rule with the same wording.
	if row.Price.IsNegative() {
		return RowOutcome{}, ErrNegativePrice
	}

	var out RowOutcome
	err := r.Store.WithTx(ctx, func(tx Tx) error {
		store, created, err := r.ensureStore(ctx, tx, row)
		if err != nil {
			return err
		}
		out.StoreCreated = created

		author, created, err := r.ensureAuthor(ctx, tx, row.AuthorName)
		if err != nil {
			return err
		}
		out.AuthorCreated = created

		book, created, err := r.ensureBook(ctx, tx, row, author.ID)
		if err != nil {
			return err
		}
		out.BookCreated = created

		return r.upsertPosition(ctx, tx, row, store.ID, book.ID, &out)
	})
	if err != nil {
		return RowOutcome{}, err
	}
	return out, nil
}

func (r *Reconciler) ensureStore(ctx context.Context, tx Tx, row ingest.Row) (*Store, bool, error) {
	store, err := tx.StoreByName(ctx, row.StoreName)
	if err != nil {
		return nil, false, err
	}

	if store == nil {
		store = &Store{
			ID:      uuid.NewString(),
			Name:    row.StoreName,
			Address: row.StoreAddress,
			Logo:    row.Logo,
		}
		err = tx.CreateStore(ctx, store)
		if err == nil {
			return store, true, nil
		}
		if !errors.Is(err, ErrDuplicateKey) {
			return nil, false, err
		}
		// Lost a race with a concurrent ingestion; fall through to the
		// existing row.
		if store, err = tx.StoreByName(ctx, row.StoreName); err != nil {
			return nil, false, err
		}
		if store == nil {
			return nil, false, fmt.Errorf("store %q: duplicate on create but absent on re-find", row.StoreName)
		}
	}

	// A new non-empty value that differs updates the stored one; empty
	// values never clear.
	dirty := false
	if row.StoreAddress != "" && row.StoreAddress != store.Address {
		store.Address = row.StoreAddress
		dirty = true
	}
	if row.Logo != "" && row.Logo != store.Logo {
		store.Logo = row.Logo
		dirty = true
	}
	if dirty {
		if err := tx.UpdateStore(ctx, store); err != nil {
			return nil, false, err
		}
	}
	return store, false, nil
}

func (r *Reconciler) ensureAuthor(ctx context.Context, tx Tx, name string) (*Author, bool, error) {
	author, err := tx.AuthorByName(ctx, name)
	if err != nil {
		return nil, false, err
	}
	if author != nil {
		return author, false, nil
	}

	author = &Author{ID: uuid.NewString(), Name: name}
	err = tx.CreateAuthor(ctx, author)
	if err == nil {
		return author, true, nil
	}
	if !errors.Is(err, ErrDuplicateKey) {
		return nil, false, err
	}
	if author, err = tx.AuthorByName(ctx, name); err != nil {
		return nil, false, err
	}
	if author == nil {
		return nil, false, fmt.Errorf("author %q: duplicate on create but absent on re-find", name)
	}
	return author, false, nil
}

func (r *Reconciler) ensureBook(ctx context.Context, tx Tx, row ingest.Row, authorID string) (*Book, bool, error) {
	book, err := tx.BookByTitle(ctx, row.BookName, authorID)
	if err != nil {
		return nil, false, err
	}

	if book == nil {
		book = &Book{
			ID:       uuid.NewString(),
			Name:     row.BookName,
			AuthorID: authorID,
			Pages:    row.Pages,
		}
		err = tx.CreateBook(ctx, book)
		if err == nil {
			return book, true, nil
		}
		if !errors.Is(err, ErrDuplicateKey) {
			return nil, false, err
		}
		if book, err = tx.BookByTitle(ctx, row.BookName, authorID); err != nil {
			return nil, false, err
		}
		if book == nil {
			return nil, false, fmt.Errorf("book %q: duplicate on create but absent on re-find", row.BookName)
		}
	}

	if row.Pages != nil && (book.Pages == nil || *book.Pages != *row.Pages) {
		if err := tx.UpdateBookPages(ctx, book.ID, *row.Pages); err != nil {
			return nil, false, err
		}
		book.Pages = row.Pages
	}
	return book, false, nil
}

func (r *Reconciler) upsertPosition(ctx context.Context, tx Tx, row ingest.Row, storeID, bookID string, out *RowOutcome) error {
	pos, err := tx.Position(ctx, storeID, bookID)
	if err != nil {
		return err
	}

	if pos == nil {
		err = tx.CreatePosition(ctx, &InventoryPosition{
			StoreID: storeID,
			BookID:  bookID,
			Price:   row.Price,
			Copies:  1,
			SoldOut: false,
		})
		if err == nil {
			out.PositionCreated = true
			return nil
		}
		if !errors.Is(err, ErrDuplicateKey) {
			return err
		}
		if pos, err = tx.Position(ctx, storeID, bookID); err != nil {
			return err
		}
		if pos == nil {
			return fmt.Errorf("inventory position (%s, %s): duplicate on create but absent on re-find", storeID, bookID)
		}
	}

	// Copies are never set, only incremented; re-ingestion always resets
	// sold_out and takes the latest price.
	pos.Copies++
	pos.Price = row.Price
	pos.SoldOut = false
	if err := tx.UpdatePosition(ctx, pos); err != nil {
		return err
	}
	out.PositionUpdated = true
	return nil
}
