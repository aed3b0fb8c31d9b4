/*
store.go - Storage interface definitions

PURPOSE:
  Interfaces the reconciler needs from a transactional relational store.
  Implementations: store/sqlite (production) and catalog/store (memory,
  for tests).

CONVENTIONS:
  - Find methods return (nil, nil) when the entity is absent.
  - Create methods return ErrDuplicateKey on a natural-key collision.
  - All writes happen inside WithTx; fn returning an error rolls the
    transaction back, discarding every write it made.
*/
package catalog

import "context"

// Tx is the view of the store available inside one transaction.
type Tx interface {
	StoreByName(ctx context.Context, name string) (*Store, error)
	CreateStore(ctx context.Context, s *Store) error
	UpdateStore(ctx context.Context, s *Store) error

	AuthorByName(ctx context.Context, name string) (*Author, error)
	CreateAuthor(ctx context.Context, a *Author) error

	BookByTitle(ctx context.Context, name, authorID string) (*Book, error)
	CreateBook(ctx context.Context, b *Book) error
	UpdateBookPages(ctx context.Context, bookID string, pages int) error

	Position(ctx context.Context, storeID, bookID string) (*InventoryPosition, error)
	CreatePosition(ctx context.Context, p *InventoryPosition) error
	UpdatePosition(ctx context.Context, p *InventoryPosition) error
}

// TxStore runs a function within a transaction. If fn returns an error
// the transaction is rolled back and the error is returned unchanged.
type TxStore interface {
	WithTx(ctx context.Context, fn func(Tx) error) error
}
