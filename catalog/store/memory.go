// Package store provides TxStore implementations.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/warp/bookstock/catalog"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory is an in-memory catalog.TxStore. Transactions are simulated
// with a snapshot taken at WithTx entry and restored on error, giving
// the same all-or-nothing semantics per row as the SQLite store.
// Slices keep insertion order, matching SQLite rowid ordering.
type Memory struct {
	mu        sync.Mutex
	stores    []catalog.Store
	authors   []catalog.Author
	books     []catalog.Book
	positions []catalog.InventoryPosition
}

func NewMemory() *Memory {
	return &Memory{}
}

// WithTx executes fn under the store lock. If fn fails, state is rolled
// back to the snapshot.
func (m *Memory) WithTx(ctx context.Context, fn func(catalog.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	if err := fn(&memView{m: m}); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

type memSnapshot struct {
	stores    []catalog.Store
	authors   []catalog.Author
	books     []catalog.Book
	positions []catalog.InventoryPosition
}

func (m *Memory) snapshot() memSnapshot {
	return memSnapshot{
		stores:    append([]catalog.Store(nil), m.stores...),
		authors:   append([]catalog.Author(nil), m.authors...),
		books:     cloneBooks(m.books),
		positions: append([]catalog.InventoryPosition(nil), m.positions...),
	}
}

func (m *Memory) restore(s memSnapshot) {
	m.stores = s.stores
	m.authors = s.authors
	m.books = s.books
	m.positions = s.positions
}

func cloneBooks(books []catalog.Book) []catalog.Book {
	out := append([]catalog.Book(nil), books...)
	for i := range out {
		if out[i].Pages != nil {
			pages := *out[i].Pages
			out[i].Pages = &pages
		}
	}
	return out
}

// =============================================================================
// READ HELPERS (for tests)
// =============================================================================

func (m *Memory) Stores() []catalog.Store {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]catalog.Store(nil), m.stores...)
}

func (m *Memory) Authors() []catalog.Author {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]catalog.Author(nil), m.authors...)
}

func (m *Memory) Books() []catalog.Book {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneBooks(m.books)
}

func (m *Memory) Positions() []catalog.InventoryPosition {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]catalog.InventoryPosition(nil), m.positions...)
}

// =============================================================================
// TRANSACTION VIEW (catalog.Tx)
// =============================================================================

type memView struct {
	m *Memory
}

func (v *memView) StoreByName(_ context.Context, name string) (*catalog.Store, error) {
	for i := range v.m.stores {
		if v.m.stores[i].Name == name {
			s := v.m.stores[i]
			return &s, nil
		}
	}
	return nil, nil
}

func (v *memView) CreateStore(_ context.Context, s *catalog.Store) error {
	for i := range v.m.stores {
		if v.m.stores[i].Name == s.Name {
			return catalog.ErrDuplicateKey
		}
	}
	s.CreatedAt = time.Now().UTC()
	v.m.stores = append(v.m.stores, *s)
	return nil
}

func (v *memView) UpdateStore(_ context.Context, s *catalog.Store) error {
	for i := range v.m.stores {
		if v.m.stores[i].ID == s.ID {
			v.m.stores[i].Address = s.Address
			v.m.stores[i].Logo = s.Logo
			return nil
		}
	}
	return nil
}

func (v *memView) AuthorByName(_ context.Context, name string) (*catalog.Author, error) {
	for i := range v.m.authors {
		if v.m.authors[i].Name == name {
			a := v.m.authors[i]
			return &a, nil
		}
	}
	return nil, nil
}

func (v *memView) CreateAuthor(_ context.Context, a *catalog.Author) error {
	for i := range v.m.authors {
		if v.m.authors[i].Name == a.Name {
			return catalog.ErrDuplicateKey
		}
	}
	a.CreatedAt = time.Now().UTC()
	v.m.authors = append(v.m.authors, *a)
	return nil
}

func (v *memView) BookByTitle(_ context.Context, name, authorID string) (*catalog.Book, error) {
	for i := range v.m.books {
		if v.m.books[i].Name == name && v.m.books[i].AuthorID == authorID {
			b := v.m.books[i]
			if b.Pages != nil {
				pages := *b.Pages
				b.Pages = &pages
			}
			return &b, nil
		}
	}
	return nil, nil
}

func (v *memView) CreateBook(_ context.Context, b *catalog.Book) error {
	for i := range v.m.books {
		if v.m.books[i].Name == b.Name && v.m.books[i].AuthorID == b.AuthorID {
			return catalog.ErrDuplicateKey
		}
	}
	b.CreatedAt = time.Now().UTC()
	v.m.books = append(v.m.books, *b)
	return nil
}

func (v *memView) UpdateBookPages(_ context.Context, bookID string, pages int) error {
	for i := range v.m.books {
		if v.m.books[i].ID == bookID {
			p := pages
			v.m.books[i].Pages = &p
			return nil
		}
	}
	return nil
}

func (v *memView) Position(_ context.Context, storeID, bookID string) (*catalog.InventoryPosition, error) {
	for i := range v.m.positions {
		if v.m.positions[i].StoreID == storeID && v.m.positions[i].BookID == bookID {
			p := v.m.positions[i]
			return &p, nil
		}
	}
	return nil, nil
}

func (v *memView) CreatePosition(_ context.Context, p *catalog.InventoryPosition) error {
	for i := range v.m.positions {
		if v.m.positions[i].StoreID == p.StoreID && v.m.positions[i].BookID == p.BookID {
			return catalog.ErrDuplicateKey
		}
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	v.m.positions = append(v.m.positions, *p)
	return nil
}

func (v *memView) UpdatePosition(_ context.Context, p *catalog.InventoryPosition) error {
	for i := range v.m.positions {
		if v.m.positions[i].StoreID == p.StoreID && v.m.positions[i].BookID == p.BookID {
			p.UpdatedAt = time.Now().UTC()
			v.m.positions[i] = *p
			return nil
		}
	}
	return nil
}
