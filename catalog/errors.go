/*
errors.go - Sentinel errors for the catalog

PURPOSE:
  All catalog error values in one place, checked with errors.Is. Store
  implementations translate backend failures into these so the
  reconciler and importer never inspect driver errors directly.
*/
package catalog

import "errors"

var (
	// ErrDuplicateKey is returned by create operations when a natural-key
	// uniqueness constraint is violated. The reconciler treats it as
	// "entity already exists, retry the find" rather than a hard failure.
	ErrDuplicateKey = errors.New("duplicate natural key")

	// ErrStoreUnavailable indicates the backing store itself is unusable
	// (closed database, lost connection). Unlike a row failure, it aborts
	// the remainder of the batch.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrNegativePrice is the reconciler's guard against a negative price
	// reaching persistence. Validation applies the same rule first, so a
	// row reported valid never trips this.
	ErrNegativePrice = errors.New("price must not be negative")

	// ErrNothingIngested is returned when a batch finishes with zero
	// successful rows and at least one error.
	ErrNothingIngested = errors.New("no rows ingested")
)

// IsFatal reports whether an error should abort the batch instead of
// being recorded as a row-scoped failure.
func IsFatal(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
