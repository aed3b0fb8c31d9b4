/*
validator.go - Pure per-row validation

PURPOSE:
  Confirms required fields are present and numeric fields parse before a
  record is allowed anywhere near the database. Pure function: no I/O,
  no shared state, deterministic for a given record.

VALIDATION RULES:
  - store_name, book_name, author_name, price: required, non-empty
    after trimming
  - price: must parse as a decimal and must not be negative
  - pages: optional; when present must be an integer >= 1

  Negative price is rejected here rather than at reconciliation time so
  that a row reported valid can never fail later for a reason the
  validator could have seen. The reconciler applies the same rule as a
  second line of defense.

SEE ALSO:
  - parser.go: Header normalization and record splitting
*/
package ingest

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Recognized column names, after header normalization.
const (
	colStoreName    = "store_name"
	colStoreAddress = "store_address"
	colBookName     = "book_name"
	colAuthorName   = "author_name"
	colPages        = "pages"
	colPageCount    = "page_count" // accepted alias for pages
	colPrice        = "price"
	colLogo         = "logo"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// NormalizeHeader canonicalizes a header cell: trim, lowercase, and
// collapse internal whitespace runs into a single underscore, so that
// "Store Name", " store  name " and "store_name" all match.
func NormalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return whitespaceRun.ReplaceAllString(h, "_")
}

// HeaderIndex maps normalized column names to their position in a record.
type HeaderIndex map[string]int

// MakeHeaderIndex builds a HeaderIndex from the raw header row. Built
// once per file and reused for every record.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		idx[NormalizeHeader(h)] = i
	}
	return idx
}

// field returns the trimmed cell for a column, or "" when the column is
// absent or the record is too short.
func (hi HeaderIndex) field(record []string, col string) string {
	pos, ok := hi[col]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}

// ValidateRow checks one record and produces its normalized Row. The
// returned error carries the reason the record was rejected and is nil
// exactly when the Row is usable.
func ValidateRow(record []string, idx HeaderIndex, ordinal int) (Row, error) {
	row := Row{
		Ordinal:      ordinal,
		Raw:          strings.Join(record, ","),
		StoreName:    idx.field(record, colStoreName),
		StoreAddress: idx.field(record, colStoreAddress),
		BookName:     idx.field(record, colBookName),
		AuthorName:   idx.field(record, colAuthorName),
		Logo:         idx.field(record, colLogo),
	}

	for _, req := range []struct {
		col string
		val string
	}{
		{colStoreName, row.StoreName},
		{colBookName, row.BookName},
		{colAuthorName, row.AuthorName},
	} {
		if req.val == "" {
			return Row{}, fmt.Errorf("missing required field %q", req.col)
		}
	}

	rawPrice := idx.field(record, colPrice)
	if rawPrice == "" {
		return Row{}, fmt.Errorf("missing required field %q", colPrice)
	}
	price, err := decimal.NewFromString(rawPrice)
	if err != nil {
		return Row{}, fmt.Errorf("price %q is not a number", rawPrice)
	}
	if price.IsNegative() {
		return Row{}, fmt.Errorf("price %q must not be negative", rawPrice)
	}
	row.Price = price

	rawPages := idx.field(record, colPages)
	if rawPages == "" {
		rawPages = idx.field(record, colPageCount)
	}
	if rawPages != "" {
		pages, err := strconv.Atoi(rawPages)
		if err != nil || pages < 1 {
			return Row{}, fmt.Errorf("pages %q must be a positive integer", rawPages)
		}
		row.Pages = &pages
	}

	return row, nil
}
