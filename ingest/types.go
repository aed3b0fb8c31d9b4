/*
types.go - Normalized row shapes for the ingestion pipeline

PURPOSE:
  Defines the fixed-shape value types that cross the boundary between
  parsing/validation and reconciliation. Source rows arrive as loosely
  shaped CSV records; everything downstream of the validator only ever
  sees a Row.

SEE ALSO:
  - validator.go: The only producer of Row values
  - parser.go: Partitions records into Rows and RowErrors
*/
package ingest

import "github.com/shopspring/decimal"

// Row is a single validated inventory record. All string fields are
// trimmed; Price has been parsed; Pages is nil when the source column
// was absent or empty.
type Row struct {
	Ordinal      int
	Raw          string
	StoreName    string
	StoreAddress string
	BookName     string
	AuthorName   string
	Pages        *int
	Price        decimal.Decimal
	Logo         string
}

// RowError describes a record that failed validation or reconciliation.
// Ordinal is the record's 1-based position in the source file, offset by
// the header row, so the first data record is ordinal 2.
type RowError struct {
	Ordinal int
	Raw     string
	Reason  string
}

// Result is the outcome of parsing and validating one complete buffer.
// Rows and Errors each preserve source order.
type Result struct {
	Rows   []Row
	Errors []RowError
}
