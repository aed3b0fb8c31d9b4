/*
parser.go - Buffer parsing and valid/invalid partitioning

PURPOSE:
  Splits a raw delimited-text buffer into records (standard CSV rules:
  quoted fields, embedded delimiters and newlines inside quotes), then
  runs the Row Validator over every record and partitions the results.

ORDINALS:
  Row ordinals are the record's position in the source file, 1-based and
  offset by the header, so the first data record is ordinal 2. Fully
  empty records are skipped but still consume an ordinal, keeping error
  messages reproducible against the original file.

FAILURE:
  Malformed input (e.g. an unterminated quote) fails the whole call with
  ErrMalformedInput; no partial parse is returned.
*/
package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
)

// ParseAndValidate parses one complete buffer and validates every data
// record. Rows and Errors preserve source order.
func ParseAndValidate(raw []byte) (*Result, error) {
	reader := csv.NewReader(bytes.NewReader(raw))
	reader.FieldsPerRecord = -1 // ragged rows are a validation concern, not a parse error

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: missing header row", ErrMalformedInput)
	}

	idx := MakeHeaderIndex(records[0])
	result := &Result{}

	for i, record := range records[1:] {
		ordinal := i + 2
		if isEmptyRecord(record) {
			continue
		}

		row, err := ValidateRow(record, idx, ordinal)
		if err != nil {
			result.Errors = append(result.Errors, RowError{
				Ordinal: ordinal,
				Raw:     strings.Join(record, ","),
				Reason:  err.Error(),
			})
			continue
		}
		result.Rows = append(result.Rows, row)
	}

	return result, nil
}

func isEmptyRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
