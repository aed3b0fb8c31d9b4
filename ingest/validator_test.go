package ingest_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/bookstock/ingest"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func standardIndex() ingest.HeaderIndex {
	return ingest.MakeHeaderIndex([]string{
		"Store Name", "Store Address", "Book Name", "Pages", "Author Name", "Price", "Logo",
	})
}

func standardRecord() []string {
	return []string{"BookWorld", "12 Main St", "Gatsby", "180", "Fitzgerald", "15.99", ""}
}

// =============================================================================
// HEADER NORMALIZATION
// =============================================================================

func TestNormalizeHeader(t *testing.T) {
	cases := map[string]string{
		"Store Name":    "store_name",
		"  store name ": "store_name",
		"STORE\tNAME":   "store_name",
		"store  name":   "store_name",
		"price":         "price",
	}
	for in, want := range cases {
		assert.Equal(t, want, ingest.NormalizeHeader(in), "input %q", in)
	}
}

// =============================================================================
// REQUIRED FIELDS
// =============================================================================

func TestValidateRow_AllFieldsPresent(t *testing.T) {
	row, err := ingest.ValidateRow(standardRecord(), standardIndex(), 2)
	require.NoError(t, err)

	assert.Equal(t, 2, row.Ordinal)
	assert.Equal(t, "BookWorld", row.StoreName)
	assert.Equal(t, "12 Main St", row.StoreAddress)
	assert.Equal(t, "Gatsby", row.BookName)
	assert.Equal(t, "Fitzgerald", row.AuthorName)
	require.NotNil(t, row.Pages)
	assert.Equal(t, 180, *row.Pages)
	assert.True(t, row.Price.Equal(decimal.RequireFromString("15.99")))
}

func TestValidateRow_MissingRequiredFields(t *testing.T) {
	cases := []struct {
		name   string
		column int
		reason string
	}{
		{"store name", 0, "store_name"},
		{"book name", 2, "book_name"},
		{"author name", 4, "author_name"},
		{"price", 5, "price"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			record := standardRecord()
			record[tc.column] = "   " // whitespace-only counts as missing

			_, err := ingest.ValidateRow(record, standardIndex(), 3)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.reason)
		})
	}
}

func TestValidateRow_ShortRecord_MissingTrailingColumns(t *testing.T) {
	// GIVEN: A record with fewer cells than the header
	record := []string{"BookWorld", "", "Gatsby"}

	// WHEN: Validating
	_, err := ingest.ValidateRow(record, standardIndex(), 2)

	// THEN: The first absent required column is reported
	require.Error(t, err)
	assert.Contains(t, err.Error(), "author_name")
}

// =============================================================================
// NUMERIC FIELDS
// =============================================================================

func TestValidateRow_PriceNotANumber(t *testing.T) {
	record := standardRecord()
	record[5] = "free"

	_, err := ingest.ValidateRow(record, standardIndex(), 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "price")
	assert.Contains(t, err.Error(), "not a number")
}

func TestValidateRow_NegativePriceRejected(t *testing.T) {
	record := standardRecord()
	record[5] = "-3.50"

	_, err := ingest.ValidateRow(record, standardIndex(), 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "negative")
}

func TestValidateRow_ZeroPriceAllowed(t *testing.T) {
	record := standardRecord()
	record[5] = "0"

	row, err := ingest.ValidateRow(record, standardIndex(), 2)
	require.NoError(t, err)
	assert.True(t, row.Price.IsZero())
}

func TestValidateRow_PagesOptional(t *testing.T) {
	record := standardRecord()
	record[3] = ""

	row, err := ingest.ValidateRow(record, standardIndex(), 2)
	require.NoError(t, err)
	assert.Nil(t, row.Pages)
}

func TestValidateRow_PagesMustBePositiveInteger(t *testing.T) {
	for _, bad := range []string{"0", "-10", "12.5", "many"} {
		record := standardRecord()
		record[3] = bad

		_, err := ingest.ValidateRow(record, standardIndex(), 2)
		require.Error(t, err, "pages %q should be rejected", bad)
		assert.Contains(t, err.Error(), "pages")
	}
}

func TestValidateRow_PageCountAliasAccepted(t *testing.T) {
	idx := ingest.MakeHeaderIndex([]string{
		"Store Name", "Store Address", "Book Name", "Page Count", "Author Name", "Price", "Logo",
	})

	row, err := ingest.ValidateRow(standardRecord(), idx, 2)
	require.NoError(t, err)
	require.NotNil(t, row.Pages)
	assert.Equal(t, 180, *row.Pages)
}

// Determinism: validating the same record twice yields identical output.
func TestValidateRow_Deterministic(t *testing.T) {
	a, errA := ingest.ValidateRow(standardRecord(), standardIndex(), 7)
	b, errB := ingest.ValidateRow(standardRecord(), standardIndex(), 7)

	require.NoError(t, errA)
	require.NoError(t, errB)
	assert.Equal(t, a, b)
}
