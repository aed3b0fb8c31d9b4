package report_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/bookstock/report"
)

// recordingQuerier captures the limit the reporter forwards.
type recordingQuerier struct {
	lastLimit int
	books     []report.PricedBook
	authors   []report.AuthorRank
}

func (q *recordingQuerier) TopPriciestBooks(_ context.Context, _ string, limit int) ([]report.PricedBook, error) {
	q.lastLimit = limit
	return q.books, nil
}

func (q *recordingQuerier) TopProlificAuthors(_ context.Context, _ string, limit int) ([]report.AuthorRank, error) {
	q.lastLimit = limit
	return q.authors, nil
}

func TestReporter_DefaultsLimit(t *testing.T) {
	q := &recordingQuerier{}
	rep := report.NewReporter(q)

	_, err := rep.PriciestBooks(context.Background(), "store-1", 0)
	require.NoError(t, err)
	assert.Equal(t, report.DefaultLimit, q.lastLimit)

	_, err = rep.ProlificAuthors(context.Background(), "store-1", -3)
	require.NoError(t, err)
	assert.Equal(t, report.DefaultLimit, q.lastLimit)
}

func TestReporter_ForwardsExplicitLimit(t *testing.T) {
	q := &recordingQuerier{}
	rep := report.NewReporter(q)

	_, err := rep.PriciestBooks(context.Background(), "store-1", 12)
	require.NoError(t, err)
	assert.Equal(t, 12, q.lastLimit)
}

func TestReporter_PassesRowsThroughUnchanged(t *testing.T) {
	q := &recordingQuerier{
		books: []report.PricedBook{
			{Book: "Gatsby", Author: "Fitzgerald", Price: decimal.RequireFromString("15.99"), Copies: 2},
		},
	}
	rep := report.NewReporter(q)

	books, err := rep.PriciestBooks(context.Background(), "store-1", 5)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "Gatsby", books[0].Book)
	assert.Equal(t, 2, books[0].Copies)
}
