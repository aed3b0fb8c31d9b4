package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/bookstock/api"
	"github.com/warp/bookstock/catalog"
	"github.com/warp/bookstock/ingest"
	"github.com/warp/bookstock/report"
	"github.com/warp/bookstock/store/sqlite"
)

const csvHeader = "Store Name,Store Address,Book Name,Pages,Author Name,Price,Logo\n"

// =============================================================================
// TEST SETUP
// =============================================================================

func newServer(t *testing.T, maxUpload int64) (*httptest.Server, *sqlite.Store) {
	t.Helper()

	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	pool := ingest.NewPool(ingest.PoolOptions{Min: 1, Max: 2})
	pool.Start()
	t.Cleanup(pool.Stop)

	imp := catalog.NewImporter(pool, st, zerolog.Nop())
	rep := report.NewReporter(st)
	h := api.NewHandler(imp, rep, st, maxUpload, zerolog.Nop())

	srv := httptest.NewServer(api.NewRouter(h))
	t.Cleanup(srv.Close)
	return srv, st
}

func postCSV(t *testing.T, srv *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(srv.URL+"/api/imports", "text/csv", bytes.NewBufferString(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

// =============================================================================
// IMPORT ENDPOINT
// =============================================================================

func TestAPI_ImportSuccess(t *testing.T) {
	srv, _ := newServer(t, 1<<20)

	resp := postCSV(t, srv, csvHeader+
		"BookWorld,12 Main St,Gatsby,180,Fitzgerald,15.99,\n"+
		"BookWorld,,Ulysses,,Joyce,20.00,\n")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	summary := decode[api.ImportSummaryDTO](t, resp)
	assert.Equal(t, 2, summary.RowsProcessed)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 1, summary.Created.Stores)
	assert.Equal(t, 2, summary.Created.Books)
	assert.Empty(t, summary.Errors)
}

func TestAPI_ImportPartialFailure(t *testing.T) {
	srv, _ := newServer(t, 1<<20)

	resp := postCSV(t, srv, csvHeader+
		"BookWorld,,Gatsby,180,Fitzgerald,15.99,\n"+
		"BookWorld,,Ulysses,,Joyce,not-a-price,\n")

	// One success is enough for 200; the bad row is itemized
	require.Equal(t, http.StatusOK, resp.StatusCode)
	summary := decode[api.ImportSummaryDTO](t, resp)
	assert.Equal(t, 1, summary.Succeeded)
	require.Len(t, summary.Errors, 1)
	assert.Equal(t, 3, summary.Errors[0].Ordinal)
}

func TestAPI_ImportMalformedCSVIsBadRequest(t *testing.T) {
	srv, _ := newServer(t, 1<<20)

	resp := postCSV(t, srv, csvHeader+"\"unterminated,,Gatsby,180,Fitzgerald,15.99,\n")

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	errResp := decode[api.ErrorResponse](t, resp)
	assert.NotEmpty(t, errResp.Error)
}

func TestAPI_ImportNothingIngestedIsUnprocessable(t *testing.T) {
	srv, _ := newServer(t, 1<<20)

	resp := postCSV(t, srv, csvHeader+"BookWorld,,Gatsby,180,Fitzgerald,abc,\n")

	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	summary := decode[api.ImportSummaryDTO](t, resp)
	assert.Equal(t, 0, summary.Succeeded)
	require.Len(t, summary.Errors, 1)
}

func TestAPI_ImportTooLarge(t *testing.T) {
	srv, _ := newServer(t, 64) // tiny cap

	resp := postCSV(t, srv, csvHeader+strings.Repeat("BookWorld,,Gatsby,180,Fitzgerald,15.99,\n", 100))

	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

// =============================================================================
// STORE AND REPORT ENDPOINTS
// =============================================================================

func TestAPI_ListStores(t *testing.T) {
	srv, _ := newServer(t, 1<<20)
	postCSV(t, srv, csvHeader+
		"Zebra Books,,A,,X,1.00,\n"+
		"Alpha Books,,B,,Y,2.00,\n")

	resp, err := http.Get(srv.URL + "/api/stores")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	stores := decode[[]api.StoreDTO](t, resp)
	require.Len(t, stores, 2)
	assert.Equal(t, "Alpha Books", stores[0].Name)
	assert.NotEmpty(t, stores[0].ID)
}

func TestAPI_PriciestBooksReport(t *testing.T) {
	srv, st := newServer(t, 1<<20)
	postCSV(t, srv, csvHeader+
		"BookWorld,,Cheap,,A1,5.00,\n"+
		"BookWorld,,Pricey,,A2,25.00,\n"+
		"BookWorld,,Middle,,A3,10.00,\n")

	storeRec, err := st.StoreByName(context.Background(), "BookWorld")
	require.NoError(t, err)

	resp, err := http.Get(srv.URL + "/api/stores/" + storeRec.ID + "/reports/priciest-books?limit=2")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	books := decode[[]api.PricedBookDTO](t, resp)
	require.Len(t, books, 2, "limit query param respected")
	assert.Equal(t, "Pricey", books[0].Book)
	assert.Equal(t, "25", books[0].Price)
	assert.Equal(t, "Middle", books[1].Book)
}

func TestAPI_ProlificAuthorsReport(t *testing.T) {
	srv, st := newServer(t, 1<<20)
	postCSV(t, srv, csvHeader+
		"BookWorld,,One,,Prolific,5.00,\n"+
		"BookWorld,,Two,,Prolific,6.00,\n"+
		"BookWorld,,Only,,Single,7.00,\n")

	storeRec, err := st.StoreByName(context.Background(), "BookWorld")
	require.NoError(t, err)

	resp, err := http.Get(srv.URL + "/api/stores/" + storeRec.ID + "/reports/prolific-authors")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	ranks := decode[[]api.AuthorRankDTO](t, resp)
	require.Len(t, ranks, 2)
	assert.Equal(t, "Prolific", ranks[0].Author)
	assert.Equal(t, 2, ranks[0].Books)
}

func TestAPI_ReportUnknownStoreIs404(t *testing.T) {
	srv, _ := newServer(t, 1<<20)

	resp, err := http.Get(srv.URL + "/api/stores/no-such-id/reports/priciest-books")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_Healthz(t *testing.T) {
	srv, _ := newServer(t, 1<<20)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
