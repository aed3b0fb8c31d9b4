/*
handlers.go - HTTP API handlers for the inventory ingestion service

PURPOSE:
  Exposes ingestion and reporting via REST. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  POST /api/imports                                CSV bulk import
  GET  /api/stores                                 List known stores
  GET  /api/stores/{storeID}/reports/priciest-books
  GET  /api/stores/{storeID}/reports/prolific-authors
  GET  /healthz                                    Liveness probe

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed CSV (whole upload rejected)
  - 404: Unknown store
  - 413: Upload exceeds the configured size limit
  - 422: Every row failed, nothing ingested (summary still returned)
  - 503: Backing store unavailable, batch aborted

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/warp/bookstock/catalog"
	"github.com/warp/bookstock/ingest"
	"github.com/warp/bookstock/report"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Directory is the store-lookup side the handler needs.
type Directory interface {
	ListStores(ctx context.Context) ([]catalog.Store, error)
	StoreByID(ctx context.Context, id string) (*catalog.Store, error)
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Importer       *catalog.Importer
	Reporter       *report.Reporter
	Stores         Directory
	MaxUploadBytes int64
	Log            zerolog.Logger
}

// NewHandler creates a new handler with the given collaborators.
func NewHandler(imp *catalog.Importer, rep *report.Reporter, dir Directory, maxUpload int64, log zerolog.Logger) *Handler {
	return &Handler{
		Importer:       imp,
		Reporter:       rep,
		Stores:         dir,
		MaxUploadBytes: maxUpload,
		Log:            log,
	}
}

// =============================================================================
// IMPORT HANDLERS
// =============================================================================

// Import ingests a CSV upload and returns the per-batch summary.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	raw, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Upload too large", err)
			return
		}
		writeError(w, http.StatusBadRequest, "Failed to read upload", err)
		return
	}

	summary, err := h.Importer.Ingest(r.Context(), raw)
	switch {
	case errors.Is(err, ingest.ErrMalformedInput):
		writeError(w, http.StatusBadRequest, "Malformed CSV", err)
		return
	case errors.Is(err, catalog.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, "Store unavailable", err)
		return
	case errors.Is(err, catalog.ErrNothingIngested):
		// Every row failed: the summary explains why, row by row
		writeJSON(w, http.StatusUnprocessableEntity, summaryDTO(summary))
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "Import failed", err)
		return
	}

	writeJSON(w, http.StatusOK, summaryDTO(summary))
}

// =============================================================================
// STORE HANDLERS
// =============================================================================

// ListStores returns all known stores.
func (h *Handler) ListStores(w http.ResponseWriter, r *http.Request) {
	stores, err := h.Stores.ListStores(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list stores", err)
		return
	}

	dtos := make([]StoreDTO, len(stores))
	for i, s := range stores {
		dtos[i] = StoreDTO{ID: s.ID, Name: s.Name, Address: s.Address, Logo: s.Logo}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// PriciestBooks returns the store's top-priced live positions.
func (h *Handler) PriciestBooks(w http.ResponseWriter, r *http.Request) {
	storeRec, ok := h.resolveStore(w, r)
	if !ok {
		return
	}

	books, err := h.Reporter.PriciestBooks(r.Context(), storeRec.ID, limitParam(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build report", err)
		return
	}

	dtos := make([]PricedBookDTO, len(books))
	for i, b := range books {
		dtos[i] = PricedBookDTO{
			Book:   b.Book,
			Author: b.Author,
			Pages:  b.Pages,
			Price:  b.Price.String(),
			Copies: b.Copies,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ProlificAuthors returns the store's most represented authors.
func (h *Handler) ProlificAuthors(w http.ResponseWriter, r *http.Request) {
	storeRec, ok := h.resolveStore(w, r)
	if !ok {
		return
	}

	ranks, err := h.Reporter.ProlificAuthors(r.Context(), storeRec.ID, limitParam(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build report", err)
		return
	}

	dtos := make([]AuthorRankDTO, len(ranks))
	for i, a := range ranks {
		dtos[i] = AuthorRankDTO{Author: a.Author, Books: a.Books, Copies: a.Copies}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// Healthz is the liveness probe.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) resolveStore(w http.ResponseWriter, r *http.Request) (*catalog.Store, bool) {
	id := chi.URLParam(r, "storeID")
	storeRec, err := h.Stores.StoreByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to look up store", err)
		return nil, false
	}
	if storeRec == nil {
		writeError(w, http.StatusNotFound, "Store not found", nil)
		return nil, false
	}
	return storeRec, true
}

func summaryDTO(s *catalog.Summary) ImportSummaryDTO {
	dto := ImportSummaryDTO{
		RowsProcessed: s.RowsProcessed,
		Succeeded:     s.Succeeded(),
		Created: CreatedDTO{
			Stores:    s.Created.Stores,
			Authors:   s.Created.Authors,
			Books:     s.Created.Books,
			Positions: s.Created.Positions,
		},
		UpdatedPositions: s.UpdatedPositions,
		Errors:           []RowErrorDTO{},
	}
	for _, e := range s.Errors {
		dto.Errors = append(dto.Errors, RowErrorDTO{Ordinal: e.Ordinal, Raw: e.Raw, Reason: e.Reason})
	}
	return dto
}

func limitParam(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		return 0 // reporter applies the default
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	resp := ErrorResponse{Error: msg}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
