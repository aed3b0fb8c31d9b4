/*
importer.go - Batch ingestion orchestration

PURPOSE:
  Hands the raw buffer to the parser pool, then reconciles the valid
  rows in their original file order in the caller's own goroutine.
  Ordering matters: it decides which identical-key row becomes the
  creator of a shared entity and which one increments an existing
  position, keeping created/updated counts deterministic.

ERROR POLICY:
  - Parse failure: the whole call fails, nothing processed.
  - Row validation/reconciliation failure: recorded in the summary,
    processing continues.
  - Store unavailable: aborts the remainder of the batch; the partial
    summary is returned alongside the error.
  - Zero successes with at least one error: ErrNothingIngested.
*/
package catalog

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"github.com/warp/bookstock/ingest"
)

// Importer runs complete ingestion calls.
type Importer struct {
	pool       *ingest.Pool
	reconciler *Reconciler
	log        zerolog.Logger
}

// NewImporter wires a parser pool and a store into an importer.
func NewImporter(pool *ingest.Pool, store TxStore, log zerolog.Logger) *Importer {
	return &Importer{
		pool:       pool,
		reconciler: NewReconciler(store),
		log:        log,
	}
}

// Ingest parses, validates and reconciles one complete buffer and
// returns the aggregate result. See the error policy above for which
// failures surface as the returned error.
func (im *Importer) Ingest(ctx context.Context, raw []byte) (*Summary, error) {
	parsed, err := im.pool.Submit(ctx, raw)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		RowsProcessed: len(parsed.Rows) + len(parsed.Errors),
		Errors:        append([]ingest.RowError(nil), parsed.Errors...),
	}

	for _, row := range parsed.Rows {
		outcome, err := im.reconciler.ReconcileRow(ctx, row)
		if err != nil {
			if IsFatal(err) {
				im.log.Error().Err(err).Int("ordinal", row.Ordinal).
					Msg("store unreachable, aborting batch")
				sortRowErrors(summary.Errors)
				return summary, fmt.Errorf("row %d: %w", row.Ordinal, err)
			}
			summary.Errors = append(summary.Errors, ingest.RowError{
				Ordinal: row.Ordinal,
				Raw:     row.Raw,
				Reason:  err.Error(),
			})
			continue
		}
		summary.apply(outcome)
	}

	// Validation and reconciliation errors interleave; present them in
	// source order.
	sortRowErrors(summary.Errors)

	im.log.Info().
		Int("rows", summary.RowsProcessed).
		Int("succeeded", summary.Succeeded()).
		Int("errors", len(summary.Errors)).
		Int("stores_created", summary.Created.Stores).
		Int("positions_created", summary.Created.Positions).
		Int("positions_updated", summary.UpdatedPositions).
		Msg("ingestion finished")

	if summary.Succeeded() == 0 && len(summary.Errors) > 0 {
		return summary, ErrNothingIngested
	}
	return summary, nil
}

func sortRowErrors(errs []ingest.RowError) {
	sort.SliceStable(errs, func(i, j int) bool {
		return errs[i].Ordinal < errs[j].Ordinal
	})
}
