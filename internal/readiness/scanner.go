package readiness

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/fleetready/backend/internal/models"
	"github.com/fleetready/backend/internal/store"
)

// Scanner pulls every check whose resolved timestamp falls inside a window.
// The store may hold a logical timestamp under any of TimestampFields and as
// either a native time or an ISO string, so the scanner runs one paginated
// descending range query per field per encoding and merges the results by
// document id, keeping the version with the greatest resolved timestamp.
type Scanner struct {
	Store      store.CheckStore
	Logger     zerolog.Logger
	BatchSize  int
	MaxBatches int
}

// Scan returns the merged records keyed by document id. Hitting MaxBatches
// on a variant truncates that variant silently: partial results are an
// accepted trade-off, not an error. Store failures fail the whole scan.
func (s *Scanner) Scan(ctx context.Context, w Window) (map[string]models.CheckRecord, error) {
	merged := map[string]models.CheckRecord{}

	for _, field := range TimestampFields {
		for _, bounds := range s.windowBounds(w) {
			q := store.RangeQuery{
				Field: field,
				Start: bounds.start,
				End:   bounds.end,
				Limit: s.BatchSize,
			}
			if err := s.consumeVariant(ctx, q, w, merged); err != nil {
				return nil, err
			}
		}
	}
	return merged, nil
}

type rangeBounds struct {
	start any
	end   any
}

func (s *Scanner) windowBounds(w Window) []rangeBounds {
	if w.AllTime {
		// Unbounded scans see every encoding at once; one variant per field.
		return []rangeBounds{{}}
	}
	return []rangeBounds{
		{start: w.Start, end: w.End},
		{start: w.Start.Format(time.RFC3339), end: w.End.Format(time.RFC3339)},
	}
}

func (s *Scanner) consumeVariant(ctx context.Context, q store.RangeQuery, w Window, merged map[string]models.CheckRecord) error {
	batches := 0
	for {
		docs, cursor, err := s.Store.ScanChecks(ctx, q)
		if err != nil {
			return err
		}
		for _, doc := range docs {
			rec, ok := ParseCheckRecord(doc)
			if !ok {
				continue
			}
			if !w.Contains(rec.ResolvedAt) {
				continue
			}
			if existing, seen := merged[doc.ID]; seen && !rec.ResolvedAt.After(existing.ResolvedAt) {
				continue
			}
			merged[doc.ID] = rec
		}

		batches++
		if len(docs) < q.Limit || cursor == nil {
			return nil
		}
		if batches >= s.MaxBatches {
			s.Logger.Warn().
				Str("field", q.Field).
				Int("batches", batches).
				Msg("scan variant hit batch budget, accepting partial results")
			return nil
		}
		q.StartAfter = cursor
	}
}
