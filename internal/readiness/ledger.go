package readiness

import (
	"context"
	"strings"
	"time"

	"github.com/fleetready/backend/internal/models"
	"github.com/fleetready/backend/internal/store"
)

// LedgerFilter narrows ledger rows. All filters are applied in memory so the
// store needs no composite index over the filtered fields.
type LedgerFilter struct {
	Status  string
	RiderID string
	Start   *time.Time
	End     *time.Time
}

const maxLedgerBatch = 500

// Ledger returns one page of the audit ledger ordered by resolved timestamp
// descending. Offset semantics skip the first (page-1)*limit matching rows of
// the full filtered order. When the batch budget runs out before the page
// fills, the short page is returned as-is.
func (s *Service) Ledger(ctx context.Context, page, limit int, f LedgerFilter) (models.LedgerPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}

	batchSize := limit * 2
	if batchSize > maxLedgerBatch {
		batchSize = maxLedgerBatch
	}

	out := models.LedgerPage{Page: page, Limit: limit, Items: []models.LedgerItem{}}
	skip := (page - 1) * limit
	matched := 0
	deepGreen := strings.EqualFold(f.Status, models.StatusGreen)
	completeness := map[string]bool{}

	q := store.RangeQuery{Field: "updated_at", Limit: batchSize}
	for batches := 0; batches < s.LedgerMaxBatches; batches++ {
		docs, cursor, err := s.Store.ScanChecks(ctx, q)
		if err != nil {
			return models.LedgerPage{}, err
		}

		for _, doc := range docs {
			rec, ok := ParseCheckRecord(doc)
			if !ok {
				continue
			}
			if !s.ledgerMatch(rec, f) {
				continue
			}
			if deepGreen {
				done, err := s.checkComplete(ctx, rec, completeness)
				if err != nil {
					return models.LedgerPage{}, err
				}
				if !done {
					continue
				}
			}
			matched++
			if matched <= skip {
				continue
			}
			out.Items = append(out.Items, ledgerItem(rec))
			if len(out.Items) >= limit {
				return out, nil
			}
		}

		if len(docs) < batchSize || cursor == nil {
			break
		}
		q.StartAfter = cursor
	}
	return out, nil
}

// Recent returns the newest checks for the dashboard widget, unfiltered.
func (s *Service) Recent(ctx context.Context, limit int) ([]models.LedgerItem, error) {
	if limit < 1 {
		limit = 5
	}
	docs, _, err := s.Store.ScanChecks(ctx, store.RangeQuery{Field: "updated_at", Limit: limit})
	if err != nil {
		return nil, err
	}
	items := make([]models.LedgerItem, 0, len(docs))
	for _, doc := range docs {
		rec, ok := ParseCheckRecord(doc)
		if !ok {
			continue
		}
		items = append(items, ledgerItem(rec))
	}
	return items, nil
}

func (s *Service) ledgerMatch(rec models.CheckRecord, f LedgerFilter) bool {
	if f.RiderID != "" && rec.RiderID != f.RiderID {
		return false
	}
	if f.Status != "" && !strings.EqualFold(rec.Status, f.Status) {
		return false
	}
	if f.Start != nil && rec.ResolvedAt.Before(*f.Start) {
		return false
	}
	if f.End != nil && !rec.ResolvedAt.Before(*f.End) {
		return false
	}
	return true
}

func ledgerItem(rec models.CheckRecord) models.LedgerItem {
	return models.LedgerItem{
		RiderID:   rec.RiderID,
		Status:    rec.Status,
		Reason:    rec.StatusReason,
		CheckID:   rec.ID,
		UpdatedAt: rec.ResolvedAt.UTC().Format(time.RFC3339),
	}
}
