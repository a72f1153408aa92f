package readiness

import "github.com/fleetready/backend/internal/models"

// Reduce collapses the merged scan output to one current record per rider.
// Records without a rider id are dropped. On equal resolved timestamps the
// record observed last wins, which is not a semantic ordering: two distinct
// records of one rider with identical timestamps resolve arbitrarily.
func Reduce(records map[string]models.CheckRecord) map[string]models.CheckRecord {
	latest := make(map[string]models.CheckRecord, len(records))
	for _, rec := range records {
		if rec.RiderID == "" {
			continue
		}
		existing, ok := latest[rec.RiderID]
		if !ok || !rec.ResolvedAt.Before(existing.ResolvedAt) {
			latest[rec.RiderID] = rec
		}
	}
	return latest
}
