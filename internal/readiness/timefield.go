package readiness

import (
	"time"

	"github.com/fleetready/backend/internal/models"
	"github.com/fleetready/backend/internal/store"
)

// TimestampFields is the resolution order for a check's authoritative
// timestamp: first present wins.
var TimestampFields = []string{
	"final_result_timestamp",
	"finished_at",
	"updated_at",
	"created_at",
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// ParseTimestamp accepts the encodings the store actually holds: a native
// time value or an ISO-8601 string, with or without a zone (naive values are
// taken as UTC).
func ParseTimestamp(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), true
	case string:
		for _, layout := range timestampLayouts {
			if ts, err := time.Parse(layout, t); err == nil {
				return ts.UTC(), true
			}
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}

// ResolveTimestamp walks TimestampFields and returns the first parseable
// value. false means the record has no usable timestamp at all.
func ResolveTimestamp(data map[string]any) (time.Time, bool) {
	for _, field := range TimestampFields {
		if v, ok := data[field]; ok {
			if ts, ok := ParseTimestamp(v); ok {
				return ts, true
			}
		}
	}
	return time.Time{}, false
}

// ParseCheckRecord lifts a raw document into a CheckRecord. ok is false when
// no timestamp field resolved.
func ParseCheckRecord(doc store.Document) (models.CheckRecord, bool) {
	ts, ok := ResolveTimestamp(doc.Data)
	if !ok {
		return models.CheckRecord{}, false
	}
	rec := models.CheckRecord{
		ID:         doc.ID,
		ResolvedAt: ts,
		Data:       doc.Data,
	}
	if v, ok := doc.Data["shift_session_id"].(string); ok && v != "" {
		rec.ID = v
	}
	if v, ok := doc.Data["user_id"].(string); ok {
		rec.RiderID = v
	}
	if v, ok := doc.Data["overall_status"].(string); ok {
		rec.Status = v
	}
	if v, ok := doc.Data["status_with_reason"].(string); ok && v != "" {
		rec.StatusReason = v
	} else if v, ok := doc.Data["status_reason"].(string); ok {
		rec.StatusReason = v
	}
	return rec, true
}
