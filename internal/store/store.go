package store

import (
	"context"
	"time"
)

// Document is one record from the check collection. Field values keep
// whatever type the writer used; timestamps in particular show up both as
// time.Time and as RFC3339 strings across documents.
type Document struct {
	ID   string
	Data map[string]any
}

// Cursor marks the last row of a page for a keyset scan. The zero value
// means "from the top".
type Cursor struct {
	Value string
	ID    string
}

// RangeQuery is one descending scan over a single document field.
// Start is inclusive, End exclusive; both may be nil for an unbounded scan.
// Documents missing the order field are not returned (the caller is expected
// to scan other field variants for those).
type RangeQuery struct {
	Field      string
	Start      any
	End        any
	StartAfter *Cursor
	Limit      int
}

// CheckStore is the readiness-check collection collaborator.
type CheckStore interface {
	ScanChecks(ctx context.Context, q RangeQuery) ([]Document, *Cursor, error)
	GetCheck(ctx context.Context, id string) (Document, bool, error)
	LatestCheckForRider(ctx context.Context, riderID string) (Document, bool, error)
	GetAssessment(ctx context.Context, checkID, name string) (map[string]any, bool, error)

	// Merge-writes, used by the session lifecycle owner only. The
	// aggregation side never writes.
	SetCheck(ctx context.Context, id string, fields map[string]any) error
	SetAssessment(ctx context.Context, checkID, name string, fields map[string]any) error
}

// RosterStore counts known riders. Only used as a fallback denominator.
type RosterStore interface {
	CountRiders(ctx context.Context) (int, error)
}

// textValue renders a field or filter value to the text form used for
// ordering and cursor comparison. RFC3339 with fixed precision keeps
// lexicographic order equal to chronological order.
func textValue(v any) (string, bool) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format("2006-01-02T15:04:05.000000000Z07:00"), true
	case string:
		return t, true
	case nil:
		return "", false
	default:
		return "", false
	}
}
