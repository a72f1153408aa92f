package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Memory is an in-process CheckStore/RosterStore with the same ordering and
// cursor semantics as the Postgres implementation. It backs the server when
// no DATABASE_URL is configured and is the store double in tests.
type Memory struct {
	mu          sync.Mutex
	checks      map[string]map[string]any
	assessments map[string]map[string]map[string]any
	riders      map[string]struct{}
}

func NewMemory() *Memory {
	return &Memory{
		checks:      map[string]map[string]any{},
		assessments: map[string]map[string]map[string]any{},
		riders:      map[string]struct{}{},
	}
}

func (m *Memory) ScanChecks(_ context.Context, q RangeQuery) ([]Document, *Cursor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if q.Limit <= 0 {
		q.Limit = 100
	}

	type row struct {
		key string
		doc Document
	}
	var rows []row
	for id, data := range m.checks {
		v, ok := data[q.Field]
		if !ok {
			continue
		}
		key, ok := textValue(v)
		if !ok {
			continue
		}
		// A typed range only matches values of the same encoding, the way a
		// document store's per-type index would.
		if q.Start != nil || q.End != nil {
			if !sameEncoding(v, q.Start) && !sameEncoding(v, q.End) {
				continue
			}
		}
		if start, ok := textValue(q.Start); ok && key < start {
			continue
		}
		if end, ok := textValue(q.End); ok && key >= end {
			continue
		}
		rows = append(rows, row{key: key, doc: Document{ID: id, Data: copyMap(data)}})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].key == rows[j].key {
			return rows[i].doc.ID > rows[j].doc.ID
		}
		return rows[i].key > rows[j].key
	})

	if q.StartAfter != nil {
		cut := 0
		for cut < len(rows) {
			r := rows[cut]
			if r.key < q.StartAfter.Value || (r.key == q.StartAfter.Value && r.doc.ID < q.StartAfter.ID) {
				break
			}
			cut++
		}
		rows = rows[cut:]
	}

	if len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}

	out := make([]Document, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.doc)
	}
	var next *Cursor
	if len(rows) > 0 {
		last := rows[len(rows)-1]
		next = &Cursor{Value: last.key, ID: last.doc.ID}
	}
	return out, next, nil
}

func (m *Memory) GetCheck(_ context.Context, id string) (Document, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.checks[id]
	if !ok {
		return Document{}, false, nil
	}
	return Document{ID: id, Data: copyMap(data)}, true, nil
}

func (m *Memory) LatestCheckForRider(_ context.Context, riderID string) (Document, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var (
		bestID  string
		bestKey string
		found   bool
	)
	for id, data := range m.checks {
		if rid, _ := data["user_id"].(string); rid != riderID {
			continue
		}
		key, _ := textValue(data["created_at"])
		if !found || key > bestKey || (key == bestKey && id > bestID) {
			bestID, bestKey, found = id, key, true
		}
	}
	if !found {
		return Document{}, false, nil
	}
	return Document{ID: bestID, Data: copyMap(m.checks[bestID])}, true, nil
}

func (m *Memory) GetAssessment(_ context.Context, checkID, name string) (map[string]any, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byName, ok := m.assessments[checkID]
	if !ok {
		return nil, false, nil
	}
	data, ok := byName[name]
	if !ok {
		return nil, false, nil
	}
	return copyMap(data), true, nil
}

func (m *Memory) SetCheck(_ context.Context, id string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.checks[id]
	if !ok {
		doc = map[string]any{}
		m.checks[id] = doc
	}
	for k, v := range fields {
		doc[k] = v
	}
	if rid, _ := doc["user_id"].(string); rid != "" {
		m.riders[rid] = struct{}{}
	}
	return nil
}

func (m *Memory) SetAssessment(_ context.Context, checkID, name string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	byName, ok := m.assessments[checkID]
	if !ok {
		byName = map[string]map[string]any{}
		m.assessments[checkID] = byName
	}
	doc, ok := byName[name]
	if !ok {
		doc = map[string]any{}
		byName[name] = doc
	}
	for k, v := range fields {
		doc[k] = v
	}
	return nil
}

func (m *Memory) CountRiders(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.riders), nil
}

func sameEncoding(fieldValue, queryValue any) bool {
	switch queryValue.(type) {
	case time.Time:
		_, ok := fieldValue.(time.Time)
		return ok
	case string:
		_, ok := fieldValue.(string)
		return ok
	default:
		return false
	}
}

func copyMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
