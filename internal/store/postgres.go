package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres keeps check documents in jsonb so the collection stays as loosely
// typed as the upstream writers are. Schema:
//
//	checks(id text primary key, doc jsonb not null)
//	check_assessments(check_id text, name text, doc jsonb not null, primary key (check_id, name))
//	riders(id text primary key, doc jsonb not null)
type Postgres struct {
	Pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Postgres{Pool: pool}, nil
}

func (s *Postgres) Close() {
	s.Pool.Close()
}

func (s *Postgres) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

func (s *Postgres) ScanChecks(ctx context.Context, q RangeQuery) ([]Document, *Cursor, error) {
	if q.Limit <= 0 {
		q.Limit = 100
	}

	query := `SELECT id, doc FROM checks WHERE doc ? $1`
	args := []any{q.Field}

	if start, ok := textValue(q.Start); ok {
		args = append(args, start)
		query += fmt.Sprintf(" AND doc->>$1 >= $%d", len(args))
	}
	if end, ok := textValue(q.End); ok {
		args = append(args, end)
		query += fmt.Sprintf(" AND doc->>$1 < $%d", len(args))
	}
	if q.StartAfter != nil {
		args = append(args, q.StartAfter.Value, q.StartAfter.ID)
		query += fmt.Sprintf(" AND (doc->>$1, id) < ($%d, $%d)", len(args)-1, len(args))
	}
	args = append(args, q.Limit)
	query += fmt.Sprintf(" ORDER BY doc->>$1 DESC, id DESC LIMIT $%d", len(args))

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, nil, err
		}
		data := map[string]any{}
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, nil, err
		}
		out = append(out, Document{ID: id, Data: data})
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	var next *Cursor
	if len(out) > 0 {
		last := out[len(out)-1]
		if v, ok := textValue(last.Data[q.Field]); ok {
			next = &Cursor{Value: v, ID: last.ID}
		}
	}
	return out, next, nil
}

func (s *Postgres) GetCheck(ctx context.Context, id string) (Document, bool, error) {
	var raw []byte
	err := s.Pool.QueryRow(ctx, `SELECT doc FROM checks WHERE id = $1`, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, false, nil
	}
	if err != nil {
		return Document{}, false, err
	}
	data := map[string]any{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return Document{}, false, err
	}
	return Document{ID: id, Data: data}, true, nil
}

func (s *Postgres) LatestCheckForRider(ctx context.Context, riderID string) (Document, bool, error) {
	var (
		id  string
		raw []byte
	)
	err := s.Pool.QueryRow(ctx, `
		SELECT id, doc FROM checks
		WHERE doc->>'user_id' = $1
		ORDER BY doc->>'created_at' DESC, id DESC
		LIMIT 1
	`, riderID).Scan(&id, &raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, false, nil
	}
	if err != nil {
		return Document{}, false, err
	}
	data := map[string]any{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return Document{}, false, err
	}
	return Document{ID: id, Data: data}, true, nil
}

func (s *Postgres) GetAssessment(ctx context.Context, checkID, name string) (map[string]any, bool, error) {
	var raw []byte
	err := s.Pool.QueryRow(ctx,
		`SELECT doc FROM check_assessments WHERE check_id = $1 AND name = $2`,
		checkID, name,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	data := map[string]any{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (s *Postgres) SetCheck(ctx context.Context, id string, fields map[string]any) error {
	raw, err := json.Marshal(jsonSafe(fields))
	if err != nil {
		return err
	}
	_, err = s.Pool.Exec(ctx, `
		INSERT INTO checks (id, doc) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET doc = checks.doc || EXCLUDED.doc
	`, id, raw)
	return err
}

func (s *Postgres) SetAssessment(ctx context.Context, checkID, name string, fields map[string]any) error {
	raw, err := json.Marshal(jsonSafe(fields))
	if err != nil {
		return err
	}
	_, err = s.Pool.Exec(ctx, `
		INSERT INTO check_assessments (check_id, name, doc) VALUES ($1, $2, $3)
		ON CONFLICT (check_id, name) DO UPDATE SET doc = check_assessments.doc || EXCLUDED.doc
	`, checkID, name, raw)
	return err
}

func (s *Postgres) CountRiders(ctx context.Context) (int, error) {
	var n int
	if err := s.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM riders`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// jsonSafe renders time values to the canonical text form before the jsonb
// write so documents round-trip through ScanChecks unchanged.
func jsonSafe(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if s, ok := textValue(v); ok {
			out[k] = s
			continue
		}
		out[k] = v
	}
	return out
}
