// Package session owns the check-session lifecycle: it is the only writer of
// check documents and assessment sub-records. The aggregation side never
// writes.
package session

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fleetready/backend/internal/models"
	"github.com/fleetready/backend/internal/store"
)

type Service struct {
	Store  store.CheckStore
	Logger zerolog.Logger
}

// Create starts a check session for a rider, reusing the rider's latest
// session when it is still unfinished.
func (s *Service) Create(ctx context.Context, riderID string) (checkID string, reused bool, err error) {
	if doc, ok, err := s.Store.LatestCheckForRider(ctx, riderID); err == nil && ok {
		if _, finished := doc.Data["finished_at"]; !finished {
			s.Logger.Info().Str("check_id", doc.ID).Str("rider_id", riderID).Msg("reusing open check session")
			return doc.ID, true, nil
		}
	}

	checkID = "check_" + shortID(12)
	now := time.Now().UTC()
	err = s.Store.SetCheck(ctx, checkID, map[string]any{
		"shift_session_id": checkID,
		"user_id":          riderID,
		"consent":          false,
		"camera_enabled":   false,
		"started_at":       now,
		"created_at":       now,
		"updated_at":       now,
	})
	if err != nil {
		return "", false, err
	}
	s.Logger.Info().Str("check_id", checkID).Str("rider_id", riderID).Msg("created check session")
	return checkID, false, nil
}

func (s *Service) SaveConsent(ctx context.Context, checkID string, agreed bool) error {
	now := time.Now().UTC()
	return s.Store.SetCheck(ctx, checkID, map[string]any{
		"shift_session_id":   checkID,
		"consent":            agreed,
		"consent_updated_at": now,
		"updated_at":         now,
	})
}

func (s *Service) SaveVision(ctx context.Context, checkID string, data map[string]any) error {
	return s.saveAssessment(ctx, checkID, models.AssessmentVision, "vision", data)
}

func (s *Service) SaveCognitive(ctx context.Context, checkID string, data map[string]any) error {
	return s.saveAssessment(ctx, checkID, models.AssessmentCognitive, "cog", data)
}

func (s *Service) SaveBehavioral(ctx context.Context, checkID string, answers []map[string]any) error {
	generic := make([]any, 0, len(answers))
	for _, a := range answers {
		generic = append(generic, a)
	}
	return s.saveAssessment(ctx, checkID, models.AssessmentBehavioral, "behav", map[string]any{
		"answers": generic,
	})
}

// SaveResult finalizes a check: overall status, reason, optional detection
// report, and the finished/final timestamps the aggregation side resolves by.
func (s *Service) SaveResult(ctx context.Context, checkID, overallStatus, statusReason string, detectionReport map[string]any) error {
	now := time.Now().UTC()
	fields := map[string]any{
		"shift_session_id":       checkID,
		"overall_status":         strings.ToUpper(strings.TrimSpace(overallStatus)),
		"status_reason":          statusReason,
		"finished_at":            now,
		"final_result_timestamp": now,
		"updated_at":             now,
	}
	if detectionReport != nil {
		fields["detection_report"] = detectionReport
	}

	if doc, ok, err := s.Store.GetCheck(ctx, checkID); err == nil && ok {
		if created, ok := parseCreatedAt(doc.Data["created_at"]); ok {
			fields["session_duration_seconds"] = now.Sub(created).Seconds()
		}
	}
	return s.Store.SetCheck(ctx, checkID, fields)
}

func (s *Service) Get(ctx context.Context, checkID string) (map[string]any, bool, error) {
	doc, ok, err := s.Store.GetCheck(ctx, checkID)
	if err != nil || !ok {
		return nil, ok, err
	}
	return doc.Data, true, nil
}

func (s *Service) saveAssessment(ctx context.Context, checkID, name, prefix string, data map[string]any) error {
	now := time.Now().UTC()

	// Keep a stable per-assessment session id across re-submissions.
	sessionID := prefix + "_" + shortID(8)
	if existing, ok, err := s.Store.GetAssessment(ctx, checkID, name); err == nil && ok {
		if id, _ := existing["session_id"].(string); id != "" {
			sessionID = id
		}
	}

	fields := map[string]any{
		"session_id":       sessionID,
		"shift_session_id": checkID,
		"timestamp":        now,
	}
	for k, v := range data {
		fields[k] = v
	}
	if err := s.Store.SetAssessment(ctx, checkID, name, fields); err != nil {
		return err
	}
	return s.Store.SetCheck(ctx, checkID, map[string]any{
		"shift_session_id": checkID,
		"updated_at":       now,
	})
}

func parseCreatedAt(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		if ts, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

func shortID(n int) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	if len(id) > n {
		id = id[:n]
	}
	return id
}
