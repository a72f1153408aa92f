package readiness

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/fleetready/backend/internal/models"
	"github.com/fleetready/backend/internal/store"
)

// TotalActivePolicy selects the denominator definition for
// FleetMetrics.TotalActiveRiders. The business default counts only riders
// whose latest check is actionable (fully ready or at-risk); the other two
// definitions exist for dashboards that want raw coverage.
type TotalActivePolicy string

const (
	TotalReadyPlusRisk  TotalActivePolicy = "ready_plus_risk"
	TotalDistinctRiders TotalActivePolicy = "distinct_riders"
	TotalRoster         TotalActivePolicy = "roster"
)

func ParseTotalActivePolicy(s string) (TotalActivePolicy, error) {
	switch TotalActivePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case TotalReadyPlusRisk, "":
		return TotalReadyPlusRisk, nil
	case TotalDistinctRiders:
		return TotalDistinctRiders, nil
	case TotalRoster:
		return TotalRoster, nil
	default:
		return "", fmt.Errorf("unknown total-active policy %q", s)
	}
}

// Service owns the read-side aggregation over the check store.
type Service struct {
	Store  store.CheckStore
	Roster store.RosterStore
	Logger zerolog.Logger
	Policy TotalActivePolicy

	ScanBatchSize    int
	ScanMaxBatches   int
	LedgerMaxBatches int
}

func (s *Service) scanner() *Scanner {
	return &Scanner{
		Store:      s.Store,
		Logger:     s.Logger,
		BatchSize:  s.ScanBatchSize,
		MaxBatches: s.ScanMaxBatches,
	}
}

// FleetMetrics aggregates the latest state of every rider seen in the window.
func (s *Service) FleetMetrics(ctx context.Context, w Window) (models.FleetMetrics, error) {
	records, err := s.scanner().Scan(ctx, w)
	if err != nil {
		return models.FleetMetrics{}, err
	}
	latest := Reduce(records)

	completeness := map[string]bool{}
	current, err := s.tally(ctx, latest, completeness)
	if err != nil {
		return models.FleetMetrics{}, err
	}

	m := models.FleetMetrics{
		FleetReadiness: models.FleetReadiness{
			Green:  current.green,
			Yellow: current.yellow,
			Red:    current.red,
		},
		ShiftReadyCount:    current.ready,
		ShiftRiskCount:     current.yellow,
		ShiftNotReadyCount: current.red,
	}

	m.TotalActiveRiders = s.totalActive(ctx, current, len(latest))

	if denom := current.green + current.yellow + current.red; denom > 0 {
		m.FleetOperationalPercentage = int(math.Round(float64(current.ready+current.yellow) / float64(denom) * 100))
	}

	if !w.AllTime {
		change, err := s.changePercentage(ctx, w, latest, completeness, current)
		if err != nil {
			return models.FleetMetrics{}, err
		}
		m.ChangePercentage = &change
	}

	if err := s.countDetections(ctx, latest, &m); err != nil {
		return models.FleetMetrics{}, err
	}
	return m, nil
}

type statusTally struct {
	green  int
	yellow int
	red    int
	ready  int
}

func (t statusTally) totalActiveReadyPlusRisk() int {
	return t.ready + t.yellow
}

func (s *Service) tally(ctx context.Context, latest map[string]models.CheckRecord, completeness map[string]bool) (statusTally, error) {
	var t statusTally
	for _, rec := range latest {
		switch strings.ToUpper(rec.Status) {
		case models.StatusGreen:
			t.green++
			ok, err := s.checkComplete(ctx, rec, completeness)
			if err != nil {
				return statusTally{}, err
			}
			if ok {
				t.ready++
			}
		case models.StatusYellow:
			t.yellow++
		case models.StatusRed:
			t.red++
		}
	}
	return t, nil
}

// checkComplete is the GREEN completeness predicate: all three assessments
// present, the cognitive test passed, and at least one behavioral answer.
// Results are memoized per check id so the prior-day re-slice costs nothing
// extra for checks already verified.
func (s *Service) checkComplete(ctx context.Context, rec models.CheckRecord, memo map[string]bool) (bool, error) {
	if done, ok := memo[rec.ID]; ok {
		return done, nil
	}
	vision, ok, err := s.Store.GetAssessment(ctx, rec.ID, models.AssessmentVision)
	if err != nil {
		return false, err
	}
	if !ok || vision == nil {
		memo[rec.ID] = false
		return false, nil
	}
	cognitive, ok, err := s.Store.GetAssessment(ctx, rec.ID, models.AssessmentCognitive)
	if err != nil {
		return false, err
	}
	if !ok || cognitive["passed"] != true {
		memo[rec.ID] = false
		return false, nil
	}
	behavioral, ok, err := s.Store.GetAssessment(ctx, rec.ID, models.AssessmentBehavioral)
	if err != nil {
		return false, err
	}
	answers, _ := behavioral["answers"].([]any)
	done := ok && len(answers) > 0
	memo[rec.ID] = done
	return done, nil
}

func (s *Service) totalActive(ctx context.Context, t statusTally, distinct int) int {
	switch s.Policy {
	case TotalDistinctRiders:
		return distinct
	case TotalRoster:
		n, err := s.Roster.CountRiders(ctx)
		if err != nil {
			// Roster unavailability never fails the query; degrade to the
			// status-bucket sum.
			s.Logger.Warn().Err(err).Msg("rider roster unavailable, using status-bucket total")
			return t.green + t.yellow + t.red
		}
		return n
	default:
		return t.totalActiveReadyPlusRisk()
	}
}

// changePercentage compares the window's total-active against the trailing
// prior day, re-sliced from the records already fetched rather than scanned
// again. Policy quirks (roster) do not apply here: the comparison is always
// between ready+risk totals, the only definition that is stable under a
// sub-window re-slice.
func (s *Service) changePercentage(ctx context.Context, w Window, latest map[string]models.CheckRecord, completeness map[string]bool, current statusTally) (int, error) {
	prior := Window{Start: w.End.Add(-48 * time.Hour), End: w.End.Add(-24 * time.Hour)}

	priorLatest := map[string]models.CheckRecord{}
	for rider, rec := range latest {
		if prior.Contains(rec.ResolvedAt) {
			priorLatest[rider] = rec
		}
	}
	priorTally, err := s.tally(ctx, priorLatest, completeness)
	if err != nil {
		return 0, err
	}

	cur := current.totalActiveReadyPlusRisk()
	prev := priorTally.totalActiveReadyPlusRisk()
	if prev == 0 {
		if cur > 0 {
			return 100, nil
		}
		return 0, nil
	}
	return int(math.Round(float64(cur-prev) / float64(prev) * 100)), nil
}

// countDetections looks each rider's vision assessment up once and counts
// distinct riders, not events.
func (s *Service) countDetections(ctx context.Context, latest map[string]models.CheckRecord, m *models.FleetMetrics) error {
	for _, rec := range latest {
		if rec.ID == "" {
			continue
		}
		vision, ok, err := s.Store.GetAssessment(ctx, rec.ID, models.AssessmentVision)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		fatigue := vision["fatigueDetected"] == true
		stress := vision["stressDetected"] == true
		if fatigue {
			m.FatigueDetections++
		}
		if stress {
			m.StressDetections++
		}
		if fatigue || stress {
			m.ShiftRiskDetections++
		}
	}
	return nil
}
