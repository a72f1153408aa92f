package readiness

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/fleetready/backend/internal/models"
	"github.com/fleetready/backend/internal/store"
)

func newService(mem *store.Memory) *Service {
	return &Service{
		Store:            mem,
		Roster:           mem,
		Logger:           zerolog.Nop(),
		Policy:           TotalReadyPlusRisk,
		ScanBatchSize:    100,
		ScanMaxBatches:   20,
		LedgerMaxBatches: 10,
	}
}

func seedCheck(t *testing.T, mem *store.Memory, id, rider, status string, at time.Time) {
	t.Helper()
	err := mem.SetCheck(context.Background(), id, map[string]any{
		"user_id":        rider,
		"overall_status": status,
		"updated_at":     at,
	})
	if err != nil {
		t.Fatalf("seed check %s: %v", id, err)
	}
}

func seedCompleteAssessments(t *testing.T, mem *store.Memory, checkID string) {
	t.Helper()
	ctx := context.Background()
	if err := mem.SetAssessment(ctx, checkID, models.AssessmentVision, map[string]any{"mood": "neutral"}); err != nil {
		t.Fatalf("seed vision: %v", err)
	}
	if err := mem.SetAssessment(ctx, checkID, models.AssessmentCognitive, map[string]any{"passed": true}); err != nil {
		t.Fatalf("seed cognitive: %v", err)
	}
	if err := mem.SetAssessment(ctx, checkID, models.AssessmentBehavioral, map[string]any{"answers": []any{"ok"}}); err != nil {
		t.Fatalf("seed behavioral: %v", err)
	}
}

func TestFleetMetricsTallies(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	day := time.Date(2026, 2, 9, 9, 0, 0, 0, time.UTC)

	seedCheck(t, mem, "c1", "r1", "GREEN", day)
	seedCompleteAssessments(t, mem, "c1")
	seedCheck(t, mem, "c2", "r2", "GREEN", day) // no assessments: green but not ready
	seedCheck(t, mem, "c3", "r3", "YELLOW", day)
	seedCheck(t, mem, "c4", "r4", "RED", day)
	if err := mem.SetAssessment(ctx, "c4", models.AssessmentVision, map[string]any{
		"fatigueDetected": true,
		"stressDetected":  true,
	}); err != nil {
		t.Fatalf("seed vision: %v", err)
	}

	m, err := newService(mem).FleetMetrics(ctx, dayWindow(t, "2026-02-09"))
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}

	if m.FleetReadiness.Green != 2 || m.FleetReadiness.Yellow != 1 || m.FleetReadiness.Red != 1 {
		t.Fatalf("unexpected buckets %+v", m.FleetReadiness)
	}
	if m.ShiftReadyCount != 1 {
		t.Fatalf("only the complete GREEN check is ready, got %d", m.ShiftReadyCount)
	}
	if m.ShiftRiskCount != 1 || m.ShiftNotReadyCount != 1 {
		t.Fatalf("unexpected risk/not-ready counts %+v", m)
	}
	if m.TotalActiveRiders != 2 {
		t.Fatalf("ready_plus_risk total should be 2, got %d", m.TotalActiveRiders)
	}
	if m.FleetOperationalPercentage != 50 {
		t.Fatalf("operational pct: got %d, want 50", m.FleetOperationalPercentage)
	}
	if m.FatigueDetections != 1 || m.StressDetections != 1 || m.ShiftRiskDetections != 1 {
		t.Fatalf("unexpected detections %+v", m)
	}
	if m.ChangePercentage == nil || *m.ChangePercentage != 100 {
		t.Fatalf("an empty prior day with activity today reads as +100, got %v", m.ChangePercentage)
	}
}

func TestFleetMetricsChangeAgainstPriorDay(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()

	seedCheck(t, mem, "c1", "r1", "GREEN", time.Date(2026, 2, 9, 9, 0, 0, 0, time.UTC))
	seedCompleteAssessments(t, mem, "c1")
	seedCheck(t, mem, "c2", "r2", "GREEN", time.Date(2026, 2, 9, 10, 0, 0, 0, time.UTC))
	seedCompleteAssessments(t, mem, "c2")
	seedCheck(t, mem, "c5", "r5", "GREEN", time.Date(2026, 2, 8, 12, 0, 0, 0, time.UTC))
	seedCompleteAssessments(t, mem, "c5")

	w := Window{
		Start: time.Date(2026, 2, 8, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC),
	}
	m, err := newService(mem).FleetMetrics(ctx, w)
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	if m.ChangePercentage == nil {
		t.Fatalf("bounded windows must carry a change percentage")
	}
	// Current ready+risk is 3, the prior day had 1.
	if *m.ChangePercentage != 200 {
		t.Fatalf("change pct: got %d, want 200", *m.ChangePercentage)
	}
}

func TestFleetMetricsAllTimeOmitsChange(t *testing.T) {
	mem := store.NewMemory()
	seedCheck(t, mem, "c1", "r1", "YELLOW", time.Date(2026, 2, 9, 9, 0, 0, 0, time.UTC))

	m, err := newService(mem).FleetMetrics(context.Background(), Window{AllTime: true})
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	if m.ChangePercentage != nil {
		t.Fatalf("all-time has no prior day to compare against")
	}
}

func TestFleetMetricsLatestPerRiderWins(t *testing.T) {
	mem := store.NewMemory()
	seedCheck(t, mem, "old", "r1", "RED", time.Date(2026, 2, 9, 8, 0, 0, 0, time.UTC))
	seedCheck(t, mem, "new", "r1", "YELLOW", time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC))

	m, err := newService(mem).FleetMetrics(context.Background(), dayWindow(t, "2026-02-09"))
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	if m.FleetReadiness.Red != 0 || m.FleetReadiness.Yellow != 1 {
		t.Fatalf("the rider's newer check must supersede the older one: %+v", m.FleetReadiness)
	}
}

type failingRoster struct{}

func (failingRoster) CountRiders(context.Context) (int, error) {
	return 0, errors.New("roster offline")
}

func TestTotalActivePolicies(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	day := time.Date(2026, 2, 9, 9, 0, 0, 0, time.UTC)
	seedCheck(t, mem, "c1", "r1", "GREEN", day)
	seedCompleteAssessments(t, mem, "c1")
	seedCheck(t, mem, "c2", "r2", "YELLOW", day)
	seedCheck(t, mem, "c3", "r3", "RED", day)

	svc := newService(mem)

	svc.Policy = TotalDistinctRiders
	m, err := svc.FleetMetrics(ctx, dayWindow(t, "2026-02-09"))
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	if m.TotalActiveRiders != 3 {
		t.Fatalf("distinct_riders: got %d, want 3", m.TotalActiveRiders)
	}

	svc.Policy = TotalRoster
	m, err = svc.FleetMetrics(ctx, dayWindow(t, "2026-02-09"))
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	if m.TotalActiveRiders != 3 {
		t.Fatalf("roster count: got %d, want 3", m.TotalActiveRiders)
	}

	svc.Roster = failingRoster{}
	m, err = svc.FleetMetrics(ctx, dayWindow(t, "2026-02-09"))
	if err != nil {
		t.Fatalf("a roster failure must not fail the query: %v", err)
	}
	if m.TotalActiveRiders != 3 {
		t.Fatalf("roster fallback should be the bucket sum, got %d", m.TotalActiveRiders)
	}
}

func TestParseTotalActivePolicy(t *testing.T) {
	if p, err := ParseTotalActivePolicy(""); err != nil || p != TotalReadyPlusRisk {
		t.Fatalf("empty should default: %v %v", p, err)
	}
	if p, err := ParseTotalActivePolicy(" Roster "); err != nil || p != TotalRoster {
		t.Fatalf("policy names are case/space insensitive: %v %v", p, err)
	}
	if _, err := ParseTotalActivePolicy("everyone"); err == nil {
		t.Fatalf("unknown policy must error")
	}
}
