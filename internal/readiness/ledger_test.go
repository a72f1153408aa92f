package readiness

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/fleetready/backend/internal/models"
	"github.com/fleetready/backend/internal/store"
)

// newLedgerFixture seeds n checks one minute apart, alternating GREEN/YELLOW.
func newLedgerFixture(t *testing.T, n int) (*Service, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	svc := newService(mem)
	base := time.Date(2026, 2, 9, 8, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		status := "GREEN"
		if i%2 == 1 {
			status = "YELLOW"
		}
		seedCheck(t, mem, fmt.Sprintf("check-%d", i), fmt.Sprintf("rider-%d", i), status, base.Add(time.Duration(i)*time.Minute))
	}
	return svc, mem
}

func itemIDs(items []models.LedgerItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.CheckID)
	}
	return out
}

func TestLedgerPagination(t *testing.T) {
	ctx := context.Background()
	svc, _ := newLedgerFixture(t, 7)

	var joined []string
	for page := 1; page <= 3; page++ {
		p, err := svc.Ledger(ctx, page, 3, LedgerFilter{})
		if err != nil {
			t.Fatalf("page %d: %v", page, err)
		}
		want := 3
		if page == 3 {
			want = 1
		}
		if len(p.Items) != want {
			t.Fatalf("page %d: got %d items, want %d", page, len(p.Items), want)
		}
		joined = append(joined, itemIDs(p.Items)...)
	}

	// Pages concatenated must equal one big page over the same order.
	all, err := svc.Ledger(ctx, 1, 9, LedgerFilter{})
	if err != nil {
		t.Fatalf("full page: %v", err)
	}
	full := itemIDs(all.Items)
	if len(joined) != len(full) {
		t.Fatalf("paged walk returned %d rows, full page %d", len(joined), len(full))
	}
	for i := range full {
		if joined[i] != full[i] {
			t.Fatalf("row %d differs across paginations: %s vs %s", i, joined[i], full[i])
		}
	}

	// Order is resolved-timestamp descending.
	for i := 1; i < len(all.Items); i++ {
		if all.Items[i].UpdatedAt > all.Items[i-1].UpdatedAt {
			t.Fatalf("ledger not descending at row %d", i)
		}
	}
}

func TestLedgerFilters(t *testing.T) {
	ctx := context.Background()
	svc, _ := newLedgerFixture(t, 6)

	byRider, err := svc.Ledger(ctx, 1, 10, LedgerFilter{RiderID: "rider-2"})
	if err != nil {
		t.Fatalf("rider filter: %v", err)
	}
	if len(byRider.Items) != 1 || byRider.Items[0].RiderID != "rider-2" {
		t.Fatalf("unexpected rider filter result %+v", byRider.Items)
	}

	byStatus, err := svc.Ledger(ctx, 1, 10, LedgerFilter{Status: "yellow"})
	if err != nil {
		t.Fatalf("status filter: %v", err)
	}
	if len(byStatus.Items) != 3 {
		t.Fatalf("expected 3 YELLOW rows, got %d", len(byStatus.Items))
	}
	for _, it := range byStatus.Items {
		if it.Status != "YELLOW" {
			t.Fatalf("status filter leaked %+v", it)
		}
	}

	start := time.Date(2026, 2, 9, 8, 2, 30, 0, time.UTC)
	bounded, err := svc.Ledger(ctx, 1, 10, LedgerFilter{Start: &start})
	if err != nil {
		t.Fatalf("bounded: %v", err)
	}
	if len(bounded.Items) != 3 {
		t.Fatalf("expected rows 3..5, got %d", len(bounded.Items))
	}
	for _, it := range bounded.Items {
		ts, err := time.Parse(time.RFC3339, it.UpdatedAt)
		if err != nil {
			t.Fatalf("bad updated_at %q: %v", it.UpdatedAt, err)
		}
		if ts.Before(start) {
			t.Fatalf("row before lower bound: %+v", it)
		}
	}
}

func TestLedgerGreenRequiresCompleteness(t *testing.T) {
	ctx := context.Background()
	svc, mem := newLedgerFixture(t, 4)
	seedCompleteAssessments(t, mem, "check-0")

	page, err := svc.Ledger(ctx, 1, 10, LedgerFilter{Status: "GREEN"})
	if err != nil {
		t.Fatalf("green ledger: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].CheckID != "check-0" {
		t.Fatalf("GREEN filter must require complete assessments, got %+v", page.Items)
	}
}

func TestLedgerOffsetPastEnd(t *testing.T) {
	svc, _ := newLedgerFixture(t, 3)
	page, err := svc.Ledger(context.Background(), 5, 10, LedgerFilter{})
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	if len(page.Items) != 0 {
		t.Fatalf("a page past the end is empty, got %d rows", len(page.Items))
	}
	if page.Page != 5 || page.Limit != 10 {
		t.Fatalf("page metadata must echo the request, got %+v", page)
	}
}

func TestRecent(t *testing.T) {
	svc, _ := newLedgerFixture(t, 6)
	items, err := svc.Recent(context.Background(), 3)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	if items[0].CheckID != "check-5" {
		t.Fatalf("newest check first, got %+v", items[0])
	}
}
