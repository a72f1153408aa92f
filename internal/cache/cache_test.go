package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type payload struct {
	Value int `json:"value"`
}

func TestDoCachesWithinTTL(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 2, 9, 8, 0, 0, 0, time.UTC)}
	rc := New(NewMemoryBackend(clock.Now))
	ctx := context.Background()

	computed := 0
	compute := func() (any, error) {
		computed++
		return payload{Value: computed}, nil
	}

	var got payload
	if err := rc.Do(ctx, "k", time.Minute, &got, compute); err != nil {
		t.Fatalf("first do: %v", err)
	}
	if got.Value != 1 || computed != 1 {
		t.Fatalf("expected one computation, got value=%d computed=%d", got.Value, computed)
	}

	clock.Advance(30 * time.Second)
	if err := rc.Do(ctx, "k", time.Minute, &got, compute); err != nil {
		t.Fatalf("second do: %v", err)
	}
	if got.Value != 1 || computed != 1 {
		t.Fatalf("fresh entry must be served from cache, computed=%d", computed)
	}
}

func TestDoRecomputesAfterExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 2, 9, 8, 0, 0, 0, time.UTC)}
	rc := New(NewMemoryBackend(clock.Now))
	ctx := context.Background()

	computed := 0
	compute := func() (any, error) {
		computed++
		return payload{Value: computed}, nil
	}

	var got payload
	if err := rc.Do(ctx, "k", time.Minute, &got, compute); err != nil {
		t.Fatalf("do: %v", err)
	}
	clock.Advance(time.Minute)
	if err := rc.Do(ctx, "k", time.Minute, &got, compute); err != nil {
		t.Fatalf("do after expiry: %v", err)
	}
	if computed != 2 || got.Value != 2 {
		t.Fatalf("expired entry must recompute exactly once, computed=%d value=%d", computed, got.Value)
	}
}

func TestDoKeysAreIndependent(t *testing.T) {
	rc := New(NewMemoryBackend(nil))
	ctx := context.Background()

	var a, b payload
	if err := rc.Do(ctx, "a", time.Minute, &a, func() (any, error) { return payload{Value: 1}, nil }); err != nil {
		t.Fatalf("do a: %v", err)
	}
	if err := rc.Do(ctx, "b", time.Minute, &b, func() (any, error) { return payload{Value: 2}, nil }); err != nil {
		t.Fatalf("do b: %v", err)
	}
	if a.Value != 1 || b.Value != 2 {
		t.Fatalf("keys leaked: a=%d b=%d", a.Value, b.Value)
	}
}

func TestDoComputeErrorNotCached(t *testing.T) {
	rc := New(NewMemoryBackend(nil))
	ctx := context.Background()

	boom := errors.New("boom")
	err := rc.Do(ctx, "k", time.Minute, &payload{}, func() (any, error) { return nil, boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected compute error, got %v", err)
	}

	var got payload
	if err := rc.Do(ctx, "k", time.Minute, &got, func() (any, error) { return payload{Value: 7}, nil }); err != nil {
		t.Fatalf("do after failure: %v", err)
	}
	if got.Value != 7 {
		t.Fatalf("failures must not poison the key, got %d", got.Value)
	}
}

func TestDoCollapsesConcurrentCallers(t *testing.T) {
	rc := New(NewMemoryBackend(nil))
	ctx := context.Background()

	var computations int32
	release := make(chan struct{})
	compute := func() (any, error) {
		atomic.AddInt32(&computations, 1)
		<-release
		return payload{Value: 42}, nil
	}

	const callers = 8
	var wg sync.WaitGroup
	results := make([]payload, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = rc.Do(ctx, "k", time.Minute, &results[i], compute)
		}(i)
	}

	// Give every goroutine a chance to reach the flight before releasing it.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if results[i].Value != 42 {
			t.Fatalf("caller %d got %d", i, results[i].Value)
		}
	}
	if n := atomic.LoadInt32(&computations); n != 1 {
		t.Fatalf("concurrent callers must collapse to one computation, got %d", n)
	}
}
