package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// flakyBackend wraps Memory and fails reads and/or writes on demand.
type flakyBackend struct {
	*Memory
	failGet bool
	failSet bool
}

func (f *flakyBackend) Get(ctx context.Context, key string) (string, bool, error) {
	if f.failGet {
		return "", false, errors.New("backend down")
	}
	return f.Memory.Get(ctx, key)
}

func (f *flakyBackend) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if f.failSet {
		return errors.New("backend down")
	}
	return f.Memory.Set(ctx, key, value, ttl)
}

func counter(value string, calls *int32) ComputeFunc {
	return func(context.Context) (string, error) {
		atomic.AddInt32(calls, 1)
		return value, nil
	}
}

func TestGetOrComputeHitSkipsCompute(t *testing.T) {
	ctx := context.Background()
	c := New(NewMemory())
	var calls int32

	for i := 0; i < 3; i++ {
		v, err := c.GetOrCompute(ctx, "k", time.Minute, counter("v1", &calls))
		if err != nil {
			t.Fatal(err)
		}
		if v != "v1" {
			t.Fatalf("expected v1, got %s", v)
		}
	}
	if calls != 1 {
		t.Fatalf("expected exactly one compute, got %d", calls)
	}
}

func TestGetOrComputeExpiresAfterTTL(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	mem := NewMemory(WithClock(func() time.Time { return now }))
	c := New(mem)
	var calls int32

	if _, err := c.GetOrCompute(ctx, "k", 60*time.Second, counter("v", &calls)); err != nil {
		t.Fatal(err)
	}
	now = now.Add(59 * time.Second)
	if _, err := c.GetOrCompute(ctx, "k", 60*time.Second, counter("v", &calls)); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Fatalf("expected hit before expiry, got %d computes", calls)
	}
	now = now.Add(time.Second)
	if _, err := c.GetOrCompute(ctx, "k", 60*time.Second, counter("v", &calls)); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Fatalf("expected recompute at expiry, got %d computes", calls)
	}
}

func TestGetOrComputeComputeErrorNotStored(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	c := New(mem)
	want := errors.New("sheet unavailable")

	_, err := c.GetOrCompute(ctx, "k", time.Minute, func(context.Context) (string, error) { return "", want })
	if !errors.Is(err, want) {
		t.Fatalf("expected compute error, got %v", err)
	}
	if mem.Len() != 0 {
		t.Fatalf("expected nothing stored, got %d entries", mem.Len())
	}
}

func TestGetFailureBehavesAsMiss(t *testing.T) {
	ctx := context.Background()
	b := &flakyBackend{Memory: NewMemory()}
	c := New(b)
	var calls int32

	if _, err := c.GetOrCompute(ctx, "k", time.Minute, counter("stale", &calls)); err != nil {
		t.Fatal(err)
	}
	b.failGet = true
	v, err := c.GetOrCompute(ctx, "k", time.Minute, counter("fresh", &calls))
	if err != nil {
		t.Fatalf("expected read outage to be non-fatal, got %v", err)
	}
	if v != "fresh" {
		t.Fatalf("expected freshly computed value, got %s", v)
	}
	if calls != 2 {
		t.Fatalf("expected recompute on read outage, got %d", calls)
	}
}

func TestSetFailureIgnored(t *testing.T) {
	ctx := context.Background()
	b := &flakyBackend{Memory: NewMemory(), failSet: true}
	c := New(b)
	var calls int32

	v, err := c.GetOrCompute(ctx, "k", time.Minute, counter("v", &calls))
	if err != nil || v != "v" {
		t.Fatalf("expected value despite write outage, got %q, %v", v, err)
	}
	if b.Len() != 0 {
		t.Fatalf("expected nothing stored")
	}
}

func TestGetOrComputeJSON(t *testing.T) {
	type payload struct {
		Dates []string `json:"dates"`
	}
	ctx := context.Background()
	mem := NewMemory()
	c := New(mem)
	calls := 0
	compute := func(context.Context) (payload, error) {
		calls++
		return payload{Dates: []string{"", "3/2/2024"}}, nil
	}

	first, err := GetOrComputeJSON(ctx, c, "dates", time.Minute, compute)
	if err != nil {
		t.Fatal(err)
	}
	second, err := GetOrComputeJSON(ctx, c, "dates", time.Minute, compute)
	if err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Fatalf("expected one compute, got %d", calls)
	}
	if len(second.Dates) != 2 || second.Dates[1] != first.Dates[1] {
		t.Fatalf("expected cached payload to match, got %+v", second)
	}

	// Corrupt entry: recompute and overwrite.
	_ = mem.Set(ctx, "dates", "{not json", time.Minute)
	if _, err := GetOrComputeJSON(ctx, c, "dates", time.Minute, compute); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Fatalf("expected recompute on corrupt payload, got %d", calls)
	}
}

func TestInvalidate(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	c := New(mem)
	var calls int32

	keys := NewKeys(false)
	for _, k := range []string{keys.DateRow(), keys.EventInfo(3), "unrelated"} {
		if _, err := c.GetOrCompute(ctx, k, time.Hour, counter("v", &calls)); err != nil {
			t.Fatal(err)
		}
	}
	if err := c.Invalidate(ctx, keys.Derived(10)); err != nil {
		t.Fatal(err)
	}
	if mem.Len() != 1 {
		t.Fatalf("expected only the unrelated key to survive, got %d entries", mem.Len())
	}
}

func TestConcurrentMissesRecomputeIdempotently(t *testing.T) {
	ctx := context.Background()
	c := New(NewMemory())
	var calls int32
	var wg sync.WaitGroup
	results := make([]string, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.GetOrCompute(ctx, "k", time.Minute, counter("same", &calls))
			if err != nil {
				t.Error(err)
				return
			}
			results[i] = v
		}(i)
	}
	wg.Wait()
	for i, v := range results {
		if v != "same" {
			t.Fatalf("result %d: expected same, got %q", i, v)
		}
	}
	if calls < 1 {
		t.Fatalf("expected at least one compute")
	}
}

func TestKeysTestingNamespace(t *testing.T) {
	prod := NewKeys(false)
	test := NewKeys(true)
	if prod.DateRow() == test.DateRow() {
		t.Fatalf("expected distinct date row keys")
	}
	if test.EventInfo(4) != "event_info_col_testing_4" {
		t.Fatalf("unexpected testing event key %s", test.EventInfo(4))
	}
	if got := len(prod.Derived(100)); got != 104 {
		t.Fatalf("expected 104 derived keys, got %d", got)
	}
}
