package preheat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"quotation-replay/cache"
	"quotation-replay/calendar"
)

// The production K/V client must keep satisfying the task surface
var _ Store = (*cache.RedisClient)(nil)

type fakeStore struct {
	mu   sync.Mutex
	data map[string]string
	err  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (f *fakeStore) SetString(ctx context.Context, key, value string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.data[key] = value
	return nil
}

type fakeHistory struct {
	closes  map[string][]float64 // chronological, newest last
	symbols []string
}

func (f *fakeHistory) CloseOn(ctx context.Context, windCode string, day time.Time) (float64, error) {
	closes, ok := f.closes[windCode]
	if !ok || len(closes) == 0 {
		return 0, errors.New("no close")
	}
	return closes[len(closes)-1], nil
}

func (f *fakeHistory) DailyCloses(ctx context.Context, windCode string, before time.Time, n int) ([]float64, error) {
	closes := f.closes[windCode]
	if len(closes) > n {
		closes = closes[len(closes)-n:]
	}
	return closes, nil
}

func (f *fakeHistory) ActiveSymbols(ctx context.Context, before time.Time) ([]string, error) {
	return f.symbols, nil
}

type stubTask struct {
	id    string
	count int
	err   error
	order *[]string
}

func (t *stubTask) ID() string { return t.id }

func (t *stubTask) Run(ctx context.Context, targetDate time.Time, symbols []string) (int, error) {
	*t.order = append(*t.order, t.id)
	return t.count, t.err
}

func TestRegistryRunsSequentiallyAndSurvivesFailure(t *testing.T) {
	var order []string
	reg := NewRegistry(
		&stubTask{id: "A", count: 50, order: &order},
		&stubTask{id: "B", err: errors.New("boom"), order: &order},
		&stubTask{id: "C", count: 7, order: &order},
	)

	err := reg.RunAll(context.Background(), time.Now(), nil)
	if err != nil {
		t.Fatalf("task failure must not abort the registry: %v", err)
	}

	want := []string{"A", "B", "C"}
	if len(order) != len(want) {
		t.Fatalf("expected %d task runs, got %d", len(want), len(order))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("task %d: expected %s, got %s", i, want[i], order[i])
		}
	}
}

func TestRegistryFatalAborts(t *testing.T) {
	var order []string
	reg := NewRegistry(
		&stubTask{id: "A", err: fmt.Errorf("kv down: %w", ErrFatal), order: &order},
		&stubTask{id: "B", order: &order},
	)

	if err := reg.RunAll(context.Background(), time.Now(), nil); !errors.Is(err, ErrFatal) {
		t.Fatalf("expected fatal error to propagate, got %v", err)
	}
	if len(order) != 1 {
		t.Errorf("tasks after a fatal failure must not run, ran %v", order)
	}
}

func TestIndexPreCloseTask(t *testing.T) {
	store := newFakeStore()
	hist := &fakeHistory{closes: map[string][]float64{
		"000300.SH": {3840.0, 3850.25},
		"399001.SZ": {10500.5},
	}}
	cal := calendar.New(nil)
	task := NewIndexPreCloseTask(store, hist, cal, []string{"000300.SH", "399001.SZ", "000905.SH"})

	// Monday: previous trading day resolution crosses the weekend
	target := time.Date(2026, 1, 19, 0, 0, 0, 0, time.Local)
	count, err := task.Run(context.Background(), target, nil)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	// 000905.SH has no history: skipped, not fatal
	if count != 2 {
		t.Errorf("expected 2 keys written, got %d", count)
	}
	if got := store.data[cache.IndexPreCloseKey("000300.SH")]; got != "3850.25" {
		t.Errorf("expected decimal string 3850.25, got %q", got)
	}
	if got := store.data[cache.IndexPreCloseKey("399001.SZ")]; got != "10500.5" {
		t.Errorf("expected decimal string 10500.5, got %q", got)
	}
}

func TestClosesWarmers(t *testing.T) {
	mkCloses := func(n int) []float64 {
		out := make([]float64, n)
		for i := range out {
			out[i] = 100 + float64(i)
		}
		return out
	}

	hist := &fakeHistory{
		closes: map[string][]float64{
			"000001.SZ": mkCloses(80),
			"600519.SH": mkCloses(10), // short history still written
		},
		symbols: []string{"000001.SZ", "600519.SH"},
	}
	target := time.Date(2026, 1, 19, 0, 0, 0, 0, time.Local)

	tests := []struct {
		name    string
		mkTask  func(store Store) Task
		key     string
		wantLen int
	}{
		{"moving average 59", func(s Store) Task { return NewMovingAverageTask(s, hist) }, cache.MovingAvgKey("000001.SZ"), 59},
		{"nine turn 20", func(s Store) Task { return NewNineTurnTask(s, hist) }, cache.NineTurnKey("000001.SZ"), 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			task := tt.mkTask(store)

			// Empty allow-list falls back to the active universe
			count, err := task.Run(context.Background(), target, nil)
			if err != nil {
				t.Fatalf("run failed: %v", err)
			}
			if count != 2 {
				t.Errorf("expected 2 keys, got %d", count)
			}

			var closes []float64
			if err := json.Unmarshal([]byte(store.data[tt.key]), &closes); err != nil {
				t.Fatalf("stored value is not a JSON array: %v", err)
			}
			if len(closes) != tt.wantLen {
				t.Errorf("expected %d closes, got %d", tt.wantLen, len(closes))
			}
			// Newest last
			if closes[len(closes)-1] != 179 {
				t.Errorf("expected newest close 179 last, got %v", closes[len(closes)-1])
			}
		})
	}
}

func TestClosesWarmerHonorsAllowList(t *testing.T) {
	store := newFakeStore()
	hist := &fakeHistory{
		closes:  map[string][]float64{"000001.SZ": {10, 11}, "600519.SH": {1700, 1720}},
		symbols: []string{"000001.SZ", "600519.SH"},
	}
	task := NewNineTurnTask(store, hist)

	count, err := task.Run(context.Background(), time.Now(), []string{"600519.SH"})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 key, got %d", count)
	}
	if _, ok := store.data[cache.NineTurnKey("000001.SZ")]; ok {
		t.Error("symbol outside the allow-list must not be warmed")
	}
}
