// Package preheat warms the shared K/V store with derived historical
// state before a replay run starts emitting.
package preheat

import (
	"context"
	"errors"
	"log"
	"time"

	"quotation-replay/metrics"
)

// Store is the K/V surface the warmup tasks write through
type Store interface {
	SetString(ctx context.Context, key, value string, ttl time.Duration) error
}

// HistorySource provides the daily-close history the tasks derive from
type HistorySource interface {
	CloseOn(ctx context.Context, windCode string, day time.Time) (float64, error)
	DailyCloses(ctx context.Context, windCode string, before time.Time, n int) ([]float64, error)
	ActiveSymbols(ctx context.Context, before time.Time) ([]string, error)
}

// Task is one warmup unit. Run returns the number of keys written.
type Task interface {
	ID() string
	Run(ctx context.Context, targetDate time.Time, symbols []string) (int, error)
}

// ErrFatal marks a task failure the run must not survive. Ordinary
// task errors are logged and skipped: downstream consumers read the
// preheated keys cache-aside and tolerate misses.
var ErrFatal = errors.New("fatal preheat failure")

// slowTaskThreshold triggers a log line for tasks that overstay
const slowTaskThreshold = 60 * time.Second

// Registry holds the fixed set of warmup tasks, resolved once at
// startup and run sequentially in registration order.
type Registry struct {
	tasks []Task
}

// NewRegistry builds the registry from an explicit task list
func NewRegistry(tasks ...Task) *Registry {
	return &Registry{tasks: tasks}
}

// RunAll executes every task in order. Per-task failures are logged
// with the task id and skipped; only an ErrFatal aborts the run.
func (r *Registry) RunAll(ctx context.Context, targetDate time.Time, symbols []string) error {
	log.Printf("🔥 Preheating %d tasks for %s...", len(r.tasks), targetDate.Format("20060102"))

	for _, task := range r.tasks {
		started := time.Now()
		count, err := task.Run(ctx, targetDate, symbols)
		elapsed := time.Since(started)

		if elapsed > slowTaskThreshold {
			log.Printf("⚠️  Preheat task %s took %v", task.ID(), elapsed)
		}
		if err != nil {
			if errors.Is(err, ErrFatal) {
				return err
			}
			log.Printf("⚠️  Preheat task %s failed, continuing: %v", task.ID(), err)
			continue
		}

		metrics.AddPreheatKeys(task.ID(), count)
		log.Printf("✅ Preheat task %s wrote %d keys in %v", task.ID(), count, elapsed)
	}
	return nil
}
