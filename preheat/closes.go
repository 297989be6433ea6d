package preheat

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"quotation-replay/cache"
)

// closesWarmer is the shared shape of the two strategy history
// warmers: write the prior N daily closes per symbol as a JSON array,
// newest last.
type closesWarmer struct {
	id    string
	store Store
	hist  HistorySource
	depth int
	keyFn func(windCode string) string
}

// NewMovingAverageTask warms strategy:ma:{windCode} with the prior 59
// daily closes feeding the multi-horizon moving-average strategy.
func NewMovingAverageTask(store Store, hist HistorySource) Task {
	return &closesWarmer{
		id:    "moving-average",
		store: store,
		hist:  hist,
		depth: 59,
		keyFn: cache.MovingAvgKey,
	}
}

// NewNineTurnTask warms strategy:nineturn:{windCode} with the prior 20
// daily closes feeding the nine-turn sequence strategy.
func NewNineTurnTask(store Store, hist HistorySource) Task {
	return &closesWarmer{
		id:    "nine-turn",
		store: store,
		hist:  hist,
		depth: 20,
		keyFn: cache.NineTurnKey,
	}
}

func (t *closesWarmer) ID() string { return t.id }

// Run warms one key per symbol. An empty allow-list means every symbol
// active in the history store. Symbols with a short history are still
// written: a partial window is more useful to the strategy engine than
// a miss.
func (t *closesWarmer) Run(ctx context.Context, targetDate time.Time, symbols []string) (int, error) {
	if len(symbols) == 0 {
		var err error
		symbols, err = t.hist.ActiveSymbols(ctx, targetDate)
		if err != nil {
			return 0, err
		}
	}

	count := 0
	for _, code := range symbols {
		if err := ctx.Err(); err != nil {
			return count, err
		}

		closes, err := t.hist.DailyCloses(ctx, code, targetDate, t.depth)
		if err != nil {
			log.Printf("⚠️  Close history unavailable for %s: %v", code, err)
			continue
		}
		if len(closes) == 0 {
			continue
		}

		value, err := json.Marshal(closes)
		if err != nil {
			continue
		}
		if err := t.store.SetString(ctx, t.keyFn(code), string(value), cache.PreheatTTL); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}
