package preheat

import (
	"context"
	"log"
	"strconv"
	"time"

	"quotation-replay/cache"
	"quotation-replay/calendar"
)

// IndexPreCloseTask writes each index's previous trading day close
// under index:preclose:{windCode}. The risk-control consumer reads
// these to baseline its sentiment score.
type IndexPreCloseTask struct {
	store      Store
	hist       HistorySource
	cal        *calendar.Calendar
	indexCodes []string
}

// NewIndexPreCloseTask creates the index previous-close warmer
func NewIndexPreCloseTask(store Store, hist HistorySource, cal *calendar.Calendar, indexCodes []string) *IndexPreCloseTask {
	return &IndexPreCloseTask{store: store, hist: hist, cal: cal, indexCodes: indexCodes}
}

func (t *IndexPreCloseTask) ID() string { return "index-preclose" }

// Run resolves the previous trading day relative to targetDate and
// caches one close per configured index. The replay allow-list does
// not apply: indices are warmed regardless of the symbols replayed.
func (t *IndexPreCloseTask) Run(ctx context.Context, targetDate time.Time, _ []string) (int, error) {
	prevDay := t.cal.PreviousTradingDay(targetDate)

	count := 0
	for _, code := range t.indexCodes {
		closePrice, err := t.hist.CloseOn(ctx, code, prevDay)
		if err != nil {
			log.Printf("⚠️  No previous close for index %s on %s: %v",
				code, prevDay.Format("20060102"), err)
			continue
		}

		value := strconv.FormatFloat(closePrice, 'f', -1, 64)
		if err := t.store.SetString(ctx, cache.IndexPreCloseKey(code), value, cache.PreheatTTL); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}
