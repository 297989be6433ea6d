package replay

import (
	"context"
	"log"
	"time"

	"quotation-replay/calendar"
)

// sourceQueryTimeout bounds a single window scan against the store
const sourceQueryTimeout = 30 * time.Second

// loader walks the replay date range one trading day at a time,
// tiling each session with half-open [start, start+preload) windows
// and pushing the resulting batches into the buffer. Back-pressure
// from Buffer.Offer is its only throttle.
type loader struct {
	source QuotationSource
	buf    *Buffer
	cal    *calendar.Calendar
	params runParams
	sink   stateSink
}

func (l *loader) run(ctx context.Context) error {
	defer l.buf.Close()

	for day := l.params.startDate; !day.After(l.params.endDate); day = l.cal.NextTradingDay(day) {
		sessionClose := calendar.SessionClose(day)

		for start := calendar.SessionOpen(day); start.Before(sessionClose); {
			if err := ctx.Err(); err != nil {
				return err
			}

			end := start.Add(l.params.preload)
			if end.After(sessionClose) {
				end = sessionClose
			}
			w := Window{Start: start, End: end}

			records, err := l.loadWindow(ctx, w)
			if err != nil {
				return err
			}
			l.sink.setLastWindow(w)

			if len(records) > 0 {
				// Offer blocks on back-pressure; holds no lock across it
				if err := l.buf.Offer(records); err != nil {
					return err
				}
			}
			start = end
		}
	}
	return nil
}

// loadWindow queries one window, applying the boundary rule and a
// single retry on source failure.
//
// Windows are half-open but the store query is closed on both ends, so
// the query upper bound is pulled back one second whenever the window
// end sits on a minute mark. The session close is exempt: it is the
// final instant of the day and must be included exactly once.
func (l *loader) loadWindow(ctx context.Context, w Window) ([]Record, error) {
	queryEnd := w.End
	if !isSessionClose(queryEnd) && queryEnd.Second() == 0 {
		queryEnd = queryEnd.Add(-time.Second)
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		qctx, cancel := context.WithTimeout(ctx, sourceQueryTimeout)
		records, err := l.source.GetByTimeRange(qctx, w.Start, queryEnd, l.params.codes)
		cancel()
		if err == nil {
			return records, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Printf("⚠️  Window %s query failed (attempt %d): %v", w, attempt+1, err)
	}
	return nil, &LoadError{Window: w, Err: lastErr}
}

func isSessionClose(t time.Time) bool {
	return t.Hour() == calendar.SessionCloseHour &&
		t.Minute() == calendar.SessionCloseMinute &&
		t.Second() == 0
}
