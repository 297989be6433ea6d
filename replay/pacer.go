package replay

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"quotation-replay/broker"
	"quotation-replay/calendar"
	"quotation-replay/helpers"
	"quotation-replay/metrics"
)

// tickInterval is the wall-clock cadence of the virtual clock
const tickInterval = 100 * time.Millisecond

// pacer owns the virtual clock. Each tick it advances virtual time by
// elapsed wall time times the speed multiplier, drains due records from
// the buffer and hands them to the publisher. Speed 0 disables pacing
// entirely and jumps the clock past each drained batch.
type pacer struct {
	buf        *Buffer
	pub        Publisher
	sink       stateSink
	tap        Tap // optional
	speed      int
	indexCodes map[string]bool
	endClose   time.Time // session close on the last replay day
}

func (p *pacer) run(ctx context.Context) error {
	if p.speed == 0 {
		return p.runMaxSpeed(ctx)
	}

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	var virtualNow time.Time
	var currentDay time.Time
	lastTick := time.Now()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		now := time.Now()
		elapsed := now.Sub(lastTick)
		lastTick = now

		if virtualNow.IsZero() {
			// The clock starts at the first record of the day
			head, ok := p.buf.PeekTime()
			if !ok {
				if p.buf.Drained() {
					return p.complete()
				}
				continue // loader still warming up
			}
			virtualNow = head
			currentDay = dayOf(head)
			log.Printf("🕑 Virtual clock started at %s (speed %dx)",
				helpers.FormatDateTime(virtualNow), p.speed)
		} else {
			virtualNow = virtualNow.Add(time.Duration(p.speed) * elapsed)
		}

		p.emit(ctx, p.buf.DrainDue(virtualNow), virtualNow)
		p.sink.setVirtualTime(virtualNow)
		metrics.SetBufferDepth(p.buf.Len())

		// Day boundary: once virtual time passes the session close,
		// jump to the first record of the next loaded day. Non-trading
		// days never appear in the buffer, so they are skipped for free.
		dayClose := calendar.SessionClose(currentDay)
		if virtualNow.After(dayClose) {
			if head, ok := p.buf.PeekTime(); ok && head.After(dayClose) {
				currentDay = dayOf(head)
				virtualNow = head
				p.sink.setVirtualTime(virtualNow)
				log.Printf("📅 Advancing virtual clock to %s", helpers.FormatDateTime(head))
			} else if !ok && p.buf.Drained() && virtualNow.After(p.endClose) {
				return p.complete()
			}
		}
	}
}

// runMaxSpeed drains as fast as the publisher allows, jumping virtual
// time to one second past the last drained record.
func (p *pacer) runMaxSpeed(ctx context.Context) error {
	var virtualNow time.Time

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		head, ok := p.buf.PeekTime()
		if !ok {
			if p.buf.Drained() {
				return p.complete()
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(5 * time.Millisecond):
			}
			continue
		}

		if virtualNow.Before(head) {
			virtualNow = head
		}
		due := p.buf.DrainDue(virtualNow)
		p.emit(ctx, due, virtualNow)
		if len(due) > 0 {
			virtualNow = due[len(due)-1].TradeTime.Add(time.Second)
			p.sink.setVirtualTime(virtualNow)
		}
		metrics.SetBufferDepth(p.buf.Len())
	}
}

// emit publishes each record, routing indices and stocks to their
// topics. Publish failures drop the record; emission is at-most-once
// and the pipeline never stalls on the broker.
func (p *pacer) emit(ctx context.Context, due []Record, virtualNow time.Time) {
	for _, rec := range due {
		// Finish the in-flight record on cancellation, skip the rest
		if ctx.Err() != nil {
			return
		}

		payload, err := rec.Payload()
		if err != nil {
			log.Printf("⚠️  Dropping malformed record %s@%s: %v",
				rec.WindCode, helpers.FormatDateTime(rec.TradeTime), err)
			p.sink.addDropped(1)
			metrics.IncDropped("encode")
			continue
		}

		topic := broker.TopicStock
		if p.indexCodes[rec.WindCode] {
			topic = broker.TopicIndex
		}

		// The publisher owns its retry budget; cancellation must not
		// cut off a record already handed over.
		if err := p.pub.Publish(context.WithoutCancel(ctx), topic, rec.WindCode, payload); err != nil {
			log.Printf("⚠️  Dropping record %s@%s after publish retries: %v",
				rec.WindCode, helpers.FormatDateTime(rec.TradeTime), err)
			p.sink.addDropped(1)
			metrics.IncDropped("publish")
			continue
		}

		p.sink.addEmitted(1)
		metrics.IncEmitted(topic)
		if p.tap != nil {
			p.tap.Broadcast("quotation", json.RawMessage(payload))
		}
	}

	if n := len(due); n > 0 {
		metrics.SetVirtualLag(virtualNow.Sub(due[n-1].TradeTime).Seconds())
	}
}

func (p *pacer) complete() error {
	log.Println("✅ Replay complete, all buffered records emitted")
	if p.tap != nil {
		p.tap.Broadcast("replay_complete", nil)
	}
	return nil
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
