package replay

import (
	"context"
	"testing"
	"time"

	"quotation-replay/broker"
	"quotation-replay/calendar"
)

func newTestPacer(buf *Buffer, pub Publisher, sink stateSink, speed int, endDay time.Time) *pacer {
	return &pacer{
		buf:        buf,
		pub:        pub,
		sink:       sink,
		speed:      speed,
		indexCodes: map[string]bool{"000300.SH": true},
		endClose:   calendar.SessionClose(endDay),
	}
}

func TestPacerMaxSpeedEmitsAllInOrder(t *testing.T) {
	day := monday()
	buf := NewBuffer(1000)
	buf.Offer([]Record{
		{WindCode: "000001.SZ", TradeTime: at(day, 9, 30, 0), LatestPrice: 10.0},
		{WindCode: "000001.SZ", TradeTime: at(day, 9, 30, 1), LatestPrice: 10.1},
		{WindCode: "000001.SZ", TradeTime: at(day, 9, 30, 2), LatestPrice: 10.2},
	})
	buf.Close()

	pub := &fakePublisher{}
	sink := &fakeSink{}
	p := newTestPacer(buf, pub, sink, 0, day)

	if err := p.run(context.Background()); err != nil {
		t.Fatalf("pacer failed: %v", err)
	}

	msgs := pub.published()
	if len(msgs) != 3 {
		t.Fatalf("expected 3 publishes, got %d", len(msgs))
	}
	for i, msg := range msgs {
		if msg.topic != broker.TopicStock {
			t.Errorf("msg %d: expected topic %s, got %s", i, broker.TopicStock, msg.topic)
		}
		if msg.key != "000001.SZ" {
			t.Errorf("msg %d: expected key 000001.SZ, got %s", i, msg.key)
		}
	}

	if emitted, dropped := sink.counts(); emitted != 3 || dropped != 0 {
		t.Errorf("expected 3 emitted / 0 dropped, got %d / %d", emitted, dropped)
	}
}

func TestPacerRoutesIndexTopic(t *testing.T) {
	day := monday()
	buf := NewBuffer(1000)
	buf.Offer([]Record{
		{WindCode: "000300.SH", TradeTime: at(day, 9, 30, 0), LatestPrice: 3850.25},
		{WindCode: "600519.SH", TradeTime: at(day, 9, 30, 0), LatestPrice: 1720.0},
	})
	buf.Close()

	pub := &fakePublisher{}
	p := newTestPacer(buf, pub, &fakeSink{}, 0, day)

	if err := p.run(context.Background()); err != nil {
		t.Fatalf("pacer failed: %v", err)
	}

	msgs := pub.published()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 publishes, got %d", len(msgs))
	}
	if msgs[0].topic != broker.TopicIndex {
		t.Errorf("expected index topic for 000300.SH, got %s", msgs[0].topic)
	}
	if msgs[1].topic != broker.TopicStock {
		t.Errorf("expected stock topic for 600519.SH, got %s", msgs[1].topic)
	}
}

func TestPacerNoEarlyEmission(t *testing.T) {
	day := monday()
	buf := NewBuffer(1000)
	buf.Offer([]Record{
		{WindCode: "000001.SZ", TradeTime: at(day, 9, 30, 0)},
		{WindCode: "000001.SZ", TradeTime: at(day, 9, 30, 5)}, // 5s of virtual time away
	})
	buf.Close()

	pub := &fakePublisher{}
	p := newTestPacer(buf, pub, &fakeSink{}, 1, day)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	p.run(ctx)

	// At 1x only ~0.5s of virtual time elapsed; the second record must
	// still be buffered
	if got := len(pub.published()); got != 1 {
		t.Errorf("expected only the due record emitted, got %d", got)
	}
}

func TestPacerSpeedMultiplier(t *testing.T) {
	day := monday()
	buf := NewBuffer(1000)
	buf.Offer([]Record{
		{WindCode: "000001.SZ", TradeTime: at(day, 9, 30, 0)},
		{WindCode: "000001.SZ", TradeTime: at(day, 9, 30, 1)},
		{WindCode: "000001.SZ", TradeTime: at(day, 9, 30, 2)},
		{WindCode: "000001.SZ", TradeTime: at(day, 9, 30, 3)},
	})
	buf.Close()

	pub := &fakePublisher{}
	p := newTestPacer(buf, pub, &fakeSink{}, 20, day)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.run(ctx)
		close(done)
	}()

	// 3s of virtual spread at 20x is 150ms of wall time; allow margin
	// for tick granularity
	deadline := time.After(2 * time.Second)
	for {
		if len(pub.published()) == 4 {
			break
		}
		select {
		case <-deadline:
			cancel()
			t.Fatalf("expected 4 publishes, got %d", len(pub.published()))
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()
	<-done

	msgs := pub.published()
	for i := 1; i < len(msgs); i++ {
		if string(msgs[i].payload) == string(msgs[i-1].payload) {
			t.Errorf("duplicate emission at %d", i)
		}
	}
}

func TestPacerAdvancesToNextDay(t *testing.T) {
	day1 := monday()
	day2 := day1.AddDate(0, 0, 1)
	buf := NewBuffer(1000)
	buf.Offer([]Record{
		{WindCode: "000001.SZ", TradeTime: at(day1, 15, 29, 59)},
		{WindCode: "000001.SZ", TradeTime: at(day2, 9, 30, 0)},
	})
	buf.Close()

	pub := &fakePublisher{}
	sink := &fakeSink{}
	// 36000x: one 100ms tick crosses the session close, the day jump
	// resets the clock to the head of day two
	p := newTestPacer(buf, pub, sink, 36000, day2)

	done := make(chan error, 1)
	go func() { done <- p.run(context.Background()) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("pacer failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("pacer did not complete across the day boundary")
	}

	if got := len(pub.published()); got != 2 {
		t.Errorf("expected both days' records emitted, got %d", got)
	}
}

func TestPacerDropsOnPublishFailure(t *testing.T) {
	day := monday()
	buf := NewBuffer(1000)
	buf.Offer([]Record{
		{WindCode: "000001.SZ", TradeTime: at(day, 9, 30, 0)},
		{WindCode: "000001.SZ", TradeTime: at(day, 9, 30, 1)},
	})
	buf.Close()

	pub := &fakePublisher{fail: 1}
	sink := &fakeSink{}
	p := newTestPacer(buf, pub, sink, 0, day)

	if err := p.run(context.Background()); err != nil {
		t.Fatalf("pacer failed: %v", err)
	}

	// First record dropped, pipeline keeps going
	if emitted, dropped := sink.counts(); emitted != 1 || dropped != 1 {
		t.Errorf("expected 1 emitted / 1 dropped, got %d / %d", emitted, dropped)
	}
}

func TestPacerPayloadWireFormat(t *testing.T) {
	rec := Record{
		WindCode:     "000300.SH",
		TradeTime:    time.Date(2026, 1, 18, 13, 1, 1, 0, time.Local),
		LatestPrice:  3850.25,
		AveragePrice: 3845.50,
		TotalVolume:  1234567890.0,
	}

	payload, err := rec.Payload()
	if err != nil {
		t.Fatalf("payload failed: %v", err)
	}

	want := `{"windCode":"000300.SH","tradeDate":"2026-01-18 13:01:01","latestPrice":3850.25,"totalVolume":1234567890,"averagePrice":3845.5}`
	if string(payload) != want {
		t.Errorf("payload mismatch:\n got %s\nwant %s", payload, want)
	}
}
