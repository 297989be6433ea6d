// Package replay implements the historical quotation replay pipeline:
// a windowed loader feeding a bounded buffer drained by a virtual-clock
// pacer, coordinated by a single-run lifecycle state machine.
package replay

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"quotation-replay/helpers"
)

// Record is one quotation tick flowing through the pipeline. TradeTime
// is the authoritative ordering key.
type Record struct {
	WindCode     string
	TradeTime    time.Time
	LatestPrice  float64
	AveragePrice float64
	TotalVolume  float64
}

// wireQuotation is the published payload shape. Key names and the
// tradeDate format are part of the downstream contract; do not touch.
type wireQuotation struct {
	WindCode     string  `json:"windCode"`
	TradeDate    string  `json:"tradeDate"`
	LatestPrice  float64 `json:"latestPrice"`
	TotalVolume  float64 `json:"totalVolume"`
	AveragePrice float64 `json:"averagePrice"`
}

// Payload encodes the record into its canonical wire form
func (r Record) Payload() ([]byte, error) {
	return json.Marshal(wireQuotation{
		WindCode:     r.WindCode,
		TradeDate:    helpers.FormatDateTime(r.TradeTime),
		LatestPrice:  r.LatestPrice,
		TotalVolume:  r.TotalVolume,
		AveragePrice: r.AveragePrice,
	})
}

// Window is a half-open virtual-time interval [Start, End) used to
// batch source queries. Adjacent windows tile the day with no gaps.
type Window struct {
	Start time.Time
	End   time.Time
}

// IsZero reports whether the window is unset
func (w Window) IsZero() bool {
	return w.Start.IsZero() && w.End.IsZero()
}

func (w Window) String() string {
	if w.IsZero() {
		return ""
	}
	return fmt.Sprintf("[%s, %s)", helpers.FormatDateTime(w.Start), helpers.FormatDateTime(w.End))
}

// QuotationSource is the read-only query interface over historical
// quotations. Implementations must return records ordered by trade
// time ascending; the query bounds are closed on both ends.
type QuotationSource interface {
	GetByTimeRange(ctx context.Context, start, end time.Time, windCodes []string) ([]Record, error)
}

// Publisher hands a serialized record to the downstream event bus.
// Key is the broker partition key (the wind code).
type Publisher interface {
	Publish(ctx context.Context, topic, key string, payload []byte) error
}

// Tap receives a copy of lifecycle events and emitted records for
// monitoring clients. Implementations must never block.
type Tap interface {
	Broadcast(event string, payload interface{})
}
