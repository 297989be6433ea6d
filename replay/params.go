package replay

import (
	"fmt"
	"strings"
	"time"

	"quotation-replay/calendar"
	"quotation-replay/config"
	"quotation-replay/helpers"
)

// Params is the start-request body. Immutable after a run starts.
// SpeedMultiplier is a pointer so an omitted field can fall back to the
// configured default while an explicit 0 still means maximum speed.
type Params struct {
	StartDate       string `json:"startDate"`
	EndDate         string `json:"endDate"`
	SpeedMultiplier *int   `json:"speedMultiplier,omitempty"`
	PreloadMinutes  int    `json:"preloadMinutes,omitempty"`
	BufferMaxSize   int    `json:"bufferMaxSize,omitempty"`
	StockCodes      string `json:"stockCodes,omitempty"`
}

// runParams is the validated, normalized form used by the pipeline
type runParams struct {
	startDate time.Time // first trading day, midnight
	endDate   time.Time // last trading day, midnight
	speed     int
	preload   time.Duration
	bufMax    int
	codes     []string // nil = whole market
}

// validate applies defaults, parses dates, adjusts non-trading days
// forward, and enforces the parameter bounds.
func validate(p Params, defaults config.ReplayConfig, cal *calendar.Calendar) (runParams, error) {
	var rp runParams

	start, err := helpers.ParseDate(p.StartDate)
	if err != nil {
		return rp, &ValidationError{Field: "startDate", Msg: err.Error()}
	}
	end, err := helpers.ParseDate(p.EndDate)
	if err != nil {
		return rp, &ValidationError{Field: "endDate", Msg: err.Error()}
	}

	// Non-trading dates roll forward to the next trading day
	start = cal.NextTradingDayOrSame(start)
	end = cal.NextTradingDayOrSame(end)
	if end.Before(start) {
		return rp, &ValidationError{Field: "endDate",
			Msg: fmt.Sprintf("end %s before start %s after trading-day adjustment",
				helpers.FormatDate(end), helpers.FormatDate(start))}
	}

	speed := defaults.SpeedMultiplier
	if p.SpeedMultiplier != nil {
		speed = *p.SpeedMultiplier
	}
	if speed < 0 {
		return rp, &ValidationError{Field: "speedMultiplier", Msg: "must be >= 0"}
	}

	preload := p.PreloadMinutes
	if preload == 0 {
		preload = defaults.PreloadMinutes
	}
	if preload < 1 || preload > 60 {
		return rp, &ValidationError{Field: "preloadMinutes", Msg: "must be in [1, 60]"}
	}

	bufMax := p.BufferMaxSize
	if bufMax == 0 {
		bufMax = defaults.BufferMaxSize
	}
	if bufMax < 1000 {
		return rp, &ValidationError{Field: "bufferMaxSize", Msg: "must be >= 1000"}
	}

	rp.startDate = start
	rp.endDate = end
	rp.speed = speed
	rp.preload = time.Duration(preload) * time.Minute
	rp.bufMax = bufMax
	rp.codes = parseCodes(p.StockCodes)
	return rp, nil
}

// parseCodes splits the comma-separated allow-list; empty means the
// whole market.
func parseCodes(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if code := strings.TrimSpace(part); code != "" {
			out = append(out, code)
		}
	}
	return out
}
