package cache

import "time"

// Key prefixes written during preheat and read by downstream strategy
// consumers. Only the builder functions below should be used; no other
// code concatenates these strings.
const (
	prefixIndexPreClose = "index:preclose:"
	prefixNineTurn      = "strategy:nineturn:"
	prefixMovingAvg     = "strategy:ma:"
)

// PreheatTTL is how long preheated keys live. Long enough to span a
// replay day plus the following morning's warmup.
const PreheatTTL = 36 * time.Hour

// IndexPreCloseKey returns the key holding an index's previous trading
// day close as a decimal string.
func IndexPreCloseKey(windCode string) string {
	return prefixIndexPreClose + windCode
}

// NineTurnKey returns the key holding the prior 20 daily closes
// (JSON array, newest last) used by the nine-turn sequence strategy.
func NineTurnKey(windCode string) string {
	return prefixNineTurn + windCode
}

// MovingAvgKey returns the key holding the prior 59 daily closes
// (JSON array, newest last) used by the moving-average strategies.
func MovingAvgKey(windCode string) string {
	return prefixMovingAvg + windCode
}
