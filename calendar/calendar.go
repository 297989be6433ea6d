package calendar

import "time"

// Session boundaries in local trading time. The close is 15:30:00, the
// only per-day instant that survives the loader's boundary subtraction.
const (
	SessionOpenHour    = 9
	SessionOpenMinute  = 30
	SessionCloseHour   = 15
	SessionCloseMinute = 30
)

// Calendar answers trading-day questions. Weekends are never trading
// days; exchange holidays are supplied at construction (normally from
// the trade_calendar table).
type Calendar struct {
	holidays map[string]bool // keyed by yyyyMMdd
}

// New builds a calendar from a set of holiday dates. Time-of-day and
// timezone on the inputs are ignored.
func New(holidays []time.Time) *Calendar {
	set := make(map[string]bool, len(holidays))
	for _, h := range holidays {
		set[h.Format("20060102")] = true
	}
	return &Calendar{holidays: set}
}

// IsTradingDay reports whether date is a trading day
func (c *Calendar) IsTradingDay(date time.Time) bool {
	switch date.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return !c.holidays[date.Format("20060102")]
}

// PreviousTradingDay returns the last trading day strictly before date
func (c *Calendar) PreviousTradingDay(date time.Time) time.Time {
	d := midnight(date).AddDate(0, 0, -1)
	for !c.IsTradingDay(d) {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// NextTradingDay returns the first trading day strictly after date
func (c *Calendar) NextTradingDay(date time.Time) time.Time {
	d := midnight(date).AddDate(0, 0, 1)
	for !c.IsTradingDay(d) {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// NextTradingDayOrSame returns date itself when it is a trading day,
// otherwise the next trading day forward. Used by parameter validation
// to adjust start/end dates.
func (c *Calendar) NextTradingDayOrSame(date time.Time) time.Time {
	d := midnight(date)
	for !c.IsTradingDay(d) {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// SessionOpen returns 09:30:00 on the given day
func SessionOpen(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(),
		SessionOpenHour, SessionOpenMinute, 0, 0, day.Location())
}

// SessionClose returns 15:30:00 on the given day
func SessionClose(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(),
		SessionCloseHour, SessionCloseMinute, 0, 0, day.Location())
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
