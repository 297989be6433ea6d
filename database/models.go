package database

import "time"

// The tick-level quotations table has no model here: it is created and
// indexed by hand in schema.go so TimescaleDB can own its layout, and
// the loader reads it through raw SQL (database/quotations).

// DailyQuotation is one end-of-day row, the input to the preheaters
// (previous closes, moving-average and nine-turn histories).
type DailyQuotation struct {
	ID         int64     `gorm:"primaryKey;autoIncrement"`
	WindCode   string    `gorm:"column:wind_code;type:varchar(16);not null;uniqueIndex:idx_daily_code_date,priority:1"`
	TradeDate  time.Time `gorm:"column:trade_date;type:date;not null;uniqueIndex:idx_daily_code_date,priority:2"`
	OpenPrice  float64   `gorm:"column:open_price;type:double precision"`
	HighPrice  float64   `gorm:"column:high_price;type:double precision"`
	LowPrice   float64   `gorm:"column:low_price;type:double precision"`
	ClosePrice float64   `gorm:"column:close_price;type:double precision;not null"`
	Volume     float64   `gorm:"column:volume;type:double precision"`
}

// TableName overrides the GORM default
func (DailyQuotation) TableName() string {
	return "daily_quotations"
}

// TradeHoliday marks a weekday the exchange is closed. Weekends are
// implicit and never stored.
type TradeHoliday struct {
	Date time.Time `gorm:"column:date;type:date;primaryKey"`
	Name string    `gorm:"column:name;type:varchar(64)"`
}

// TableName overrides the GORM default
func (TradeHoliday) TableName() string {
	return "trade_calendar"
}
