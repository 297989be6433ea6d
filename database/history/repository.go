// Package history serves daily-close history and the exchange holiday
// table. The preheaters and the trading calendar are its consumers.
package history

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"quotation-replay/database"
)

// Repository handles daily quotation and calendar queries
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new history repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CloseOn returns the closing price of windCode on the given trading day
func (r *Repository) CloseOn(ctx context.Context, windCode string, day time.Time) (float64, error) {
	var row database.DailyQuotation
	err := r.db.WithContext(ctx).
		Where("wind_code = ? AND trade_date = ?", windCode, day.Format("2006-01-02")).
		Take(&row).Error
	if err != nil {
		return 0, fmt.Errorf("CloseOn %s %s: %w", windCode, day.Format("2006-01-02"), err)
	}
	return row.ClosePrice, nil
}

// DailyCloses returns up to n closing prices of windCode strictly
// before the given date, oldest first (newest last).
func (r *Repository) DailyCloses(ctx context.Context, windCode string, before time.Time, n int) ([]float64, error) {
	var rows []database.DailyQuotation
	err := r.db.WithContext(ctx).
		Where("wind_code = ? AND trade_date < ?", windCode, before.Format("2006-01-02")).
		Order("trade_date DESC").
		Limit(n).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("DailyCloses %s: %w", windCode, err)
	}

	// Reverse into chronological order
	closes := make([]float64, len(rows))
	for i, row := range rows {
		closes[len(rows)-1-i] = row.ClosePrice
	}
	return closes, nil
}

// ActiveSymbols lists the wind codes with any daily row in the 90 days
// before the given date. Used when a preheat runs without an allow-list.
func (r *Repository) ActiveSymbols(ctx context.Context, before time.Time) ([]string, error) {
	var codes []string
	err := r.db.WithContext(ctx).
		Model(&database.DailyQuotation{}).
		Where("trade_date < ? AND trade_date >= ?",
			before.Format("2006-01-02"), before.AddDate(0, 0, -90).Format("2006-01-02")).
		Distinct("wind_code").
		Order("wind_code").
		Pluck("wind_code", &codes).Error
	if err != nil {
		return nil, fmt.Errorf("ActiveSymbols: %w", err)
	}
	return codes, nil
}

// Holidays returns the exchange holidays recorded in trade_calendar.
// A missing table is not an error; the calendar falls back to the
// weekend rule alone.
func (r *Repository) Holidays(ctx context.Context) ([]time.Time, error) {
	var rows []database.TradeHoliday
	err := r.db.WithContext(ctx).Find(&rows).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("Holidays: %w", err)
	}

	dates := make([]time.Time, len(rows))
	for i, row := range rows {
		dates[i] = row.Date
	}
	return dates, nil
}
