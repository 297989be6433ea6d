// Package quotations implements the read-only quotation source the
// replay loader queries in time windows.
package quotations

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"quotation-replay/helpers"
	"quotation-replay/replay"
)

// Repository runs window scans over the quotations hypertable through
// the raw database/sql connection. Bounds are closed on both ends; the
// loader owns the half-open boundary adjustment.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new quotations repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// GetByTimeRange returns all quotations with trade_time in [start, end],
// optionally restricted to an allow-list of wind codes, ordered by
// trade_time then wind code.
func (r *Repository) GetByTimeRange(ctx context.Context, start, end time.Time, windCodes []string) ([]replay.Record, error) {
	const base = `
		SELECT wind_code, trade_time, latest_price, average_price, total_volume
		FROM quotations
		WHERE trade_time >= $1 AND trade_time <= $2`

	var rows *sql.Rows
	var err error
	if len(windCodes) == 0 {
		rows, err = r.db.QueryContext(ctx, base+` ORDER BY trade_time, wind_code`, start, end)
	} else {
		rows, err = r.db.QueryContext(ctx,
			base+` AND wind_code = ANY($3) ORDER BY trade_time, wind_code`,
			start, end, pq.Array(windCodes))
	}
	if err != nil {
		return nil, fmt.Errorf("GetByTimeRange [%s, %s]: %w",
			helpers.FormatDateTime(start), helpers.FormatDateTime(end), err)
	}
	defer rows.Close()

	var records []replay.Record
	for rows.Next() {
		var rec replay.Record
		if err := rows.Scan(&rec.WindCode, &rec.TradeTime, &rec.LatestPrice,
			&rec.AveragePrice, &rec.TotalVolume); err != nil {
			return nil, fmt.Errorf("GetByTimeRange scan: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetByTimeRange rows: %w", err)
	}
	return records, nil
}
