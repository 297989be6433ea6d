package database

import (
	"fmt"
	"log"
)

// InitSchema performs auto-migration and TimescaleDB setup for the
// replay engine's tables.
func (d *Database) InitSchema() error {
	fmt.Println("🔄 Starting database schema initialization...")

	// Create quotations table manually if not exists (before converting
	// to hypertable). GORM AutoMigrate fights hypertables, so the
	// time-series table is managed by hand.
	if err := d.db.Exec(`
		CREATE TABLE IF NOT EXISTS quotations (
			id BIGSERIAL,
			wind_code VARCHAR(16) NOT NULL,
			trade_time TIMESTAMPTZ NOT NULL,
			latest_price DOUBLE PRECISION NOT NULL,
			average_price DOUBLE PRECISION NOT NULL,
			total_volume DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (id, trade_time)
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create quotations table: %w", err)
	}

	// Index backing both the window scan and the per-symbol allow-list
	d.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_quotations_code_time
		ON quotations (wind_code, trade_time)
	`)
	d.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_quotations_time
		ON quotations (trade_time)
	`)

	// Auto-migrate the plain tables
	if err := d.db.AutoMigrate(
		&DailyQuotation{},
		&TradeHoliday{},
	); err != nil {
		return fmt.Errorf("auto-migration failed: %w", err)
	}

	// TimescaleDB is optional: hot/cold chunking of the quotations table
	// when available, a plain Postgres table otherwise.
	d.setupTimescaleDB()

	fmt.Println("✅ Database schema initialization complete")
	return nil
}

// setupTimescaleDB converts quotations into a hypertable, best effort
func (d *Database) setupTimescaleDB() {
	if err := d.db.Exec("CREATE EXTENSION IF NOT EXISTS timescaledb").Error; err != nil {
		log.Printf("⚠️  TimescaleDB extension unavailable, using plain table: %v", err)
		return
	}

	if err := d.db.Exec(`
		SELECT create_hypertable('quotations', 'trade_time',
			chunk_time_interval => INTERVAL '1 day',
			if_not_exists => TRUE,
			migrate_data => TRUE)
	`).Error; err != nil {
		log.Printf("⚠️  Failed to create quotations hypertable: %v", err)
		return
	}

	log.Println("✅ quotations hypertable ready (1 day chunks)")
}
