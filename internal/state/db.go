// ./internal/state/db.go
package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"
)

// DB is a global database connection pool.
var DB *sql.DB

// DBConfig holds database connection parameters.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string // "disable", "require", "verify-full", etc.
}

// InitDB initializes the database connection pool.
func InitDB(cfg DBConfig) error {
	psqlInfo := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	var err error
	DB, err = sql.Open("postgres", psqlInfo)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(25)
	DB.SetConnMaxLifetime(5 * time.Minute)

	err = DB.Ping()
	if err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("Successfully connected to the PostgreSQL database!")
	return nil
}

// CloseDB closes the database connection pool.
func CloseDB() {
	if DB != nil {
		log.Info().Msg("Closing database connection...")
		if err := DB.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database connection")
		}
	}
}

// EnsureSchema applies the necessary DDL to create tables if they don't exist.
// Amounts are stored as NUMERIC(78, 0): wide enough for any 256-bit integer,
// no floating point anywhere near balances.
func EnsureSchema() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	schemaSQL := `
		CREATE TABLE IF NOT EXISTS share_balances (
			holder VARCHAR(128) PRIMARY KEY,
			balance NUMERIC(78, 0) NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS share_allowances (
			owner_addr VARCHAR(128) NOT NULL,
			spender VARCHAR(128) NOT NULL,
			allowance NUMERIC(78, 0) NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (owner_addr, spender)
		);

		CREATE TABLE IF NOT EXISTS strategies (
			address VARCHAR(128) PRIMARY KEY,
			weight INTEGER NOT NULL,
			position INTEGER NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_strategies_position ON strategies(position);

		-- Single-row table holding the mutable vault configuration plus the
		-- pause flag and harvest gate state.
		CREATE TABLE IF NOT EXISTS vault_parameters (
			id INTEGER PRIMARY KEY DEFAULT 1,
			min_deposit NUMERIC(78, 0) NOT NULL,
			max_total_assets NUMERIC(78, 0) NOT NULL,
			withdrawal_fee_bps INTEGER NOT NULL,
			fee_recipient VARCHAR(128) NOT NULL DEFAULT '',
			harvest_interval_seconds BIGINT NOT NULL,
			paused BOOLEAN NOT NULL DEFAULT FALSE,
			last_harvest TIMESTAMPTZ,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT single_row_check CHECK (id = 1)
		);

		CREATE TABLE IF NOT EXISTS harvest_receipts (
			receipt_id SERIAL PRIMARY KEY,
			harvest_timestamp TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			strategy VARCHAR(128) NOT NULL,
			rewards NUMERIC(78, 0) NOT NULL,
			success BOOLEAN NOT NULL,
			message TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_harvest_receipts_timestamp ON harvest_receipts(harvest_timestamp DESC);
		CREATE INDEX IF NOT EXISTS idx_harvest_receipts_strategy ON harvest_receipts(strategy);
	`
	_, err := DB.Exec(schemaSQL)
	if err != nil {
		return fmt.Errorf("failed to execute schema DDL: %w", err)
	}
	log.Info().Msg("Database schema ensured.")
	return nil
}

// TestDBConnection tests if the database connection is healthy
func TestDBConnection() error {
	if DB == nil {
		return fmt.Errorf("database connection is nil")
	}

	// Use a short timeout context for health checks
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := DB.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	return nil
}
