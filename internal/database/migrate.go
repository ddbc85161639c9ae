package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Reservation ids are assigned by the ledger, so reservations.id carries no
// auto increment; reservation_ids holds the largest id ever issued so a
// restart never reuses the id of a removed row.  Dates and times are stored as the normalized text the
// ledger works with.

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(50) NOT NULL,
		email VARCHAR(255) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		role VARCHAR(16) NOT NULL DEFAULT 'CUSTOMER',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		updated_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6) ON UPDATE CURRENT_TIMESTAMP(6)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT UNSIGNED NOT NULL,
		token_hash CHAR(64) NOT NULL UNIQUE,
		expires_at DATETIME(6) NOT NULL,
		revoked_at DATETIME(6) NULL,
		created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		INDEX idx_refresh_tokens_user (user_id),
		CONSTRAINT fk_refresh_tokens_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS reservations (
		id BIGINT UNSIGNED PRIMARY KEY,
		user_id BIGINT UNSIGNED NOT NULL,
		table_id BIGINT UNSIGNED NOT NULL,
		res_date CHAR(10) NOT NULL,
		start_time VARCHAR(8) NOT NULL,
		end_time VARCHAR(8) NOT NULL,
		seats INT NOT NULL,
		status VARCHAR(16) NOT NULL,
		created_at DATETIME(6) NOT NULL,
		updated_at DATETIME(6) NOT NULL,
		INDEX idx_reservations_table_date (table_id, res_date),
		INDEX idx_reservations_user (user_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS reservation_ids (
		id TINYINT UNSIGNED PRIMARY KEY,
		last_id BIGINT UNSIGNED NOT NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`INSERT IGNORE INTO reservation_ids (id, last_id) SELECT 1, COALESCE(MAX(id), 0) FROM reservations`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(50) NOT NULL,
		email VARCHAR(255) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		role VARCHAR(16) NOT NULL DEFAULT 'CUSTOMER',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		token_hash CHAR(64) NOT NULL UNIQUE,
		expires_at TIMESTAMPTZ NOT NULL,
		revoked_at TIMESTAMPTZ NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_refresh_tokens_user ON refresh_tokens (user_id)`,
	`CREATE TABLE IF NOT EXISTS reservations (
		id BIGINT PRIMARY KEY,
		user_id BIGINT NOT NULL,
		table_id BIGINT NOT NULL,
		res_date CHAR(10) NOT NULL,
		start_time VARCHAR(8) NOT NULL,
		end_time VARCHAR(8) NOT NULL,
		seats INT NOT NULL CHECK (seats > 0),
		status VARCHAR(16) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reservations_table_date ON reservations (table_id, res_date)`,
	`CREATE INDEX IF NOT EXISTS idx_reservations_user ON reservations (user_id)`,
	`CREATE TABLE IF NOT EXISTS reservation_ids (
		id SMALLINT PRIMARY KEY,
		last_id BIGINT NOT NULL
	)`,
	`INSERT INTO reservation_ids (id, last_id) SELECT 1, COALESCE(MAX(id), 0) FROM reservations ON CONFLICT (id) DO NOTHING`,
}

// Schema returns the DDL statements for driver.
func Schema(driver string) ([]string, error) {
	switch driver {
	case MySQL:
		return mysqlSchema, nil
	case Postgres:
		return postgresSchema, nil
	}
	return nil, fmt.Errorf("database: unsupported driver %q", driver)
}

// Migrate creates any missing tables.  Every statement is idempotent.
func Migrate(ctx context.Context, db *sql.DB, driver string) error {
	stmts, err := Schema(driver)
	if err != nil {
		return err
	}
	for i, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
