package database

import (
	"context"
	"database/sql"
	"fmt"
)

// InitSchema creates the pipeline's tables when they do not exist yet.
// Tournaments are owned by another service in production; the table is
// still created here so the service can run standalone in development
// and tests.
func InitSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tournaments (
			id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			max_capacity INT NOT NULL,
			entry_fee_cents BIGINT NOT NULL DEFAULT 0,
			early_bird_fee_cents BIGINT NOT NULL DEFAULT 0,
			early_bird_until DATETIME NULL,
			currency CHAR(3) NOT NULL DEFAULT 'usd',
			registered_count INT NOT NULL DEFAULT 0,
			spots_reserved INT NOT NULL DEFAULT 0,
			status VARCHAR(16) NOT NULL DEFAULT 'OPEN',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS reservations (
			id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
			tournament_id BIGINT UNSIGNED NOT NULL,
			holder_id BIGINT UNSIGNED NOT NULL,
			player_id BIGINT UNSIGNED NOT NULL,
			status ENUM('active','completed','cancelled','expired') NOT NULL DEFAULT 'active',
			expires_at DATETIME NOT NULL,
			session_ref VARCHAR(255) NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			KEY idx_reservations_pair (tournament_id, holder_id, status),
			KEY idx_reservations_expiry (status, expires_at)
		)`,
		`CREATE TABLE IF NOT EXISTS tickets (
			id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
			code VARCHAR(32) NOT NULL,
			tournament_id BIGINT UNSIGNED NOT NULL,
			holder_id BIGINT UNSIGNED NOT NULL,
			player_id BIGINT UNSIGNED NOT NULL,
			team_id BIGINT UNSIGNED NULL,
			status ENUM('valid','checked_in','refunded','void') NOT NULL DEFAULT 'valid',
			payment_status ENUM('paid','free','refunded') NOT NULL,
			session_ref VARCHAR(255) NULL,
			payment_ref VARCHAR(255) NULL,
			amount_paid_cents BIGINT NOT NULL DEFAULT 0,
			discount_code VARCHAR(64) NULL,
			email VARCHAR(255) NOT NULL DEFAULT '',
			artifact MEDIUMBLOB NULL,
			checked_in_at DATETIME NULL,
			checked_in_by BIGINT UNSIGNED NULL,
			email_resend_count INT NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			UNIQUE KEY uq_tickets_code (code),
			KEY idx_tickets_payment_ref (payment_ref),
			KEY idx_tickets_session_ref (session_ref),
			KEY idx_tickets_holder (holder_id)
		)`,
		`CREATE TABLE IF NOT EXISTS discount_codes (
			id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
			code VARCHAR(64) NOT NULL,
			type ENUM('percent','amount') NOT NULL,
			value BIGINT NOT NULL,
			max_redemptions INT NULL,
			redemption_count INT NOT NULL DEFAULT 0,
			expires_at DATETIME NULL,
			active TINYINT(1) NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE KEY uq_discount_codes_code (code)
		)`,
		`CREATE TABLE IF NOT EXISTS discount_code_scopes (
			discount_code_id BIGINT UNSIGNED NOT NULL,
			tournament_id BIGINT UNSIGNED NOT NULL,
			PRIMARY KEY (discount_code_id, tournament_id)
		)`,
		`CREATE TABLE IF NOT EXISTS processed_events (
			id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
			external_event_id VARCHAR(255) NOT NULL,
			kind VARCHAR(64) NOT NULL,
			context VARCHAR(512) NOT NULL DEFAULT '',
			error TEXT NULL,
			processed_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE KEY uq_processed_events_external_id (external_event_id)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(context.Background(), stmt); err != nil {
			return fmt.Errorf("schema init: %w", err)
		}
	}
	return nil
}
