package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Open connects to MySQL and verifies the connection.
func Open(user, pass, host, port, name string) (*sql.DB, error) {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, host, port, name)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates the four tables the service needs when they do not
// exist yet. UUIDs are stored as CHAR(36); money columns hold cents.
// The unique index on users.email enforces case-insensitive
// uniqueness because emails are normalized to lower case before every
// write.
func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id CHAR(36) PRIMARY KEY,
			name VARCHAR(80) NOT NULL,
			email VARCHAR(100) NOT NULL,
			password_hash VARCHAR(100) NOT NULL,
			role VARCHAR(20) NOT NULL,
			hourly_rate_cents BIGINT NOT NULL DEFAULT 0,
			is_approved TINYINT(1) NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			UNIQUE KEY uq_users_email (email)
		) ENGINE=InnoDB`,
		`CREATE TABLE IF NOT EXISTS claims (
			id CHAR(36) PRIMARY KEY,
			lecturer_name VARCHAR(80) NOT NULL,
			lecturer_email VARCHAR(100) NOT NULL,
			hours_worked INT NOT NULL,
			rate_cents BIGINT NOT NULL,
			notes VARCHAR(250) NULL,
			status VARCHAR(10) NOT NULL,
			version INT UNSIGNED NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL,
			KEY idx_claims_status (status),
			KEY idx_claims_lecturer (lecturer_email)
		) ENGINE=InnoDB`,
		`CREATE TABLE IF NOT EXISTS attachments (
			id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
			claim_id CHAR(36) NOT NULL,
			file_name VARCHAR(255) NOT NULL,
			saved_as VARCHAR(100) NOT NULL,
			size BIGINT NOT NULL,
			UNIQUE KEY uq_attachments_saved_as (saved_as),
			KEY idx_attachments_claim (claim_id),
			CONSTRAINT fk_attachments_claim FOREIGN KEY (claim_id) REFERENCES claims(id)
		) ENGINE=InnoDB`,
		`CREATE TABLE IF NOT EXISTS activity_log (
			id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
			actor_id CHAR(36) NOT NULL,
			actor_role VARCHAR(20) NOT NULL,
			message VARCHAR(255) NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			KEY idx_activity_actor (actor_id, id)
		) ENGINE=InnoDB`,
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
