package database

import (
	"database/sql"
	"strings"
)

// Schema statements are written in MySQL flavor; InitSchema rewrites the
// auto-increment primary key clause for sqlite. Timestamps default at the
// database, expiry instants are unix seconds so they compare portably.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		username VARCHAR(64) NOT NULL UNIQUE,
		email VARCHAR(255) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS tokens (
		id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		owner_id BIGINT NOT NULL,
		token VARCHAR(512) NOT NULL UNIQUE,
		token_type VARCHAR(32) NOT NULL,
		expires_at BIGINT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS display_devices (
		id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		owner_id BIGINT NOT NULL,
		name VARCHAR(255) NOT NULL,
		description TEXT,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		media_group_id BIGINT,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS display_device_tokens (
		id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		owner_id BIGINT NOT NULL,
		display_device_id BIGINT NOT NULL UNIQUE,
		token VARCHAR(512) NOT NULL UNIQUE,
		token_type VARCHAR(32) NOT NULL,
		expires_at BIGINT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS media (
		id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		owner_id BIGINT NOT NULL,
		name VARCHAR(255) NOT NULL,
		filename VARCHAR(255),
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS media_groups (
		id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		owner_id BIGINT NOT NULL,
		name VARCHAR(255) NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS media_group_media (
		media_id BIGINT NOT NULL,
		media_group_id BIGINT NOT NULL,
		PRIMARY KEY (media_id, media_group_id)
	)`,
	`CREATE TABLE IF NOT EXISTS schedules (
		id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		owner_id BIGINT NOT NULL,
		trigger_time VARCHAR(8) NOT NULL,
		media_id BIGINT NOT NULL,
		media_group_id BIGINT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS device_logs (
		id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		device_id BIGINT NOT NULL,
		url VARCHAR(2048) NOT NULL,
		method VARCHAR(16) NOT NULL,
		status_code INT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
}

// InitSchema creates all tables if they do not exist yet. It is idempotent
// and safe to run at every startup.
func InitSchema(db *sql.DB, driver string) error {
	for _, stmt := range schema {
		if driver == "sqlite" {
			stmt = strings.ReplaceAll(stmt,
				"BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY",
				"INTEGER PRIMARY KEY AUTOINCREMENT")
		}
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
