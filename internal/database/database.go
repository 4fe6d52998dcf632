package database

import (
	"database/sql"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver
)

// New creates a new database connection pool.
func New(dataSourceName string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dataSourceName+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite")
	if err != nil {
		return nil, err
	}
	// An in-memory database lives per connection, so tests need a single one.
	if strings.HasPrefix(dataSourceName, ":memory:") {
		db.SetMaxOpenConns(1)
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate runs the SQL statements to set up the database schema.
func Migrate(db *sql.DB) error {
	const sqlStmt = `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT NOT NULL PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS facilities (
		id TEXT NOT NULL PRIMARY KEY,
		name TEXT NOT NULL,
		category TEXT NOT NULL,
		location TEXT NOT NULL DEFAULT '',
		terminal TEXT NOT NULL,
		floor TEXT NOT NULL,
		coord_x REAL NOT NULL DEFAULT 0,
		coord_y REAL NOT NULL DEFAULT 0,
		description TEXT,
		operating_hours TEXT,
		phone TEXT,
		website TEXT,
		rating REAL,
		reviews INTEGER,
		-- Image URLs stored as a JSON array
		images_json TEXT NOT NULL DEFAULT '[]',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_facilities_terminal_floor ON facilities (terminal, floor);

	CREATE TABLE IF NOT EXISTS devices (
		id TEXT NOT NULL PRIMARY KEY,
		name TEXT NOT NULL,
		type TEXT NOT NULL, -- BIKE or KICKBOARD
		battery_level INTEGER NOT NULL DEFAULT 100,
		pos_x REAL NOT NULL DEFAULT 0,
		pos_y REAL NOT NULL DEFAULT 0,
		available BOOLEAN NOT NULL DEFAULT TRUE
	);

	CREATE TABLE IF NOT EXISTS reservations (
		id TEXT NOT NULL PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		scheduled_at DATETIME NOT NULL,
		terminal TEXT NOT NULL,
		destination TEXT NOT NULL,
		special_requests TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_reservations_status_time ON reservations (status, scheduled_at);

	CREATE TABLE IF NOT EXISTS navigation_sessions (
		id TEXT NOT NULL PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		facility_id TEXT NOT NULL REFERENCES facilities(id),
		device_id TEXT NOT NULL REFERENCES devices(id),
		state TEXT NOT NULL,
		dest_x REAL NOT NULL DEFAULT 0,
		dest_y REAL NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		arrived_at DATETIME
	);
	CREATE INDEX IF NOT EXISTS idx_navigation_sessions_state ON navigation_sessions (state);

	CREATE TABLE IF NOT EXISTS events (
		id TEXT NOT NULL PRIMARY KEY,
		type TEXT NOT NULL,
		level TEXT NOT NULL,
		message TEXT NOT NULL,
		subject_id TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := db.Exec(sqlStmt)
	return err
}
