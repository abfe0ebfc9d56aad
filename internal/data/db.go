package data

import (
	"database/sql"

	_ "modernc.org/sqlite"
)

// InitDB opens the SQLite metadata database and runs migrations
func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		return nil, err
	}

	if err := runMigrations(db); err != nil {
		return nil, err
	}

	return db, nil
}

func runMigrations(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		is_staff INTEGER DEFAULT 0,
		is_superuser INTEGER DEFAULT 0,
		is_active INTEGER DEFAULT 1,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS groups (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS user_groups (
		user_id INTEGER NOT NULL,
		group_id INTEGER NOT NULL,
		PRIMARY KEY (user_id, group_id),
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
		FOREIGN KEY (group_id) REFERENCES groups(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS dashboards (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		slug TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		owned_by INTEGER,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		view_policy TEXT NOT NULL DEFAULT 'private',
		edit_policy TEXT NOT NULL DEFAULT 'private',
		view_group INTEGER,
		edit_group INTEGER,
		FOREIGN KEY (owned_by) REFERENCES users(id) ON DELETE SET NULL,
		FOREIGN KEY (view_group) REFERENCES groups(id) ON DELETE SET NULL,
		FOREIGN KEY (edit_group) REFERENCES groups(id) ON DELETE SET NULL
	);

	CREATE TABLE IF NOT EXISTS dashboard_queries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		dashboard_id INTEGER NOT NULL,
		sql_text TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		template_override TEXT NOT NULL DEFAULT '',
		settings TEXT NOT NULL DEFAULT '',
		position INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (dashboard_id) REFERENCES dashboards(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS audit_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		user_id INTEGER,
		dashboard_slug TEXT NOT NULL DEFAULT '',
		sql_text TEXT NOT NULL DEFAULT '',
		duration_ms INTEGER,
		status TEXT,
		error_message TEXT
	);
	`
	_, err := db.Exec(schema)
	return err
}
