package sqlite

import "database/sql"

func RunMigrations(db *sql.DB) error {
	stmts := []string{

		`CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			amount INTEGER NOT NULL CHECK (amount > 0),
			currency TEXT NOT NULL,
			reference TEXT NOT NULL,
			status TEXT NOT NULL,
			method_type TEXT NOT NULL,
			metadata TEXT,
			store_id TEXT NOT NULL,
			session_id TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,

		`CREATE TABLE IF NOT EXISTS transaction_events (
			id TEXT PRIMARY KEY,
			transaction_id TEXT NOT NULL REFERENCES transactions(id),
			event_type TEXT NOT NULL,
			event_data TEXT NOT NULL,
			created_at TEXT NOT NULL
		);`,

		`CREATE INDEX IF NOT EXISTS idx_transaction_events_transaction
			ON transaction_events (transaction_id);`,

		`CREATE TABLE IF NOT EXISTS checkout_themes (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			version TEXT NOT NULL,
			store_id TEXT NOT NULL,
			created_at TEXT NOT NULL
		);`,

		`CREATE TABLE IF NOT EXISTS checkout_pages (
			id TEXT PRIMARY KEY,
			uri TEXT NOT NULL UNIQUE,
			transaction_id TEXT NOT NULL UNIQUE REFERENCES transactions(id),
			theme_id TEXT NOT NULL REFERENCES checkout_themes(id),
			display_data TEXT,
			expires_at TEXT,
			accessed_at TEXT,
			claimed_at TEXT,
			completed_at TEXT,
			created_at TEXT NOT NULL
		);`,

		`CREATE TABLE IF NOT EXISTS outbox_events (
			id TEXT PRIMARY KEY,
			event_type TEXT NOT NULL,
			payload BLOB NOT NULL,
			published INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL
		);`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}
