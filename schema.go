package main

import "database/sql"

// ensureSchema creates every table the server needs and applies column
// additions in place. Safe to run on every boot; the startup advisory lock
// keeps concurrent replicas from racing the DDL.
func ensureSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS accounts (
			account_id TEXT PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			balance BIGINT NOT NULL DEFAULT 0,
			role TEXT NOT NULL DEFAULT 'user',
			created_at TIMESTAMPTZ NOT NULL,
			last_login_at TIMESTAMPTZ NOT NULL
		);
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		ALTER TABLE accounts
			ADD COLUMN IF NOT EXISTS admin_key_hash TEXT;
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			account_id TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL
		);
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS tasks (
			name TEXT PRIMARY KEY,
			reward BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);
	`)
	if err != nil {
		return err
	}

	// No UNIQUE on name: two rotations racing across a day boundary can
	// insert overlapping rows, and that weakness is kept as-is.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS active_tasks (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			reward BIGINT NOT NULL,
			updated_on TEXT NOT NULL
		);
	`)
	if err != nil {
		return err
	}

	// Likewise no uniqueness on (account_id, task_name, day_key); the
	// completion engine's scan is the only duplicate gate.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS completions (
			id TEXT PRIMARY KEY,
			account_id TEXT NOT NULL,
			task_name TEXT NOT NULL,
			image_url TEXT NOT NULL,
			day_key TEXT NOT NULL,
			completed_at TIMESTAMPTZ NOT NULL
		);
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS completions_account_idx
			ON completions (account_id);
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS shop_items (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			cost BIGINT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL
		);
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS purchases (
			id TEXT PRIMARY KEY,
			account_id TEXT NOT NULL,
			item_id TEXT NOT NULL,
			price_paid BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS bonus_claims (
			account_id TEXT PRIMARY KEY,
			last_day TEXT NOT NULL,
			claim_count BIGINT NOT NULL DEFAULT 0,
			last_claim_at TIMESTAMPTZ
		);
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS coin_log (
			id BIGSERIAL PRIMARY KEY,
			account_id TEXT NOT NULL,
			source_type TEXT NOT NULL,
			detail TEXT NOT NULL DEFAULT '',
			amount BIGINT NOT NULL,
			balance_before BIGINT NOT NULL,
			balance_after BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS event_log (
			id BIGSERIAL PRIMARY KEY,
			account_id TEXT,
			event_type TEXT NOT NULL,
			payload JSONB,
			created_at TIMESTAMPTZ NOT NULL
		);
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS runtime_settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS auth_rate_limits (
			ip TEXT NOT NULL,
			action TEXT NOT NULL,
			window_start TIMESTAMPTZ NOT NULL,
			attempt_count INT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (ip, action)
		);
	`)
	return err
}
