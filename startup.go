package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"
)

const startupAdvisoryLockID int64 = 731905264

var startupLockConn *sql.Conn

// acquireStartupLock takes a session-scoped Postgres advisory lock so only
// one replica runs DDL and seeding. The conn is held for the process
// lifetime; the lock releases when it drops.
func acquireStartupLock(ctx context.Context, db *sql.DB) (*sql.Conn, bool, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, false, err
	}
	var acquired bool
	if err := conn.QueryRowContext(ctx, `SELECT pg_try_advisory_lock($1)`, startupAdvisoryLockID).Scan(&acquired); err != nil {
		_ = conn.Close()
		return nil, false, err
	}
	if !acquired {
		_ = conn.Close()
		return nil, false, nil
	}
	return conn, true, nil
}

// ensureAdminAccount creates the first admin when none exists. The
// bootstrap credentials come from ADMIN_USERNAME and
// ADMIN_BOOTSTRAP_PASSWORD; without them the step is skipped and the
// admin surface stays closed until scripts/admin_key.go is run against a
// promoted account.
func ensureAdminAccount(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var existing string
	err = tx.QueryRowContext(ctx, `
		SELECT account_id
		FROM accounts
		WHERE role = 'admin'
		LIMIT 1
		FOR UPDATE
	`).Scan(&existing)
	if err == nil {
		log.Println("Startup: admin account already exists, skipping bootstrap")
		return tx.Commit()
	}
	if err != sql.ErrNoRows {
		return err
	}

	username := strings.TrimSpace(strings.ToLower(os.Getenv("ADMIN_USERNAME")))
	password := strings.TrimSpace(os.Getenv("ADMIN_BOOTSTRAP_PASSWORD"))
	if username == "" || password == "" {
		log.Println("Startup: no admin bootstrap credentials set, skipping")
		return tx.Commit()
	}
	if !validUsername(username) || !validPassword(password) {
		log.Println("Startup: admin bootstrap credentials fail validation, skipping")
		return tx.Commit()
	}

	passwordHash, err := hashPassword(password)
	if err != nil {
		return err
	}

	accountID := uuid.NewString()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO accounts (
			account_id,
			username,
			password_hash,
			balance,
			role,
			created_at,
			last_login_at
		)
		VALUES ($1, $2, $3, 0, 'admin', NOW(), NOW())
	`, accountID, username, passwordHash); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	auditLog.Record("admin_bootstrap", accountID, map[string]interface{}{
		"username": username,
	})
	log.Println("Startup: bootstrapped admin account", username)
	return nil
}
