package main

import (
	"database/sql"
	"encoding/json"
	"log"
)

// recordEvent appends a row to event_log. Inserts are best effort: a
// telemetry failure is logged and never fails the request that caused it.
func recordEvent(db *sql.DB, accountID string, eventType string, payload map[string]interface{}) {
	if !featureFlags.Telemetry {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		log.Println("Telemetry: payload marshal failed:", err)
		return
	}

	account := sql.NullString{String: accountID, Valid: accountID != ""}
	if _, err := db.Exec(`
		INSERT INTO event_log (account_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, NOW())
	`, account, eventType, data); err != nil {
		log.Println("Telemetry: insert failed:", err)
	}
}
