package main

import (
	"database/sql"
	"log"
	"time"
)

// startSessionSweeper deletes expired session rows in the background.
// Expired tokens are already refused on read; the sweep just keeps the
// table from growing forever.
func startSessionSweeper(db *sql.DB) {
	ticker := time.NewTicker(time.Hour)

	go func() {
		for range ticker.C {
			removed, err := deleteExpiredSessions(db)
			if err != nil {
				log.Println("Sessions: sweep failed:", err)
				continue
			}
			if removed > 0 {
				log.Println("Sessions: swept", removed, "expired sessions")
			}
		}
	}()
}
