package main

import (
	"database/sql"
	"time"
)

const defaultDailyBonus = 25

// CanClaimBonus reports whether the account still has today's bonus open.
// The gate is the same day-key bucketing the task rotation uses, so the
// bonus resets at local midnight rather than 24h after the last claim.
func CanClaimBonus(db *sql.DB, accountID string, now time.Time) (bool, error) {
	var lastDay string
	err := db.QueryRow(`
		SELECT last_day
		FROM bonus_claims
		WHERE account_id = $1
	`, accountID).Scan(&lastDay)

	if err == sql.ErrNoRows {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return lastDay != dayKey(now), nil
}

func RecordBonusClaim(db *sql.DB, accountID string, now time.Time) error {
	_, err := db.Exec(`
		INSERT INTO bonus_claims (
			account_id,
			last_day,
			claim_count,
			last_claim_at
		)
		VALUES ($1, $2, 1, NOW())
		ON CONFLICT (account_id)
		DO UPDATE SET
			last_day = EXCLUDED.last_day,
			claim_count = bonus_claims.claim_count + 1,
			last_claim_at = NOW()
	`, accountID, dayKey(now))
	return err
}

func dailyBonusAmount() int64 {
	settings := GetRuntimeSettings()
	if settings.DailyBonusAmount <= 0 {
		return defaultDailyBonus
	}
	return settings.DailyBonusAmount
}
