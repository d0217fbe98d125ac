package main

import (
	"database/sql"
	"strconv"
	"strings"
	"sync"
)

type RuntimeSettings struct {
	DailyBonusAmount int64
	SignupsEnabled   bool
}

var (
	settingsMu     sync.RWMutex
	cachedSettings = RuntimeSettings{
		DailyBonusAmount: defaultDailyBonus,
		SignupsEnabled:   true,
	}
)

func LoadRuntimeSettings(db *sql.DB) error {
	rows, err := db.Query(`
		SELECT key, value
		FROM runtime_settings
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	settingsMu.Lock()
	defer settingsMu.Unlock()

	for rows.Next() {
		var key string
		var value string
		if err := rows.Scan(&key, &value); err != nil {
			continue
		}
		applySetting(&cachedSettings, key, value)
	}
	return rows.Err()
}

func GetRuntimeSettings() RuntimeSettings {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return cachedSettings
}

func UpdateRuntimeSettings(db *sql.DB, updates map[string]string) (RuntimeSettings, error) {
	settingsMu.Lock()
	defer settingsMu.Unlock()
	for key, value := range updates {
		applySetting(&cachedSettings, key, value)
		_, err := db.Exec(`
			INSERT INTO runtime_settings (key, value, updated_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
		`, key, value)
		if err != nil {
			return cachedSettings, err
		}
	}
	return cachedSettings, nil
}

func applySetting(target *RuntimeSettings, key string, value string) {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "daily_bonus_amount":
		if v, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil && v >= 0 {
			target.DailyBonusAmount = v
		}
	case "signups_enabled":
		if v, err := parseBool(value); err == nil {
			target.SignupsEnabled = v
		}
	}
}

func parseBool(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off":
		return false, nil
	default:
		return false, strconv.ErrSyntax
	}
}
