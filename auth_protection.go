package main

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

func authRateLimitConfig(action string) (int, time.Duration) {
	switch action {
	case "signup":
		limit := parseEnvInt("SIGNUP_RATE_LIMIT", 5)
		windowSeconds := parseEnvInt("SIGNUP_RATE_WINDOW_SECONDS", 600)
		return limit, time.Duration(windowSeconds) * time.Second
	case "login":
		limit := parseEnvInt("LOGIN_RATE_LIMIT", 12)
		windowSeconds := parseEnvInt("LOGIN_RATE_WINDOW_SECONDS", 600)
		return limit, time.Duration(windowSeconds) * time.Second
	default:
		limit := parseEnvInt("AUTH_RATE_LIMIT", 10)
		windowSeconds := parseEnvInt("AUTH_RATE_WINDOW_SECONDS", 600)
		return limit, time.Duration(windowSeconds) * time.Second
	}
}

// checkAuthRateLimit counts attempts per (ip, action) inside a rolling
// window, with the row locked FOR UPDATE so concurrent requests don't
// undercount. Returns allowed, and when blocked, seconds until retry.
func checkAuthRateLimit(db *sql.DB, ip string, action string, limit int, window time.Duration) (bool, int, error) {
	ip = strings.TrimSpace(ip)
	if ip == "" || limit <= 0 || window <= 0 {
		return true, 0, nil
	}

	now := time.Now().UTC()
	tx, err := db.BeginTx(context.Background(), nil)
	if err != nil {
		return false, 0, err
	}
	defer tx.Rollback()

	var windowStart time.Time
	var attempts int
	err = tx.QueryRow(`
		SELECT window_start, attempt_count
		FROM auth_rate_limits
		WHERE ip = $1 AND action = $2
		FOR UPDATE
	`, ip, action).Scan(&windowStart, &attempts)
	if err == sql.ErrNoRows {
		_, err = tx.Exec(`
			INSERT INTO auth_rate_limits (ip, action, window_start, attempt_count, updated_at)
			VALUES ($1, $2, $3, 1, $3)
		`, ip, action, now)
		if err != nil {
			return false, 0, err
		}
		if err := tx.Commit(); err != nil {
			return false, 0, err
		}
		return true, 0, nil
	}
	if err != nil {
		return false, 0, err
	}

	elapsed := now.Sub(windowStart)
	if elapsed >= window {
		_, err = tx.Exec(`
			UPDATE auth_rate_limits
			SET window_start = $3,
				attempt_count = 1,
				updated_at = $3
			WHERE ip = $1 AND action = $2
		`, ip, action, now)
		if err != nil {
			return false, 0, err
		}
		if err := tx.Commit(); err != nil {
			return false, 0, err
		}
		return true, 0, nil
	}

	if attempts >= limit {
		retryAfter := int(window.Seconds() - elapsed.Seconds())
		if retryAfter < 0 {
			retryAfter = 0
		}
		_, _ = tx.Exec(`
			UPDATE auth_rate_limits
			SET updated_at = $3
			WHERE ip = $1 AND action = $2
		`, ip, action, now)
		if err := tx.Commit(); err != nil {
			return false, 0, err
		}
		return false, retryAfter, nil
	}

	_, err = tx.Exec(`
		UPDATE auth_rate_limits
		SET attempt_count = attempt_count + 1,
			updated_at = $3
		WHERE ip = $1 AND action = $2
	`, ip, action, now)
	if err != nil {
		return false, 0, err
	}
	if err := tx.Commit(); err != nil {
		return false, 0, err
	}
	return true, 0, nil
}

func parseEnvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

// getClientIP trusts the first X-Forwarded-For hop when present (the
// deployment sits behind a proxy), falling back to the socket address.
func getClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}
