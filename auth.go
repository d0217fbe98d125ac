package main

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"database/sql"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const sessionTTL = 30 * 24 * time.Hour

type Account struct {
	AccountID    string
	Username     string
	Balance      int64
	Role         string
	AdminKeyHash string
}

func createAccount(db *sql.DB, username string, password string) (*Account, error) {
	username = strings.TrimSpace(strings.ToLower(username))
	if !validUsername(username) {
		return nil, errors.New("INVALID_USERNAME")
	}
	if !validPassword(password) {
		return nil, errors.New("INVALID_PASSWORD")
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	accountID := uuid.NewString()
	_, err = db.Exec(`
		INSERT INTO accounts (
			account_id,
			username,
			password_hash,
			balance,
			role,
			created_at,
			last_login_at
		)
		VALUES ($1, $2, $3, 0, 'user', NOW(), NOW())
	`, accountID, username, hash)
	if err != nil {
		return nil, err
	}

	return &Account{
		AccountID: accountID,
		Username:  username,
		Role:      "user",
	}, nil
}

func authenticate(db *sql.DB, username string, password string) (*Account, error) {
	username = strings.TrimSpace(strings.ToLower(username))

	var account Account
	var hash string
	var adminKey sql.NullString
	var role string
	if err := db.QueryRow(`
		SELECT account_id, username, balance, password_hash, admin_key_hash, role
		FROM accounts
		WHERE username = $1
	`, username).Scan(&account.AccountID, &account.Username, &account.Balance, &hash, &adminKey, &role); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.New("INVALID_CREDENTIALS")
		}
		return nil, err
	}
	if adminKey.Valid {
		account.AdminKeyHash = adminKey.String
	}
	account.Role = normalizeRole(role)

	if !verifyPassword(hash, password) {
		return nil, errors.New("INVALID_CREDENTIALS")
	}

	_, _ = db.Exec(`
		UPDATE accounts
		SET last_login_at = NOW()
		WHERE account_id = $1
	`, account.AccountID)

	return &account, nil
}

func createSession(db *sql.DB, accountID string) (string, time.Time, error) {
	sessionID, err := randomToken(24)
	if err != nil {
		return "", time.Time{}, err
	}

	expiresAt := time.Now().UTC().Add(sessionTTL)
	_, err = db.Exec(`
		INSERT INTO sessions (session_id, account_id, created_at, expires_at)
		VALUES ($1, $2, NOW(), $3)
	`, sessionID, accountID, expiresAt)
	if err != nil {
		return "", time.Time{}, err
	}

	return sessionID, expiresAt, nil
}

func clearSession(db *sql.DB, sessionID string) {
	_, _ = db.Exec(`
		DELETE FROM sessions
		WHERE session_id = $1
	`, sessionID)
}

func clearAccountSessions(db *sql.DB, accountID string) {
	_, _ = db.Exec(`
		DELETE FROM sessions
		WHERE account_id = $1
	`, accountID)
}

func deleteExpiredSessions(db *sql.DB) (int64, error) {
	result, err := db.Exec(`
		DELETE FROM sessions
		WHERE expires_at < NOW()
	`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// sessionTokenFromRequest pulls the session token from the cookie, or from
// the X-Session-Token header for clients that don't keep a cookie jar.
func sessionTokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie("session_id"); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return strings.TrimSpace(r.Header.Get("X-Session-Token"))
}

func getSessionAccount(db *sql.DB, r *http.Request) (*Account, string, error) {
	token := sessionTokenFromRequest(r)
	if token == "" {
		return nil, "", http.ErrNoCookie
	}

	var account Account
	var expiresAt time.Time
	var adminKey sql.NullString
	var role string
	if err := db.QueryRow(`
		SELECT a.account_id, a.username, a.balance, a.admin_key_hash, a.role, s.expires_at
		FROM sessions s
		JOIN accounts a ON a.account_id = s.account_id
		WHERE s.session_id = $1
	`, token).Scan(&account.AccountID, &account.Username, &account.Balance, &adminKey, &role, &expiresAt); err != nil {
		return nil, "", err
	}
	if adminKey.Valid {
		account.AdminKeyHash = adminKey.String
	}
	account.Role = normalizeRole(role)

	if time.Now().UTC().After(expiresAt) {
		clearSession(db, token)
		return nil, "", errors.New("SESSION_EXPIRED")
	}

	return &account, token, nil
}

// sessionStore resolves opaque session tokens for the engines. Unknown and
// expired tokens both come back as not-ok rather than as errors.
type sessionStore struct {
	db *sql.DB
}

func (s *sessionStore) VerifySession(token string) (string, bool, error) {
	if token == "" {
		return "", false, nil
	}

	var accountID string
	var expiresAt time.Time
	err := s.db.QueryRow(`
		SELECT account_id, expires_at
		FROM sessions
		WHERE session_id = $1
	`, token).Scan(&accountID, &expiresAt)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	if time.Now().UTC().After(expiresAt) {
		clearSession(s.db, token)
		return "", false, nil
	}
	return accountID, true, nil
}

func writeSessionCookie(w http.ResponseWriter, sessionID string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     "session_id",
		Value:    sessionID,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     "session_id",
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func randomToken(bytesLen int) (string, error) {
	buf := make([]byte, bytesLen)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashPassword(password string) (string, error) {
	salt, err := randomToken(16)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(salt + password))
	hash := base64.RawURLEncoding.EncodeToString(sum[:])
	return salt + ":" + hash, nil
}

func verifyPassword(stored string, password string) bool {
	parts := strings.Split(stored, ":")
	if len(parts) != 2 {
		return false
	}
	salt := parts[0]
	encoded := parts[1]

	sum := sha256.Sum256([]byte(salt + password))
	computed := base64.RawURLEncoding.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(computed), []byte(encoded)) == 1
}

func verifyAdminKey(stored string, provided string) bool {
	return verifyPassword(stored, provided)
}

func normalizeRole(role string) string {
	if strings.ToLower(role) == "admin" {
		return "admin"
	}
	return "user"
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
