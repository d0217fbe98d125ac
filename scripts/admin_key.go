package main

import (
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	_ "github.com/lib/pq"
)

// One-off tool: generates a fresh admin key for an existing admin-role
// account and stores its hash. The plaintext key is printed once and never
// persisted; hand it to the operator for the X-Admin-Key header.
//
//	ADMIN_USERNAME=someadmin DATABASE_URL=... go run scripts/admin_key.go

func main() {
	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		fmt.Println("DATABASE_URL is required")
		os.Exit(1)
	}
	username := strings.TrimSpace(strings.ToLower(os.Getenv("ADMIN_USERNAME")))
	if username == "" {
		fmt.Println("ADMIN_USERNAME is required")
		os.Exit(1)
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		fmt.Println("failed to open database:", err)
		os.Exit(1)
	}
	defer db.Close()

	var accountID string
	var role string
	err = db.QueryRow(`
		SELECT account_id, role
		FROM accounts
		WHERE username = $1
	`, username).Scan(&accountID, &role)
	if err == sql.ErrNoRows {
		fmt.Println("no account with username", username)
		os.Exit(1)
	}
	if err != nil {
		fmt.Println("account lookup failed:", err)
		os.Exit(1)
	}
	if role != "admin" {
		fmt.Printf("account %s has role %q, not admin; refusing to set a key\n", username, role)
		os.Exit(1)
	}

	key, err := randomToken(24)
	if err != nil {
		fmt.Println("failed to generate key:", err)
		os.Exit(1)
	}
	hash, err := hashKey(key)
	if err != nil {
		fmt.Println("failed to hash key:", err)
		os.Exit(1)
	}

	if _, err := db.Exec(`
		UPDATE accounts
		SET admin_key_hash = $2
		WHERE account_id = $1
	`, accountID, hash); err != nil {
		fmt.Println("failed to store key hash:", err)
		os.Exit(1)
	}

	fmt.Printf("Admin key for %s (shown once):\n%s\n", username, key)
}

func randomToken(bytesLen int) (string, error) {
	buf := make([]byte, bytesLen)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Same salt:hash layout the server's verifyAdminKey expects.
func hashKey(key string) (string, error) {
	salt, err := randomToken(16)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(salt + key))
	return salt + ":" + base64.RawURLEncoding.EncodeToString(sum[:]), nil
}
