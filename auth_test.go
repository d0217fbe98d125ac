package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashRoundtrip(t *testing.T) {
	hash, err := hashPassword("correct horse battery")
	require.NoError(t, err)
	assert.Contains(t, hash, ":")

	assert.True(t, verifyPassword(hash, "correct horse battery"))
	assert.False(t, verifyPassword(hash, "wrong password"))
}

func TestPasswordHashesAreSalted(t *testing.T) {
	a, err := hashPassword("same password")
	require.NoError(t, err)
	b, err := hashPassword("same password")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestVerifyPassword_MalformedStored(t *testing.T) {
	assert.False(t, verifyPassword("", "anything"))
	assert.False(t, verifyPassword("no-separator", "anything"))
	assert.False(t, verifyPassword("a:b:c", "anything"))
}

func TestRandomToken(t *testing.T) {
	a, err := randomToken(24)
	require.NoError(t, err)
	b, err := randomToken(24)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.NotContains(t, a, "=")
	assert.NotContains(t, a, "/")
}

func TestNormalizeRole(t *testing.T) {
	assert.Equal(t, "admin", normalizeRole("admin"))
	assert.Equal(t, "admin", normalizeRole("ADMIN"))
	assert.Equal(t, "user", normalizeRole("user"))
	assert.Equal(t, "user", normalizeRole("moderator"))
	assert.Equal(t, "user", normalizeRole(""))
}

func TestSessionTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/profile", nil)
	assert.Empty(t, sessionTokenFromRequest(r))

	r.Header.Set("X-Session-Token", "  header-token  ")
	assert.Equal(t, "header-token", sessionTokenFromRequest(r))

	// The cookie wins over the header when both are present.
	r.AddCookie(&http.Cookie{Name: "session_id", Value: "cookie-token"})
	assert.Equal(t, "cookie-token", sessionTokenFromRequest(r))
}

func TestGetClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.9:4321"
	assert.Equal(t, "10.0.0.9", getClientIP(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", getClientIP(r))
}

func TestVerifyAdminKey(t *testing.T) {
	hash, err := hashPassword("the-admin-key")
	require.NoError(t, err)
	assert.True(t, verifyAdminKey(hash, "the-admin-key"))
	assert.False(t, verifyAdminKey(hash, strings.ToUpper("the-admin-key")))
}
