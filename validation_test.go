package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidUsername(t *testing.T) {
	cases := []struct {
		username string
		want     bool
	}{
		{"alice", true},
		{"alice123", true},
		{"a1b2c", true},
		{"abcd", false},                  // too short
		{strings.Repeat("a", 21), false}, // too long
		{strings.Repeat("a", 20), true},
		{"12345", false},  // digits only
		{"alice!", false}, // punctuation
		{"al ice", false}, // space
		{"ali_ce", false}, // underscore not allowed
		{"", false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, validUsername(tc.username), "username %q", tc.username)
	}
}

func TestValidPassword(t *testing.T) {
	assert.False(t, validPassword("short"))
	assert.False(t, validPassword("1234567"))
	assert.True(t, validPassword("12345678"))
	assert.True(t, validPassword(strings.Repeat("x", 64)))
	assert.False(t, validPassword(strings.Repeat("x", 65)))
}

func TestValidTaskName(t *testing.T) {
	assert.True(t, validTaskName("run 2km"))
	assert.False(t, validTaskName(""))
	assert.False(t, validTaskName("   "))
	assert.False(t, validTaskName(strings.Repeat("x", 101)))
}

func TestValidImageURL(t *testing.T) {
	assert.True(t, validImageURL("https://example.com/proof.jpg"))
	assert.True(t, validImageURL("img.jpg"))
	assert.False(t, validImageURL(""))
	assert.False(t, validImageURL("has space.jpg"))
	assert.False(t, validImageURL(strings.Repeat("x", 513)))
}
