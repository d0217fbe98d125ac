package main

import (
	"strings"
	"unicode"
)

// validUsername enforces the signup rule: 5-20 characters, letters and
// digits only, and at least one letter so a username can't be all numeric.
func validUsername(username string) bool {
	if len(username) < 5 || len(username) > 20 {
		return false
	}

	hasLetter := false
	for _, r := range username {
		if unicode.IsLetter(r) {
			hasLetter = true
			continue
		}
		if unicode.IsDigit(r) {
			continue
		}
		return false
	}
	return hasLetter
}

func validPassword(password string) bool {
	return len(password) >= 8 && len(password) <= 64
}

func validTaskName(name string) bool {
	name = strings.TrimSpace(name)
	return name != "" && len(name) <= 100
}

func validImageURL(url string) bool {
	url = strings.TrimSpace(url)
	if url == "" || len(url) > 512 {
		return false
	}
	return !strings.ContainsAny(url, " \t\n")
}
