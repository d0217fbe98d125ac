package main

import "time"

// dayKey buckets a timestamp into its calendar day, server-local.
// Completions and rotations compare these strings to decide whether
// "today" has changed; the format matches the first 10 characters of
// an RFC3339 timestamp.
func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

func sameDay(a, b time.Time) bool {
	return dayKey(a) == dayKey(b)
}
