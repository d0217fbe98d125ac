package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDayKey(t *testing.T) {
	ts := time.Date(2026, 8, 24, 23, 59, 59, 0, time.UTC)
	assert.Equal(t, "2026-08-24", dayKey(ts))

	// The day key is exactly the date prefix of an RFC3339 render.
	assert.Equal(t, ts.Format(time.RFC3339)[:10], dayKey(ts))
}

func TestDayKey_SingleDigitMonthAndDay(t *testing.T) {
	ts := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-01-05", dayKey(ts))
}

func TestSameDay(t *testing.T) {
	morning := time.Date(2026, 8, 24, 0, 0, 1, 0, time.UTC)
	night := time.Date(2026, 8, 24, 23, 59, 59, 0, time.UTC)
	nextDay := night.Add(time.Second)

	assert.True(t, sameDay(morning, night))
	assert.False(t, sameDay(night, nextDay))
}
