package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCurrentSeason(t *testing.T) {
	cases := []struct {
		date   string
		season int
	}{
		{"2025-09-07", 2025}, // opening weekend
		{"2026-01-04", 2025}, // week 18 spills into January
		{"2026-02-08", 2025}, // postseason still belongs to the prior season
		{"2026-08-24", 2026}, // preseason of the next year
	}
	for _, tc := range cases {
		d, err := time.Parse("2006-01-02", tc.date)
		assert.NoError(t, err)
		assert.Equal(t, tc.season, CurrentSeason(d), "date %s", tc.date)
	}
}

func TestSMSRateLimiter(t *testing.T) {
	rl := NewSMSRateLimiter(2, time.Hour)

	assert.NoError(t, rl.Allow("+15551230000"))
	assert.NoError(t, rl.Allow("+15551230000"))
	assert.Error(t, rl.Allow("+15551230000"))

	// A different number has its own window.
	assert.NoError(t, rl.Allow("+15551239999"))
}
