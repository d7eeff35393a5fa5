package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jstittsworth/survivor-optimizer/internal/matchup"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.NSimulations = 20000
	return cfg
}

// week builds both sides of one game.
func week(w int, team, opponent string, winProb float64) []matchup.WeekMatchup {
	return []matchup.WeekMatchup{
		{Week: w, Team: team, Opponent: opponent, IsHome: true, WinProb: winProb},
		{Week: w, Team: opponent, Opponent: team, IsHome: false, WinProb: 1 - winProb},
	}
}

func TestRecommendPortfolioDiversifies(t *testing.T) {
	// One dominant team (0.9) and a close alternative (0.88). The first entry
	// takes the favorite; the 5% duplicate discount (0.9 → 0.855) pushes the
	// second entry onto the alternative.
	byWeek := map[int][]matchup.WeekMatchup{
		1: append(week(1, "KC", "NYJ", 0.9), week(1, "SF", "CAR", 0.88)...),
	}
	entries := []EntryState{
		{EntryID: 1, IsAlive: true},
		{EntryID: 2, IsAlive: true},
	}

	recs := RecommendPortfolio(byWeek, 1, entries, testConfig())

	require.Len(t, recs, 2)
	assert.Equal(t, "KC", recs[0].RecommendedTeam)
	assert.Equal(t, "SF", recs[1].RecommendedTeam)
	assert.InDelta(t, 0.9, recs[0].WinProb, 1e-12)
	assert.InDelta(t, 0.88, recs[1].WinProb, 1e-12)
}

func TestRecommendPortfolioRepeatsWhenDominant(t *testing.T) {
	// When no alternative comes within the penalty, both entries still take
	// the favorite.
	byWeek := map[int][]matchup.WeekMatchup{
		1: append(week(1, "KC", "NYJ", 0.9), week(1, "SF", "CAR", 0.6)...),
	}
	entries := []EntryState{
		{EntryID: 1, IsAlive: true},
		{EntryID: 2, IsAlive: true},
	}

	recs := RecommendPortfolio(byWeek, 1, entries, testConfig())

	require.Len(t, recs, 2)
	assert.Equal(t, "KC", recs[0].RecommendedTeam)
	assert.Equal(t, "KC", recs[1].RecommendedTeam)
	assert.Less(t, recs[1].PortfolioCoverage, recs[0].PortfolioCoverage)
}

func TestRecommendPortfolioSkipsDeadEntries(t *testing.T) {
	byWeek := map[int][]matchup.WeekMatchup{
		1: week(1, "KC", "NYJ", 0.9),
	}
	entries := []EntryState{
		{EntryID: 1, IsAlive: false},
		{EntryID: 2, IsAlive: true},
	}

	recs := RecommendPortfolio(byWeek, 1, entries, testConfig())

	require.Len(t, recs, 1)
	assert.Equal(t, uint(2), recs[0].EntryID)
}

func TestRecommendPortfolioHonorsUsedTeams(t *testing.T) {
	byWeek := map[int][]matchup.WeekMatchup{
		1: append(week(1, "KC", "NYJ", 0.9), week(1, "SF", "CAR", 0.7)...),
	}
	entries := []EntryState{
		{EntryID: 1, UsedTeams: []string{"KC"}, IsAlive: true},
	}

	recs := RecommendPortfolio(byWeek, 1, entries, testConfig())

	require.Len(t, recs, 1)
	assert.Equal(t, "SF", recs[0].RecommendedTeam)
}

func TestRecommendPortfolioStrategyPicks(t *testing.T) {
	byWeek := map[int][]matchup.WeekMatchup{
		1: week(1, "KC", "NYJ", 0.9),
		2: week(2, "SF", "CAR", 0.8),
	}
	entries := []EntryState{{EntryID: 1, IsAlive: true}}

	recs := RecommendPortfolio(byWeek, 1, entries, testConfig())

	require.Len(t, recs, 1)
	assert.Equal(t, "KC", recs[0].StrategyPicks[1])
	assert.Equal(t, "SF", recs[0].StrategyPicks[2])
	assert.InDelta(t, 0.9*0.8, recs[0].StrategySurvival, 1e-12)
}

func TestRecommendPortfolioEmptyMatchups(t *testing.T) {
	recs := RecommendPortfolio(nil, 1, []EntryState{{EntryID: 1, IsAlive: true}}, testConfig())
	assert.Nil(t, recs)
}

func TestRecommendPortfolioDeterministic(t *testing.T) {
	byWeek := map[int][]matchup.WeekMatchup{
		1: append(week(1, "KC", "NYJ", 0.72), week(1, "SF", "CAR", 0.71)...),
		2: week(2, "BUF", "MIA", 0.66),
	}
	entries := []EntryState{
		{EntryID: 1, IsAlive: true},
		{EntryID: 2, IsAlive: true},
	}

	first := RecommendPortfolio(byWeek, 1, entries, testConfig())
	second := RecommendPortfolio(byWeek, 1, entries, testConfig())

	assert.Equal(t, first, second)
}
