package optimizer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func matrixFrom(rows [][]float64) *mat.Dense {
	if len(rows) == 0 {
		return nil
	}
	m := mat.NewDense(len(rows), len(rows[0]), nil)
	for i, row := range rows {
		for j, v := range row {
			m.Set(i, j, v)
		}
	}
	return m
}

func TestSimulateSingleEntryOneWeek(t *testing.T) {
	win := matrixFrom([][]float64{{0.9, 0.6}})
	teams := []string{"KC", "NYJ"}

	probs := SimulateSingleEntry(win, []bool{false, false}, teams, 10000, DefaultSeed, 1)

	require.Len(t, probs, 2)
	assert.InDelta(t, 0.9, probs["KC"], 0.01)
	assert.InDelta(t, 0.6, probs["NYJ"], 0.01)
}

func TestSimulateGreedyContinuation(t *testing.T) {
	// Picking the first team in week 0 forces the greedy path through the
	// second team (0.85) and then the third (0.9).
	win := matrixFrom([][]float64{
		{0.9, 0.8, 0.5},
		{0.1, 0.85, 0.6},
		{0.1, 0.1, 0.9},
	})
	teams := []string{"A", "B", "C"}

	probs := SimulateSingleEntry(win, []bool{false, false, false}, teams, 50000, DefaultSeed, 1)

	assert.InDelta(t, 0.9*0.85*0.9, probs["A"], 0.01)
}

func TestSimulateNoAvailableTeams(t *testing.T) {
	win := matrixFrom([][]float64{{0.9, 0.6}})
	teams := []string{"KC", "NYJ"}

	probs := SimulateSingleEntry(win, []bool{true, true}, teams, 1000, DefaultSeed, 1)
	assert.Empty(t, probs)
}

func TestSimulateSkipsByeWeekTeams(t *testing.T) {
	win := matrixFrom([][]float64{{0.9, math.NaN()}})
	teams := []string{"KC", "NYJ"}

	probs := SimulateSingleEntry(win, []bool{false, false}, teams, 1000, DefaultSeed, 1)

	require.Len(t, probs, 1)
	assert.Contains(t, probs, "KC")
}

func TestSimulateDeadEndFutureWeek(t *testing.T) {
	// Two teams over three weeks: every path runs out of picks and dies.
	win := matrixFrom([][]float64{
		{0.9, 0.8},
		{0.9, 0.8},
		{0.9, 0.8},
	})
	teams := []string{"A", "B"}

	probs := SimulateSingleEntry(win, []bool{false, false}, teams, 1000, DefaultSeed, 1)

	require.Len(t, probs, 2)
	assert.Zero(t, probs["A"])
	assert.Zero(t, probs["B"])
}

func TestSimulateDeterministic(t *testing.T) {
	win := matrixFrom([][]float64{
		{0.9, 0.7, 0.55},
		{0.6, 0.8, 0.65},
	})
	teams := []string{"A", "B", "C"}
	mask := []bool{false, false, false}

	first := SimulateSingleEntry(win, mask, teams, 5000, DefaultSeed, 1)
	second := SimulateSingleEntry(win, mask, teams, 5000, DefaultSeed, 1)

	assert.Equal(t, first, second)
}

func TestSimulateIndependentOfWorkerCount(t *testing.T) {
	// Each candidate owns its own generator, so sharding the candidates over
	// more workers must not change any estimate.
	win := matrixFrom([][]float64{
		{0.9, 0.7, 0.55, 0.62},
		{0.6, 0.8, 0.65, 0.3},
		{0.5, 0.4, 0.75, 0.8},
	})
	teams := []string{"A", "B", "C", "D"}
	mask := []bool{false, false, false, false}

	serial := SimulateSingleEntry(win, mask, teams, 5000, DefaultSeed, 1)
	parallel := SimulateSingleEntry(win, mask, teams, 5000, DefaultSeed, 4)

	assert.Equal(t, serial, parallel)
}

func TestSimulateGreedyDominance(t *testing.T) {
	// With one week left, survival reduces to the week's win probability, so
	// the survival ordering must match the probability ordering.
	win := matrixFrom([][]float64{{0.55, 0.9, 0.72}})
	teams := []string{"A", "B", "C"}

	probs := SimulateSingleEntry(win, []bool{false, false, false}, teams, 20000, DefaultSeed, 1)

	assert.Greater(t, probs["B"], probs["C"])
	assert.Greater(t, probs["C"], probs["A"])
}

func TestSimulateNilMatrix(t *testing.T) {
	probs := SimulateSingleEntry(nil, nil, nil, 1000, DefaultSeed, 1)
	assert.Empty(t, probs)
}
