package optimizer

import (
	"math"
	"math/rand"
	"sync"

	"gonum.org/v1/gonum/mat"
)

// Compiled-in defaults for the decision engine, overridable through config.
const (
	DefaultSeed        = 42
	DefaultSimulations = 50000
	DefaultBeamWidth   = 5
	DefaultDiversityPenalty    = 0.05
	DefaultStrongTeamThreshold = 0.65
)

// Config carries the optimizer tunables threaded down from the service
// configuration.
type Config struct {
	Seed             int64
	NSimulations     int
	BeamWidth        int
	DiversityPenalty float64
	Workers          int
}

func DefaultConfig() Config {
	return Config{
		Seed:             DefaultSeed,
		NSimulations:     DefaultSimulations,
		BeamWidth:        DefaultBeamWidth,
		DiversityPenalty: DefaultDiversityPenalty,
		Workers:          1,
	}
}

// SimulateSingleEntry estimates, for every team available in the current
// (first) week, the probability of surviving the whole remaining season if
// that team is picked now and every later week follows the greedy
// highest-probability continuation.
//
// The greedy future sequence is decided once per candidate, not per
// simulation; randomness enters only through game outcomes. Each candidate
// owns its own generator seeded from (seed, column), so results are
// bit-identical across runs and independent of worker count.
func SimulateSingleEntry(win *mat.Dense, usedMask []bool, teams []string, nSims int, seed int64, workers int) map[string]float64 {
	if win == nil {
		return map[string]float64{}
	}
	nWeeks, nTeams := win.Dims()
	if nWeeks == 0 || nTeams == 0 {
		return map[string]float64{}
	}
	if nSims <= 0 {
		nSims = DefaultSimulations
	}
	if workers <= 0 {
		workers = 1
	}

	// Candidates: available in week 0.
	var candidates []int
	for t := 0; t < nTeams; t++ {
		if usedMask[t] {
			continue
		}
		if math.IsNaN(win.At(0, t)) {
			continue
		}
		candidates = append(candidates, t)
	}
	if len(candidates) == 0 {
		return map[string]float64{}
	}

	survival := make([]float64, nTeams)

	var wg sync.WaitGroup
	work := make(chan int)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range work {
				rng := rand.New(rand.NewSource(seed + int64(t)))
				survival[t] = simulateCandidate(win, usedMask, t, nSims, rng)
			}
		}()
	}
	for _, t := range candidates {
		work <- t
	}
	close(work)
	wg.Wait()

	result := make(map[string]float64, len(candidates))
	for _, t := range candidates {
		result[teams[t]] = survival[t]
	}
	return result
}

// simulateCandidate runs nSims survival paths for one first-week pick.
func simulateCandidate(win *mat.Dense, usedMask []bool, firstPick, nSims int, rng *rand.Rand) float64 {
	nWeeks, nTeams := win.Dims()

	used := make([]bool, nTeams)
	copy(used, usedMask)
	used[firstPick] = true

	alive := make([]bool, nSims)
	aliveCount := 0
	p0 := win.At(0, firstPick)
	for i := range alive {
		if rng.Float64() < p0 {
			alive[i] = true
			aliveCount++
		}
	}

	for w := 1; w < nWeeks; w++ {
		if aliveCount == 0 {
			break
		}

		// Greedy pick: highest available win prob, ties to the lower column.
		best := -1
		bestProb := -1.0
		for t := 0; t < nTeams; t++ {
			if used[t] {
				continue
			}
			p := win.At(w, t)
			if math.IsNaN(p) {
				continue
			}
			if p > bestProb {
				bestProb = p
				best = t
			}
		}

		if best < 0 {
			// Dead-end week: nothing left to pick, every path dies.
			return 0
		}
		used[best] = true

		for i := range alive {
			if alive[i] && rng.Float64() >= bestProb {
				alive[i] = false
				aliveCount--
			}
		}
	}

	return float64(aliveCount) / float64(nSims)
}
