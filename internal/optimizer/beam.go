package optimizer

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// NonePick is how a dead-end week renders in a strategy: the beam carries a
// sentinel index and the caller sees this literal.
const NonePick = "NONE"

const sentinelPick = -1

// beamState is one partial pick sequence. The used set is a bitset over
// matrix columns (32 NFL teams plus aliases fit comfortably in 64 bits), so
// copy-on-extend is a register copy.
type beamState struct {
	used  uint64
	picks []int
	surv  float64
}

func (s beamState) extend(team int, prob float64) beamState {
	picks := make([]int, len(s.picks)+1)
	copy(picks, s.picks)
	picks[len(s.picks)] = team

	used := s.used
	if team >= 0 {
		used |= 1 << uint(team)
	}
	return beamState{used: used, picks: picks, surv: s.surv * prob}
}

// SearchStrategy beam-searches full remaining-season pick sequences to
// maximize expected joint survival, assuming independent game outcomes.
// Returns the best sequence (one pick per week, NonePick for dead ends) and
// its survival probability.
func SearchStrategy(win *mat.Dense, usedMask []bool, teams []string, beamWidth int) ([]string, float64) {
	if win == nil {
		return nil, 1.0
	}
	nWeeks, nTeams := win.Dims()
	if nWeeks == 0 {
		return nil, 1.0
	}
	if beamWidth <= 0 {
		beamWidth = DefaultBeamWidth
	}

	var initialUsed uint64
	for t, used := range usedMask {
		if used {
			initialUsed |= 1 << uint(t)
		}
	}

	frontier := []beamState{{used: initialUsed, surv: 1.0}}

	for w := 0; w < nWeeks; w++ {
		var successors []beamState

		for _, state := range frontier {
			expanded := false
			for t := 0; t < nTeams; t++ {
				if state.used&(1<<uint(t)) != 0 {
					continue
				}
				p := win.At(w, t)
				if math.IsNaN(p) || p < 0 {
					continue
				}
				successors = append(successors, state.extend(t, p))
				expanded = true
			}
			if !expanded {
				// Dead end: survival collapses to zero but the path is kept
				// so the caller can see where it ran out of teams.
				successors = append(successors, state.extend(sentinelPick, 0))
			}
		}

		if len(successors) == 0 {
			break
		}

		sort.SliceStable(successors, func(i, j int) bool {
			return successors[i].surv > successors[j].surv
		})
		if len(successors) > beamWidth {
			successors = successors[:beamWidth]
		}
		frontier = successors
	}

	if len(frontier) == 0 {
		return nil, 0
	}

	best := frontier[0]
	picks := make([]string, len(best.picks))
	for i, t := range best.picks {
		if t == sentinelPick {
			picks[i] = NonePick
		} else {
			picks[i] = teams[t]
		}
	}
	return picks, best.surv
}
