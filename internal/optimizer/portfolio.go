package optimizer

import (
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/jstittsworth/survivor-optimizer/internal/matchup"
)

// EntryState is the optimizer's view of one survivor entry.
type EntryState struct {
	EntryID   uint
	UsedTeams []string
	IsAlive   bool
}

// Recommendation is the per-entry output of a portfolio run.
type Recommendation struct {
	EntryID           uint           `json:"entry_id"`
	Week              int            `json:"week"`
	RecommendedTeam   string         `json:"recommended_team"`
	WinProb           float64        `json:"win_prob"`
	SurvivalProb      float64        `json:"survival_prob"`
	PortfolioCoverage float64        `json:"portfolio_coverage"`
	StrategyPicks     map[int]string `json:"strategy_picks"`
	StrategySurvival  float64        `json:"strategy_survival"`
}

// RecommendPortfolio assembles diversified picks across a set of entries.
// Entries are processed in input order; each recommendation discounts teams
// already committed earlier in the same call by the diversity penalty per
// duplicate, nudging later entries toward near-tied alternatives so the pool
// doesn't die on a single upset. The exact joint optimization is not
// attempted; the penalty is a greedy stand-in and is tunable through config.
func RecommendPortfolio(byWeek map[int][]matchup.WeekMatchup, currentWeek int, entries []EntryState, cfg Config) []Recommendation {
	if len(byWeek) == 0 {
		logrus.Warnf("No matchup data for week %d onward", currentWeek)
		return nil
	}

	win, weeks, teams := matchup.BuildWinMatrix(byWeek)
	if win == nil {
		return nil
	}

	penalty := cfg.DiversityPenalty
	if penalty == 0 {
		penalty = DefaultDiversityPenalty
	}

	var recommendations []Recommendation
	committed := make(map[string]int) // team → times already recommended this call

	for _, entry := range entries {
		if !entry.IsAlive {
			continue
		}

		usedMask := matchup.UsedMask(teams, entry.UsedTeams)

		strategyPicks, strategySurv := SearchStrategy(win, usedMask, teams, cfg.BeamWidth)
		singleProbs := SimulateSingleEntry(win, usedMask, teams, cfg.NSimulations, cfg.Seed, cfg.Workers)
		if len(singleProbs) == 0 {
			continue
		}

		// Argmax of the diversity-discounted survival. Candidates are walked
		// in sorted abbreviation order so score ties resolve lexicographically.
		candidates := make([]string, 0, len(singleProbs))
		for team := range singleProbs {
			candidates = append(candidates, team)
		}
		sort.Strings(candidates)

		bestTeam := ""
		bestScore := -1.0
		for _, team := range candidates {
			score := singleProbs[team] * (1.0 - penalty*float64(committed[team]))
			if score > bestScore {
				bestScore = score
				bestTeam = team
			}
		}
		committed[bestTeam]++

		winProb := 0.0
		for _, m := range byWeek[currentWeek] {
			if m.Team == bestTeam {
				winProb = m.WinProb
				break
			}
		}

		picksByWeek := make(map[int]string, len(strategyPicks))
		for i, pick := range strategyPicks {
			if i < len(weeks) {
				picksByWeek[weeks[i]] = pick
			}
		}

		recommendations = append(recommendations, Recommendation{
			EntryID:           entry.EntryID,
			Week:              currentWeek,
			RecommendedTeam:   bestTeam,
			WinProb:           winProb,
			SurvivalProb:      singleProbs[bestTeam],
			PortfolioCoverage: bestScore,
			StrategyPicks:     picksByWeek,
			StrategySurvival:  strategySurv,
		})
	}

	return recommendations
}
