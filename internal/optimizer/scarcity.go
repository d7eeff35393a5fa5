package optimizer

import "github.com/jstittsworth/survivor-optimizer/internal/matchup"

// AnalyzeScarcity counts, for each future week, how many teams above the
// win-probability threshold are still available to an entry. A shrinking
// count signals that strong teams should be saved rather than spent.
func AnalyzeScarcity(byWeek map[int][]matchup.WeekMatchup, usedTeams []string, threshold float64) map[int]int {
	if threshold <= 0 {
		threshold = DefaultStrongTeamThreshold
	}

	used := make(map[string]bool, len(usedTeams))
	for _, t := range usedTeams {
		used[t] = true
	}

	scarcity := make(map[int]int, len(byWeek))
	for week, matchups := range byWeek {
		count := 0
		for _, m := range matchups {
			if !used[m.Team] && m.WinProb >= threshold {
				count++
			}
		}
		scarcity[week] = count
	}
	return scarcity
}
