package matchup

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/jstittsworth/survivor-optimizer/internal/store"
)

// WeekMatchup is one side of one remaining game: the team, who it plays, and
// its probability of winning that game. Every game emits two of these, one
// from each side, and the two win probabilities sum to 1.
type WeekMatchup struct {
	Week     int     `json:"week"`
	Team     string  `json:"team"`
	Opponent string  `json:"opponent"`
	IsHome   bool    `json:"is_home"`
	WinProb  float64 `json:"win_prob"`
}

// LoadRemaining materializes the remaining schedule as week → matchups for
// every unplayed game from fromWeek onward that the model has scored. An
// empty map means no usable schedule, never an error.
func LoadRemaining(s *store.Store, season, fromWeek int) (map[int][]WeekMatchup, error) {
	games, err := s.ListGames(season, fromWeek, true, true)
	if err != nil {
		return nil, err
	}

	abbrs, err := s.TeamAbbrs()
	if err != nil {
		return nil, err
	}

	byWeek := make(map[int][]WeekMatchup)
	for _, g := range games {
		home := abbrs[g.HomeTeamID]
		away := abbrs[g.AwayTeamID]

		byWeek[g.Week] = append(byWeek[g.Week],
			WeekMatchup{
				Week:     g.Week,
				Team:     home,
				Opponent: away,
				IsHome:   true,
				WinProb:  *g.HomeWinProb,
			},
			WeekMatchup{
				Week:     g.Week,
				Team:     away,
				Opponent: home,
				IsHome:   false,
				WinProb:  *g.AwayWinProb,
			})
	}

	return byWeek, nil
}

// Weeks returns the sorted distinct weeks present.
func Weeks(byWeek map[int][]WeekMatchup) []int {
	weeks := make([]int, 0, len(byWeek))
	for w := range byWeek {
		weeks = append(weeks, w)
	}
	sort.Ints(weeks)
	return weeks
}

// Teams returns every team appearing in any remaining matchup, sorted by
// abbreviation.
func Teams(byWeek map[int][]WeekMatchup) []string {
	seen := make(map[string]bool)
	for _, matchups := range byWeek {
		for _, m := range matchups {
			seen[m.Team] = true
		}
	}
	teams := make([]string, 0, len(seen))
	for t := range seen {
		teams = append(teams, t)
	}
	sort.Strings(teams)
	return teams
}

// BuildWinMatrix builds the dense (n_weeks × n_teams) probability matrix the
// optimizer consumes. Rows follow the sorted week list, columns the sorted
// team list. A NaN entry means the team is on bye that week, or its stored
// probability fell outside [0, 1] and was treated as unavailable.
func BuildWinMatrix(byWeek map[int][]WeekMatchup) (*mat.Dense, []int, []string) {
	weeks := Weeks(byWeek)
	teams := Teams(byWeek)
	if len(weeks) == 0 || len(teams) == 0 {
		return nil, weeks, teams
	}

	teamIdx := make(map[string]int, len(teams))
	for i, t := range teams {
		teamIdx[t] = i
	}

	win := mat.NewDense(len(weeks), len(teams), nil)
	for i := 0; i < len(weeks); i++ {
		for j := 0; j < len(teams); j++ {
			win.Set(i, j, math.NaN())
		}
	}

	for wi, week := range weeks {
		for _, m := range byWeek[week] {
			ti, ok := teamIdx[m.Team]
			if !ok {
				continue
			}
			p := m.WinProb
			if p < 0 || p > 1 {
				continue // out-of-range guard: leave as NaN
			}
			win.Set(wi, ti, p)
		}
	}

	return win, weeks, teams
}

// UsedMask maps an entry's consumed team abbreviations onto the matrix
// columns. Unknown teams (no remaining games) are ignored.
func UsedMask(teams []string, used []string) []bool {
	idx := make(map[string]int, len(teams))
	for i, t := range teams {
		idx[t] = i
	}
	mask := make([]bool, len(teams))
	for _, t := range used {
		if i, ok := idx[t]; ok {
			mask[i] = true
		}
	}
	return mask
}
