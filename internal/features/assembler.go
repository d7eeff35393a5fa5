package features

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/jstittsworth/survivor-optimizer/internal/models"
	"github.com/jstittsworth/survivor-optimizer/internal/store"
)

// NumFeatures is the width of every feature vector the model consumes.
const NumFeatures = 10

// Names labels the feature vector positions, in order.
var Names = []string{
	"dvoa_diff", "off_dvoa_diff", "def_dvoa_diff",
	"epa_off_diff", "epa_def_diff",
	"srs_diff", "form_diff", "rest_advantage",
	"is_home", "is_neutral",
}

const defaultRestDays = 7

// Bundle is the fixed-shape stat record for one team at one point in the
// season. Missing source fields have already been substituted (0, or 7 for
// rest days) by the time a Bundle exists; this is the single chokepoint for
// that rule.
type Bundle struct {
	TotalDVOA   float64
	OffenseDVOA float64
	DefenseDVOA float64
	STDVOA      float64
	OffEPA      float64
	DefEPA      float64
	SRS         float64
	RecentForm  float64
	RestDays    int
}

// BundleFromStats converts a nullable stats row into a dense Bundle. A nil
// row yields the all-substituted zero bundle.
func BundleFromStats(stats *models.TeamWeekStats) Bundle {
	b := Bundle{RestDays: defaultRestDays}
	if stats == nil {
		return b
	}
	b.TotalDVOA = deref(stats.TotalDVOA)
	b.OffenseDVOA = deref(stats.OffenseDVOA)
	b.DefenseDVOA = deref(stats.DefenseDVOA)
	b.STDVOA = deref(stats.STDVOA)
	b.OffEPA = deref(stats.OffEPAPerPlay)
	b.DefEPA = deref(stats.DefEPAPerPlay)
	b.SRS = deref(stats.SRS)
	b.RecentForm = deref(stats.RecentForm)
	if stats.RestDays != nil {
		b.RestDays = *stats.RestDays
	}
	return b
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// Vector builds the model input for a game from the home team's perspective.
// Defensive ratings are inverted because lower is better on that side of
// the ball.
func Vector(home, away Bundle, isNeutral bool) []float64 {
	isHome := 1.0
	neutral := 0.0
	if isNeutral {
		isHome = 0.0
		neutral = 1.0
	}
	return []float64{
		home.TotalDVOA - away.TotalDVOA,
		home.OffenseDVOA - away.OffenseDVOA,
		away.DefenseDVOA - home.DefenseDVOA,
		home.OffEPA - away.OffEPA,
		away.DefEPA - home.DefEPA,
		home.SRS - away.SRS,
		home.RecentForm - away.RecentForm,
		float64(home.RestDays - away.RestDays),
		isHome,
		neutral,
	}
}

// HasSignal reports whether a vector carries any real stats. The first six
// features all being exactly zero is the proxy for missing source data, and
// such samples are skipped during training.
func HasSignal(vec []float64) bool {
	for _, f := range vec[:6] {
		if f != 0 {
			return true
		}
	}
	return false
}

// Assembler joins team-week stats into per-game feature vectors.
type Assembler struct {
	store *store.Store
}

func NewAssembler(s *store.Store) *Assembler {
	return &Assembler{store: s}
}

// LatestBundle returns the feature bundle from the most recent stats row with
// week <= the given week.
func (a *Assembler) LatestBundle(teamID uint, season, week int) (Bundle, error) {
	stats, err := a.store.LatestStats(teamID, season, week, true)
	if err != nil {
		return Bundle{}, err
	}
	return BundleFromStats(stats), nil
}

// LatestBundleBefore is LatestBundle with a strict week' < week cutoff, used
// when scoring upcoming games so the target week's own stats never leak in.
func (a *Assembler) LatestBundleBefore(teamID uint, season, week int) (Bundle, error) {
	stats, err := a.store.LatestStats(teamID, season, week, false)
	if err != nil {
		return Bundle{}, err
	}
	return BundleFromStats(stats), nil
}

// BuildTrainingSet assembles the feature matrix and label vector from every
// played game in the given seasons. The label is 1 iff the home team won.
func (a *Assembler) BuildTrainingSet(seasons []int) ([][]float64, []int, error) {
	var (
		X       [][]float64
		y       []int
		total   int
		skipped int
	)

	// Request-local cache: training revisits the same (team, week) many times.
	type statsKey struct {
		teamID uint
		season int
		week   int
	}
	cache := make(map[statsKey]Bundle)

	bundle := func(teamID uint, season, week int) (Bundle, error) {
		key := statsKey{teamID, season, week}
		if b, ok := cache[key]; ok {
			return b, nil
		}
		b, err := a.LatestBundle(teamID, season, week)
		if err != nil {
			return Bundle{}, err
		}
		cache[key] = b
		return b, nil
	}

	for _, season := range seasons {
		games, err := a.store.ListGames(season, 0, false, false)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load games for season %d: %w", season, err)
		}

		for _, game := range games {
			if !game.IsPlayed() {
				continue
			}
			total++

			home, err := bundle(game.HomeTeamID, game.Season, game.Week)
			if err != nil {
				return nil, nil, err
			}
			away, err := bundle(game.AwayTeamID, game.Season, game.Week)
			if err != nil {
				return nil, nil, err
			}

			vec := Vector(home, away, game.IsNeutral)
			if !HasSignal(vec) {
				skipped++
				continue
			}

			label := 0
			if *game.HomeWin {
				label = 1
			}
			X = append(X, vec)
			y = append(y, label)
		}
	}

	logrus.Infof("Built feature matrix: %d samples from %d games (%d skipped for missing data)",
		len(X), total, skipped)

	return X, y, nil
}
