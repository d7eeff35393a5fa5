package ingest

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/jstittsworth/survivor-optimizer/internal/models"
	"github.com/jstittsworth/survivor-optimizer/internal/store"
)

// nflTeams maps canonical abbreviation → full name for the 32 active clubs.
var nflTeams = map[string]string{
	"ARI": "Arizona Cardinals", "ATL": "Atlanta Falcons",
	"BAL": "Baltimore Ravens", "BUF": "Buffalo Bills",
	"CAR": "Carolina Panthers", "CHI": "Chicago Bears",
	"CIN": "Cincinnati Bengals", "CLE": "Cleveland Browns",
	"DAL": "Dallas Cowboys", "DEN": "Denver Broncos",
	"DET": "Detroit Lions", "GB": "Green Bay Packers",
	"HOU": "Houston Texans", "IND": "Indianapolis Colts",
	"JAX": "Jacksonville Jaguars", "KC": "Kansas City Chiefs",
	"LAC": "Los Angeles Chargers", "LAR": "Los Angeles Rams",
	"LV": "Las Vegas Raiders", "MIA": "Miami Dolphins",
	"MIN": "Minnesota Vikings", "NE": "New England Patriots",
	"NO": "New Orleans Saints", "NYG": "New York Giants",
	"NYJ": "New York Jets", "PHI": "Philadelphia Eagles",
	"PIT": "Pittsburgh Steelers", "SEA": "Seattle Seahawks",
	"SF": "San Francisco 49ers", "TB": "Tampa Bay Buccaneers",
	"TEN": "Tennessee Titans", "WAS": "Washington Commanders",
}

var teamConferences = map[string][2]string{
	"ARI": {"NFC", "NFC West"}, "ATL": {"NFC", "NFC South"},
	"BAL": {"AFC", "AFC North"}, "BUF": {"AFC", "AFC East"},
	"CAR": {"NFC", "NFC South"}, "CHI": {"NFC", "NFC North"},
	"CIN": {"AFC", "AFC North"}, "CLE": {"AFC", "AFC North"},
	"DAL": {"NFC", "NFC East"}, "DEN": {"AFC", "AFC West"},
	"DET": {"NFC", "NFC North"}, "GB": {"NFC", "NFC North"},
	"HOU": {"AFC", "AFC South"}, "IND": {"AFC", "AFC South"},
	"JAX": {"AFC", "AFC South"}, "KC": {"AFC", "AFC West"},
	"LAC": {"AFC", "AFC West"}, "LAR": {"NFC", "NFC West"},
	"LV": {"AFC", "AFC West"}, "MIA": {"AFC", "AFC East"},
	"MIN": {"NFC", "NFC North"}, "NE": {"AFC", "AFC East"},
	"NO": {"NFC", "NFC South"}, "NYG": {"NFC", "NFC East"},
	"NYJ": {"AFC", "AFC East"}, "PHI": {"NFC", "NFC East"},
	"PIT": {"AFC", "AFC North"}, "SEA": {"NFC", "NFC West"},
	"SF": {"NFC", "NFC West"}, "TB": {"NFC", "NFC South"},
	"TEN": {"AFC", "AFC South"}, "WAS": {"NFC", "NFC East"},
}

// Loader drives ingestion: teams, schedules with results, and team-week
// stats. It owns the TeamWeekStats rows; the decision engine only reads them.
type Loader struct {
	client *Client
	store  *store.Store
	logger *logrus.Logger
}

func NewLoader(client *Client, s *store.Store, logger *logrus.Logger) *Loader {
	return &Loader{client: client, store: s, logger: logger}
}

// SeedTeams ensures all 32 teams exist and returns the abbr → id map.
func (l *Loader) SeedTeams() (map[string]uint, error) {
	abbrToID := make(map[string]uint, len(nflTeams))

	abbrs := make([]string, 0, len(nflTeams))
	for abbr := range nflTeams {
		abbrs = append(abbrs, abbr)
	}
	sort.Strings(abbrs)

	for _, abbr := range abbrs {
		team, err := l.store.TeamByAbbr(abbr)
		if err != nil {
			return nil, err
		}
		if team == nil {
			confDiv := teamConferences[abbr]
			team = &models.Team{
				Abbr:       abbr,
				FullName:   nflTeams[abbr],
				Conference: confDiv[0],
				Division:   confDiv[1],
			}
			if err := l.store.CreateTeam(team); err != nil {
				return nil, err
			}
		}
		abbrToID[abbr] = team.ID
	}

	l.logger.Infof("Seeded %d teams", len(abbrToID))
	return abbrToID, nil
}

// LoadSchedule upserts the season schedule, keyed by (season, week, home
// team). Results on already-known games are refreshed in place.
func (l *Loader) LoadSchedule(ctx context.Context, season int, teamMap map[string]uint) error {
	rows, err := l.client.FetchSchedule(ctx, season)
	if err != nil {
		return fmt.Errorf("failed to fetch schedule for season %d: %w", season, err)
	}

	created := 0
	for _, row := range rows {
		homeID, ok := teamMap[row.HomeTeam]
		if !ok {
			continue
		}
		awayID, ok := teamMap[row.AwayTeam]
		if !ok {
			continue
		}

		var homeWin *bool
		if row.HomeScore != nil && row.AwayScore != nil {
			won := *row.HomeScore > *row.AwayScore
			homeWin = &won
		}

		game, err := l.store.GameByKey(season, row.Week, homeID)
		if err != nil {
			return err
		}
		if game == nil {
			game = &models.Game{
				Season:     season,
				Week:       row.Week,
				HomeTeamID: homeID,
				AwayTeamID: awayID,
				IsNeutral:  row.NeutralSite,
				Location:   row.Location,
			}
			created++
		}
		game.GameDate = row.GameDay
		game.HomeScore = row.HomeScore
		game.AwayScore = row.AwayScore
		game.HomeWin = homeWin

		if err := l.store.SaveGame(game); err != nil {
			return err
		}
	}

	l.logger.Infof("Loaded schedule for season %d (%d new games)", season, created)
	return nil
}

// LoadTeamStats upserts team-week stat rows and derives the schedule-based
// fields: rest days (10 for the opener, 7 per week gap after) and the
// trailing-4-game point differential form.
func (l *Loader) LoadTeamStats(ctx context.Context, season int, teamMap map[string]uint) error {
	statRows, err := l.client.FetchTeamWeekStats(ctx, season)
	if err != nil {
		return fmt.Errorf("failed to fetch team stats for season %d: %w", season, err)
	}

	restDays, recentForm, err := l.deriveScheduleFactors(season, teamMap)
	if err != nil {
		return err
	}

	upserted := 0
	for _, row := range statRows {
		teamID, ok := teamMap[row.Team]
		if !ok {
			continue
		}

		stats, err := l.store.StatsByKey(teamID, season, row.Week)
		if err != nil {
			return err
		}
		if stats == nil {
			stats = &models.TeamWeekStats{
				TeamID: teamID,
				Season: season,
				Week:   row.Week,
			}
		}

		if row.OffEPA != nil {
			stats.OffEPAPerPlay = row.OffEPA
		}
		if row.DefEPA != nil {
			stats.DefEPAPerPlay = row.DefEPA
		}
		if row.PointDiff != nil {
			stats.PointDifferential = row.PointDiff
		}

		key := teamWeek{row.Team, row.Week}
		if rest, ok := restDays[key]; ok {
			stats.RestDays = &rest
		}
		if form, ok := recentForm[key]; ok {
			stats.RecentForm = &form
		}

		if err := l.store.SaveStats(stats); err != nil {
			return err
		}
		upserted++
	}

	l.logger.Infof("Upserted %d team-week stat rows for season %d", upserted, season)
	return nil
}

type teamWeek struct {
	team string
	week int
}

// deriveScheduleFactors walks each team's played games in week order to
// compute rest days and trailing-4-game average point differential.
func (l *Loader) deriveScheduleFactors(season int, teamMap map[string]uint) (map[teamWeek]int, map[teamWeek]float64, error) {
	restDays := make(map[teamWeek]int)
	recentForm := make(map[teamWeek]float64)

	abbrs := make([]string, 0, len(teamMap))
	for abbr := range teamMap {
		abbrs = append(abbrs, abbr)
	}
	sort.Strings(abbrs)

	for _, abbr := range abbrs {
		teamID := teamMap[abbr]
		games, err := l.store.GamesForTeam(season, teamID)
		if err != nil {
			return nil, nil, err
		}

		var margins []float64
		prevWeek := 0
		for i, g := range games {
			if i == 0 {
				restDays[teamWeek{abbr, g.Week}] = 10 // full rest into the opener
			} else {
				restDays[teamWeek{abbr, g.Week}] = (g.Week - prevWeek) * 7
			}
			prevWeek = g.Week

			if len(margins) > 0 {
				window := margins
				if len(window) > 4 {
					window = window[len(window)-4:]
				}
				var sum float64
				for _, m := range window {
					sum += m
				}
				recentForm[teamWeek{abbr, g.Week}] = sum / float64(len(window))
			}

			if g.HomeScore != nil && g.AwayScore != nil {
				margin := float64(*g.HomeScore - *g.AwayScore)
				if g.AwayTeamID == teamID {
					margin = -margin
				}
				margins = append(margins, margin)
			}
		}
	}

	return restDays, recentForm, nil
}

// RefreshSeason runs the full pipeline: seed teams, reload schedule and
// results, rebuild stats.
func (l *Loader) RefreshSeason(ctx context.Context, season int) error {
	teamMap, err := l.SeedTeams()
	if err != nil {
		return err
	}
	if err := l.LoadSchedule(ctx, season, teamMap); err != nil {
		return err
	}
	if err := l.LoadTeamStats(ctx, season, teamMap); err != nil {
		return err
	}
	return nil
}
