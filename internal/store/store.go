package store

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/jstittsworth/survivor-optimizer/internal/models"
	"github.com/jstittsworth/survivor-optimizer/pkg/database"
)

// Store is the relational access layer the decision engine reads schedules,
// stats, and entry state through. All single-row lookups return (nil, nil)
// when the row doesn't exist.
type Store struct {
	db *database.DB
}

func New(db *database.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for migrations and tests.
func (s *Store) DB() *gorm.DB {
	return s.db.DB
}

// ── Teams ──────────────────────────────────────────────────────────────────

func (s *Store) ListTeams() ([]models.Team, error) {
	var teams []models.Team
	if err := s.db.Order("abbr").Find(&teams).Error; err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	return teams, nil
}

// TeamAbbrs returns the id → abbreviation map used to join games to teams.
func (s *Store) TeamAbbrs() (map[uint]string, error) {
	teams, err := s.ListTeams()
	if err != nil {
		return nil, err
	}
	abbrs := make(map[uint]string, len(teams))
	for _, t := range teams {
		abbrs[t.ID] = t.Abbr
	}
	return abbrs, nil
}

func (s *Store) TeamByAbbr(abbr string) (*models.Team, error) {
	var team models.Team
	err := s.db.Where("abbr = ?", abbr).First(&team).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up team %s: %w", abbr, err)
	}
	return &team, nil
}

func (s *Store) CreateTeam(team *models.Team) error {
	if err := s.db.Create(team).Error; err != nil {
		return fmt.Errorf("failed to create team %s: %w", team.Abbr, err)
	}
	return nil
}

// ── Games ──────────────────────────────────────────────────────────────────

// ListGames returns games for a season ordered by week then id. weekMin
// filters to week >= weekMin (0 disables). unplayedOnly restricts to games
// without a result; requireWinProb to games the model has already scored.
func (s *Store) ListGames(season, weekMin int, unplayedOnly, requireWinProb bool) ([]models.Game, error) {
	q := s.db.Where("season = ?", season)
	if weekMin > 0 {
		q = q.Where("week >= ?", weekMin)
	}
	if unplayedOnly {
		q = q.Where("home_win IS NULL")
	}
	if requireWinProb {
		q = q.Where("home_win_prob IS NOT NULL")
	}

	var games []models.Game
	if err := q.Order("week, id").Find(&games).Error; err != nil {
		return nil, fmt.Errorf("failed to list games for season %d: %w", season, err)
	}
	return games, nil
}

func (s *Store) GamesForTeam(season int, teamID uint) ([]models.Game, error) {
	var games []models.Game
	err := s.db.
		Where("season = ? AND (home_team_id = ? OR away_team_id = ?)", season, teamID, teamID).
		Order("week").
		Find(&games).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list games for team %d: %w", teamID, err)
	}
	return games, nil
}

// GameForTeamWeek finds the game a team plays in a given week, if any.
func (s *Store) GameForTeamWeek(season, week int, teamID uint) (*models.Game, error) {
	var game models.Game
	err := s.db.
		Where("season = ? AND week = ? AND (home_team_id = ? OR away_team_id = ?)",
			season, week, teamID, teamID).
		First(&game).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find game for team %d week %d: %w", teamID, week, err)
	}
	return &game, nil
}

// CompletedGameForTeam is GameForTeamWeek restricted to games with a result.
func (s *Store) CompletedGameForTeam(season, week int, teamID uint) (*models.Game, error) {
	var game models.Game
	err := s.db.
		Where("season = ? AND week = ? AND home_win IS NOT NULL AND (home_team_id = ? OR away_team_id = ?)",
			season, week, teamID, teamID).
		First(&game).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find completed game for team %d week %d: %w", teamID, week, err)
	}
	return &game, nil
}

// GameByKey looks up a game by its (season, week, home team) identity.
func (s *Store) GameByKey(season, week int, homeTeamID uint) (*models.Game, error) {
	var game models.Game
	err := s.db.
		Where("season = ? AND week = ? AND home_team_id = ?", season, week, homeTeamID).
		First(&game).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find game %d/%d/%d: %w", season, week, homeTeamID, err)
	}
	return &game, nil
}

func (s *Store) SaveGame(game *models.Game) error {
	if err := s.db.Save(game).Error; err != nil {
		return fmt.Errorf("failed to save game: %w", err)
	}
	return nil
}

func (s *Store) UpdateGameWinProb(gameID uint, pHome, pAway float64) error {
	err := s.db.Model(&models.Game{}).Where("id = ?", gameID).
		Updates(map[string]interface{}{
			"home_win_prob": pHome,
			"away_win_prob": pAway,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update win probs for game %d: %w", gameID, err)
	}
	return nil
}

// ── Team week stats ────────────────────────────────────────────────────────

// LatestStats returns the most recent stats row for a team with week <= weekUpper
// (inclusive) or week < weekUpper (exclusive). Nil when the team has no rows yet.
func (s *Store) LatestStats(teamID uint, season, weekUpper int, inclusive bool) (*models.TeamWeekStats, error) {
	cmp := "week < ?"
	if inclusive {
		cmp = "week <= ?"
	}

	var stats models.TeamWeekStats
	err := s.db.
		Where("team_id = ? AND season = ? AND "+cmp, teamID, season, weekUpper).
		Order("week DESC").
		First(&stats).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load stats for team %d: %w", teamID, err)
	}
	return &stats, nil
}

func (s *Store) StatsByKey(teamID uint, season, week int) (*models.TeamWeekStats, error) {
	var stats models.TeamWeekStats
	err := s.db.
		Where("team_id = ? AND season = ? AND week = ?", teamID, season, week).
		First(&stats).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load stats row: %w", err)
	}
	return &stats, nil
}

func (s *Store) SaveStats(stats *models.TeamWeekStats) error {
	if err := s.db.Save(stats).Error; err != nil {
		return fmt.Errorf("failed to save team week stats: %w", err)
	}
	return nil
}

// ── Entries ────────────────────────────────────────────────────────────────

// ListEntries returns entries ordered by id, optionally filtered by season
// (0 = all seasons).
func (s *Store) ListEntries(season int) ([]models.Entry, error) {
	q := s.db.Order("id")
	if season > 0 {
		q = q.Where("season = ?", season)
	}
	var entries []models.Entry
	if err := q.Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	return entries, nil
}

func (s *Store) AliveEntries(season int) ([]models.Entry, error) {
	var entries []models.Entry
	err := s.db.
		Where("season = ? AND is_alive = ?", season, true).
		Order("id").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list alive entries: %w", err)
	}
	return entries, nil
}

func (s *Store) GetEntry(id uint) (*models.Entry, error) {
	var entry models.Entry
	err := s.db.First(&entry, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entry %d: %w", id, err)
	}
	return &entry, nil
}

func (s *Store) CreateEntry(entry *models.Entry) error {
	if err := s.db.Create(entry).Error; err != nil {
		return fmt.Errorf("failed to create entry: %w", err)
	}
	return nil
}

func (s *Store) MarkEntryEliminated(entryID uint, week int) error {
	err := s.db.Model(&models.Entry{}).Where("id = ?", entryID).
		Updates(map[string]interface{}{
			"is_alive":        false,
			"eliminated_week": week,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to eliminate entry %d: %w", entryID, err)
	}
	return nil
}

// ── Picks ──────────────────────────────────────────────────────────────────

func (s *Store) ListPicks(entryID uint) ([]models.Pick, error) {
	var picks []models.Pick
	err := s.db.
		Where("entry_id = ?", entryID).
		Order("season, week").
		Find(&picks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list picks for entry %d: %w", entryID, err)
	}
	return picks, nil
}

func (s *Store) PicksForWeek(season, week int) ([]models.Pick, error) {
	var picks []models.Pick
	err := s.db.
		Where("season = ? AND week = ?", season, week).
		Order("id").
		Find(&picks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list picks for week %d: %w", week, err)
	}
	return picks, nil
}

func (s *Store) PicksForTeam(season int, teamID uint) ([]models.Pick, error) {
	var picks []models.Pick
	err := s.db.
		Where("season = ? AND team_id = ?", season, teamID).
		Order("id").
		Find(&picks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list picks for team %d: %w", teamID, err)
	}
	return picks, nil
}

func (s *Store) PickByEntryTeam(entryID, teamID uint) (*models.Pick, error) {
	var pick models.Pick
	err := s.db.
		Where("entry_id = ? AND team_id = ?", entryID, teamID).
		First(&pick).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up pick: %w", err)
	}
	return &pick, nil
}

func (s *Store) PickByEntryWeek(entryID uint, season, week int) (*models.Pick, error) {
	var pick models.Pick
	err := s.db.
		Where("entry_id = ? AND season = ? AND week = ?", entryID, season, week).
		First(&pick).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up pick: %w", err)
	}
	return &pick, nil
}

func (s *Store) CreatePick(pick *models.Pick) error {
	if err := s.db.Create(pick).Error; err != nil {
		return fmt.Errorf("failed to create pick: %w", err)
	}
	return nil
}

func (s *Store) SetPickOutcome(pickID uint, outcome bool) error {
	err := s.db.Model(&models.Pick{}).Where("id = ?", pickID).
		Update("outcome", outcome).Error
	if err != nil {
		return fmt.Errorf("failed to set outcome for pick %d: %w", pickID, err)
	}
	return nil
}

// UsedTeamAbbrs returns the abbreviations of every team an entry has already
// consumed, in pick order.
func (s *Store) UsedTeamAbbrs(entryID uint) ([]string, error) {
	picks, err := s.ListPicks(entryID)
	if err != nil {
		return nil, err
	}
	abbrs, err := s.TeamAbbrs()
	if err != nil {
		return nil, err
	}

	used := make([]string, 0, len(picks))
	for _, p := range picks {
		if abbr, ok := abbrs[p.TeamID]; ok {
			used = append(used, abbr)
		}
	}
	return used, nil
}

// ── Simulation runs ────────────────────────────────────────────────────────

func (s *Store) InsertSimulationRun(run *models.SimulationRun) error {
	if err := s.db.Create(run).Error; err != nil {
		return fmt.Errorf("failed to insert simulation run: %w", err)
	}
	return nil
}
