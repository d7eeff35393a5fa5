package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/jstittsworth/survivor-optimizer/internal/models"
	"github.com/jstittsworth/survivor-optimizer/internal/services"
	"github.com/jstittsworth/survivor-optimizer/internal/store"
	"github.com/jstittsworth/survivor-optimizer/pkg/utils"
)

const scheduleCacheTTL = 15 * time.Minute

type ScheduleHandler struct {
	store *store.Store
	cache *services.CacheService
}

func NewScheduleHandler(s *store.Store, cache *services.CacheService) *ScheduleHandler {
	return &ScheduleHandler{store: s, cache: cache}
}

// GameView is one game as rendered in schedule responses.
type GameView struct {
	Week        int        `json:"week"`
	GameDate    *time.Time `json:"game_date,omitempty"`
	HomeTeam    string     `json:"home_team"`
	AwayTeam    string     `json:"away_team"`
	HomeScore   *int       `json:"home_score,omitempty"`
	AwayScore   *int       `json:"away_score,omitempty"`
	HomeWin     *bool      `json:"home_win,omitempty"`
	HomeWinProb *float64   `json:"home_win_prob,omitempty"`
	AwayWinProb *float64   `json:"away_win_prob,omitempty"`
	IsNeutral   bool       `json:"is_neutral"`
}

// GetSeasonSchedule handles GET /api/schedule/:season
func (h *ScheduleHandler) GetSeasonSchedule(c *gin.Context) {
	season, err := strconv.Atoi(c.Param("season"))
	if err != nil {
		utils.SendValidationError(c, "Invalid season", "season must be an integer")
		return
	}

	ctx := c.Request.Context()
	cacheKey := services.ScheduleCacheKey(season)
	var cached map[int][]GameView
	if h.cache != nil && h.cache.Get(ctx, cacheKey, &cached) == nil {
		utils.SendSuccess(c, gin.H{"season": season, "weeks": cached})
		return
	}

	games, err := h.store.ListGames(season, 0, false, false)
	if err != nil {
		logrus.WithError(err).Error("Failed to list games")
		utils.SendInternalError(c, "Failed to load schedule")
		return
	}
	if len(games) == 0 {
		utils.SendNotFound(c, "No schedule found for season")
		return
	}

	abbrs, err := h.store.TeamAbbrs()
	if err != nil {
		utils.SendInternalError(c, "Failed to load teams")
		return
	}

	byWeek := make(map[int][]GameView)
	for _, g := range games {
		byWeek[g.Week] = append(byWeek[g.Week], gameView(&g, abbrs))
	}

	if h.cache != nil {
		if err := h.cache.Set(ctx, cacheKey, byWeek, scheduleCacheTTL); err != nil {
			logrus.WithError(err).Warn("Failed to cache schedule")
		}
	}

	utils.SendSuccess(c, gin.H{"season": season, "weeks": byWeek})
}

// TeamGameView is one game from a single team's perspective.
type TeamGameView struct {
	Week     int        `json:"week"`
	GameDate *time.Time `json:"game_date,omitempty"`
	Opponent string     `json:"opponent"`
	IsHome   bool       `json:"is_home"`
	WinProb  *float64   `json:"win_prob,omitempty"`
	Won      *bool      `json:"won,omitempty"`
}

// GetTeamSchedule handles GET /api/teams/:abbr/schedule?season=
func (h *ScheduleHandler) GetTeamSchedule(c *gin.Context) {
	abbr := c.Param("abbr")
	season := seasonOrCurrent(c)

	team, err := h.store.TeamByAbbr(abbr)
	if err != nil {
		utils.SendInternalError(c, "Failed to look up team")
		return
	}
	if team == nil {
		utils.SendNotFound(c, "Team not found")
		return
	}

	games, err := h.store.GamesForTeam(season, team.ID)
	if err != nil {
		utils.SendInternalError(c, "Failed to load team schedule")
		return
	}

	abbrs, err := h.store.TeamAbbrs()
	if err != nil {
		utils.SendInternalError(c, "Failed to load teams")
		return
	}

	views := make([]TeamGameView, 0, len(games))
	for _, g := range games {
		isHome := g.HomeTeamID == team.ID
		opponentID := g.AwayTeamID
		if !isHome {
			opponentID = g.HomeTeamID
		}
		view := TeamGameView{
			Week:     g.Week,
			GameDate: g.GameDate,
			Opponent: abbrs[opponentID],
			IsHome:   isHome,
			WinProb:  g.WinProbFor(team.ID),
		}
		if g.IsPlayed() {
			won := g.WonBy(team.ID)
			view.Won = &won
		}
		views = append(views, view)
	}

	// Entries that have already burned this team this season.
	usedBy, err := h.usedByEntries(season, team.ID)
	if err != nil {
		utils.SendInternalError(c, "Failed to load pick usage")
		return
	}

	utils.SendSuccess(c, gin.H{
		"team":            team.Abbr,
		"full_name":       team.FullName,
		"season":          season,
		"games":           views,
		"used_by_entries": usedBy,
	})
}

func (h *ScheduleHandler) usedByEntries(season int, teamID uint) ([]string, error) {
	picks, err := h.store.PicksForTeam(season, teamID)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(picks))
	for _, p := range picks {
		entry, err := h.store.GetEntry(p.EntryID)
		if err != nil {
			return nil, err
		}
		if entry != nil {
			names = append(names, entry.Name)
		}
	}
	return names, nil
}

func gameView(g *models.Game, abbrs map[uint]string) GameView {
	return GameView{
		Week:        g.Week,
		GameDate:    g.GameDate,
		HomeTeam:    abbrs[g.HomeTeamID],
		AwayTeam:    abbrs[g.AwayTeamID],
		HomeScore:   g.HomeScore,
		AwayScore:   g.AwayScore,
		HomeWin:     g.HomeWin,
		HomeWinProb: g.HomeWinProb,
		AwayWinProb: g.AwayWinProb,
		IsNeutral:   g.IsNeutral,
	}
}

// seasonOrCurrent reads the season query param, defaulting to the season in
// progress today.
func seasonOrCurrent(c *gin.Context) int {
	if s := c.Query("season"); s != "" {
		if season, err := strconv.Atoi(s); err == nil {
			return season
		}
	}
	return services.CurrentSeason(time.Now())
}
