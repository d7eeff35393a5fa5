package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/jstittsworth/survivor-optimizer/internal/matchup"
	"github.com/jstittsworth/survivor-optimizer/internal/models"
	"github.com/jstittsworth/survivor-optimizer/internal/optimizer"
	"github.com/jstittsworth/survivor-optimizer/internal/services"
	"github.com/jstittsworth/survivor-optimizer/internal/store"
	"github.com/jstittsworth/survivor-optimizer/pkg/config"
	"github.com/jstittsworth/survivor-optimizer/pkg/utils"
)

const recommendationCacheTTL = 10 * time.Minute

type PickHandler struct {
	store *store.Store
	cache *services.CacheService
	cfg   *config.Config
}

func NewPickHandler(s *store.Store, cache *services.CacheService, cfg *config.Config) *PickHandler {
	return &PickHandler{store: s, cache: cache, cfg: cfg}
}

type submitPickRequest struct {
	EntryID       uint   `json:"entry_id" binding:"required"`
	Season        int    `json:"season" binding:"required,min=1999"`
	Week          int    `json:"week" binding:"required,min=1,max=18"`
	Team          string `json:"team" binding:"required"`
	IsRecommended bool   `json:"is_recommended"`
}

// SubmitPick handles POST /api/picks/submit. Rejects team reuse, a second
// pick in the same week, and picks on eliminated entries.
func (h *PickHandler) SubmitPick(c *gin.Context) {
	var req submitPickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request", err.Error())
		return
	}

	entry, err := h.store.GetEntry(req.EntryID)
	if err != nil {
		utils.SendInternalError(c, "Failed to look up entry")
		return
	}
	if entry == nil {
		utils.SendNotFound(c, "Entry not found")
		return
	}
	if !entry.IsAlive {
		utils.SendConflict(c, "Entry has been eliminated")
		return
	}

	team, err := h.store.TeamByAbbr(req.Team)
	if err != nil {
		utils.SendInternalError(c, "Failed to look up team")
		return
	}
	if team == nil {
		utils.SendNotFound(c, "Team not found")
		return
	}

	game, err := h.store.GameForTeamWeek(req.Season, req.Week, team.ID)
	if err != nil {
		utils.SendInternalError(c, "Failed to look up game")
		return
	}
	if game == nil {
		utils.SendNotFound(c, "Team has no game that week")
		return
	}
	if game.IsPlayed() {
		utils.SendConflict(c, "Game has already been played")
		return
	}

	existing, err := h.store.PickByEntryTeam(entry.ID, team.ID)
	if err != nil {
		utils.SendInternalError(c, "Failed to check prior picks")
		return
	}
	if existing != nil {
		utils.SendConflict(c, "Team already used by this entry")
		return
	}

	existing, err = h.store.PickByEntryWeek(entry.ID, req.Season, req.Week)
	if err != nil {
		utils.SendInternalError(c, "Failed to check prior picks")
		return
	}
	if existing != nil {
		utils.SendConflict(c, "Entry already has a pick for this week")
		return
	}

	pick := &models.Pick{
		EntryID:         entry.ID,
		TeamID:          team.ID,
		Season:          req.Season,
		Week:            req.Week,
		WinProbAtSubmit: game.WinProbFor(team.ID),
		IsRecommended:   req.IsRecommended,
	}
	if err := h.store.CreatePick(pick); err != nil {
		// The unique indexes back up the checks above under concurrent submits.
		logrus.WithError(err).Warn("Pick insert rejected")
		utils.SendConflict(c, "Pick conflicts with an existing pick")
		return
	}

	utils.SendCreated(c, pick)
}

// Recommend handles GET /api/picks/recommend/:week?season=. Runs the
// portfolio coordinator across every alive entry for the season.
func (h *PickHandler) Recommend(c *gin.Context) {
	week, err := strconv.Atoi(c.Param("week"))
	if err != nil || week < 1 {
		utils.SendValidationError(c, "Invalid week", "week must be a positive integer")
		return
	}
	season := seasonOrCurrent(c)
	ctx := c.Request.Context()

	cacheKey := services.RecommendationCacheKey(season, week)
	var cached []optimizer.Recommendation
	if h.cache != nil && h.cache.Get(ctx, cacheKey, &cached) == nil {
		utils.SendSuccess(c, gin.H{"season": season, "week": week, "recommendations": cached})
		return
	}

	byWeek, err := matchup.LoadRemaining(h.store, season, week)
	if err != nil {
		logrus.WithError(err).Error("Failed to load matchups")
		utils.SendInternalError(c, "Failed to load matchups")
		return
	}
	if len(byWeek) == 0 {
		utils.SendInsufficientData(c, "No matchups with win probabilities from this week onward")
		return
	}

	entries, err := h.store.AliveEntries(season)
	if err != nil {
		utils.SendInternalError(c, "Failed to list entries")
		return
	}

	states := make([]optimizer.EntryState, 0, len(entries))
	for _, entry := range entries {
		used, err := h.store.UsedTeamAbbrs(entry.ID)
		if err != nil {
			utils.SendInternalError(c, "Failed to load picks")
			return
		}
		states = append(states, optimizer.EntryState{
			EntryID:   entry.ID,
			UsedTeams: used,
			IsAlive:   entry.IsAlive,
		})
	}

	recommendations := optimizer.RecommendPortfolio(byWeek, week, states, optimizerConfig(h.cfg))
	if recommendations == nil {
		recommendations = []optimizer.Recommendation{}
	}

	if h.cache != nil {
		if err := h.cache.Set(ctx, cacheKey, recommendations, recommendationCacheTTL); err != nil {
			logrus.WithError(err).Warn("Failed to cache recommendations")
		}
	}

	utils.SendSuccess(c, gin.H{"season": season, "week": week, "recommendations": recommendations})
}

func optimizerConfig(cfg *config.Config) optimizer.Config {
	return optimizer.Config{
		Seed:             cfg.Seed,
		NSimulations:     cfg.NSimulations,
		BeamWidth:        cfg.BeamWidth,
		DiversityPenalty: cfg.DiversityPenalty,
		Workers:          cfg.SimulationWorkers,
	}
}
