package handlers

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jstittsworth/survivor-optimizer/internal/matchup"
	"github.com/jstittsworth/survivor-optimizer/internal/models"
	"github.com/jstittsworth/survivor-optimizer/internal/optimizer"
	"github.com/jstittsworth/survivor-optimizer/internal/services"
	"github.com/jstittsworth/survivor-optimizer/internal/store"
	"github.com/jstittsworth/survivor-optimizer/pkg/config"
	"github.com/jstittsworth/survivor-optimizer/pkg/utils"
)

const simulationCacheTTL = 30 * time.Minute

type SimulationHandler struct {
	store *store.Store
	cache *services.CacheService
	hub   *services.WebSocketHub
	cfg   *config.Config
}

func NewSimulationHandler(s *store.Store, cache *services.CacheService, hub *services.WebSocketHub, cfg *config.Config) *SimulationHandler {
	return &SimulationHandler{store: s, cache: cache, hub: hub, cfg: cfg}
}

// SimulationResponse is the simulate endpoint payload. Survival maps each
// available current-week team to its full-season survival probability under
// greedy continuation; Scarcity counts strong teams left per future week.
type SimulationResponse struct {
	RunID        string             `json:"run_id"`
	Season       int                `json:"season"`
	Week         int                `json:"week"`
	EntryID      uint               `json:"entry_id,omitempty"`
	NSimulations int                `json:"n_simulations"`
	Survival     map[string]float64 `json:"survival_probabilities"`
	Scarcity     map[int]int        `json:"strong_teams_by_week"`
}

// Simulate handles GET /api/simulate/:week?season=&n_simulations=&entry_id=
func (h *SimulationHandler) Simulate(c *gin.Context) {
	week, err := strconv.Atoi(c.Param("week"))
	if err != nil || week < 1 {
		utils.SendValidationError(c, "Invalid week", "week must be a positive integer")
		return
	}
	season := seasonOrCurrent(c)
	ctx := c.Request.Context()

	nSims := h.cfg.NSimulations
	if raw := c.Query("n_simulations"); raw != "" {
		requested, err := strconv.Atoi(raw)
		if err != nil {
			utils.SendValidationError(c, "Invalid n_simulations", "must be an integer")
			return
		}
		nSims = h.cfg.ClampSimulations(requested)
	}

	var entryID uint
	var usedTeams []string
	if raw := c.Query("entry_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			utils.SendValidationError(c, "Invalid entry_id", "must be an integer")
			return
		}
		entry, err := h.store.GetEntry(uint(id))
		if err != nil {
			utils.SendInternalError(c, "Failed to look up entry")
			return
		}
		if entry == nil {
			utils.SendNotFound(c, "Entry not found")
			return
		}
		entryID = entry.ID
		usedTeams, err = h.store.UsedTeamAbbrs(entry.ID)
		if err != nil {
			utils.SendInternalError(c, "Failed to load picks")
			return
		}
	}

	cacheKey := services.SimulationCacheKey(season, week, entryID, nSims)
	var cached SimulationResponse
	if h.cache != nil && h.cache.Get(ctx, cacheKey, &cached) == nil {
		utils.SendSuccess(c, cached)
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

	win, _, teams := matchup.BuildWinMatrix(byWeek)
	usedMask := matchup.UsedMask(teams, usedTeams)

	survival := optimizer.SimulateSingleEntry(win, usedMask, teams, nSims, h.cfg.Seed, h.cfg.SimulationWorkers)
	scarcity := optimizer.AnalyzeScarcity(byWeek, usedTeams, h.cfg.StrongTeamThreshold)

	response := SimulationResponse{
		RunID:        uuid.New().String(),
		Season:       season,
		Week:         week,
		EntryID:      entryID,
		NSimulations: nSims,
		Survival:     survival,
		Scarcity:     scarcity,
	}

	if err := h.persistRun(&response); err != nil {
		logrus.WithError(err).Error("Failed to persist simulation run")
		utils.SendInternalError(c, "Failed to record simulation run")
		return
	}

	if h.cache != nil {
		if err := h.cache.Set(ctx, cacheKey, response, simulationCacheTTL); err != nil {
			logrus.WithError(err).Warn("Failed to cache simulation")
		}
	}

	if h.hub != nil {
		h.hub.Broadcast("simulation_complete", gin.H{
			"run_id":        response.RunID,
			"season":        season,
			"week":          week,
			"entry_id":      entryID,
			"n_simulations": nSims,
		})
	}

	utils.SendSuccess(c, response)
}

func (h *SimulationHandler) persistRun(resp *SimulationResponse) error {
	results, err := json.Marshal(resp.Survival)
	if err != nil {
		return err
	}
	return h.store.InsertSimulationRun(&models.SimulationRun{
		RunID:        resp.RunID,
		Season:       resp.Season,
		Week:         resp.Week,
		NSimulations: resp.NSimulations,
		Results:      results,
	})
}
