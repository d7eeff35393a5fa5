package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/jstittsworth/survivor-optimizer/internal/ingest"
	"github.com/jstittsworth/survivor-optimizer/internal/services"
	"github.com/jstittsworth/survivor-optimizer/internal/winprob"
	"github.com/jstittsworth/survivor-optimizer/pkg/utils"
)

type ResultsHandler struct {
	loader     *ingest.Loader
	updater    *winprob.Updater
	reconciler *services.Reconciler
	cache      *services.CacheService
	hub        *services.WebSocketHub
}

func NewResultsHandler(loader *ingest.Loader, updater *winprob.Updater, reconciler *services.Reconciler, cache *services.CacheService, hub *services.WebSocketHub) *ResultsHandler {
	return &ResultsHandler{
		loader:     loader,
		updater:    updater,
		reconciler: reconciler,
		cache:      cache,
		hub:        hub,
	}
}

// UpdateResults handles POST /api/results/update/:week?season=. Reloads the
// schedule with final scores, recomputes win probabilities for unplayed
// games, and settles pick outcomes for the week.
func (h *ResultsHandler) UpdateResults(c *gin.Context) {
	week, err := strconv.Atoi(c.Param("week"))
	if err != nil || week < 1 {
		utils.SendValidationError(c, "Invalid week", "week must be a positive integer")
		return
	}
	season := seasonOrCurrent(c)
	ctx := c.Request.Context()

	if err := h.loader.RefreshSeason(ctx, season); err != nil {
		logrus.WithError(err).Error("Schedule refresh failed")
		utils.SendInternalError(c, "Failed to refresh schedule data")
		return
	}

	updated, err := h.updater.UpdateSeason(season)
	if err != nil {
		logrus.WithError(err).Error("Win probability update failed")
		utils.SendInternalError(c, "Failed to update win probabilities")
		return
	}

	settled, err := h.reconciler.ReconcileWeek(season, week)
	if err != nil {
		logrus.WithError(err).Error("Pick reconciliation failed")
		utils.SendInternalError(c, "Failed to reconcile pick outcomes")
		return
	}

	if h.cache != nil {
		h.cache.InvalidateSeason(ctx, season)
	}
	if h.hub != nil {
		h.hub.Broadcast("results_updated", gin.H{
			"season":        season,
			"week":          week,
			"games_updated": updated,
			"picks_settled": settled,
		})
	}

	utils.SendSuccess(c, gin.H{
		"season":        season,
		"week":          week,
		"games_updated": updated,
		"picks_settled": settled,
	})
}
