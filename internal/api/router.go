package api

import (
	"github.com/gin-gonic/gin"

	"github.com/jstittsworth/survivor-optimizer/internal/api/handlers"
	"github.com/jstittsworth/survivor-optimizer/internal/ingest"
	"github.com/jstittsworth/survivor-optimizer/internal/services"
	"github.com/jstittsworth/survivor-optimizer/internal/store"
	"github.com/jstittsworth/survivor-optimizer/internal/winprob"
	"github.com/jstittsworth/survivor-optimizer/pkg/config"
)

// Deps bundles the shared services the route handlers are built from.
type Deps struct {
	Store      *store.Store
	Cache      *services.CacheService
	Hub        *services.WebSocketHub
	Config     *config.Config
	Loader     *ingest.Loader
	Updater    *winprob.Updater
	Reconciler *services.Reconciler
}

// SetupRoutes registers the API surface on the given router group.
func SetupRoutes(group *gin.RouterGroup, deps Deps) {
	scheduleHandler := handlers.NewScheduleHandler(deps.Store, deps.Cache)
	entryHandler := handlers.NewEntryHandler(deps.Store)
	pickHandler := handlers.NewPickHandler(deps.Store, deps.Cache, deps.Config)
	simulationHandler := handlers.NewSimulationHandler(deps.Store, deps.Cache, deps.Hub, deps.Config)
	resultsHandler := handlers.NewResultsHandler(deps.Loader, deps.Updater, deps.Reconciler, deps.Cache, deps.Hub)

	// Schedule
	group.GET("/schedule/:season", scheduleHandler.GetSeasonSchedule)
	group.GET("/teams/:abbr/schedule", scheduleHandler.GetTeamSchedule)

	// Entries
	group.GET("/entries", entryHandler.ListEntries)
	group.POST("/entries", entryHandler.CreateEntry)

	// Picks
	group.POST("/picks/submit", pickHandler.SubmitPick)
	group.GET("/picks/recommend/:week", pickHandler.Recommend)

	// Decision engine
	group.GET("/simulate/:week", simulationHandler.Simulate)

	// Results ingestion + reconciliation
	group.POST("/results/update/:week", resultsHandler.UpdateResults)
}
