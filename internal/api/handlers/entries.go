package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/jstittsworth/survivor-optimizer/internal/models"
	"github.com/jstittsworth/survivor-optimizer/internal/store"
	"github.com/jstittsworth/survivor-optimizer/pkg/utils"
)

type EntryHandler struct {
	store *store.Store
}

func NewEntryHandler(s *store.Store) *EntryHandler {
	return &EntryHandler{store: s}
}

// EntryView is an entry plus the teams it has already consumed.
type EntryView struct {
	models.Entry
	UsedTeams []string `json:"used_teams"`
}

// ListEntries handles GET /api/entries?season=
func (h *EntryHandler) ListEntries(c *gin.Context) {
	season := 0
	if c.Query("season") != "" {
		season = seasonOrCurrent(c)
	}

	entries, err := h.store.ListEntries(season)
	if err != nil {
		logrus.WithError(err).Error("Failed to list entries")
		utils.SendInternalError(c, "Failed to list entries")
		return
	}

	views := make([]EntryView, 0, len(entries))
	for _, entry := range entries {
		used, err := h.store.UsedTeamAbbrs(entry.ID)
		if err != nil {
			utils.SendInternalError(c, "Failed to load picks")
			return
		}
		views = append(views, EntryView{Entry: entry, UsedTeams: used})
	}

	utils.SendSuccess(c, views)
}

type createEntryRequest struct {
	Name   string `json:"name" binding:"required,max=50"`
	Season int    `json:"season" binding:"required,min=1999"`
}

// CreateEntry handles POST /api/entries
func (h *EntryHandler) CreateEntry(c *gin.Context) {
	var req createEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request", err.Error())
		return
	}

	entry := &models.Entry{
		Name:    req.Name,
		Season:  req.Season,
		IsAlive: true,
	}
	if err := h.store.CreateEntry(entry); err != nil {
		logrus.WithError(err).Error("Failed to create entry")
		utils.SendInternalError(c, "Failed to create entry")
		return
	}

	utils.SendCreated(c, EntryView{Entry: *entry, UsedTeams: []string{}})
}
