package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jstittsworth/survivor-optimizer/internal/models"
)

func TestGetSeasonScheduleGroupsByWeek(t *testing.T) {
	f := newFixture(t)
	kc := f.seedTeam(t, "KC")
	nyj := f.seedTeam(t, "NYJ")
	sf := f.seedTeam(t, "SF")
	car := f.seedTeam(t, "CAR")
	f.seedScoredGame(t, 1, kc, nyj, 0.8)
	f.seedScoredGame(t, 1, sf, car, 0.7)
	f.seedScoredGame(t, 2, nyj, sf, 0.4)

	w, resp := f.do(t, http.MethodGet, "/api/schedule/2025", nil)

	require.Equal(t, http.StatusOK, w.Code)
	data := resp["data"].(map[string]interface{})
	weeks := data["weeks"].(map[string]interface{})
	assert.Len(t, weeks["1"].([]interface{}), 2)
	assert.Len(t, weeks["2"].([]interface{}), 1)
}

func TestGetSeasonScheduleEmpty(t *testing.T) {
	f := newFixture(t)

	w, _ := f.do(t, http.MethodGet, "/api/schedule/2025", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetTeamScheduleWithUsage(t *testing.T) {
	f := newFixture(t)
	kc := f.seedTeam(t, "KC")
	nyj := f.seedTeam(t, "NYJ")
	entry := f.seedEntry(t, "pool one", true)
	f.seedScoredGame(t, 1, kc, nyj, 0.8)

	won := false
	require.NoError(t, f.store.SaveGame(&models.Game{
		Season: 2025, Week: 2, HomeTeamID: nyj.ID, AwayTeamID: kc.ID, HomeWin: &won,
	}))
	require.NoError(t, f.store.CreatePick(&models.Pick{
		EntryID: entry.ID, TeamID: kc.ID, Season: 2025, Week: 2,
	}))

	w, resp := f.do(t, http.MethodGet, "/api/teams/KC/schedule?season=2025", nil)

	require.Equal(t, http.StatusOK, w.Code)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "KC", data["team"])

	games := data["games"].([]interface{})
	require.Len(t, games, 2)
	week1 := games[0].(map[string]interface{})
	assert.Equal(t, "NYJ", week1["opponent"])
	assert.Equal(t, true, week1["is_home"])
	assert.InDelta(t, 0.8, week1["win_prob"].(float64), 1e-9)

	week2 := games[1].(map[string]interface{})
	assert.Equal(t, false, week2["is_home"])
	assert.Equal(t, true, week2["won"]) // away team won

	usedBy := data["used_by_entries"].([]interface{})
	require.Len(t, usedBy, 1)
	assert.Equal(t, "pool one", usedBy[0])
}

func TestGetTeamScheduleUnknownTeam(t *testing.T) {
	f := newFixture(t)

	w, _ := f.do(t, http.MethodGet, "/api/teams/XXX/schedule?season=2025", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
