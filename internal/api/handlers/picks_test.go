package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jstittsworth/survivor-optimizer/internal/models"
	"github.com/jstittsworth/survivor-optimizer/internal/store"
	"github.com/jstittsworth/survivor-optimizer/pkg/config"
	"github.com/jstittsworth/survivor-optimizer/pkg/database"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fixture struct {
	store  *store.Store
	router *gin.Engine
}

func testCfg() *config.Config {
	return &config.Config{
		Seed:                42,
		NSimulations:        2000,
		MinSimulations:      1000,
		MaxSimulations:      500000,
		SimulationWorkers:   1,
		BeamWidth:           5,
		DiversityPenalty:    0.05,
		StrongTeamThreshold: 0.65,
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Team{},
		&models.Game{},
		&models.TeamWeekStats{},
		&models.Entry{},
		&models.Pick{},
		&models.SimulationRun{},
	))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})

	s := store.New(&database.DB{DB: db})
	cfg := testCfg()

	router := gin.New()
	pickHandler := NewPickHandler(s, nil, cfg)
	simulationHandler := NewSimulationHandler(s, nil, nil, cfg)
	entryHandler := NewEntryHandler(s)
	scheduleHandler := NewScheduleHandler(s, nil)
	router.GET("/api/schedule/:season", scheduleHandler.GetSeasonSchedule)
	router.GET("/api/teams/:abbr/schedule", scheduleHandler.GetTeamSchedule)
	router.POST("/api/picks/submit", pickHandler.SubmitPick)
	router.GET("/api/picks/recommend/:week", pickHandler.Recommend)
	router.GET("/api/simulate/:week", simulationHandler.Simulate)
	router.GET("/api/entries", entryHandler.ListEntries)
	router.POST("/api/entries", entryHandler.CreateEntry)

	return &fixture{store: s, router: router}
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &parsed))
	return w, parsed
}

func (f *fixture) seedTeam(t *testing.T, abbr string) *models.Team {
	t.Helper()
	team := &models.Team{Abbr: abbr, FullName: abbr + " Test Club"}
	require.NoError(t, f.store.CreateTeam(team))
	return team
}

func (f *fixture) seedEntry(t *testing.T, name string, alive bool) *models.Entry {
	t.Helper()
	entry := &models.Entry{Name: name, Season: 2025, IsAlive: alive}
	require.NoError(t, f.store.CreateEntry(entry))
	if !alive {
		require.NoError(t, f.store.MarkEntryEliminated(entry.ID, 1))
	}
	return entry
}

func pf(v float64) *float64 { return &v }

// seedScoredGame creates an unplayed game with win probabilities set.
func (f *fixture) seedScoredGame(t *testing.T, week int, home, away *models.Team, pHome float64) *models.Game {
	t.Helper()
	game := &models.Game{
		Season: 2025, Week: week,
		HomeTeamID: home.ID, AwayTeamID: away.ID,
		HomeWinProb: pf(pHome), AwayWinProb: pf(1 - pHome),
	}
	require.NoError(t, f.store.SaveGame(game))
	return game
}

func TestSubmitPickSuccess(t *testing.T) {
	f := newFixture(t)
	kc := f.seedTeam(t, "KC")
	nyj := f.seedTeam(t, "NYJ")
	entry := f.seedEntry(t, "main", true)
	f.seedScoredGame(t, 1, kc, nyj, 0.8)

	w, resp := f.do(t, http.MethodPost, "/api/picks/submit", gin.H{
		"entry_id": entry.ID, "season": 2025, "week": 1, "team": "KC",
	})

	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, resp["success"].(bool))

	pick, err := f.store.PickByEntryWeek(entry.ID, 2025, 1)
	require.NoError(t, err)
	require.NotNil(t, pick)
	require.NotNil(t, pick.WinProbAtSubmit)
	assert.InDelta(t, 0.8, *pick.WinProbAtSubmit, 1e-12)
}

func TestSubmitPickUnknownEntry(t *testing.T) {
	f := newFixture(t)
	f.seedTeam(t, "KC")

	w, _ := f.do(t, http.MethodPost, "/api/picks/submit", gin.H{
		"entry_id": 999, "season": 2025, "week": 1, "team": "KC",
	})

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubmitPickDeadEntry(t *testing.T) {
	f := newFixture(t)
	kc := f.seedTeam(t, "KC")
	nyj := f.seedTeam(t, "NYJ")
	entry := f.seedEntry(t, "dead", false)
	f.seedScoredGame(t, 1, kc, nyj, 0.8)

	w, resp := f.do(t, http.MethodPost, "/api/picks/submit", gin.H{
		"entry_id": entry.ID, "season": 2025, "week": 1, "team": "KC",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, resp["success"].(bool))
}

func TestSubmitPickUnknownTeam(t *testing.T) {
	f := newFixture(t)
	entry := f.seedEntry(t, "main", true)

	w, _ := f.do(t, http.MethodPost, "/api/picks/submit", gin.H{
		"entry_id": entry.ID, "season": 2025, "week": 1, "team": "XXX",
	})

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubmitPickByeWeek(t *testing.T) {
	f := newFixture(t)
	f.seedTeam(t, "KC")
	entry := f.seedEntry(t, "main", true)

	w, _ := f.do(t, http.MethodPost, "/api/picks/submit", gin.H{
		"entry_id": entry.ID, "season": 2025, "week": 1, "team": "KC",
	})

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubmitPickRejectsTeamReuse(t *testing.T) {
	f := newFixture(t)
	kc := f.seedTeam(t, "KC")
	nyj := f.seedTeam(t, "NYJ")
	entry := f.seedEntry(t, "main", true)
	f.seedScoredGame(t, 1, kc, nyj, 0.8)
	f.seedScoredGame(t, 2, nyj, kc, 0.3)

	w, _ := f.do(t, http.MethodPost, "/api/picks/submit", gin.H{
		"entry_id": entry.ID, "season": 2025, "week": 1, "team": "KC",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w, _ = f.do(t, http.MethodPost, "/api/picks/submit", gin.H{
		"entry_id": entry.ID, "season": 2025, "week": 2, "team": "KC",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitPickRejectsSecondPickSameWeek(t *testing.T) {
	f := newFixture(t)
	kc := f.seedTeam(t, "KC")
	nyj := f.seedTeam(t, "NYJ")
	sf := f.seedTeam(t, "SF")
	car := f.seedTeam(t, "CAR")
	entry := f.seedEntry(t, "main", true)
	f.seedScoredGame(t, 1, kc, nyj, 0.8)
	f.seedScoredGame(t, 1, sf, car, 0.7)

	w, _ := f.do(t, http.MethodPost, "/api/picks/submit", gin.H{
		"entry_id": entry.ID, "season": 2025, "week": 1, "team": "KC",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w, _ = f.do(t, http.MethodPost, "/api/picks/submit", gin.H{
		"entry_id": entry.ID, "season": 2025, "week": 1, "team": "SF",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecommendReturnsPortfolio(t *testing.T) {
	f := newFixture(t)
	kc := f.seedTeam(t, "KC")
	nyj := f.seedTeam(t, "NYJ")
	sf := f.seedTeam(t, "SF")
	car := f.seedTeam(t, "CAR")
	f.seedEntry(t, "one", true)
	f.seedEntry(t, "two", true)
	f.seedScoredGame(t, 1, kc, nyj, 0.9)
	f.seedScoredGame(t, 1, sf, car, 0.88)

	w, resp := f.do(t, http.MethodGet, "/api/picks/recommend/1?season=2025", nil)

	require.Equal(t, http.StatusOK, w.Code)
	data := resp["data"].(map[string]interface{})
	recs := data["recommendations"].([]interface{})
	require.Len(t, recs, 2)

	first := recs[0].(map[string]interface{})
	second := recs[1].(map[string]interface{})
	assert.Equal(t, "KC", first["recommended_team"])
	assert.Equal(t, "SF", second["recommended_team"])
}

func TestRecommendNoMatchups(t *testing.T) {
	f := newFixture(t)
	f.seedEntry(t, "one", true)

	w, _ := f.do(t, http.MethodGet, "/api/picks/recommend/1?season=2025", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSimulatePersistsRun(t *testing.T) {
	f := newFixture(t)
	kc := f.seedTeam(t, "KC")
	nyj := f.seedTeam(t, "NYJ")
	f.seedScoredGame(t, 1, kc, nyj, 0.8)

	w, resp := f.do(t, http.MethodGet, "/api/simulate/1?season=2025&n_simulations=5000", nil)

	require.Equal(t, http.StatusOK, w.Code)
	data := resp["data"].(map[string]interface{})
	assert.NotEmpty(t, data["run_id"])
	assert.EqualValues(t, 5000, data["n_simulations"])

	survival := data["survival_probabilities"].(map[string]interface{})
	assert.InDelta(t, 0.8, survival["KC"].(float64), 0.02)
	assert.InDelta(t, 0.2, survival["NYJ"].(float64), 0.02)

	var count int64
	require.NoError(t, f.store.DB().Model(&models.SimulationRun{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestSimulateClampsSimulationCount(t *testing.T) {
	f := newFixture(t)
	kc := f.seedTeam(t, "KC")
	nyj := f.seedTeam(t, "NYJ")
	f.seedScoredGame(t, 1, kc, nyj, 0.8)

	w, resp := f.do(t, http.MethodGet, "/api/simulate/1?season=2025&n_simulations=10", nil)

	require.Equal(t, http.StatusOK, w.Code)
	data := resp["data"].(map[string]interface{})
	assert.EqualValues(t, 1000, data["n_simulations"])
}

func TestSimulateUnknownEntry(t *testing.T) {
	f := newFixture(t)
	kc := f.seedTeam(t, "KC")
	nyj := f.seedTeam(t, "NYJ")
	f.seedScoredGame(t, 1, kc, nyj, 0.8)

	w, _ := f.do(t, http.MethodGet, "/api/simulate/1?season=2025&entry_id=42", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSimulateExcludesUsedTeams(t *testing.T) {
	f := newFixture(t)
	kc := f.seedTeam(t, "KC")
	nyj := f.seedTeam(t, "NYJ")
	sf := f.seedTeam(t, "SF")
	car := f.seedTeam(t, "CAR")
	entry := f.seedEntry(t, "main", true)
	f.seedScoredGame(t, 1, kc, nyj, 0.9)
	f.seedScoredGame(t, 1, sf, car, 0.7)
	require.NoError(t, f.store.CreatePick(&models.Pick{
		EntryID: entry.ID, TeamID: kc.ID, Season: 2025, Week: 1,
	}))

	path := fmt.Sprintf("/api/simulate/1?season=2025&entry_id=%d", entry.ID)
	w, resp := f.do(t, http.MethodGet, path, nil)

	require.Equal(t, http.StatusOK, w.Code)
	data := resp["data"].(map[string]interface{})
	survival := data["survival_probabilities"].(map[string]interface{})
	assert.NotContains(t, survival, "KC")
	assert.Contains(t, survival, "SF")
}

func TestCreateAndListEntries(t *testing.T) {
	f := newFixture(t)

	w, resp := f.do(t, http.MethodPost, "/api/entries", gin.H{"name": "pool one", "season": 2025})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, resp["success"].(bool))

	w, resp = f.do(t, http.MethodGet, "/api/entries?season=2025", nil)
	require.Equal(t, http.StatusOK, w.Code)
	entries := resp["data"].([]interface{})
	require.Len(t, entries, 1)
	entry := entries[0].(map[string]interface{})
	assert.Equal(t, "pool one", entry["name"])
	assert.Equal(t, true, entry["is_alive"])
}

func TestCreateEntryValidation(t *testing.T) {
	f := newFixture(t)

	w, _ := f.do(t, http.MethodPost, "/api/entries", gin.H{"season": 2025})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
