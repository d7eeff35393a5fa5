package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jstittsworth/survivor-optimizer/internal/models"
	"github.com/jstittsworth/survivor-optimizer/internal/store"
	"github.com/jstittsworth/survivor-optimizer/pkg/database"
)

func newReconcilerFixture(t *testing.T) (*Reconciler, *store.Store) {
	t.Helper()
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Team{}, &models.Game{}, &models.Entry{}, &models.Pick{}))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})

	s := store.New(&database.DB{DB: db})
	return NewReconciler(s), s
}

func TestReconcileWeekSettlesOutcomes(t *testing.T) {
	r, s := newReconcilerFixture(t)

	kc := &models.Team{Abbr: "KC", FullName: "Kansas City Chiefs"}
	nyj := &models.Team{Abbr: "NYJ", FullName: "New York Jets"}
	sf := &models.Team{Abbr: "SF", FullName: "San Francisco 49ers"}
	car := &models.Team{Abbr: "CAR", FullName: "Carolina Panthers"}
	for _, team := range []*models.Team{kc, nyj, sf, car} {
		require.NoError(t, s.CreateTeam(team))
	}

	homeWon := true
	awayWon := false
	require.NoError(t, s.SaveGame(&models.Game{
		Season: 2025, Week: 1, HomeTeamID: kc.ID, AwayTeamID: nyj.ID, HomeWin: &homeWon,
	}))
	require.NoError(t, s.SaveGame(&models.Game{
		Season: 2025, Week: 1, HomeTeamID: car.ID, AwayTeamID: sf.ID, HomeWin: &awayWon,
	}))

	winner := &models.Entry{Name: "winner", Season: 2025, IsAlive: true}
	loser := &models.Entry{Name: "loser", Season: 2025, IsAlive: true}
	require.NoError(t, s.CreateEntry(winner))
	require.NoError(t, s.CreateEntry(loser))

	require.NoError(t, s.CreatePick(&models.Pick{EntryID: winner.ID, TeamID: kc.ID, Season: 2025, Week: 1}))
	require.NoError(t, s.CreatePick(&models.Pick{EntryID: loser.ID, TeamID: car.ID, Season: 2025, Week: 1}))

	settled, err := r.ReconcileWeek(2025, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, settled)

	winnerPick, err := s.PickByEntryWeek(winner.ID, 2025, 1)
	require.NoError(t, err)
	require.NotNil(t, winnerPick.Outcome)
	assert.True(t, *winnerPick.Outcome)

	loserPick, err := s.PickByEntryWeek(loser.ID, 2025, 1)
	require.NoError(t, err)
	require.NotNil(t, loserPick.Outcome)
	assert.False(t, *loserPick.Outcome)

	survivor, err := s.GetEntry(winner.ID)
	require.NoError(t, err)
	assert.True(t, survivor.IsAlive)

	eliminated, err := s.GetEntry(loser.ID)
	require.NoError(t, err)
	assert.False(t, eliminated.IsAlive)
	require.NotNil(t, eliminated.EliminatedWeek)
	assert.Equal(t, 1, *eliminated.EliminatedWeek)
}

func TestReconcileWeekLeavesPendingGames(t *testing.T) {
	r, s := newReconcilerFixture(t)

	kc := &models.Team{Abbr: "KC", FullName: "Kansas City Chiefs"}
	nyj := &models.Team{Abbr: "NYJ", FullName: "New York Jets"}
	require.NoError(t, s.CreateTeam(kc))
	require.NoError(t, s.CreateTeam(nyj))

	// Unplayed game: the pick stays pending.
	require.NoError(t, s.SaveGame(&models.Game{
		Season: 2025, Week: 1, HomeTeamID: kc.ID, AwayTeamID: nyj.ID,
	}))

	entry := &models.Entry{Name: "main", Season: 2025, IsAlive: true}
	require.NoError(t, s.CreateEntry(entry))
	require.NoError(t, s.CreatePick(&models.Pick{EntryID: entry.ID, TeamID: kc.ID, Season: 2025, Week: 1}))

	settled, err := r.ReconcileWeek(2025, 1)
	require.NoError(t, err)
	assert.Zero(t, settled)

	pick, err := s.PickByEntryWeek(entry.ID, 2025, 1)
	require.NoError(t, err)
	assert.Nil(t, pick.Outcome)
}

func TestReconcileWeekIdempotent(t *testing.T) {
	r, s := newReconcilerFixture(t)

	kc := &models.Team{Abbr: "KC", FullName: "Kansas City Chiefs"}
	nyj := &models.Team{Abbr: "NYJ", FullName: "New York Jets"}
	require.NoError(t, s.CreateTeam(kc))
	require.NoError(t, s.CreateTeam(nyj))

	homeWon := true
	require.NoError(t, s.SaveGame(&models.Game{
		Season: 2025, Week: 1, HomeTeamID: kc.ID, AwayTeamID: nyj.ID, HomeWin: &homeWon,
	}))

	entry := &models.Entry{Name: "main", Season: 2025, IsAlive: true}
	require.NoError(t, s.CreateEntry(entry))
	require.NoError(t, s.CreatePick(&models.Pick{EntryID: entry.ID, TeamID: kc.ID, Season: 2025, Week: 1}))

	first, err := r.ReconcileWeek(2025, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, first)

	second, err := r.ReconcileWeek(2025, 1)
	require.NoError(t, err)
	assert.Zero(t, second)
}
