package main

import (
	"fmt"
	"log"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/jstittsworth/survivor-optimizer/internal/ingest"
	"github.com/jstittsworth/survivor-optimizer/internal/models"
	"github.com/jstittsworth/survivor-optimizer/internal/store"
	"github.com/jstittsworth/survivor-optimizer/pkg/config"
	"github.com/jstittsworth/survivor-optimizer/pkg/database"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: migrate [up|down|seed]")
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	db, err := database.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	command := os.Args[1]

	switch command {
	case "up":
		if err := runMigrations(db); err != nil {
			logrus.Fatalf("Failed to run migrations: %v", err)
		}
		logrus.Info("Migrations completed successfully")

	case "down":
		if err := dropTables(db); err != nil {
			logrus.Fatalf("Failed to drop tables: %v", err)
		}
		logrus.Info("Tables dropped successfully")

	case "seed":
		if err := seedData(db); err != nil {
			logrus.Fatalf("Failed to seed data: %v", err)
		}
		logrus.Info("Data seeded successfully")

	default:
		log.Fatalf("Unknown command: %s", command)
	}
}

func runMigrations(db *database.DB) error {
	if err := db.AutoMigrate(
		&models.Team{},
		&models.Game{},
		&models.TeamWeekStats{},
		&models.Entry{},
		&models.Pick{},
		&models.SimulationRun{},
	); err != nil {
		return fmt.Errorf("failed to migrate models: %w", err)
	}

	// Supplementary indexes beyond what the model tags declare
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_games_home_win_prob ON games(season, week) WHERE home_win_prob IS NOT NULL",
		"CREATE INDEX IF NOT EXISTS idx_picks_season_week ON picks(season, week)",
		"CREATE INDEX IF NOT EXISTS idx_entries_alive ON entries(season) WHERE is_alive",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

func dropTables(db *database.DB) error {
	// Drop tables in reverse order to handle foreign key constraints
	tables := []string{
		"simulation_runs",
		"picks",
		"entries",
		"team_week_stats",
		"games",
		"teams",
	}

	for _, table := range tables {
		if err := db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", table)).Error; err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}

	return nil
}

// seedData inserts the 32 NFL teams. Schedules and stats come from the
// ingestion pipeline, not the seeder.
func seedData(db *database.DB) error {
	// SeedTeams never touches the HTTP client, so none is wired here.
	loader := ingest.NewLoader(nil, store.New(db), logrus.StandardLogger())

	teamMap, err := loader.SeedTeams()
	if err != nil {
		return fmt.Errorf("failed to seed teams: %w", err)
	}

	logrus.Infof("Seeded %d teams", len(teamMap))
	return nil
}
