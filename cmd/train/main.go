package main

import (
	"flag"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/jstittsworth/survivor-optimizer/internal/features"
	"github.com/jstittsworth/survivor-optimizer/internal/store"
	"github.com/jstittsworth/survivor-optimizer/internal/winprob"
	"github.com/jstittsworth/survivor-optimizer/pkg/config"
	"github.com/jstittsworth/survivor-optimizer/pkg/database"
)

func main() {
	var (
		seasonsFlag = flag.String("seasons", "", "comma-separated training seasons, e.g. 2021,2022,2023")
		valSeason   = flag.Int("val-season", 0, "held-out validation season (optional)")
	)
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	seasons, err := parseSeasons(*seasonsFlag)
	if err != nil {
		logrus.Fatalf("Invalid -seasons: %v", err)
	}
	if len(seasons) == 0 {
		logrus.Fatal("At least one training season is required (-seasons)")
	}

	db, err := database.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	assembler := features.NewAssembler(store.New(db))

	X, y, err := assembler.BuildTrainingSet(seasons)
	if err != nil {
		logrus.Fatalf("Failed to build training set: %v", err)
	}

	model, err := winprob.Train(X, y, cfg.Seed, cfg.HomeFieldPts, cfg.FallbackScale)
	if err != nil {
		logrus.Fatalf("Training failed: %v", err)
	}

	var valX [][]float64
	var valY []int
	if *valSeason > 0 {
		valX, valY, err = assembler.BuildTrainingSet([]int{*valSeason})
		if err != nil {
			logrus.Fatalf("Failed to build validation set: %v", err)
		}
	}

	metrics := winprob.Evaluate(model, X, y, valX, valY)
	metrics.TrainSeasons = seasons
	metrics.ValSeason = *valSeason

	logrus.Infof("Train: %d samples, Brier %.4f, log loss %.4f, home win rate %.3f",
		metrics.NTrainSamples, metrics.TrainBrier, metrics.TrainLogLoss, metrics.HomeWinRate)
	if metrics.NValSamples > 0 {
		logrus.Infof("Validation (%d): %d samples, Brier %.4f, log loss %.4f, accuracy %.3f",
			*valSeason, metrics.NValSamples, metrics.ValBrier, metrics.ValLogLoss, metrics.ValAccuracy)
		if metrics.ValBrier > 0.22 {
			logrus.Warnf("Validation Brier %.4f exceeds the 0.22 target", metrics.ValBrier)
		}
	}

	if err := model.Save(cfg.ModelPath); err != nil {
		logrus.Fatalf("Failed to save model: %v", err)
	}
	if err := metrics.Save(cfg.MetricsPath); err != nil {
		logrus.Fatalf("Failed to save metrics: %v", err)
	}
	logrus.Infof("Model saved to %s, metrics to %s", cfg.ModelPath, cfg.MetricsPath)
}

func parseSeasons(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	seasons := make([]int, 0, len(parts))
	for _, part := range parts {
		season, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		seasons = append(seasons, season)
	}
	return seasons, nil
}
