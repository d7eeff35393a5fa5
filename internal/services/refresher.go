package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/jstittsworth/survivor-optimizer/internal/ingest"
	"github.com/jstittsworth/survivor-optimizer/internal/store"
	"github.com/jstittsworth/survivor-optimizer/internal/winprob"
	"github.com/jstittsworth/survivor-optimizer/pkg/config"
)

// Refresher runs the weekly background pipeline: pull fresh schedules and
// stats, recompute win probabilities for unplayed games, settle pick
// outcomes, drop stale cache entries, and nudge anyone who hasn't picked.
type Refresher struct {
	cfg        *config.Config
	store      *store.Store
	loader     *ingest.Loader
	updater    *winprob.Updater
	reconciler *Reconciler
	cache      *CacheService
	hub        *WebSocketHub
	sms        SMSService
	cron       *cron.Cron
	logger     *logrus.Logger
}

func NewRefresher(
	cfg *config.Config,
	s *store.Store,
	loader *ingest.Loader,
	updater *winprob.Updater,
	reconciler *Reconciler,
	cache *CacheService,
	hub *WebSocketHub,
	sms SMSService,
	logger *logrus.Logger,
) *Refresher {
	return &Refresher{
		cfg:        cfg,
		store:      s,
		loader:     loader,
		updater:    updater,
		reconciler: reconciler,
		cache:      cache,
		hub:        hub,
		sms:        sms,
		cron:       cron.New(),
		logger:     logger,
	}
}

// Start registers the cron jobs and begins the scheduler. The refresh runs
// on RefreshSchedule (Tuesday mornings by default, after the Monday night
// game); pick reminders go out Thursday mornings before the early kickoff.
func (r *Refresher) Start() error {
	if _, err := r.cron.AddFunc(r.cfg.RefreshSchedule, func() {
		if err := r.RefreshNow(context.Background(), CurrentSeason(time.Now())); err != nil {
			r.logger.WithError(err).Error("Weekly data refresh failed")
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule data refresh: %w", err)
	}

	if r.sms != nil && len(r.cfg.ReminderPhones) > 0 {
		if _, err := r.cron.AddFunc("0 9 * * 4", func() {
			if err := r.SendPickReminders(CurrentSeason(time.Now())); err != nil {
				r.logger.WithError(err).Error("Pick reminder job failed")
			}
		}); err != nil {
			return fmt.Errorf("failed to schedule pick reminders: %w", err)
		}
	}

	r.cron.Start()
	r.logger.Infof("Background refresher started (schedule %q)", r.cfg.RefreshSchedule)
	return nil
}

// Stop halts the scheduler and waits for any in-flight job to finish.
func (r *Refresher) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
}

// RefreshNow executes the full pipeline once. It is also invoked directly by
// the results endpoint so operators can force a refresh between cron ticks.
func (r *Refresher) RefreshNow(ctx context.Context, season int) error {
	start := time.Now()
	r.logger.Infof("Starting data refresh for season %d", season)

	if err := r.loader.RefreshSeason(ctx, season); err != nil {
		return fmt.Errorf("data refresh failed: %w", err)
	}

	updated, err := r.updater.UpdateSeason(season)
	if err != nil {
		return fmt.Errorf("win probability update failed: %w", err)
	}

	settled, err := r.reconciler.ReconcileSeason(season)
	if err != nil {
		return fmt.Errorf("pick reconciliation failed: %w", err)
	}

	if r.cache != nil {
		r.cache.InvalidateSeason(ctx, season)
	}

	if r.hub != nil {
		r.hub.Broadcast("season_refreshed", map[string]interface{}{
			"season":              season,
			"games_updated":       updated,
			"picks_settled":       settled,
			"refresh_duration_ms": time.Since(start).Milliseconds(),
		})
	}

	r.logger.WithFields(logrus.Fields{
		"season":        season,
		"games_updated": updated,
		"picks_settled": settled,
		"duration":      time.Since(start),
	}).Info("Data refresh complete")
	return nil
}

// SendPickReminders texts the configured numbers when alive entries are
// missing a pick for the upcoming week.
func (r *Refresher) SendPickReminders(season int) error {
	week, err := r.currentWeek(season)
	if err != nil {
		return err
	}
	if week == 0 {
		return nil // season over
	}

	entries, err := r.store.AliveEntries(season)
	if err != nil {
		return err
	}

	var missing []string
	for _, entry := range entries {
		pick, err := r.store.PickByEntryWeek(entry.ID, season, week)
		if err != nil {
			return err
		}
		if pick == nil {
			missing = append(missing, entry.Name)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	message := fmt.Sprintf("Survivor week %d locks soon. Entries without a pick: %v", week, missing)
	for _, phone := range r.cfg.ReminderPhones {
		if err := r.sms.SendMessage(phone, message); err != nil {
			r.logger.WithError(err).Warnf("Failed to send reminder to %s", phone)
		}
	}

	r.logger.Infof("Sent pick reminders for week %d (%d entries missing picks)", week, len(missing))
	return nil
}

// currentWeek is the earliest week with an unplayed game, 0 if none remain.
func (r *Refresher) currentWeek(season int) (int, error) {
	games, err := r.store.ListGames(season, 1, true, false)
	if err != nil {
		return 0, err
	}
	week := 0
	for _, g := range games {
		if week == 0 || g.Week < week {
			week = g.Week
		}
	}
	return week, nil
}

// CurrentSeason maps a date to the NFL season it belongs to. The regular
// season starts in September and weeks 17 and 18 spill into January.
func CurrentSeason(t time.Time) int {
	if t.Month() < time.March {
		return t.Year() - 1
	}
	return t.Year()
}
