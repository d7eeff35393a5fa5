package services

import (
	"github.com/sirupsen/logrus"

	"github.com/jstittsworth/survivor-optimizer/internal/store"
)

// Reconciler settles pick outcomes once games complete: a pick on a losing
// team flips its entry to eliminated.
type Reconciler struct {
	store *store.Store
}

func NewReconciler(s *store.Store) *Reconciler {
	return &Reconciler{store: s}
}

// ReconcileWeek resolves every pending pick in (season, week) whose game has
// finished. Returns the number of picks settled.
func (r *Reconciler) ReconcileWeek(season, week int) (int, error) {
	picks, err := r.store.PicksForWeek(season, week)
	if err != nil {
		return 0, err
	}

	settled := 0
	for _, pick := range picks {
		if pick.Outcome != nil {
			continue
		}

		game, err := r.store.CompletedGameForTeam(season, week, pick.TeamID)
		if err != nil {
			return settled, err
		}
		if game == nil {
			continue // still in progress or postponed
		}

		won := game.WonBy(pick.TeamID)
		if err := r.store.SetPickOutcome(pick.ID, won); err != nil {
			return settled, err
		}

		if !won {
			entry, err := r.store.GetEntry(pick.EntryID)
			if err != nil {
				return settled, err
			}
			if entry != nil && entry.IsAlive {
				if err := r.store.MarkEntryEliminated(entry.ID, week); err != nil {
					return settled, err
				}
				logrus.Infof("Entry %d eliminated in week %d", entry.ID, week)
			}
		}
		settled++
	}

	return settled, nil
}

// ReconcileSeason sweeps every regular-season week for unsettled picks.
func (r *Reconciler) ReconcileSeason(season int) (int, error) {
	total := 0
	for week := 1; week <= 18; week++ {
		n, err := r.ReconcileWeek(season, week)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}
