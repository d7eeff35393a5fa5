package winprob

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/jstittsworth/survivor-optimizer/internal/features"
	"github.com/jstittsworth/survivor-optimizer/internal/store"
)

// Updater applies the model to every unplayed game in a season and persists
// the resulting probabilities. Played games are skipped.
type Updater struct {
	store     *store.Store
	assembler *features.Assembler
	model     *Model
}

func NewUpdater(s *store.Store, asm *features.Assembler, model *Model) *Updater {
	return &Updater{store: s, assembler: asm, model: model}
}

// UpdateSeason writes home/away win probabilities for all unplayed games and
// returns the number of games updated. Stats are taken strictly before each
// game's week so the target week never leaks into its own prediction.
func (u *Updater) UpdateSeason(season int) (int, error) {
	games, err := u.store.ListGames(season, 0, true, false)
	if err != nil {
		return 0, fmt.Errorf("failed to load unplayed games: %w", err)
	}

	updated := 0
	for _, game := range games {
		home, err := u.assembler.LatestBundleBefore(game.HomeTeamID, season, game.Week)
		if err != nil {
			return updated, err
		}
		away, err := u.assembler.LatestBundleBefore(game.AwayTeamID, season, game.Week)
		if err != nil {
			return updated, err
		}

		pHome, pAway := u.model.Predict(home, away, game.IsNeutral)
		if err := u.store.UpdateGameWinProb(game.ID, pHome, pAway); err != nil {
			return updated, err
		}
		updated++
	}

	logrus.Infof("Updated win probabilities for %d games (season %d)", updated, season)
	return updated, nil
}
