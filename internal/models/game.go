package models

import "time"

// Game is one scheduled or completed matchup. Scores and HomeWin are set once
// the game concludes; HomeWin is nil iff unplayed. The win probability columns
// are written by the model updater and always sum to 1 when present.
type Game struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Season     int        `gorm:"not null;uniqueIndex:uq_game;index:ix_games_season_week" json:"season"`
	Week       int        `gorm:"not null;uniqueIndex:uq_game;index:ix_games_season_week" json:"week"`
	GameDate   *time.Time `json:"game_date,omitempty"`
	HomeTeamID uint       `gorm:"not null;uniqueIndex:uq_game" json:"home_team_id"`
	AwayTeamID uint       `gorm:"not null" json:"away_team_id"`
	HomeScore  *int       `json:"home_score,omitempty"`
	AwayScore  *int       `json:"away_score,omitempty"`
	HomeWin    *bool      `json:"home_win,omitempty"`
	IsNeutral  bool       `gorm:"default:false" json:"is_neutral"`
	Location   string     `gorm:"size:100" json:"location,omitempty"`

	// Computed win probabilities (updated by the model)
	HomeWinProb *float64 `json:"home_win_prob,omitempty"`
	AwayWinProb *float64 `json:"away_win_prob,omitempty"`

	HomeTeam *Team `gorm:"foreignKey:HomeTeamID" json:"home_team,omitempty"`
	AwayTeam *Team `gorm:"foreignKey:AwayTeamID" json:"away_team,omitempty"`
}

func (Game) TableName() string {
	return "games"
}

// IsPlayed reports whether the game has a final result.
func (g *Game) IsPlayed() bool {
	return g.HomeWin != nil
}

// WinProbFor returns the win probability from the given team's side, or nil
// if probabilities haven't been computed.
func (g *Game) WinProbFor(teamID uint) *float64 {
	if teamID == g.HomeTeamID {
		return g.HomeWinProb
	}
	return g.AwayWinProb
}

// WonBy reports whether the given team won. Only meaningful for played games.
func (g *Game) WonBy(teamID uint) bool {
	if g.HomeWin == nil {
		return false
	}
	if teamID == g.HomeTeamID {
		return *g.HomeWin
	}
	return !*g.HomeWin
}
