package models

// TeamWeekStats is the per-team per-week feature bundle the win probability
// model trains on. Every field may be missing; consumers substitute 0
// (7 for rest days) through features.BundleFromStats, never here.
type TeamWeekStats struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	TeamID uint `gorm:"not null;uniqueIndex:uq_team_week" json:"team_id"`
	Season int  `gorm:"not null;uniqueIndex:uq_team_week;index:ix_tws_season_week" json:"season"`
	Week   int  `gorm:"not null;uniqueIndex:uq_team_week;index:ix_tws_season_week" json:"week"`

	// DVOA efficiency ratings
	TotalDVOA   *float64 `json:"total_dvoa,omitempty"`
	OffenseDVOA *float64 `json:"offense_dvoa,omitempty"`
	DefenseDVOA *float64 `json:"defense_dvoa,omitempty"` // negative is better
	STDVOA      *float64 `json:"st_dvoa,omitempty"`

	// nflverse EPA
	OffEPAPerPlay *float64 `json:"off_epa_per_play,omitempty"`
	DefEPAPerPlay *float64 `json:"def_epa_per_play,omitempty"` // negative is better

	// Season-level strength of schedule rating
	SRS               *float64 `json:"srs,omitempty"`
	PointDifferential *float64 `json:"point_differential,omitempty"`

	// Computed / schedule factors
	RecentForm *float64 `json:"recent_form,omitempty"` // avg point diff last 4 games
	RestDays   *int     `json:"rest_days,omitempty"`   // days since previous game

	Team *Team `gorm:"foreignKey:TeamID" json:"team,omitempty"`
}

func (TeamWeekStats) TableName() string {
	return "team_week_stats"
}
