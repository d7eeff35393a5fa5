package models

import (
	"time"

	"gorm.io/datatypes"
)

// SimulationRun is the frozen audit record of one optimizer invocation.
// Results holds the team abbreviation → survival probability map for the
// current-week decision.
type SimulationRun struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	RunID        string         `gorm:"size:36;uniqueIndex" json:"run_id"`
	Season       int            `gorm:"not null;index:ix_runs_season_week" json:"season"`
	Week         int            `gorm:"not null;index:ix_runs_season_week" json:"week"` // week the simulation was run FOR
	NSimulations int            `gorm:"default:50000" json:"n_simulations"`
	RunAt        time.Time      `gorm:"autoCreateTime" json:"run_at"`
	Results      datatypes.JSON `json:"results"`
}

func (SimulationRun) TableName() string {
	return "simulation_runs"
}
