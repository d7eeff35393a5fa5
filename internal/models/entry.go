package models

import "time"

// Entry is a single survivor pool account. It becomes terminal once
// IsAlive flips to false.
type Entry struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Name           string    `gorm:"size:50;not null" json:"name"`
	Season         int       `gorm:"not null;index" json:"season"`
	IsAlive        bool      `gorm:"default:true" json:"is_alive"`
	EliminatedWeek *int      `json:"eliminated_week,omitempty"`
	CreatedAt      time.Time `json:"created_at"`

	Picks []Pick `gorm:"foreignKey:EntryID;constraint:OnDelete:CASCADE" json:"picks,omitempty"`
}

func (Entry) TableName() string {
	return "entries"
}

// Pick records one team nomination for an entry. Two invariants hold: at most
// one pick per (entry, season, week) and at most one pick per (entry, team)
// across the season.
type Pick struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	EntryID         uint       `gorm:"not null;uniqueIndex:uq_pick_week;uniqueIndex:uq_pick_team" json:"entry_id"`
	TeamID          uint       `gorm:"not null;uniqueIndex:uq_pick_team" json:"team_id"`
	Season          int        `gorm:"not null;uniqueIndex:uq_pick_week" json:"season"`
	Week            int        `gorm:"not null;uniqueIndex:uq_pick_week" json:"week"`
	WinProbAtSubmit *float64   `json:"win_prob_at_submit,omitempty"`
	IsRecommended   bool       `gorm:"default:false" json:"is_recommended"`
	Outcome         *bool      `json:"outcome,omitempty"` // nil until the game completes
	SubmittedAt     time.Time  `gorm:"autoCreateTime" json:"submitted_at"`

	Entry *Entry `gorm:"foreignKey:EntryID" json:"-"`
	Team  *Team  `gorm:"foreignKey:TeamID" json:"team,omitempty"`
}

func (Pick) TableName() string {
	return "picks"
}
