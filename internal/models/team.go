package models

// Team is the stable identity referenced by games, stats, and picks.
type Team struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	Abbr       string `gorm:"size:5;uniqueIndex;not null" json:"abbr"`     // e.g. "KC"
	FullName   string `gorm:"size:50;not null" json:"full_name"`           // e.g. "Kansas City Chiefs"
	Conference string `gorm:"size:5" json:"conference,omitempty"`          // AFC / NFC
	Division   string `gorm:"size:10" json:"division,omitempty"`           // e.g. "AFC West"
}

func (Team) TableName() string {
	return "teams"
}
