package models

import (
	"time"

	"gorm.io/gorm"
)

// Lineup is a saved slip: the entries a user locked in together with the
// payout estimate computed at save time.
type Lineup struct {
	ID            uint     `gorm:"primaryKey" json:"id"`
	UserID        uint     `gorm:"not null;index" json:"user_id"`
	Name          string   `json:"name"`
	EntryCount    int      `gorm:"not null" json:"entry_count"`
	AvgConfidence float64  `gorm:"not null" json:"avg_confidence"`
	Multiplier    float64  `gorm:"not null" json:"multiplier"`
	RiskScore     float64  `json:"risk_score"`
	ValueScore    float64  `json:"value_score"`
	Stake         float64  `json:"stake"`
	IsSubmitted   bool     `gorm:"default:false" json:"is_submitted"`
	ActualPayout  *float64 `json:"actual_payout,omitempty"` // Null until settled

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Entries []LineupEntry `gorm:"-" json:"entries"`
}

func (Lineup) TableName() string {
	return "lineups"
}

// LineupEntry is one selected projection side within a saved lineup. The
// confidence and expected value are copied from the projection at selection
// time so a later board refresh cannot change a saved slip.
type LineupEntry struct {
	ID            uint    `gorm:"primaryKey" json:"id"`
	LineupID      uint    `gorm:"not null;index" json:"lineup_id"`
	ProjectionID  uint    `gorm:"not null" json:"projection_id"`
	PlayerName    string  `gorm:"not null" json:"player_name"`
	StatType      string  `json:"stat_type"`
	Line          float64 `json:"line"`
	Side          Side    `gorm:"not null" json:"side"`
	Confidence    float64 `gorm:"not null" json:"confidence"`
	ExpectedValue float64 `json:"expected_value"`
}

func (LineupEntry) TableName() string {
	return "lineup_entries"
}

// ExpectedPayout returns the stake scaled by the table multiplier.
func (l *Lineup) ExpectedPayout() float64 {
	return l.Stake * l.Multiplier
}

// LoadEntries loads the entries for this lineup from the database.
func (l *Lineup) LoadEntries(db *gorm.DB) error {
	return db.Where("lineup_id = ?", l.ID).Order("id").Find(&l.Entries).Error
}
