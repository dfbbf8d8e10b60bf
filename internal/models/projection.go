package models

import (
	"time"

	"gorm.io/datatypes"
)

// Side is the chosen direction on a projection line.
type Side string

const (
	SideOver  Side = "over"
	SideUnder Side = "under"
)

// Valid reports whether s is one of the two accepted sides.
func (s Side) Valid() bool {
	return s == SideOver || s == SideUnder
}

// Opposite returns the other side of the line.
func (s Side) Opposite() Side {
	if s == SideOver {
		return SideUnder
	}
	return SideOver
}

// Projection is a single player-stat line offered for over/under selection.
// Rows are replaced wholesale on each upstream refresh.
type Projection struct {
	ID         uint    `gorm:"primaryKey" json:"id"`
	ExternalID string  `gorm:"uniqueIndex;not null" json:"external_id"`
	PlayerName string  `gorm:"not null;index" json:"player_name"`
	Team       string  `gorm:"index" json:"team"`
	Sport      string  `gorm:"index" json:"sport"`
	League     string  `gorm:"index" json:"league"`
	StatType   string  `gorm:"index" json:"stat_type"`
	Line       float64 `gorm:"not null" json:"line"`

	// Confidence is on a 0-100 scale as delivered by the vendor.
	Confidence    float64 `gorm:"not null" json:"confidence"`
	Odds          int     `json:"odds"`
	ExpectedValue float64 `json:"expected_value"`
	KellyPct      float64 `json:"kelly_percentage"`
	RiskLevel     string  `json:"risk_level"`

	Recommendation string `json:"recommendation,omitempty"`

	// MLPrediction carries the vendor's nested prediction object verbatim.
	// Display data only, never interpreted beyond risk level lookups.
	MLPrediction datatypes.JSON `json:"ml_prediction,omitempty"`

	FetchedAt time.Time `json:"fetched_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Projection) TableName() string {
	return "projections"
}
