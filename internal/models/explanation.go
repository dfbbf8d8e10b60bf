package models

import (
	"time"

	"gorm.io/datatypes"
)

// Explanation stores a generated projection explanation for analytics and
// cache warm-up across restarts.
type Explanation struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	ProjectionID uint           `gorm:"index" json:"projection_id"`
	Prompt       string         `gorm:"type:text" json:"prompt"`
	Request      datatypes.JSON `json:"request"`
	Response     datatypes.JSON `json:"response"`
	Confidence   float64        `json:"confidence"`
	RiskLevel    string         `json:"risk_level"`
	TokensUsed   int            `json:"tokens_used"`
	CreatedAt    time.Time      `json:"created_at"`
}

func (Explanation) TableName() string {
	return "explanations"
}
