package props

import (
	"sort"
	"strings"

	"github.com/propboard/propboard/internal/models"
)

// FilterConfig is a conjunction of predicates over the projection board.
// Zero-valued fields are inactive.
type FilterConfig struct {
	Sport         string  `form:"sport" json:"sport"`
	League        string  `form:"league" json:"league"`
	Team          string  `form:"team" json:"team"`
	StatType      string  `form:"stat_type" json:"stat_type"`
	MinConfidence float64 `form:"min_confidence" json:"min_confidence"`
	Search        string  `form:"search" json:"search"`
}

// SortConfig selects a single sort key and direction.
type SortConfig struct {
	Field     string `form:"sort_by" json:"sort_by"`
	Direction string `form:"sort_order" json:"sort_order"` // "asc" or "desc"
}

// Matches reports whether a projection satisfies every active predicate.
func (f FilterConfig) Matches(p models.Projection) bool {
	if f.Sport != "" && !strings.EqualFold(p.Sport, f.Sport) {
		return false
	}
	if f.League != "" && !strings.EqualFold(p.League, f.League) {
		return false
	}
	if f.Team != "" && !strings.EqualFold(p.Team, f.Team) {
		return false
	}
	if f.StatType != "" && !strings.EqualFold(p.StatType, f.StatType) {
		return false
	}
	if f.MinConfidence > 0 && p.Confidence < f.MinConfidence {
		return false
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(p.PlayerName), strings.ToLower(f.Search)) {
		return false
	}
	return true
}

// Apply filters and sorts the board, returning a new slice. An empty result
// is valid; the input is never mutated.
func Apply(board []models.Projection, filter FilterConfig, sortCfg SortConfig) []models.Projection {
	out := make([]models.Projection, 0, len(board))
	for _, p := range board {
		if filter.Matches(p) {
			out = append(out, p)
		}
	}
	sortProjections(out, sortCfg)
	return out
}

func sortProjections(list []models.Projection, cfg SortConfig) {
	if cfg.Field == "" {
		return
	}
	desc := strings.EqualFold(cfg.Direction, "desc")

	sort.SliceStable(list, func(i, j int) bool {
		less := projectionLess(list[i], list[j], cfg.Field)
		if desc {
			return projectionLess(list[j], list[i], cfg.Field)
		}
		return less
	})
}

func projectionLess(a, b models.Projection, field string) bool {
	if av, bv, ok := stringKey(a, b, field); ok {
		return strings.Compare(av, bv) < 0
	}
	// Unknown fields coerce to 0 and compare equal.
	return numericKey(a, field) < numericKey(b, field)
}

func stringKey(a, b models.Projection, field string) (string, string, bool) {
	switch field {
	case "player_name", "player":
		return a.PlayerName, b.PlayerName, true
	case "team":
		return a.Team, b.Team, true
	case "sport":
		return a.Sport, b.Sport, true
	case "league":
		return a.League, b.League, true
	case "stat_type":
		return a.StatType, b.StatType, true
	case "risk_level":
		return a.RiskLevel, b.RiskLevel, true
	}
	return "", "", false
}

func numericKey(p models.Projection, field string) float64 {
	switch field {
	case "line":
		return p.Line
	case "confidence":
		return p.Confidence
	case "odds":
		return float64(p.Odds)
	case "expected_value", "value":
		return p.ExpectedValue
	case "kelly_percentage", "kelly":
		return p.KellyPct
	}
	return 0
}
