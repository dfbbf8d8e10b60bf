package props

import (
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// MinEntriesForEstimate is the smallest slip that can be priced.
const MinEntriesForEstimate = 2

// ErrTooFewEntries is returned for slips below MinEntriesForEstimate.
var ErrTooFewEntries = errors.New("at least 2 entries required for optimization")

// multiplierTable maps entry count to the fixed payout multiplier. Counts
// above the largest bucket use the largest bucket.
var multiplierTable = map[int]float64{
	2: 3.0,
	3: 5.0,
	4: 10.0,
	5: 20.0,
	6: 25.0,
}

const maxMultiplierBucket = 6

// MultiplierFor returns the table multiplier for a slip of size n, or 0 for
// sizes that cannot be priced.
func MultiplierFor(n int) float64 {
	if n < MinEntriesForEstimate {
		return 0
	}
	if n > maxMultiplierBucket {
		n = maxMultiplierBucket
	}
	return multiplierTable[n]
}

// Estimate is the payout projection for a slip. The correlation matrix is a
// display-only placeholder; no correlation-aware allocation happens here.
type Estimate struct {
	EntryCount        int         `json:"entry_count"`
	AvgConfidence     float64     `json:"avg_confidence"`
	Multiplier        float64     `json:"multiplier"`
	RiskScore         float64     `json:"risk_score"`
	ValueScore        float64     `json:"value_score"`
	CorrelationMatrix [][]float64 `json:"correlation_matrix"`
	Notes             []string    `json:"notes"`
	ComputedAt        time.Time   `json:"computed_at"`
}

// EstimateSlip prices the slip from the static multiplier table.
//
// Average confidence is the mean over all entries, risk score is
// 100 - average confidence, and value score is the mean of the entries'
// stored expected values.
func EstimateSlip(s *Slip) (*Estimate, error) {
	n := len(s.Entries)
	if n < MinEntriesForEstimate {
		return nil, ErrTooFewEntries
	}

	var confidenceSum, valueSum float64
	for _, entry := range s.Entries {
		confidenceSum += entry.Confidence
		valueSum += entry.ExpectedValue
	}
	avgConfidence := confidenceSum / float64(n)

	est := &Estimate{
		EntryCount:        n,
		AvgConfidence:     avgConfidence,
		Multiplier:        MultiplierFor(n),
		RiskScore:         100 - avgConfidence,
		ValueScore:        valueSum / float64(n),
		CorrelationMatrix: placeholderCorrelations(n),
		ComputedAt:        time.Now().UTC(),
	}

	est.Notes = []string{
		fmt.Sprintf("Optimized for %d selections", n),
		fmt.Sprintf("Average confidence: %.1f%%", avgConfidence),
		fmt.Sprintf("Risk level: %s", riskLabel(est.RiskScore)),
	}

	return est, nil
}

func riskLabel(riskScore float64) string {
	switch {
	case riskScore < 30:
		return "Low"
	case riskScore < 60:
		return "Medium"
	default:
		return "High"
	}
}

// placeholderCorrelations fabricates a symmetric matrix of random values for
// display. Diagonal is 1.0.
func placeholderCorrelations(n int) [][]float64 {
	matrix := make([][]float64, n)
	for i := range matrix {
		matrix[i] = make([]float64, n)
		matrix[i][i] = 1.0
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			v := 0.05 + rand.Float64()*0.3
			matrix[i][j] = v
			matrix[j][i] = v
		}
	}
	return matrix
}
