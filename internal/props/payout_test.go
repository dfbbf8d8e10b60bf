package props

import (
	"testing"

	"github.com/propboard/propboard/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func slipOfSize(t *testing.T, confidences ...float64) *Slip {
	t.Helper()
	slip := NewSlip(len(confidences))
	for i, confidence := range confidences {
		_, err := slip.Select(projection(uint(i+1), confidence), models.SideOver)
		require.NoError(t, err)
	}
	return slip
}

func TestMultiplierTable(t *testing.T) {
	tests := []struct {
		entries    int
		multiplier float64
	}{
		{0, 0},
		{1, 0},
		{2, 3.0},
		{3, 5.0},
		{4, 10.0},
		{5, 20.0},
		{6, 25.0},
		{7, 25.0},  // sizes above 6 use the largest bucket
		{12, 25.0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.multiplier, MultiplierFor(tt.entries), "entries=%d", tt.entries)
	}
}

func TestEstimateSlipExample(t *testing.T) {
	// Two entries with confidences 80 and 90: average 85, multiplier 3.0,
	// risk score 15.
	slip := slipOfSize(t, 80, 90)

	est, err := EstimateSlip(slip)
	require.NoError(t, err)

	assert.Equal(t, 2, est.EntryCount)
	assert.InDelta(t, 85.0, est.AvgConfidence, 1e-9)
	assert.Equal(t, 3.0, est.Multiplier)
	assert.InDelta(t, 15.0, est.RiskScore, 1e-9)
}

func TestEstimateSlipTooFewEntries(t *testing.T) {
	est, err := EstimateSlip(slipOfSize(t, 80))
	assert.ErrorIs(t, err, ErrTooFewEntries)
	assert.Nil(t, est, "no computation occurs below two entries")

	est, err = EstimateSlip(NewSlip(6))
	assert.ErrorIs(t, err, ErrTooFewEntries)
	assert.Nil(t, est)
}

func TestEstimateSlipValueScore(t *testing.T) {
	slip := NewSlip(6)
	p1 := projection(1, 80)
	p1.ExpectedValue = 0.10
	p2 := projection(2, 90)
	p2.ExpectedValue = 0.30

	_, err := slip.Select(p1, models.SideOver)
	require.NoError(t, err)
	_, err = slip.Select(p2, models.SideUnder)
	require.NoError(t, err)

	est, err := EstimateSlip(slip)
	require.NoError(t, err)
	assert.InDelta(t, 0.20, est.ValueScore, 1e-9)
}

func TestEstimateSlipCorrelationMatrixShape(t *testing.T) {
	slip := slipOfSize(t, 80, 85, 90)

	est, err := EstimateSlip(slip)
	require.NoError(t, err)

	require.Len(t, est.CorrelationMatrix, 3)
	for i, row := range est.CorrelationMatrix {
		require.Len(t, row, 3)
		assert.Equal(t, 1.0, row[i], "diagonal must be 1.0")
		for j, v := range row {
			assert.Equal(t, v, est.CorrelationMatrix[j][i], "matrix must be symmetric")
			if i != j {
				assert.GreaterOrEqual(t, v, 0.05)
				assert.Less(t, v, 0.35)
			}
		}
	}
}

func TestEstimateSlipNotes(t *testing.T) {
	tests := []struct {
		name        string
		confidences []float64
		riskLabel   string
	}{
		{"Low risk", []float64{90, 95}, "Low"},
		{"Medium risk", []float64{60, 70}, "Medium"},
		{"High risk", []float64{30, 40}, "High"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			est, err := EstimateSlip(slipOfSize(t, tt.confidences...))
			require.NoError(t, err)
			require.Len(t, est.Notes, 3)
			assert.Contains(t, est.Notes[2], tt.riskLabel)
		})
	}
}
