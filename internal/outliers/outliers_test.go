package outliers

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/nftpulse/internal/series"
)

func TestQuantile(t *testing.T) {
	sorted := []float64{1, 2, 3, 4}

	assert.Equal(t, 1.0, Quantile(sorted, 0))
	assert.Equal(t, 4.0, Quantile(sorted, 1))
	assert.InDelta(t, 1.75, Quantile(sorted, 0.25), 1e-12)
	assert.InDelta(t, 3.25, Quantile(sorted, 0.75), 1e-12)
	assert.InDelta(t, 2.5, Quantile(sorted, 0.5), 1e-12)
	assert.Equal(t, 7.0, Quantile([]float64{7}, 0.25))
	assert.True(t, math.IsNaN(Quantile(nil, 0.5)))
}

func TestIQR_Detect(t *testing.T) {
	tests := []struct {
		name     string
		values   []series.Value
		expected []Outlier
	}{
		{
			name:     "empty",
			values:   nil,
			expected: nil,
		},
		{
			name:     "single element",
			values:   series.Floats(42),
			expected: nil,
		},
		{
			name:     "high and low spikes keep original indices",
			values:   series.Floats(10, 12, 11, 500, 13, 12, -300, 11),
			expected: []Outlier{{Index: 3, Value: 500}, {Index: 6, Value: -300}},
		},
		{
			name:     "missing values are skipped",
			values:   []series.Value{series.Some(5), series.None(), series.Some(6), series.Some(5), series.Some(7), series.Some(90)},
			expected: []Outlier{{Index: 5, Value: 90}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NewIQR().Detect(tt.values))
		})
	}
}

func TestIQR_ArithmeticSequenceHasNoOutliers(t *testing.T) {
	values := make([]float64, 100)
	for i := range values {
		values[i] = float64(i + 1)
	}
	assert.Empty(t, NewIQR().Detect(series.Floats(values...)))
}

func TestIQR_DoesNotReorderInput(t *testing.T) {
	values := series.Floats(9, 1, 8, 2, 7, 100)
	snapshot := append([]series.Value(nil), values...)

	got := NewIQR().Detect(values)

	assert.Equal(t, snapshot, values)
	require.Len(t, got, 1)
	assert.Equal(t, 5, got[0].Index)
}

func TestIQR_ZeroMultiplierUsesDefault(t *testing.T) {
	values := series.Floats(10, 12, 11, 500, 13, 12, 11)
	assert.Equal(t, NewIQR().Detect(values), IQR{}.Detect(values))
}

func TestZScore_Detect(t *testing.T) {
	values := make([]float64, 0, 21)
	for i := 0; i < 20; i++ {
		values = append(values, 10)
	}
	values = append(values, 1000)

	var d Detector = NewZScore()
	got := d.Detect(series.Floats(values...))
	assert.Equal(t, []Outlier{{Index: 20, Value: 1000}}, got)

	assert.Empty(t, d.Detect(series.Floats(4, 4, 4, 4)))
	assert.Empty(t, d.Detect(series.Floats(4)))
}
