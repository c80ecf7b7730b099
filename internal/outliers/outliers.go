// Package outliers flags anomalous points in a metric.
package outliers

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/irfndi/nftpulse/internal/series"
)

// Outlier is a flagged value with its index in the caller's slice.
type Outlier struct {
	Index int     `json:"index"`
	Value float64 `json:"value"`
}

// Detector finds outliers without reordering or mutating its input. Results
// are in ascending index order.
type Detector interface {
	Detect(values []series.Value) []Outlier
}

// DefaultIQRMultiplier is the Tukey fence multiplier.
const DefaultIQRMultiplier = 1.5

// IQR flags values outside [Q1 - k*IQR, Q3 + k*IQR].
type IQR struct {
	Multiplier float64
}

// NewIQR returns an IQR detector with the standard 1.5 multiplier.
func NewIQR() IQR {
	return IQR{Multiplier: DefaultIQRMultiplier}
}

// Detect implements Detector. Missing values are ignored; fewer than two
// present values yields no outliers.
func (d IQR) Detect(values []series.Value) []Outlier {
	present := series.Present(values)
	if len(present) < 2 {
		return nil
	}

	k := d.Multiplier
	if k <= 0 {
		k = DefaultIQRMultiplier
	}

	sorted := append([]float64(nil), present...)
	sort.Float64s(sorted)
	q1 := Quantile(sorted, 0.25)
	q3 := Quantile(sorted, 0.75)
	iqr := q3 - q1
	lower, upper := q1-k*iqr, q3+k*iqr

	return collect(values, func(v float64) bool {
		return v < lower || v > upper
	})
}

// DefaultZScoreThreshold is the number of standard deviations treated as anomalous.
const DefaultZScoreThreshold = 3.0

// ZScore flags values more than Threshold population standard deviations
// from the mean.
type ZScore struct {
	Threshold float64
}

// NewZScore returns a ZScore detector with a threshold of 3.
func NewZScore() ZScore {
	return ZScore{Threshold: DefaultZScoreThreshold}
}

// Detect implements Detector. A constant series has no outliers.
func (d ZScore) Detect(values []series.Value) []Outlier {
	present := series.Present(values)
	if len(present) < 2 {
		return nil
	}

	threshold := d.Threshold
	if threshold <= 0 {
		threshold = DefaultZScoreThreshold
	}

	mean, std := stat.PopMeanStdDev(present, nil)
	if std == 0 {
		return nil
	}

	return collect(values, func(v float64) bool {
		return math.Abs(v-mean)/std > threshold
	})
}

// Quantile returns the p-quantile of an ascending slice using linear
// interpolation between closest ranks. It returns NaN for an empty slice.
func Quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return sorted[0]
	}

	pos := p * float64(n-1)
	lo := int(math.Floor(pos))
	if lo < 0 {
		return sorted[0]
	}
	if lo >= n-1 {
		return sorted[n-1]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

func collect(values []series.Value, flagged func(float64) bool) []Outlier {
	var out []Outlier
	for i, v := range values {
		x, ok := v.Get()
		if ok && flagged(x) {
			out = append(out, Outlier{Index: i, Value: x})
		}
	}
	return out
}
