// Package correlation computes Pearson coefficients between metrics and entities.
package correlation

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/irfndi/nftpulse/internal/series"
	"github.com/irfndi/nftpulse/internal/utils"
)

// Pearson returns the correlation of two equal-length sequences over the
// positions where both are present. It is absent when fewer than two pairs
// remain or either side has zero variance; that is not the same as zero.
func Pearson(a, b []series.Value) (series.Value, error) {
	if len(a) != len(b) {
		return series.None(), fmt.Errorf("%w: %d vs %d values", utils.ErrMisalignedSeries, len(a), len(b))
	}

	var xs, ys []float64
	for i := range a {
		x, okX := a[i].Get()
		y, okY := b[i].Get()
		if okX && okY {
			xs = append(xs, x)
			ys = append(ys, y)
		}
	}
	if len(xs) < 2 {
		return series.None(), nil
	}

	// Zero variance on either side comes back as NaN.
	r := stat.Correlation(xs, ys, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return series.None(), nil
	}
	return series.Some(math.Max(-1, math.Min(1, r))), nil
}

// Column is a named sequence taking part in a matrix.
type Column struct {
	Name   string
	Values []series.Value
}

// Matrix is a symmetric table of coefficients indexed by name.
type Matrix struct {
	Names        []string         `json:"names"`
	Coefficients [][]series.Value `json:"coefficients"`
}

// At returns the coefficient between two names.
func (m Matrix) At(a, b string) (series.Value, error) {
	i, j := m.index(a), m.index(b)
	if i < 0 {
		return series.None(), fmt.Errorf("%w: %q", utils.ErrMissingMetric, a)
	}
	if j < 0 {
		return series.None(), fmt.Errorf("%w: %q", utils.ErrMissingMetric, b)
	}
	return m.Coefficients[i][j], nil
}

func (m Matrix) index(name string) int {
	for i, n := range m.Names {
		if n == name {
			return i
		}
	}
	return -1
}

// NewMatrix correlates every pair of columns. All columns must have the same
// length. The diagonal is 1 for every column with variance and absent otherwise.
func NewMatrix(columns []Column) (Matrix, error) {
	m := Matrix{
		Names:        make([]string, len(columns)),
		Coefficients: make([][]series.Value, len(columns)),
	}
	for i, c := range columns {
		m.Names[i] = c.Name
		m.Coefficients[i] = make([]series.Value, len(columns))
	}

	for i := range columns {
		for j := i; j < len(columns); j++ {
			r, err := Pearson(columns[i].Values, columns[j].Values)
			if err != nil {
				return Matrix{}, fmt.Errorf("%s/%s: %w", columns[i].Name, columns[j].Name, err)
			}
			if i == j && r.Valid() {
				r = series.Some(1)
			}
			m.Coefficients[i][j] = r
			m.Coefficients[j][i] = r
		}
	}
	return m, nil
}

// ForSeries correlates the named metrics of a single series. With no names
// every metric is used.
func ForSeries(ts *series.TimeSeries, metrics ...string) (Matrix, error) {
	if len(metrics) == 0 {
		metrics = ts.Metrics()
	}
	columns := make([]Column, 0, len(metrics))
	for _, name := range metrics {
		values, err := ts.Get(name)
		if err != nil {
			return Matrix{}, err
		}
		columns = append(columns, Column{Name: name, Values: values})
	}
	return NewMatrix(columns)
}

// AcrossEntities correlates one metric between entities. Each pair is aligned
// on shared timestamps first, so entities need not cover the same dates; a
// pair without shared timestamps is absent. Entity names are sorted.
func AcrossEntities(entities map[string]*series.TimeSeries, metric string) (Matrix, error) {
	names := make([]string, 0, len(entities))
	for name, ts := range entities {
		if !ts.Has(metric) {
			return Matrix{}, fmt.Errorf("%s: %w: %q", name, utils.ErrMissingMetric, metric)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	m := Matrix{
		Names:        names,
		Coefficients: make([][]series.Value, len(names)),
	}
	for i := range names {
		m.Coefficients[i] = make([]series.Value, len(names))
	}

	for i := range names {
		for j := i; j < len(names); j++ {
			left, right, err := entities[names[i]].Align(entities[names[j]])
			if err != nil {
				continue
			}
			a, _ := left.Get(metric)
			b, _ := right.Get(metric)
			r, err := Pearson(a, b)
			if err != nil {
				return Matrix{}, err
			}
			if i == j && r.Valid() {
				r = series.Some(1)
			}
			m.Coefficients[i][j] = r
			m.Coefficients[j][i] = r
		}
	}
	return m, nil
}
