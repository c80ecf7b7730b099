package series

import (
	"fmt"
	"sort"
	"time"

	"github.com/irfndi/nftpulse/internal/utils"
)

// TimeSeries pairs ascending timestamps with parallel metric sequences.
// It is immutable: every accessor returns copies and every transformation
// returns a new TimeSeries.
type TimeSeries struct {
	timestamps []time.Time
	metrics    map[string][]Value
}

// New builds a TimeSeries. Every metric must have exactly len(timestamps)
// values and timestamps must not decrease; duplicates are kept.
func New(timestamps []time.Time, metrics map[string][]Value) (*TimeSeries, error) {
	for i := 1; i < len(timestamps); i++ {
		if timestamps[i].Before(timestamps[i-1]) {
			return nil, fmt.Errorf("%w: timestamps not ascending at index %d", utils.ErrInvalidParameter, i)
		}
	}

	ts := &TimeSeries{
		timestamps: append([]time.Time(nil), timestamps...),
		metrics:    make(map[string][]Value, len(metrics)),
	}
	for name, values := range metrics {
		if len(values) != len(timestamps) {
			return nil, fmt.Errorf("%w: metric %q has %d values for %d timestamps",
				utils.ErrMisalignedSeries, name, len(values), len(timestamps))
		}
		ts.metrics[name] = append([]Value(nil), values...)
	}
	return ts, nil
}

// FromFloats is New for fully populated float metrics.
func FromFloats(timestamps []time.Time, metrics map[string][]float64) (*TimeSeries, error) {
	converted := make(map[string][]Value, len(metrics))
	for name, values := range metrics {
		converted[name] = Floats(values...)
	}
	return New(timestamps, converted)
}

// Len returns the number of points.
func (ts *TimeSeries) Len() int {
	return len(ts.timestamps)
}

// Timestamps returns a copy of the timestamps.
func (ts *TimeSeries) Timestamps() []time.Time {
	return append([]time.Time(nil), ts.timestamps...)
}

// Metrics returns the metric names in sorted order.
func (ts *TimeSeries) Metrics() []string {
	names := make([]string, 0, len(ts.metrics))
	for name := range ts.metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether the named metric exists.
func (ts *TimeSeries) Has(metric string) bool {
	_, ok := ts.metrics[metric]
	return ok
}

// Get returns a copy of the named metric or ErrMissingMetric.
func (ts *TimeSeries) Get(metric string) ([]Value, error) {
	values, ok := ts.metrics[metric]
	if !ok {
		return nil, fmt.Errorf("%w: %q", utils.ErrMissingMetric, metric)
	}
	return append([]Value(nil), values...), nil
}

// Slice returns the half-open range [from, to). Indices are clamped to the
// series bounds; an inverted range yields an empty series.
func (ts *TimeSeries) Slice(from, to int) *TimeSeries {
	n := len(ts.timestamps)
	from = clamp(from, 0, n)
	to = clamp(to, 0, n)
	if to < from {
		to = from
	}

	out := &TimeSeries{
		timestamps: append([]time.Time(nil), ts.timestamps[from:to]...),
		metrics:    make(map[string][]Value, len(ts.metrics)),
	}
	for name, values := range ts.metrics {
		out.metrics[name] = append([]Value(nil), values[from:to]...)
	}
	return out
}

// Tail returns the last n points (all of them when n exceeds the length).
func (ts *TimeSeries) Tail(n int) *TimeSeries {
	return ts.Slice(ts.Len()-n, ts.Len())
}

// Align restricts both series to their common timestamps. Duplicate
// timestamps are matched occurrence by occurrence, so a timestamp present
// twice in both inputs appears twice in both outputs.
func (ts *TimeSeries) Align(other *TimeSeries) (*TimeSeries, *TimeSeries, error) {
	var left, right []int
	i, j := 0, 0
	for i < len(ts.timestamps) && j < len(other.timestamps) {
		a, b := ts.timestamps[i], other.timestamps[j]
		switch {
		case a.Equal(b):
			left = append(left, i)
			right = append(right, j)
			i++
			j++
		case a.Before(b):
			i++
		default:
			j++
		}
	}

	if len(left) == 0 {
		return nil, nil, fmt.Errorf("%w: no common timestamps", utils.ErrMisalignedSeries)
	}
	return ts.pick(left), other.pick(right), nil
}

func (ts *TimeSeries) pick(indices []int) *TimeSeries {
	out := &TimeSeries{
		timestamps: make([]time.Time, len(indices)),
		metrics:    make(map[string][]Value, len(ts.metrics)),
	}
	for k, idx := range indices {
		out.timestamps[k] = ts.timestamps[idx]
	}
	for name, values := range ts.metrics {
		picked := make([]Value, len(indices))
		for k, idx := range indices {
			picked[k] = values[idx]
		}
		out.metrics[name] = picked
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
