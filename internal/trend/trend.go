// Package trend fits a least-squares line to a metric window and reports its direction.
package trend

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/irfndi/nftpulse/internal/series"
	"github.com/irfndi/nftpulse/internal/utils"
)

// Direction of a fitted trend line.
type Direction string

const (
	DirectionUpward   Direction = "upward"
	DirectionDownward Direction = "downward"
	DirectionSideways Direction = "sideways"
)

// DefaultWindow is the number of trailing points analyzed by AnalyzeTail when
// no window is given.
const DefaultWindow = 30

// Options tunes the direction classification.
type Options struct {
	// Epsilon is the near-zero slope band classified as sideways. Zero means
	// only an exactly flat line is sideways.
	Epsilon float64
}

// Result is the outcome of a fit.
type Result struct {
	Direction     Direction `json:"direction"`
	Slope         float64   `json:"slope"`
	Intercept     float64   `json:"intercept"`
	PredictedNext float64   `json:"predicted_next"`
	Points        int       `json:"points"`
}

// Analyze regresses values against their position 0..n-1. Missing values are
// skipped but keep their position, and the prediction is made for position n.
// Fewer than two present values yields ErrInsufficientData, which callers must
// treat as unknown rather than sideways.
func Analyze(values []series.Value, opts Options) (Result, error) {
	var xs, ys []float64
	for i, v := range values {
		if y, ok := v.Get(); ok {
			xs = append(xs, float64(i))
			ys = append(ys, y)
		}
	}
	if len(xs) < 2 {
		return Result{}, fmt.Errorf("%w: trend needs 2 points, got %d", utils.ErrInsufficientData, len(xs))
	}

	// Positions are distinct, so two points always give a defined fit.
	intercept, slope := stat.LinearRegression(xs, ys, nil, false)
	return Result{
		Direction:     classify(slope, opts.Epsilon),
		Slope:         slope,
		Intercept:     intercept,
		PredictedNext: intercept + slope*float64(len(values)),
		Points:        len(xs),
	}, nil
}

// AnalyzeTail analyzes the trailing window points of a metric. A window below
// one falls back to DefaultWindow.
func AnalyzeTail(ts *series.TimeSeries, metric string, window int, opts Options) (Result, error) {
	if window < 1 {
		window = DefaultWindow
	}
	values, err := ts.Tail(window).Get(metric)
	if err != nil {
		return Result{}, err
	}
	return Analyze(values, opts)
}

func classify(slope, epsilon float64) Direction {
	if epsilon < 0 {
		epsilon = -epsilon
	}
	switch {
	case slope > epsilon:
		return DirectionUpward
	case slope < -epsilon:
		return DirectionDownward
	default:
		return DirectionSideways
	}
}
