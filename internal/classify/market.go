package classify

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/irfndi/nftpulse/internal/series"
)

// MarketTrendOptions configures MarketTrend.
type MarketTrendOptions struct {
	// Window is k, the size of the recent and preceding windows.
	Window int `json:"window"`
	// Increase and Decrease are exclusive ratio cutoffs.
	Increase float64 `json:"increase"`
	Decrease float64 `json:"decrease"`
}

// DefaultMarketTrendOptions returns k=6 with 1.2 / 0.8 ratio cutoffs.
func DefaultMarketTrendOptions() MarketTrendOptions {
	return MarketTrendOptions{Window: 6, Increase: 1.2, Decrease: 0.8}
}

// MarketTrend compares the mean of the most recent k present points against
// the mean of up to k points before them. Without a preceding window it
// compares the first and last of the recent window. No data is Unknown.
// The ratio is kept as the score when it is defined.
func MarketTrend(values []series.Value, opts MarketTrendOptions) Classification {
	if opts.Window < 1 {
		opts.Window = DefaultMarketTrendOptions().Window
	}

	points := series.Present(values)
	if len(points) == 0 {
		return Unknown()
	}

	recentStart := len(points) - opts.Window
	if recentStart < 0 {
		recentStart = 0
	}
	recent := points[recentStart:]

	var current, baseline float64
	if recentStart == 0 {
		baseline, current = recent[0], recent[len(recent)-1]
	} else {
		prevStart := recentStart - opts.Window
		if prevStart < 0 {
			prevStart = 0
		}
		baseline, current = stat.Mean(points[prevStart:recentStart], nil), stat.Mean(recent, nil)
	}

	return trendFromRatio(current, baseline, opts)
}

func trendFromRatio(current, baseline float64, opts MarketTrendOptions) Classification {
	if baseline == 0 {
		// No ratio exists; the sign of the change still orders the label.
		switch {
		case current > 0:
			return Classification{Label: LabelIncreasing, SeverityRank: 3}
		case current < 0:
			return Classification{Label: LabelDecreasing, SeverityRank: 1}
		default:
			return Classification{Label: LabelStable, SeverityRank: 2}
		}
	}

	ratio := current / baseline
	if baseline < 0 {
		// Keep "larger than before" meaning Increasing for negative baselines.
		ratio = 2 - ratio
	}
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return Unknown()
	}

	switch {
	case ratio > opts.Increase:
		return withScore(LabelIncreasing, 3, ratio)
	case ratio < opts.Decrease:
		return withScore(LabelDecreasing, 1, ratio)
	default:
		return withScore(LabelStable, 2, ratio)
	}
}
