// Package indicators computes smoothing and momentum series over metric values.
// Every function returns a new slice aligned index-for-index with its input;
// positions that cannot be computed are absent rather than zero.
package indicators

import (
	"fmt"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"

	"github.com/irfndi/nftpulse/internal/series"
	"github.com/irfndi/nftpulse/internal/utils"
)

// MovingAverage returns the trailing simple moving average. Index i holds the
// mean of values[i-window+1 : i+1]; indices without a full window of present
// values are absent, never averaged over a partial window. A window longer
// than the series returns ErrInsufficientData instead of an all-absent slice.
func MovingAverage(values []series.Value, window int) ([]series.Value, error) {
	if window < 1 {
		return nil, fmt.Errorf("%w: moving average window %d", utils.ErrInvalidParameter, window)
	}
	if window > len(values) {
		return nil, fmt.Errorf("%w: moving average window %d over %d points", utils.ErrInsufficientData, window, len(values))
	}

	out := make([]series.Value, len(values))
	if window == 1 {
		copy(out, values)
		return out, nil
	}

	// Average each gap-free run separately so a window never spans a missing point.
	start := 0
	for start < len(values) {
		if !values[start].Valid() {
			start++
			continue
		}
		end := start
		for end < len(values) && values[end].Valid() {
			end++
		}

		if end-start >= window {
			run := series.Present(values[start:end])
			sma := trend.NewSmaWithPeriod[float64](window)
			averaged := helper.ChanToSlice(sma.Compute(helper.SliceToChan(run)))
			for k, avg := range averaged {
				idx := start + window - 1 + k
				if idx >= end {
					break
				}
				out[idx] = series.Some(avg)
			}
		}
		start = end
	}

	return out, nil
}

// ExponentialSmoothing applies s[0]=x[0], s[i]=alpha*x[i]+(1-alpha)*s[i-1].
// Missing inputs yield missing outputs and leave the running state untouched;
// the recursion is seeded at the first present value.
func ExponentialSmoothing(values []series.Value, alpha float64) ([]series.Value, error) {
	if !(alpha > 0 && alpha <= 1) {
		return nil, fmt.Errorf("%w: smoothing factor %v outside (0,1]", utils.ErrInvalidParameter, alpha)
	}

	out := make([]series.Value, len(values))
	present := series.Present(values)
	if len(present) == 0 {
		return out, nil
	}

	// A one-period EMA seeds with the first value; its multiplier
	// Smoothing/(Period+1) is alpha.
	ema := &trend.Ema[float64]{Period: 1, Smoothing: 2 * alpha}
	smoothed := helper.ChanToSlice(ema.Compute(helper.SliceToChan(present)))

	k := 0
	for i, v := range values {
		if !v.Valid() || k >= len(smoothed) {
			continue
		}
		out[i] = series.Some(smoothed[k])
		k++
	}
	return out, nil
}

// RSI returns a relative strength index over the trailing period deltas,
// using plain averages of gains and losses rather than Wilder smoothing.
// Index i is defined once i >= period and every delta in its window is
// computable. A window with no losses scores 100. A series shorter than
// period+1 returns ErrInsufficientData instead of an all-absent slice.
func RSI(values []series.Value, period int) ([]series.Value, error) {
	if period < 2 {
		return nil, fmt.Errorf("%w: rsi period %d", utils.ErrInvalidParameter, period)
	}
	if len(values) < period+1 {
		return nil, fmt.Errorf("%w: rsi period %d needs %d points, got %d",
			utils.ErrInsufficientData, period, period+1, len(values))
	}

	out := make([]series.Value, len(values))
	for i := period; i < len(values); i++ {
		var gains, losses float64
		complete := true
		for j := i - period + 1; j <= i; j++ {
			cur, okCur := values[j].Get()
			prev, okPrev := values[j-1].Get()
			if !okCur || !okPrev {
				complete = false
				break
			}
			delta := cur - prev
			if delta > 0 {
				gains += delta
			} else {
				losses -= delta
			}
		}
		if !complete {
			continue
		}

		avgGain := gains / float64(period)
		avgLoss := losses / float64(period)
		if avgLoss == 0 {
			out[i] = series.Some(100)
			continue
		}
		rs := avgGain / avgLoss
		out[i] = series.Some(100 - 100/(1+rs))
	}
	return out, nil
}

// Volatility returns the percent change between consecutive points. Index 0,
// points after a missing value and points after an exact zero are absent.
func Volatility(values []series.Value) []series.Value {
	out := make([]series.Value, len(values))
	for i := 1; i < len(values); i++ {
		cur, okCur := values[i].Get()
		prev, okPrev := values[i-1].Get()
		if !okCur || !okPrev || prev == 0 {
			continue
		}
		out[i] = series.Some((cur - prev) / prev * 100)
	}
	return out
}

// Latest returns the last present value.
func Latest(values []series.Value) series.Value {
	for i := len(values) - 1; i >= 0; i-- {
		if values[i].Valid() {
			return values[i]
		}
	}
	return series.None()
}
