package classify

import "math"

// Sentiment labels. Fear-greed and market-state readings share one band
// structure and differ only in their label set.
const (
	LabelExtremeFear  Label = "ExtremeFear"
	LabelFear         Label = "Fear"
	LabelNeutral      Label = "Neutral"
	LabelGreed        Label = "Greed"
	LabelExtremeGreed Label = "ExtremeGreed"

	LabelVeryBearish Label = "VeryBearish"
	LabelBearish     Label = "Bearish"
	LabelBullish     Label = "Bullish"
	LabelVeryBullish Label = "VeryBullish"
)

// SentimentBands lists five labels from the lowest band to the highest.
type SentimentBands [5]Label

// FearGreedBands is the fear-greed index label set.
var FearGreedBands = SentimentBands{LabelExtremeFear, LabelFear, LabelNeutral, LabelGreed, LabelExtremeGreed}

// MarketStateBands is the market-state label set.
var MarketStateBands = SentimentBands{LabelVeryBearish, LabelBearish, LabelNeutral, LabelBullish, LabelVeryBullish}

// sentimentCutoffs are exclusive lower bounds of bands 1..4.
var sentimentCutoffs = [4]float64{20, 40, 60, 80}

// Sentiment buckets a 0-100 score. Scores outside the range are clamped;
// a NaN score is Unknown. The score is kept on the classification.
func Sentiment(score float64, bands SentimentBands) Classification {
	if math.IsNaN(score) {
		return Unknown()
	}
	score = math.Max(0, math.Min(100, score))

	band := 0
	for i := len(sentimentCutoffs) - 1; i >= 0; i-- {
		if score > sentimentCutoffs[i] {
			band = i + 1
			break
		}
	}
	return withScore(bands[band], band+1, score)
}
