// Package classify maps numeric inputs onto closed label sets using ordered
// threshold bands. Bands are evaluated top-down and the first match wins.
// Cutoffs are exclusive: a value equal to a cutoff falls to the next band.
package classify

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/irfndi/nftpulse/internal/utils"
)

// Label is a classification outcome.
type Label string

const (
	LabelUnknown Label = "Unknown"

	// Wash-trade severity.
	LabelHigh   Label = "High"
	LabelMedium Label = "Medium"
	LabelLow    Label = "Low"

	// Activity level (High and Low are shared with severity).
	LabelModerate Label = "Moderate"

	// Trader pattern.
	LabelBuyerDominated  Label = "BuyerDominated"
	LabelSellerDominated Label = "SellerDominated"
	LabelBalanced        Label = "Balanced"

	// Market trend.
	LabelIncreasing Label = "Increasing"
	LabelDecreasing Label = "Decreasing"
	LabelStable     Label = "Stable"
)

// Classification is a label with a sortable rank and an optional score.
// Higher ranks are more severe or more active; Unknown ranks 0.
type Classification struct {
	Label        Label               `json:"label"`
	SeverityRank int                 `json:"severity_rank"`
	Score        decimal.NullDecimal `json:"score"`
}

// Unknown is the classification for inputs that could not be evaluated.
func Unknown() Classification {
	return Classification{Label: LabelUnknown}
}

// IsUnknown reports whether the classification carries no information.
func (c Classification) IsUnknown() bool {
	return c.Label == LabelUnknown || c.Label == ""
}

// withScore leaves Score null for NaN and infinities, which decimal cannot hold.
func withScore(label Label, rank int, score float64) Classification {
	c := Classification{Label: label, SeverityRank: rank}
	if !math.IsNaN(score) && !math.IsInf(score, 0) {
		c.Score = decimal.NewNullDecimal(decimal.NewFromFloat(score))
	}
	return c
}

// PairedBand requires both inputs to exceed their cutoffs.
type PairedBand struct {
	Label Label
	Rank  int
	// Primary and Secondary are exclusive lower bounds.
	Primary   float64
	Secondary float64
}

// evaluatePaired walks bands top-down and falls back to the catch-all.
func evaluatePaired(bands []PairedBand, fallback Classification, primary, secondary float64) Classification {
	for _, b := range bands {
		if primary > b.Primary && secondary > b.Secondary {
			return Classification{Label: b.Label, SeverityRank: b.Rank}
		}
	}
	return fallback
}

// validatePaired checks that cutoffs strictly decrease band to band.
func validatePaired(name string, bands []PairedBand) error {
	for i := 1; i < len(bands); i++ {
		if !(bands[i].Primary < bands[i-1].Primary) || !(bands[i].Secondary < bands[i-1].Secondary) {
			return utils.NewValidationErrorf("%s: band %q cutoffs must be below band %q", name, bands[i].Label, bands[i-1].Label)
		}
	}
	return nil
}

// WashTradeThresholds configures WashTradeSeverity.
type WashTradeThresholds struct {
	HighVolume   float64 `json:"high_volume"`
	HighRatio    float64 `json:"high_ratio"`
	MediumVolume float64 `json:"medium_volume"`
	MediumRatio  float64 `json:"medium_ratio"`
}

// DefaultWashTradeThresholds returns the standard wash-trade cutoffs.
func DefaultWashTradeThresholds() WashTradeThresholds {
	return WashTradeThresholds{
		HighVolume:   100000,
		HighRatio:    0.5,
		MediumVolume: 10000,
		MediumRatio:  0.2,
	}
}

// Validate checks band ordering.
func (t WashTradeThresholds) Validate() error {
	return validatePaired("wash trade", t.bands())
}

func (t WashTradeThresholds) bands() []PairedBand {
	return []PairedBand{
		{Label: LabelHigh, Rank: 3, Primary: t.HighVolume, Secondary: t.HighRatio},
		{Label: LabelMedium, Rank: 2, Primary: t.MediumVolume, Secondary: t.MediumRatio},
	}
}

// WashTradeSeverity classifies wash-trade volume and suspect-sales ratio into
// High, Medium or Low.
func WashTradeSeverity(volume, suspectRatio float64, t WashTradeThresholds) Classification {
	return evaluatePaired(t.bands(), Classification{Label: LabelLow, SeverityRank: 1}, volume, suspectRatio)
}

// ActivityThresholds configures ActivityLevel. Change cutoffs share the unit of
// the change rate passed in (percent in the payloads).
type ActivityThresholds struct {
	HighCount      float64 `json:"high_count"`
	HighChange     float64 `json:"high_change"`
	ModerateCount  float64 `json:"moderate_count"`
	ModerateChange float64 `json:"moderate_change"`
}

// DefaultActivityThresholds returns the standard activity cutoffs.
func DefaultActivityThresholds() ActivityThresholds {
	return ActivityThresholds{
		HighCount:      1000,
		HighChange:     10,
		ModerateCount:  100,
		ModerateChange: 0,
	}
}

// Validate checks band ordering.
func (t ActivityThresholds) Validate() error {
	return validatePaired("activity", t.bands())
}

func (t ActivityThresholds) bands() []PairedBand {
	return []PairedBand{
		{Label: LabelHigh, Rank: 3, Primary: t.HighCount, Secondary: t.HighChange},
		{Label: LabelModerate, Rank: 2, Primary: t.ModerateCount, Secondary: t.ModerateChange},
	}
}

// ActivityLevel classifies a participant count and its change rate into High,
// Moderate or Low.
func ActivityLevel(totalCount, changeRate float64, t ActivityThresholds) Classification {
	return evaluatePaired(t.bands(), Classification{Label: LabelLow, SeverityRank: 1}, totalCount, changeRate)
}

// TraderPatternThresholds configures TraderPattern.
type TraderPatternThresholds struct {
	BuyerDominated  float64 `json:"buyer_dominated"`
	SellerDominated float64 `json:"seller_dominated"`
}

// DefaultTraderPatternThresholds returns 1.5 and 0.67.
func DefaultTraderPatternThresholds() TraderPatternThresholds {
	return TraderPatternThresholds{BuyerDominated: 1.5, SellerDominated: 0.67}
}

// Validate checks that the seller cutoff is below the buyer cutoff.
func (t TraderPatternThresholds) Validate() error {
	if !(t.SellerDominated < t.BuyerDominated) {
		return utils.NewValidationErrorf("trader pattern: seller cutoff %v must be below buyer cutoff %v",
			t.SellerDominated, t.BuyerDominated)
	}
	return nil
}

// TraderPattern classifies a buyer-to-seller ratio. The ratio is kept as the score.
func TraderPattern(buyerToSellerRatio float64, t TraderPatternThresholds) Classification {
	switch {
	case buyerToSellerRatio > t.BuyerDominated:
		return withScore(LabelBuyerDominated, 3, buyerToSellerRatio)
	case buyerToSellerRatio < t.SellerDominated:
		return withScore(LabelSellerDominated, 1, buyerToSellerRatio)
	default:
		return withScore(LabelBalanced, 2, buyerToSellerRatio)
	}
}

// TraderPatternFromCounts divides buyers by sellers first. Zero sellers, or a
// quotient that overflows, is ErrUndefinedRatio, never an implicit BuyerDominated.
func TraderPatternFromCounts(buyers, sellers float64, t TraderPatternThresholds) (Classification, error) {
	if sellers == 0 {
		return Unknown(), fmt.Errorf("%w: %v buyers over zero sellers", utils.ErrUndefinedRatio, buyers)
	}
	ratio := buyers / sellers
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return Unknown(), fmt.Errorf("%w: %v buyers over %v sellers", utils.ErrUndefinedRatio, buyers, sellers)
	}
	return TraderPattern(ratio, t), nil
}
