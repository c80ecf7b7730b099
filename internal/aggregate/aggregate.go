// Package aggregate reduces entity records and their classifications into
// portfolio-level totals, ratios, votes and distributions.
package aggregate

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/irfndi/nftpulse/internal/classify"
	"github.com/irfndi/nftpulse/internal/models"
	"github.com/irfndi/nftpulse/internal/utils"
)

var hundred = decimal.NewFromInt(100)

// Sum adds a field across records. A record without the field adds zero.
func Sum(records []models.EntityRecord, field string) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		if v, ok := r.Field(field); ok {
			total = total.Add(decimal.NewFromFloat(v))
		}
	}
	return total
}

// Average is the mean over records that report the field. Records without
// it are left out of the denominator; no reporting records means no average.
func Average(records []models.EntityRecord, field string) decimal.NullDecimal {
	total := decimal.Zero
	n := int64(0)
	for _, r := range records {
		if v, ok := r.Field(field); ok {
			total = total.Add(decimal.NewFromFloat(v))
			n++
		}
	}
	if n == 0 {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(total.Div(decimal.NewFromInt(n)))
}

// WeightedAverage is sum(field*weight)/sum(weight) over records reporting
// both. A zero total weight has no average.
func WeightedAverage(records []models.EntityRecord, field, weightField string) decimal.NullDecimal {
	weighted := decimal.Zero
	weights := decimal.Zero
	for _, r := range records {
		v, okV := r.Field(field)
		w, okW := r.Field(weightField)
		if !okV || !okW {
			continue
		}
		dw := decimal.NewFromFloat(w)
		weighted = weighted.Add(decimal.NewFromFloat(v).Mul(dw))
		weights = weights.Add(dw)
	}
	if weights.IsZero() {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(weighted.Div(weights))
}

// RatioOfSums returns sum(numerator)/max(1, sum(denominator)), which stays
// finite when the denominator sums to zero.
func RatioOfSums(records []models.EntityRecord, numerator, denominator string) decimal.Decimal {
	den := decimal.Max(decimal.NewFromInt(1), Sum(records, denominator))
	return Sum(records, numerator).Div(den)
}

// DominantLabel returns the most frequent label. Ties go to the label listed
// first in priority; labels missing from priority rank after listed ones in
// alphabetical order, so a nil priority is a plain alphabetical tie-break.
// An empty input has no dominant label.
func DominantLabel(labels []classify.Label, priority []classify.Label) (classify.Label, bool) {
	if len(labels) == 0 {
		return classify.LabelUnknown, false
	}

	counts := make(map[classify.Label]int)
	for _, l := range labels {
		counts[l]++
	}

	rank := make(map[classify.Label]int, len(priority))
	for i, l := range priority {
		if _, seen := rank[l]; !seen {
			rank[l] = i
		}
	}

	candidates := make([]classify.Label, 0, len(counts))
	for l := range counts {
		candidates = append(candidates, l)
	}
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if counts[a] != counts[b] {
			return counts[a] > counts[b]
		}
		ra, okA := rank[a]
		rb, okB := rank[b]
		switch {
		case okA && okB:
			return ra < rb
		case okA != okB:
			return okA
		default:
			return a < b
		}
	})
	return candidates[0], true
}

// Share is one label's slice of a distribution.
type Share struct {
	Count      int             `json:"count"`
	Percentage decimal.Decimal `json:"percentage"`
}

// Distribution maps labels to their share of a list.
type Distribution map[classify.Label]Share

// NewDistribution counts labels over the whole list. Every label in universe
// is present even with a zero count, and every percentage uses the list
// length as denominator, rounded to two places. An empty list maps each
// universe label to 0 / 0%.
func NewDistribution(labels []classify.Label, universe []classify.Label) Distribution {
	d := make(Distribution, len(universe))
	for _, l := range universe {
		d[l] = Share{Percentage: decimal.Zero}
	}

	counts := make(map[classify.Label]int)
	for _, l := range labels {
		counts[l]++
	}

	n := decimal.NewFromInt(int64(len(labels)))
	for l, c := range counts {
		d[l] = Share{
			Count:      c,
			Percentage: decimal.NewFromInt(int64(c)).Mul(hundred).Div(n).Round(2),
		}
	}
	return d
}

// Total returns the summed count and percentage.
func (d Distribution) Total() (int, decimal.Decimal) {
	count := 0
	pct := decimal.Zero
	for _, s := range d {
		count += s.Count
		pct = pct.Add(s.Percentage)
	}
	return count, pct
}

// Ratio names a RatioOfSums in a summary.
type Ratio struct {
	Name        string
	Numerator   string
	Denominator string
}

// SummaryOptions selects what Summarize computes.
type SummaryOptions struct {
	Totals   []string
	Averages []string
	Ratios   []Ratio
	// Labels is the closed label set reported in the distribution.
	Labels []classify.Label
	// Priority breaks ties in the dominant-label vote.
	Priority []classify.Label
}

// Summary is the cross-entity view of a record list.
type Summary struct {
	Count         int                            `json:"count"`
	Totals        map[string]decimal.Decimal     `json:"totals"`
	Averages      map[string]decimal.NullDecimal `json:"averages"`
	Ratios        map[string]decimal.Decimal     `json:"ratios"`
	DominantLabel classify.Label                 `json:"dominant_label"`
	Distribution  Distribution                   `json:"distribution"`
}

// Summarize aggregates records with one precomputed classification each.
// Unknown classifications count toward the distribution but never win the
// dominant-label vote; with nothing else to vote on the result is Unknown.
func Summarize(records []models.EntityRecord, classifications []classify.Classification, opts SummaryOptions) (Summary, error) {
	if len(records) != len(classifications) {
		return Summary{}, fmt.Errorf("%w: %d records with %d classifications",
			utils.ErrInvalidParameter, len(records), len(classifications))
	}

	s := Summary{
		Count:    len(records),
		Totals:   make(map[string]decimal.Decimal, len(opts.Totals)),
		Averages: make(map[string]decimal.NullDecimal, len(opts.Averages)),
		Ratios:   make(map[string]decimal.Decimal, len(opts.Ratios)),
	}
	for _, f := range opts.Totals {
		s.Totals[f] = Sum(records, f)
	}
	for _, f := range opts.Averages {
		s.Averages[f] = Average(records, f)
	}
	for _, r := range opts.Ratios {
		s.Ratios[r.Name] = RatioOfSums(records, r.Numerator, r.Denominator)
	}

	labels := make([]classify.Label, len(classifications))
	known := make([]classify.Label, 0, len(classifications))
	for i, c := range classifications {
		label := c.Label
		if c.IsUnknown() {
			label = classify.LabelUnknown
		} else {
			known = append(known, label)
		}
		labels[i] = label
	}

	s.Distribution = NewDistribution(labels, opts.Labels)
	s.DominantLabel, _ = DominantLabel(known, opts.Priority)
	return s, nil
}
