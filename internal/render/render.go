// Package render turns reports into terminal tables or JSON.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/irfndi/nftpulse/internal/aggregate"
	"github.com/irfndi/nftpulse/internal/classify"
	"github.com/irfndi/nftpulse/internal/models"
	"github.com/irfndi/nftpulse/internal/series"
	"github.com/irfndi/nftpulse/internal/services"
)

// Undefined is printed wherever a value could not be computed.
const Undefined = "—"

// Options controls table output.
type Options struct {
	// Language selects number formatting, e.g. grouping separators.
	Language language.Tag
	// Color highlights severity labels with ANSI colors.
	Color bool
}

// DefaultOptions formats for English without colors.
func DefaultOptions() Options {
	return Options{Language: language.English}
}

// JSON writes the report as indented JSON. Undefined values are null.
func JSON(w io.Writer, report *services.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

type tableWriter struct {
	p       *message.Printer
	title   cases.Caser
	palette map[classify.Label]*color.Color
}

func newTableWriter(opts Options) *tableWriter {
	tw := &tableWriter{
		p:     message.NewPrinter(opts.Language),
		title: cases.Title(opts.Language),
	}
	if opts.Color {
		tw.palette = palette()
	}
	return tw
}

func palette() map[classify.Label]*color.Color {
	red := color.New(color.FgRed, color.Bold)
	yellow := color.New(color.FgYellow)
	green := color.New(color.FgGreen)
	for _, c := range []*color.Color{red, yellow, green} {
		c.EnableColor()
	}
	return map[classify.Label]*color.Color{
		classify.LabelHigh:            red,
		classify.LabelMedium:          yellow,
		classify.LabelLow:             green,
		classify.LabelSellerDominated: red,
		classify.LabelDecreasing:      red,
		classify.LabelIncreasing:      green,
		classify.LabelBuyerDominated:  green,
		classify.LabelExtremeFear:     red,
		classify.LabelExtremeGreed:    green,
	}
}

// Table writes a human readable report.
func Table(w io.Writer, report *services.Report, opts Options) error {
	tw := newTableWriter(opts)
	out := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	tw.p.Fprintf(out, "Report %s\tgenerated %s\n", report.ID, report.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	tw.p.Fprintf(out, "Entities: %d\n\n", len(report.Entities))

	fmt.Fprintln(out, "ENTITY\tKIND\tWASH TRADE\tACTIVITY\tTRADERS\tMARKET TREND\tSENTIMENT\tVOLUME TREND\tLATEST VOLUME\tMA\tRSI\tOUTLIERS")
	for _, e := range report.Entities {
		snap, hasSnap := e.Indicators[models.MetricVolume]
		latest, ma, rsi := Undefined, Undefined, Undefined
		if hasSnap {
			latest = tw.value(snap.Latest, 2)
			ma = tw.value(snap.MovingAverage, 2)
			rsi = tw.value(snap.RSI, 1)
		}
		direction := Undefined
		if t, ok := e.Trends[models.MetricVolume]; ok {
			direction = tw.title.String(string(t.Direction))
		}
		outliers := 0
		for _, o := range e.Outliers {
			outliers += len(o)
		}

		fmt.Fprintf(out, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			entityName(e),
			tw.kind(e.Kind),
			tw.label(e.WashTrade),
			tw.label(e.Activity),
			tw.label(e.TraderPattern),
			tw.label(e.MarketTrend),
			tw.label(e.Sentiment),
			direction,
			latest, ma, rsi,
			tw.p.Sprintf("%d", outliers),
		)
	}
	fmt.Fprintln(out)

	s := report.Summary
	fmt.Fprintln(out, "SUMMARY")
	for _, field := range sortedKeys(s.Totals) {
		fmt.Fprintf(out, "  Total %s\t%s\n", humanize(field), tw.decimal(s.Totals[field], 2))
	}
	fmt.Fprintf(out, "  Buyer/seller ratio\t%s\n", tw.decimal(s.Ratios[services.RatioBuyerSeller], 2))
	fmt.Fprintf(out, "  Wash-trade share of volume\t%s%%\n", tw.decimal(report.WashTradeShare(), 2))
	for _, field := range sortedKeys(s.Averages) {
		fmt.Fprintf(out, "  Average %s\t%s\n", humanize(field), tw.nullDecimal(s.Averages[field], 2))
	}
	fmt.Fprintf(out, "  Dominant wash-trade severity\t%s\n", tw.label(classify.Classification{Label: s.DominantLabel}))
	fmt.Fprintln(out)

	tw.distribution(out, "WASH-TRADE SEVERITY", s.Distribution, services.WashTradeLabels)
	tw.distribution(out, "ACTIVITY", report.ActivityDistribution, services.ActivityLabels)
	tw.distribution(out, "TRADER PATTERN", report.TraderDistribution, services.TraderPatternLabels)

	if report.Correlation != nil {
		tw.p.Fprintf(out, "CORRELATION (%s)\n", report.CorrelationMetric)
		fmt.Fprintf(out, "\t%s\n", strings.Join(report.Correlation.Names, "\t"))
		for i, name := range report.Correlation.Names {
			cells := make([]string, len(report.Correlation.Names))
			for j := range cells {
				cells[j] = tw.value(report.Correlation.Coefficients[i][j], 2)
			}
			fmt.Fprintf(out, "%s\t%s\n", name, strings.Join(cells, "\t"))
		}
	}

	return out.Flush()
}

func (tw *tableWriter) distribution(out io.Writer, title string, d aggregate.Distribution, order []classify.Label) {
	fmt.Fprintln(out, title)
	for _, l := range labelOrder(d, order) {
		share := d[l]
		fmt.Fprintf(out, "  %s\t%s\t%s%%\n",
			tw.label(classify.Classification{Label: l}),
			tw.p.Sprintf("%d", share.Count),
			tw.decimal(share.Percentage, 2))
	}
	fmt.Fprintln(out)
}

// labelOrder lists the known labels first, then any others alphabetically.
func labelOrder(d aggregate.Distribution, order []classify.Label) []classify.Label {
	seen := make(map[classify.Label]bool, len(order))
	out := make([]classify.Label, 0, len(d))
	for _, l := range order {
		seen[l] = true
		if _, ok := d[l]; ok {
			out = append(out, l)
		}
	}
	var rest []classify.Label
	for l := range d {
		if !seen[l] {
			rest = append(rest, l)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i] < rest[j] })
	return append(out, rest...)
}

func (tw *tableWriter) label(c classify.Classification) string {
	if c.IsUnknown() {
		return Undefined
	}
	text := string(c.Label)
	if col, ok := tw.palette[c.Label]; ok {
		return col.Sprint(text)
	}
	return text
}

func (tw *tableWriter) kind(k models.EntityKind) string {
	if k == "" {
		return Undefined
	}
	return tw.title.String(string(k))
}

func (tw *tableWriter) value(v series.Value, digits int) string {
	f, ok := v.Get()
	if !ok {
		return Undefined
	}
	return tw.p.Sprintf(floatFormat(digits), f)
}

func (tw *tableWriter) decimal(d decimal.Decimal, digits int) string {
	return tw.p.Sprintf(floatFormat(digits), d.InexactFloat64())
}

func (tw *tableWriter) nullDecimal(d decimal.NullDecimal, digits int) string {
	if !d.Valid {
		return Undefined
	}
	return tw.decimal(d.Decimal, digits)
}

func floatFormat(digits int) string {
	return fmt.Sprintf("%%.%df", digits)
}

func entityName(e services.EntityReport) string {
	switch {
	case e.Name != "":
		return e.Name
	case e.ID != "":
		return e.ID
	default:
		return Undefined
	}
}

func humanize(field string) string {
	return strings.ReplaceAll(field, "_", " ")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
