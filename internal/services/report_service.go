package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/nftpulse/internal/aggregate"
	"github.com/irfndi/nftpulse/internal/classify"
	"github.com/irfndi/nftpulse/internal/config"
	"github.com/irfndi/nftpulse/internal/correlation"
	"github.com/irfndi/nftpulse/internal/indicators"
	"github.com/irfndi/nftpulse/internal/models"
	"github.com/irfndi/nftpulse/internal/outliers"
	"github.com/irfndi/nftpulse/internal/series"
	"github.com/irfndi/nftpulse/internal/telemetry"
	"github.com/irfndi/nftpulse/internal/trend"
	"github.com/irfndi/nftpulse/internal/utils"
)

// Ratio names used in the portfolio summary.
const (
	RatioBuyerSeller     = "buyer_seller"
	RatioWashTradeShare  = "washtrade_share"
	AverageHoldersChange = models.FieldHoldersChange
)

// Label universes reported in distributions, most severe first.
var (
	WashTradeLabels     = []classify.Label{classify.LabelHigh, classify.LabelMedium, classify.LabelLow}
	ActivityLabels      = []classify.Label{classify.LabelHigh, classify.LabelModerate, classify.LabelLow}
	TraderPatternLabels = []classify.Label{classify.LabelBuyerDominated, classify.LabelBalanced, classify.LabelSellerDominated}
)

// MetricTrend is the trailing-window trend of one metric.
type MetricTrend struct {
	Direction     trend.Direction `json:"direction"`
	Slope         float64         `json:"slope"`
	PredictedNext float64         `json:"predicted_next"`
	Points        int             `json:"points"`
}

// IndicatorSnapshot holds the latest defined indicator values of one metric.
type IndicatorSnapshot struct {
	Latest        series.Value `json:"latest"`
	MovingAverage series.Value `json:"moving_average"`
	Smoothed      series.Value `json:"smoothed"`
	RSI           series.Value `json:"rsi"`
	Volatility    series.Value `json:"volatility"`
}

// EntityReport is everything derived for one record. Classifications that
// could not be evaluated are Unknown and the reason is listed in Gaps.
type EntityReport struct {
	ID            string                        `json:"id"`
	Name          string                        `json:"name"`
	Kind          models.EntityKind             `json:"kind"`
	WashTrade     classify.Classification       `json:"wash_trade"`
	Activity      classify.Classification       `json:"activity"`
	TraderPattern classify.Classification       `json:"trader_pattern"`
	MarketTrend   classify.Classification       `json:"market_trend"`
	Sentiment     classify.Classification       `json:"sentiment"`
	MarketState   classify.Classification       `json:"market_state"`
	Trends        map[string]MetricTrend        `json:"trends"`
	Indicators    map[string]IndicatorSnapshot  `json:"indicators"`
	Outliers      map[string][]outliers.Outlier `json:"outliers"`
	Gaps          []string                      `json:"gaps,omitempty"`
}

// Report is the portfolio view over a record list.
type Report struct {
	ID                   string                 `json:"id"`
	GeneratedAt          time.Time              `json:"generated_at"`
	Entities             []EntityReport         `json:"entities"`
	Summary              aggregate.Summary      `json:"summary"`
	ActivityDistribution aggregate.Distribution `json:"activity_distribution"`
	TraderDistribution   aggregate.Distribution `json:"trader_distribution"`
	CorrelationMetric    string                 `json:"correlation_metric"`
	Correlation          *correlation.Matrix    `json:"correlation,omitempty"`
}

// ReportService composes the analyzers, classifiers and aggregators over a
// batch of records. It holds no per-call state and is safe for concurrent use.
type ReportService struct {
	engine   config.EngineConfig
	logger   *logrus.Logger
	tracer   *telemetry.BusinessTracer
	detector outliers.Detector
	now      func() time.Time
}

// NewReportService creates a new report service
func NewReportService(engine config.EngineConfig, logger *logrus.Logger, tracer *telemetry.BusinessTracer) *ReportService {
	if logger == nil {
		logger = logrus.New()
	}
	if tracer == nil {
		tracer = telemetry.NewBusinessTracer(nil)
	}
	return &ReportService{
		engine:   engine,
		logger:   logger,
		tracer:   tracer,
		detector: outliers.IQR{Multiplier: engine.IQRMultiplier},
		now:      time.Now,
	}
}

// SetDetector replaces the outlier method, IQR by default.
func (rs *ReportService) SetDetector(d outliers.Detector) {
	if d != nil {
		rs.detector = d
	}
}

// BuildReport analyzes every record and aggregates the results. Only
// cancellation fails the build; data problems in a record degrade that
// record's entries to Unknown.
func (rs *ReportService) BuildReport(ctx context.Context, records []models.EntityRecord) (*Report, error) {
	start := rs.now()
	reportID := uuid.NewString()

	ctx, span := rs.tracer.TraceReportBuild(ctx, reportID, len(records))
	defer span.End()

	log := rs.logger.WithFields(logrus.Fields{
		"report_id": reportID,
		"records":   len(records),
	})
	log.Debug("Starting report build")

	report := &Report{
		ID:                reportID,
		GeneratedAt:       start.UTC(),
		Entities:          make([]EntityReport, 0, len(records)),
		CorrelationMetric: rs.engine.CorrelationMetric,
	}

	washTrade := make([]classify.Classification, 0, len(records))
	activity := make([]classify.Label, 0, len(records))
	traders := make([]classify.Label, 0, len(records))
	unknown := 0

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			rs.tracer.RecordError(span, err, "report build cancelled")
			return nil, fmt.Errorf("report %s cancelled: %w", reportID, err)
		}

		entity := rs.analyzeEntity(ctx, rec)
		report.Entities = append(report.Entities, entity)

		washTrade = append(washTrade, entity.WashTrade)
		activity = append(activity, entity.Activity.Label)
		traders = append(traders, entity.TraderPattern.Label)
		if entity.WashTrade.IsUnknown() {
			unknown++
		}
	}

	summary, err := aggregate.Summarize(records, washTrade, aggregate.SummaryOptions{
		Totals: []string{
			models.FieldVolume,
			models.FieldSales,
			models.FieldTraders,
			models.FieldWashTradeVolume,
		},
		Averages: []string{AverageHoldersChange},
		Ratios: []aggregate.Ratio{
			{Name: RatioBuyerSeller, Numerator: models.FieldTradersBuyers, Denominator: models.FieldTradersSellers},
			{Name: RatioWashTradeShare, Numerator: models.FieldWashTradeVolume, Denominator: models.FieldVolume},
		},
		Labels:   WashTradeLabels,
		Priority: rs.engine.Priority(),
	})
	if err != nil {
		rs.tracer.RecordError(span, err, "aggregation failed")
		return nil, fmt.Errorf("failed to aggregate report %s: %w", reportID, err)
	}
	report.Summary = summary
	report.ActivityDistribution = aggregate.NewDistribution(activity, ActivityLabels)
	report.TraderDistribution = aggregate.NewDistribution(traders, TraderPatternLabels)
	report.Correlation = rs.correlate(ctx, records)

	elapsed := rs.now().Sub(start)
	rs.tracer.RecordReportMetrics(span, telemetry.ReportMetrics{
		Entities:               len(records),
		UnknownClassifications: unknown,
		DominantSeverity:       string(summary.DominantLabel),
		BuildTime:              elapsed,
	})
	log.WithFields(logrus.Fields{
		"dominant_severity": summary.DominantLabel,
		"unknown":           unknown,
		"duration_ms":       elapsed.Milliseconds(),
	}).Info("Report built")

	return report, nil
}

func (rs *ReportService) analyzeEntity(ctx context.Context, rec models.EntityRecord) EntityReport {
	_, span := rs.tracer.TraceEntityAnalysis(ctx, rec.Label(), string(rec.Kind))
	defer span.End()

	log := rs.logger.WithField("entity", rec.Label())
	entity := EntityReport{
		ID:         rec.ID,
		Name:       rec.Name,
		Kind:       rec.Kind,
		Trends:     make(map[string]MetricTrend),
		Indicators: make(map[string]IndicatorSnapshot),
		Outliers:   make(map[string][]outliers.Outlier),
	}
	gap := func(what string, err error) {
		entity.Gaps = append(entity.Gaps, fmt.Sprintf("%s: %v", what, err))
		rs.tracer.RecordDataGap(span, what, err)
		// unreported fields are routine; anything else means the data was unusable
		if errors.Is(err, utils.ErrMissingMetric) {
			log.WithError(err).Debugf("Skipping %s", what)
		} else {
			log.WithError(err).Warnf("Could not compute %s", what)
		}
	}

	entity.WashTrade = classified(gap, "wash_trade", func() (classify.Classification, error) {
		volume, ratio, err := fieldPair(rec, models.FieldWashTradeVolume, models.FieldWashTradeSuspect)
		if err != nil {
			return classify.Unknown(), err
		}
		return classify.WashTradeSeverity(volume, ratio, rs.engine.WashTradeThresholds()), nil
	})
	entity.Activity = classified(gap, "activity", func() (classify.Classification, error) {
		count, change, err := fieldPair(rec, models.FieldTraders, models.FieldTradersChange)
		if err != nil {
			return classify.Unknown(), err
		}
		return classify.ActivityLevel(count, change, rs.engine.ActivityThresholds()), nil
	})
	entity.TraderPattern = classified(gap, "trader_pattern", func() (classify.Classification, error) {
		buyers, sellers, err := fieldPair(rec, models.FieldTradersBuyers, models.FieldTradersSellers)
		if err != nil {
			return classify.Unknown(), err
		}
		return classify.TraderPatternFromCounts(buyers, sellers, rs.engine.TraderPatternThresholds())
	})
	entity.Sentiment, entity.MarketState = classify.Unknown(), classify.Unknown()
	if score, ok := rec.Field(models.FieldMarketScore); ok {
		entity.Sentiment = classify.Sentiment(score, classify.FearGreedBands)
		entity.MarketState = classify.Sentiment(score, classify.MarketStateBands)
	}

	entity.MarketTrend = classify.Unknown()
	if volume, err := rec.Metric(models.MetricVolume); err == nil {
		entity.MarketTrend = classify.MarketTrend(volume, rs.engine.MarketTrendOptions())
	} else {
		gap("market_trend", err)
	}

	if rec.Series != nil {
		for _, metric := range rec.Series.Metrics() {
			rs.analyzeMetric(rec.Series, metric, &entity, gap)
		}
	}

	rs.tracer.RecordEntityResult(span, telemetry.EntityResult{
		WashTrade:     string(entity.WashTrade.Label),
		Activity:      string(entity.Activity.Label),
		TraderPattern: string(entity.TraderPattern.Label),
		MarketTrend:   string(entity.MarketTrend.Label),
		Outliers:      countOutliers(entity.Outliers),
	})
	return entity
}

func (rs *ReportService) analyzeMetric(ts *series.TimeSeries, metric string, entity *EntityReport, gap func(string, error)) {
	values, err := ts.Get(metric)
	if err != nil {
		gap(metric, err)
		return
	}

	if res, err := trend.AnalyzeTail(ts, metric, rs.engine.TrendWindow, rs.engine.TrendOptions()); err != nil {
		gap(metric+" trend", err)
	} else {
		entity.Trends[metric] = MetricTrend{
			Direction:     res.Direction,
			Slope:         res.Slope,
			PredictedNext: res.PredictedNext,
			Points:        res.Points,
		}
	}

	snap := IndicatorSnapshot{Latest: indicators.Latest(values)}
	if ma, err := indicators.MovingAverage(values, rs.engine.MovingAverageWindow); err != nil {
		gap(metric+" moving_average", err)
	} else {
		snap.MovingAverage = indicators.Latest(ma)
	}
	if smoothed, err := indicators.ExponentialSmoothing(values, rs.engine.SmoothingAlpha); err != nil {
		gap(metric+" smoothing", err)
	} else {
		snap.Smoothed = indicators.Latest(smoothed)
	}
	if rsi, err := indicators.RSI(values, rs.engine.RSIPeriod); err != nil {
		gap(metric+" rsi", err)
	} else {
		snap.RSI = indicators.Latest(rsi)
	}
	snap.Volatility = indicators.Latest(indicators.Volatility(values))
	entity.Indicators[metric] = snap

	if found := rs.detector.Detect(values); len(found) > 0 {
		entity.Outliers[metric] = found
	}
}

// correlate builds the cross-entity matrix for the configured metric over
// entities that carry it. Fewer than two such entities yields nil.
func (rs *ReportService) correlate(ctx context.Context, records []models.EntityRecord) *correlation.Matrix {
	metric := rs.engine.CorrelationMetric
	entities := make(map[string]*series.TimeSeries)
	for i, rec := range records {
		if rec.Series == nil || !rec.Series.Has(metric) {
			continue
		}
		name := rec.Label()
		if _, dup := entities[name]; dup {
			name = fmt.Sprintf("%s#%d", name, i)
		}
		entities[name] = rec.Series
	}
	if len(entities) < 2 {
		return nil
	}

	_, span := rs.tracer.TraceCorrelation(ctx, metric, len(entities))
	defer span.End()

	m, err := correlation.AcrossEntities(entities, metric)
	if err != nil {
		rs.tracer.RecordError(span, err, "correlation failed")
		rs.logger.WithError(err).WithField("metric", metric).Warn("Failed to correlate entities")
		return nil
	}
	return &m
}

// classified runs fn and records a gap for expected data errors. The
// returned classification is Unknown whenever fn failed.
func classified(gap func(string, error), what string, fn func() (classify.Classification, error)) classify.Classification {
	c, err := fn()
	if err != nil {
		gap(what, err)
		return classify.Unknown()
	}
	return c
}

// fieldPair reads two scalar fields, failing with ErrMissingMetric when
// either is absent so that a missing value is never read as zero.
func fieldPair(rec models.EntityRecord, a, b string) (float64, float64, error) {
	va, okA := rec.Field(a)
	vb, okB := rec.Field(b)
	switch {
	case !okA:
		return 0, 0, fmt.Errorf("%w: %q", utils.ErrMissingMetric, a)
	case !okB:
		return 0, 0, fmt.Errorf("%w: %q", utils.ErrMissingMetric, b)
	}
	return va, vb, nil
}

func countOutliers(m map[string][]outliers.Outlier) int {
	n := 0
	for _, o := range m {
		n += len(o)
	}
	return n
}

// WashTradeShare returns the wash-trade share of volume as a percentage.
func (r *Report) WashTradeShare() decimal.Decimal {
	return r.Summary.Ratios[RatioWashTradeShare].Mul(decimal.NewFromInt(100)).Round(2)
}
