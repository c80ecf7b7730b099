package models

import (
	"fmt"

	"github.com/irfndi/nftpulse/internal/series"
	"github.com/irfndi/nftpulse/internal/utils"
)

// EntityKind identifies what a record describes.
type EntityKind string

const (
	KindCollection  EntityKind = "collection"
	KindMarketplace EntityKind = "marketplace"
	KindMarket      EntityKind = "market"
)

// Scalar field names as delivered by the metrics API.
const (
	FieldVolume             = "volume"
	FieldSales              = "sales"
	FieldWashTradeVolume    = "washtrade_volume"
	FieldWashTradeSuspect   = "washtrade_suspect_sales_ratio"
	FieldTraders            = "traders"
	FieldTradersChange      = "traders_change"
	FieldTradersBuyers      = "traders_buyers"
	FieldTradersSellers     = "traders_sellers"
	FieldHolders            = "holders"
	FieldHoldersChange      = "holders_change"
	FieldMarketScore        = "market_score"
	FieldWashTradeAssets    = "washtrade_assets"
	FieldWashTradeWallets   = "washtrade_wallets"
	FieldMarketCap          = "marketcap"
	FieldVolumeChange       = "volume_change"
	FieldSalesChange        = "sales_change"
	FieldWashTradeVolChange = "washtrade_volume_change"
)

// Trend metric names: the payload key without its "_trend" suffix.
const (
	MetricVolume          = "volume"
	MetricSales           = "sales"
	MetricTraders         = "traders"
	MetricHolders         = "holders"
	MetricWashTradeVolume = "washtrade_volume"
)

// EntityRecord is one collection, marketplace or market snapshot. Fields
// holds scalar metrics; a field absent from the map was not reported, which
// is different from a reported zero. Series is nil when no trend arrays
// were delivered.
type EntityRecord struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Kind       EntityKind         `json:"kind"`
	Blockchain string             `json:"blockchain,omitempty"`
	Fields     map[string]float64 `json:"fields"`
	Series     *series.TimeSeries `json:"-"`
}

// Field returns a scalar field and whether it was reported.
func (r EntityRecord) Field(name string) (float64, bool) {
	v, ok := r.Fields[name]
	return v, ok
}

// Metric returns a trend metric or ErrMissingMetric.
func (r EntityRecord) Metric(name string) ([]series.Value, error) {
	if r.Series == nil {
		return nil, fmt.Errorf("%w: %q (record %s has no trends)", utils.ErrMissingMetric, name, r.Label())
	}
	return r.Series.Get(name)
}

// Label is a human readable identifier for logs and reports.
func (r EntityRecord) Label() string {
	switch {
	case r.Name != "":
		return r.Name
	case r.ID != "":
		return r.ID
	default:
		return "unnamed"
	}
}
