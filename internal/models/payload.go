package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/irfndi/nftpulse/internal/series"
	"github.com/irfndi/nftpulse/internal/utils"
)

const (
	keyBlockDates = "block_dates"
	trendSuffix   = "_trend"
)

// identity keys are read as strings, never as scalar metrics.
var identityKeys = map[string]bool{
	"id": true, "name": true, "kind": true, "blockchain": true, "chain_id": true,
	"contract_address": true, "collection": true, "marketplace": true, "slug_name": true,
}

// TrendArray is a trend payload normalized to values. It decodes a JSON
// array of numbers, nulls or numeric strings, and also an array that was
// serialized into a JSON string.
type TrendArray []series.Value

// UnmarshalJSON implements json.Unmarshaler.
func (t *TrendArray) UnmarshalJSON(data []byte) error {
	raw, err := unwrapArray(data)
	if err != nil {
		return err
	}
	if raw == nil {
		*t = nil
		return nil
	}

	out := make(TrendArray, len(raw))
	for i, elem := range raw {
		v, err := parseValue(elem)
		if err != nil {
			return utils.NewValidationErrorf("trend element %d: %v", i, err)
		}
		out[i] = v
	}
	*t = out
	return nil
}

// unwrapArray returns the elements of a JSON array, decoding one level of
// string encoding first when the array arrived as a string.
func unwrapArray(data []byte) ([]json.RawMessage, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}

	if data[0] == '"' {
		var inner string
		if err := json.Unmarshal(data, &inner); err != nil {
			return nil, utils.NewValidationErrorf("trend string: %v", err)
		}
		inner = strings.TrimSpace(inner)
		if inner == "" || inner == "null" {
			return nil, nil
		}
		data = []byte(inner)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, utils.NewValidationErrorf("trend array: %v", err)
	}
	return raw, nil
}

func parseValue(elem json.RawMessage) (series.Value, error) {
	s := strings.TrimSpace(string(elem))
	if s == "" || s == "null" {
		return series.None(), nil
	}
	if s[0] == '"' {
		var str string
		if err := json.Unmarshal(elem, &str); err != nil {
			return series.None(), err
		}
		str = strings.TrimSpace(str)
		if str == "" || strings.EqualFold(str, "null") || strings.EqualFold(str, "nan") {
			return series.None(), nil
		}
		f, err := strconv.ParseFloat(str, 64)
		if err != nil {
			return series.None(), fmt.Errorf("not a number: %q", str)
		}
		return series.Some(f), nil
	}
	var f float64
	if err := json.Unmarshal(elem, &f); err != nil {
		return series.None(), err
	}
	return series.Some(f), nil
}

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"}

func parseBlockDates(data json.RawMessage) ([]time.Time, error) {
	raw, err := unwrapArray(data)
	if err != nil {
		return nil, err
	}

	out := make([]time.Time, len(raw))
	for i, elem := range raw {
		var str string
		if err := json.Unmarshal(elem, &str); err == nil {
			t, ok := parseDate(str)
			if !ok {
				return nil, utils.NewValidationErrorf("block_dates[%d]: unrecognized date %q", i, str)
			}
			out[i] = t
			continue
		}
		// unix seconds, possibly written as a float such as 1.7e9
		var unix float64
		if err := json.Unmarshal(elem, &unix); err != nil {
			return nil, utils.NewValidationErrorf("block_dates[%d]: %v", i, err)
		}
		out[i] = time.Unix(int64(unix), 0).UTC()
	}
	return out, nil
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// Payload is the envelope shape some endpoints use.
type Payload struct {
	Data []json.RawMessage `json:"data"`
}

// DecodeRecords reads a JSON array of raw records, or an object holding that
// array under "data", and normalizes each into an EntityRecord.
func DecodeRecords(r io.Reader) ([]EntityRecord, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, nil
	}

	var raws []json.RawMessage
	if body[0] == '{' {
		var p Payload
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, utils.NewValidationErrorf("records envelope: %v", err)
		}
		raws = p.Data
	} else if err := json.Unmarshal(body, &raws); err != nil {
		return nil, utils.NewValidationErrorf("records array: %v", err)
	}

	records := make([]EntityRecord, 0, len(raws))
	for i, raw := range raws {
		rec, err := NormalizeRecord(raw)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// NormalizeRecord converts one raw record. Every key ending in "_trend"
// becomes a metric named without the suffix, aligned to block_dates; numeric
// scalars (or numeric strings) become fields.
func NormalizeRecord(raw json.RawMessage) (EntityRecord, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return EntityRecord{}, utils.NewValidationErrorf("record object: %v", err)
	}

	rec := EntityRecord{
		ID:         firstString(obj, "id", "contract_address", "slug_name"),
		Name:       firstString(obj, "name", "collection", "marketplace"),
		Kind:       EntityKind(firstString(obj, "kind")),
		Blockchain: firstString(obj, "blockchain"),
		Fields:     make(map[string]float64),
	}
	if rec.Kind == "" {
		rec.Kind = KindCollection
	}

	trends := make(map[string][]series.Value)
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := obj[key]
		switch {
		case key == keyBlockDates || identityKeys[key]:
			continue
		case strings.HasSuffix(key, trendSuffix):
			var arr TrendArray
			if err := json.Unmarshal(value, &arr); err != nil {
				return EntityRecord{}, fmt.Errorf("%s: %w", key, err)
			}
			trends[strings.TrimSuffix(key, trendSuffix)] = arr
		default:
			if v, err := parseValue(value); err == nil {
				if f, ok := v.Get(); ok {
					rec.Fields[key] = f
				}
			}
		}
	}

	dates, hasDates := obj[keyBlockDates]
	if !hasDates && len(trends) == 0 {
		return rec, nil
	}
	if !hasDates {
		return EntityRecord{}, fmt.Errorf("%w: %d trend arrays without block_dates", utils.ErrMisalignedSeries, len(trends))
	}

	timestamps, err := parseBlockDates(dates)
	if err != nil {
		return EntityRecord{}, err
	}
	if descending(timestamps) {
		reverseTimes(timestamps)
		for _, values := range trends {
			reverseValues(values)
		}
	}
	ts, err := series.New(timestamps, trends)
	if err != nil {
		return EntityRecord{}, err
	}
	rec.Series = ts
	return rec, nil
}

// descending reports a newest-first date list, which the API returns for
// some endpoints.
func descending(ts []time.Time) bool {
	if len(ts) < 2 || !ts[0].After(ts[len(ts)-1]) {
		return false
	}
	for i := 1; i < len(ts); i++ {
		if ts[i].After(ts[i-1]) {
			return false
		}
	}
	return true
}

func reverseTimes(ts []time.Time) {
	for i, j := 0, len(ts)-1; i < j; i, j = i+1, j-1 {
		ts[i], ts[j] = ts[j], ts[i]
	}
}

func reverseValues(vs []series.Value) {
	for i, j := 0, len(vs)-1; i < j; i, j = i+1, j-1 {
		vs[i], vs[j] = vs[j], vs[i]
	}
}

func firstString(obj map[string]json.RawMessage, keys ...string) string {
	for _, k := range keys {
		raw, ok := obj[k]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return s
		}
	}
	return ""
}
