package series

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/nftpulse/internal/utils"
)

func days(start time.Time, offsets ...int) []time.Time {
	out := make([]time.Time, len(offsets))
	for i, d := range offsets {
		out[i] = start.AddDate(0, 0, d)
	}
	return out
}

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestValue(t *testing.T) {
	v, ok := Some(3.5).Get()
	assert.True(t, ok)
	assert.Equal(t, 3.5, v)

	assert.False(t, None().Valid())
	assert.False(t, Value{}.Valid())
	assert.False(t, Some(math.NaN()).Valid())
	assert.False(t, Some(math.Inf(1)).Valid())

	assert.Equal(t, []float64{1, 3}, Present([]Value{Some(1), None(), Some(3)}))
}

func TestValue_JSON(t *testing.T) {
	data, err := json.Marshal([]Value{Some(1.5), None()})
	require.NoError(t, err)
	assert.JSONEq(t, `[1.5, null]`, string(data))

	var decoded []Value
	require.NoError(t, json.Unmarshal([]byte(`[2, null, 4]`), &decoded))
	assert.Equal(t, []Value{Some(2), None(), Some(4)}, decoded)
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name       string
		timestamps []time.Time
		metrics    map[string][]Value
		wantErr    error
	}{
		{
			name:       "valid",
			timestamps: days(epoch, 0, 1, 2),
			metrics:    map[string][]Value{"volume": Floats(1, 2, 3)},
		},
		{
			name:       "duplicate timestamps kept",
			timestamps: days(epoch, 0, 1, 1),
			metrics:    map[string][]Value{"volume": Floats(1, 2, 3)},
		},
		{
			name:       "length mismatch",
			timestamps: days(epoch, 0, 1, 2),
			metrics:    map[string][]Value{"volume": Floats(1, 2)},
			wantErr:    utils.ErrMisalignedSeries,
		},
		{
			name:       "descending timestamps",
			timestamps: days(epoch, 2, 1, 0),
			metrics:    map[string][]Value{"volume": Floats(1, 2, 3)},
			wantErr:    utils.ErrInvalidParameter,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, err := New(tt.timestamps, tt.metrics)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, ts)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(tt.timestamps), ts.Len())
		})
	}
}

func TestGet_MissingMetric(t *testing.T) {
	ts, err := FromFloats(days(epoch, 0, 1), map[string][]float64{"volume": {1, 2}})
	require.NoError(t, err)

	_, err = ts.Get("holders")
	assert.ErrorIs(t, err, utils.ErrMissingMetric)
	assert.False(t, ts.Has("holders"))
	assert.True(t, ts.Has("volume"))
}

func TestImmutability(t *testing.T) {
	values := Floats(1, 2, 3)
	stamps := days(epoch, 0, 1, 2)
	ts, err := New(stamps, map[string][]Value{"volume": values})
	require.NoError(t, err)

	values[0] = Some(100)
	stamps[0] = epoch.AddDate(1, 0, 0)

	got, err := ts.Get("volume")
	require.NoError(t, err)
	assert.Equal(t, Floats(1, 2, 3), got)
	assert.Equal(t, epoch, ts.Timestamps()[0])

	got[1] = None()
	again, _ := ts.Get("volume")
	assert.Equal(t, Floats(1, 2, 3), again)
}

func TestSlice(t *testing.T) {
	ts, err := FromFloats(days(epoch, 0, 1, 2, 3, 4), map[string][]float64{
		"volume": {10, 20, 30, 40, 50},
		"sales":  {1, 2, 3, 4, 5},
	})
	require.NoError(t, err)

	t.Run("identity slice", func(t *testing.T) {
		for _, m := range ts.Metrics() {
			full, _ := ts.Get(m)
			sliced, err := ts.Slice(0, ts.Len()).Get(m)
			require.NoError(t, err)
			assert.Equal(t, full, sliced)
		}
	})

	t.Run("half open range", func(t *testing.T) {
		sub := ts.Slice(1, 3)
		got, _ := sub.Get("volume")
		assert.Equal(t, Floats(20, 30), got)
		assert.Equal(t, days(epoch, 1, 2), sub.Timestamps())
	})

	t.Run("clamped indices", func(t *testing.T) {
		got, _ := ts.Slice(-5, 99).Get("sales")
		assert.Equal(t, Floats(1, 2, 3, 4, 5), got)
	})

	t.Run("inverted range is empty", func(t *testing.T) {
		sub := ts.Slice(4, 1)
		assert.Equal(t, 0, sub.Len())
		got, err := sub.Get("sales")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("tail", func(t *testing.T) {
		got, _ := ts.Tail(2).Get("volume")
		assert.Equal(t, Floats(40, 50), got)
		assert.Equal(t, 5, ts.Tail(10).Len())
	})
}

func TestAlign(t *testing.T) {
	a, err := FromFloats(days(epoch, 0, 1, 1, 2, 4), map[string][]float64{"volume": {1, 2, 3, 4, 5}})
	require.NoError(t, err)
	b, err := FromFloats(days(epoch, 1, 1, 1, 3, 4), map[string][]float64{"volume": {10, 20, 30, 40, 50}})
	require.NoError(t, err)

	left, right, err := a.Align(b)
	require.NoError(t, err)

	assert.Equal(t, days(epoch, 1, 1, 4), left.Timestamps())
	assert.Equal(t, left.Timestamps(), right.Timestamps())

	lv, _ := left.Get("volume")
	rv, _ := right.Get("volume")
	assert.Equal(t, Floats(2, 3, 5), lv)
	assert.Equal(t, Floats(10, 20, 50), rv)
}

func TestAlign_NoIntersection(t *testing.T) {
	a, _ := FromFloats(days(epoch, 0, 1), map[string][]float64{"volume": {1, 2}})
	b, _ := FromFloats(days(epoch, 5, 6), map[string][]float64{"volume": {1, 2}})

	_, _, err := a.Align(b)
	assert.ErrorIs(t, err, utils.ErrMisalignedSeries)
}
