package correlation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/nftpulse/internal/series"
	"github.com/irfndi/nftpulse/internal/utils"
)

func TestPearson(t *testing.T) {
	tests := []struct {
		name    string
		a, b    []series.Value
		want    float64
		defined bool
	}{
		{
			name:    "perfect positive",
			a:       series.Floats(1, 2, 3, 4),
			b:       series.Floats(10, 20, 30, 40),
			want:    1,
			defined: true,
		},
		{
			name:    "perfect negative",
			a:       series.Floats(1, 2, 3, 4),
			b:       series.Floats(8, 6, 4, 2),
			want:    -1,
			defined: true,
		},
		{
			name:    "uncorrelated",
			a:       series.Floats(1, 2, 3, 4),
			b:       series.Floats(1, -1, -1, 1),
			want:    0,
			defined: true,
		},
		{
			name:    "partial",
			a:       series.Floats(1, 3, 2, 5),
			b:       series.Floats(2, 1, 4, 4),
			want:    0.3578300267477955,
			defined: true,
		},
		{
			name: "zero variance on the left is undefined",
			a:    series.Floats(2, 2, 2),
			b:    series.Floats(1, 5, 3),
		},
		{
			name: "zero variance is undefined not zero",
			a:    series.Floats(1, 2, 3, 4),
			b:    series.Floats(7, 7, 7, 7),
		},
		{
			name:    "missing positions are dropped pairwise",
			a:       []series.Value{series.Some(1), series.None(), series.Some(3), series.Some(5)},
			b:       []series.Value{series.Some(2), series.Some(100), series.Some(6), series.Some(10)},
			want:    1,
			defined: true,
		},
		{
			name: "single pair is undefined",
			a:    []series.Value{series.Some(1), series.None()},
			b:    []series.Value{series.Some(1), series.Some(2)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Pearson(tt.a, tt.b)
			require.NoError(t, err)
			r, ok := got.Get()
			assert.Equal(t, tt.defined, ok)
			if tt.defined {
				assert.InDelta(t, tt.want, r, 1e-12)
			}
		})
	}
}

func TestPearson_SelfIsOne(t *testing.T) {
	inputs := [][]float64{
		{1, 2, 3},
		{0.1, 0.7, 0.3, 12.5, -4},
		{1e6, 3e6, 2.5e6, 9e5},
	}
	for _, in := range inputs {
		values := series.Floats(in...)
		r, err := Pearson(values, values)
		require.NoError(t, err)
		got, ok := r.Get()
		require.True(t, ok)
		assert.Equal(t, 1.0, got)
	}
}

func TestPearson_LengthMismatch(t *testing.T) {
	_, err := Pearson(series.Floats(1, 2), series.Floats(1))
	assert.ErrorIs(t, err, utils.ErrMisalignedSeries)
}

func TestForSeries(t *testing.T) {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	stamps := []time.Time{start, start.AddDate(0, 0, 1), start.AddDate(0, 0, 2), start.AddDate(0, 0, 3)}
	ts, err := series.FromFloats(stamps, map[string][]float64{
		"volume":  {1, 2, 3, 4},
		"sales":   {2, 4, 6, 8},
		"holders": {5, 5, 5, 5},
	})
	require.NoError(t, err)

	m, err := ForSeries(ts)
	require.NoError(t, err)
	assert.Equal(t, []string{"holders", "sales", "volume"}, m.Names)

	vs, err := m.At("volume", "sales")
	require.NoError(t, err)
	sv, _ := m.At("sales", "volume")
	assert.Equal(t, vs, sv)
	r, ok := vs.Get()
	require.True(t, ok)
	assert.InDelta(t, 1.0, r, 1e-12)

	diag, _ := m.At("volume", "volume")
	assert.Equal(t, series.Some(1), diag)

	flat, _ := m.At("holders", "holders")
	assert.False(t, flat.Valid())
	cross, _ := m.At("holders", "volume")
	assert.False(t, cross.Valid())

	_, err = m.At("volume", "traders")
	assert.ErrorIs(t, err, utils.ErrMissingMetric)

	_, err = ForSeries(ts, "volume", "traders")
	assert.ErrorIs(t, err, utils.ErrMissingMetric)
}

func TestAcrossEntities(t *testing.T) {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	day := func(d int) time.Time { return start.AddDate(0, 0, d) }

	apes, err := series.FromFloats([]time.Time{day(0), day(1), day(2), day(3)}, map[string][]float64{"volume": {1, 2, 3, 4}})
	require.NoError(t, err)
	punks, err := series.FromFloats([]time.Time{day(1), day(2), day(3), day(4)}, map[string][]float64{"volume": {40, 30, 20, 10}})
	require.NoError(t, err)
	late, err := series.FromFloats([]time.Time{day(10), day(11)}, map[string][]float64{"volume": {1, 2}})
	require.NoError(t, err)

	m, err := AcrossEntities(map[string]*series.TimeSeries{"punks": punks, "apes": apes, "late": late}, "volume")
	require.NoError(t, err)
	assert.Equal(t, []string{"apes", "late", "punks"}, m.Names)

	r, _ := m.At("apes", "punks")
	got, ok := r.Get()
	require.True(t, ok)
	assert.InDelta(t, -1.0, got, 1e-12)

	noOverlap, _ := m.At("apes", "late")
	assert.False(t, noOverlap.Valid())

	_, err = AcrossEntities(map[string]*series.TimeSeries{"apes": apes}, "sales")
	assert.ErrorIs(t, err, utils.ErrMissingMetric)
}
