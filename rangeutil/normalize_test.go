//go:build unit
// +build unit

package rangeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

// fakeDateMath resolves a fixed set of expressions and records the options
// it was called with.
type fakeDateMath struct {
	times map[string]time.Time
	calls []ParseOptions
}

func (f *fakeDateMath) Parse(expr string, opts ParseOptions) (time.Time, bool) {
	f.calls = append(f.calls, opts)
	t, ok := f.times[expr]
	return t, ok
}

func (f *fakeDateMath) Format(t time.Time, loc *time.Location) string {
	return "abs(" + t.In(loc).Format(time.Kitchen) + ")"
}

func (f *fakeDateMath) FormatTimeAgo(t, now time.Time) string {
	return "ago(" + now.Sub(t).String() + ")"
}

func TestConvertRawToRange(t *testing.T) {
	t.Run("relative range keeps raw", func(t *testing.T) {
		raw := NewRawRange("now-1h", "now")
		tr := ConvertRawToRange(raw, testNow)
		assert.True(t, tr.From.Equal(testNow.Add(-time.Hour)), "from: %s", tr.From)
		assert.True(t, tr.To.Equal(testNow), "to: %s", tr.To)
		assert.Equal(t, raw, tr.Raw)
	})

	t.Run("rounding covers the whole day", func(t *testing.T) {
		tr := ConvertRawToRange(NewRawRange("now/d", "now/d"), testNow)
		assert.True(t, tr.From.Equal(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)), "from: %s", tr.From)
		assert.True(t, tr.To.After(testNow))
		assert.True(t, tr.To.Before(time.Date(2024, 1, 16, 0, 0, 0, 1, time.UTC)), "to: %s", tr.To)
		assert.Greater(t, tr.To.Sub(tr.From), 24*time.Hour-time.Second)
	})

	t.Run("absolute range freezes raw", func(t *testing.T) {
		from := testNow.Add(-2 * time.Hour)
		raw := RawRange{From: Instant(from), To: Instant(testNow)}
		tr := ConvertRawToRange(raw, testNow)
		assert.Equal(t, from, tr.From)
		assert.Equal(t, testNow, tr.To)
		assert.True(t, tr.Raw.From.IsInstant())
		assert.True(t, tr.Raw.To.IsInstant())
	})

	t.Run("absolute strings are resolved and frozen", func(t *testing.T) {
		tr := ConvertRawToRange(NewRawRange("2024-01-15T10:00:00Z", "2024-01-15T11:00:00Z"), testNow)
		assert.True(t, tr.From.Equal(time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)), "from: %s", tr.From)
		assert.True(t, tr.To.Equal(time.Date(2024, 1, 15, 11, 0, 0, 0, time.UTC)), "to: %s", tr.To)
		assert.True(t, tr.Raw.From.IsInstant())
	})

	t.Run("mixed range keeps raw", func(t *testing.T) {
		raw := RawRange{From: Instant(testNow.Add(-time.Hour)), To: Expr("now")}
		tr := ConvertRawToRange(raw, testNow)
		assert.Equal(t, raw, tr.Raw)
	})

	t.Run("unresolvable side is zero", func(t *testing.T) {
		tr := ConvertRawToRange(NewRawRange("now-1h", "garbage"), testNow)
		assert.True(t, tr.To.IsZero())
	})

	t.Run("options reach date math", func(t *testing.T) {
		loc := time.FixedZone("UTC+2", 2*3600)
		dm := &fakeDateMath{times: map[string]time.Time{"now/fy": testNow}}
		ConvertRawToRange(NewRawRange("now/fy", "now/fy"), testNow,
			WithDateMath(dm), WithLocation(loc), WithFiscalYearStartMonth(time.April))

		require.Len(t, dm.calls, 2)
		assert.Equal(t, ParseOptions{RoundUp: false, Now: testNow, Location: loc, FiscalYearStartMonth: time.April}, dm.calls[0])
		assert.Equal(t, ParseOptions{RoundUp: true, Now: testNow, Location: loc, FiscalYearStartMonth: time.April}, dm.calls[1])
	})
}

func TestDescribeTimeRange(t *testing.T) {
	twoHoursAgo := testNow.Add(-2 * time.Hour)
	dm := &fakeDateMath{times: map[string]time.Time{
		"now-2h": twoHoursAgo,
		"now":    testNow,
	}}

	tests := []struct {
		name string
		raw  RawRange
		opts []Option
		want string
	}{
		{
			name: "preset",
			raw:  NewRawRange("now-1h", "now"),
			want: "Last 1 hour",
		},
		{
			name: "calendar preset",
			raw:  NewRawRange("now/d", "now/d"),
			want: "Today",
		},
		{
			name: "hidden preset",
			raw:  NewRawRange("now", "now+6h"),
			want: "Next 6 hours",
		},
		{
			name: "quick range wins",
			raw:  NewRawRange("now-1h", "now"),
			opts: []Option{WithQuickRanges([]TimeOption{{From: "now-1h", To: "now", Display: "Past hour"}})},
			want: "Past hour",
		},
		{
			name: "both absolute",
			raw:  RawRange{From: Instant(twoHoursAgo), To: Instant(testNow)},
			want: "2024-01-15 10:00:00 to 2024-01-15 12:00:00",
		},
		{
			name: "both absolute in a time zone",
			raw:  RawRange{From: Instant(twoHoursAgo), To: Instant(testNow)},
			opts: []Option{WithLocation(time.FixedZone("UTC+1", 3600))},
			want: "2024-01-15 11:00:00 to 2024-01-15 13:00:00",
		},
		{
			name: "from absolute",
			raw:  RawRange{From: Instant(twoHoursAgo), To: Expr("now")},
			opts: []Option{WithDateMath(dm)},
			want: "abs(10:00AM) to ago(0s)",
		},
		{
			name: "to absolute",
			raw:  RawRange{From: Expr("now-2h"), To: Instant(testNow)},
			opts: []Option{WithDateMath(dm)},
			want: "ago(2h0m0s) to abs(12:00PM)",
		},
		{
			name: "to absolute with unresolvable from",
			raw:  RawRange{From: Expr("bogus"), To: Instant(testNow)},
			opts: []Option{WithDateMath(dm)},
			want: "",
		},
		{
			name: "to now is described",
			raw:  NewRawRange("now-10m", "now"),
			want: "Last 10 minutes",
		},
		{
			name: "to now unparseable",
			raw:  NewRawRange("now-x", "now"),
			want: "now-x to now",
		},
		{
			name: "fallback",
			raw:  NewRawRange("now-1h", "now-5m"),
			want: "now-1h to now-5m",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DescribeTimeRange(tt.raw, testNow, tt.opts...))
		})
	}
}

func TestDescribeTimeRangeTimeAgo(t *testing.T) {
	raw := RawRange{From: Expr("now-2h"), To: Instant(testNow)}
	assert.Equal(t, "2 hours ago to 2024-01-15 12:00:00", DescribeTimeRange(raw, testNow))
}

func TestIsValidTimeSpan(t *testing.T) {
	tests := map[string]bool{
		"$myVar":             true,
		"+$myVar":            true,
		"5m":                 true,
		"+5m":                true,
		"now-1h":             true,
		"now/d":              true,
		"1M":                 true,
		"5x":                 false,
		"not-a-valid-expr!!": false,
		"":                   false,
	}
	for value, want := range tests {
		assert.Equal(t, want, IsValidTimeSpan(value), "IsValidTimeSpan(%q)", value)
	}
}

func TestIsFiscal(t *testing.T) {
	assert.True(t, IsFiscal(TimeRange{Raw: NewRawRange("now/fy", "now")}))
	assert.True(t, IsFiscal(TimeRange{Raw: NewRawRange("now-1h", "now-1Q/fQ")}))
	assert.False(t, IsFiscal(TimeRange{Raw: NewRawRange("now-1h", "now")}))
	assert.False(t, IsFiscal(TimeRange{Raw: RawRange{From: Instant(testNow), To: Instant(testNow)}}))
}

func TestIsRelativeTimeRange(t *testing.T) {
	assert.True(t, IsRelativeTimeRange(NewRawRange("now-1h", "now")))
	assert.True(t, IsRelativeTimeRange(RawRange{From: Instant(testNow), To: Expr("now")}))
	assert.False(t, IsRelativeTimeRange(NewRawRange("2024-01-15", "2024-01-16")))
	assert.False(t, IsRelativeTimeRange(RawRange{From: Instant(testNow), To: Instant(testNow)}))
}

func TestIsMathString(t *testing.T) {
	assert.True(t, IsMathString("now"))
	assert.True(t, IsMathString("now-5m/m"))
	assert.True(t, IsMathString("2024-01-15||+1d"))
	assert.False(t, IsMathString("2024-01-15"))
	assert.False(t, IsMathString("1705320000000"))
}

func TestRawTimeString(t *testing.T) {
	assert.Equal(t, "now-1h", Expr("now-1h").String())
	assert.Equal(t, "2024-01-15T12:00:00.000Z", Instant(testNow).String())
	assert.Equal(t, "now-1h to now", NewRawRange("now-1h", "now").String())
}
