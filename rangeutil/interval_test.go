//go:build unit
// +build unit

package rangeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribeInterval(t *testing.T) {
	tests := []struct {
		input string
		want  IntervalSpec
	}{
		{"5m", IntervalSpec{Sec: 60, Type: "m", Count: 5}},
		{"2M", IntervalSpec{Sec: 2592000, Type: "M", Count: 2}},
		{"2m", IntervalSpec{Sec: 60, Type: "m", Count: 2}},
		{"1y", IntervalSpec{Sec: 31536000, Type: "y", Count: 1}},
		{"3w", IntervalSpec{Sec: 604800, Type: "w", Count: 3}},
		{"7d", IntervalSpec{Sec: 86400, Type: "d", Count: 7}},
		{"12h", IntervalSpec{Sec: 3600, Type: "h", Count: 12}},
		{"30s", IntervalSpec{Sec: 1, Type: "s", Count: 30}},
		{"500ms", IntervalSpec{Sec: 0.001, Type: "ms", Count: 500}},
		{"1.5h", IntervalSpec{Sec: 3600, Type: "h", Count: 1}},
		{"10", IntervalSpec{Sec: 1, Type: "s", Count: 10}},
		{"2.7", IntervalSpec{Sec: 1, Type: "s", Count: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := DescribeInterval(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDescribeIntervalMonthVersusMinute(t *testing.T) {
	month, err := IntervalToSeconds("2M")
	require.NoError(t, err)
	minute, err := IntervalToSeconds("2m")
	require.NoError(t, err)
	assert.Equal(t, float64(43200), month/minute)
}

func TestDescribeIntervalInvalid(t *testing.T) {
	for _, input := range []string{"", "0", "abc", "5q", "m"} {
		t.Run(input, func(t *testing.T) {
			_, err := DescribeInterval(input)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidInterval)
			assert.Contains(t, err.Error(), "y, M, w, d, h, m, s, ms")
		})
	}
}

func TestIntervalToMs(t *testing.T) {
	tests := map[string]int64{
		"5m":    300000,
		"1s":    1000,
		"500ms": 500,
		"1h":    3600000,
		"1d":    86400000,
		"1M":    2592000000,
		"1y":    31536000000,
		"15":    15000,
	}
	for input, want := range tests {
		got, err := IntervalToMs(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := IntervalToMs("bogus")
	assert.ErrorIs(t, err, ErrInvalidInterval)
}

func TestRoundInterval(t *testing.T) {
	tests := []struct {
		input, want int64
	}{
		{0, 1},
		{9, 1},
		{10, 10},
		{14, 10},
		{15, 20},
		{34, 20},
		{35, 50},
		{74, 50},
		{75, 100},
		{149, 100},
		{150, 200},
		{349, 200},
		{350, 500},
		{749, 500},
		{750, 1000},
		{1499, 1000},
		{1500, 2000},
		{3499, 2000},
		{3500, 5000},
		{7499, 5000},
		{7500, 10000},
		{14999, 10000},
		{15000, 15000},
		{17499, 15000},
		{17500, 20000},
		{24999, 20000},
		{25000, 30000},
		{44999, 30000},
		{45000, 60000},
		{89999, 60000},
		{90000, 120000},
		{209999, 120000},
		{210000, 300000},
		{449999, 300000},
		{450000, 600000},
		{749999, 600000},
		{750000, 900000},
		{1049999, 900000},
		{1050000, 1200000},
		{1499999, 1200000},
		{1500000, 1800000},
		{2699999, 1800000},
		{2700000, 3600000},
		{5399999, 3600000},
		{5400000, 7200000},
		{8999999, 7200000},
		{9000000, 10800000},
		{16199999, 10800000},
		{16200000, 21600000},
		{32399999, 21600000},
		{32400000, 43200000},
		{86399999, 43200000},
		{86400000, 86400000},
		{604799999, 86400000},
		{604800000, 604800000},
		{1814399999, 604800000},
		{1814400000, 2592000000},
		{3628799999, 2592000000},
		{3628800000, 31536000000},
		{100000000000, 31536000000},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RoundInterval(tt.input), "RoundInterval(%d)", tt.input)
	}
}

func TestRoundIntervalLadderIsAscending(t *testing.T) {
	prev := intervalRung{}
	for _, rung := range intervalLadder {
		assert.Greater(t, rung.limit, prev.limit)
		assert.Greater(t, rung.value, prev.value)
		assert.LessOrEqual(t, rung.value, rung.limit)
		prev = rung
	}
	assert.Greater(t, int64(maxInterval), prev.value)
}

func TestCalculateInterval(t *testing.T) {
	t0 := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	hour := TimeRange{From: t0, To: t0.Add(time.Hour)}

	tests := []struct {
		name       string
		tr         TimeRange
		resolution int64
		lowLimit   string
		want       IntervalValues
	}{
		{
			name:       "one hour at 100 points",
			tr:         hour,
			resolution: 100,
			want:       IntervalValues{IntervalMs: 30000, Interval: "30s"},
		},
		{
			name:       "low limit wins",
			tr:         hour,
			resolution: 100,
			lowLimit:   "1m",
			want:       IntervalValues{IntervalMs: 60000, Interval: "1m"},
		},
		{
			name:       "low limit below snapped value",
			tr:         hour,
			resolution: 100,
			lowLimit:   "10s",
			want:       IntervalValues{IntervalMs: 30000, Interval: "30s"},
		},
		{
			name:       "seven days at 1000 points",
			tr:         TimeRange{From: t0, To: t0.Add(7 * 24 * time.Hour)},
			resolution: 1000,
			want:       IntervalValues{IntervalMs: 600000, Interval: "10m"},
		},
		{
			name:       "empty range",
			tr:         TimeRange{From: t0, To: t0},
			resolution: 100,
			want:       IntervalValues{IntervalMs: 1, Interval: "1ms"},
		},
		{
			name:       "five years at 10 points",
			tr:         TimeRange{From: t0, To: t0.Add(5 * 365 * 24 * time.Hour)},
			resolution: 10,
			want:       IntervalValues{IntervalMs: 31536000000, Interval: "1y"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CalculateInterval(tt.tr, tt.resolution, tt.lowLimit)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCalculateIntervalErrors(t *testing.T) {
	t0 := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	tr := TimeRange{From: t0, To: t0.Add(time.Hour)}

	_, err := CalculateInterval(tr, 0, "")
	assert.Error(t, err)

	_, err = CalculateInterval(tr, 100, "soon")
	assert.ErrorIs(t, err, ErrInvalidInterval)
}

func TestSecondsToHms(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "less than a millisecond"},
		{0.0001, "less than a millisecond"},
		{0.001, "1ms"},
		{0.5, "500ms"},
		{1, "1s"},
		{1.5, "1s"},
		{59, "59s"},
		{90, "1m"},
		{3600, "1h"},
		{5400, "1h"},
		{86400, "1d"},
		{604800, "7d"},
		{2592000, "30d"},
		{31536000, "1y"},
		{63072000, "2y"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SecondsToHms(tt.seconds), "SecondsToHms(%v)", tt.seconds)
	}
}

func TestMsRangeToTimeString(t *testing.T) {
	tests := []struct {
		ms   int64
		want string
	}{
		{0, "less than 1s"},
		{499, "less than 1s"},
		{500, "1s"},
		{1000, "1s"},
		{61000, "1min 1s"},
		{3600000, "1h"},
		{3723000, "1h 2min 3s"},
		{90000000, "25h"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MsRangeToTimeString(tt.ms), "MsRangeToTimeString(%d)", tt.ms)
	}
}
