package rangeutil

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidInterval is returned for duration strings that are neither
// unit-less numbers nor end in one of the supported units.
var ErrInvalidInterval = errors.New("invalid interval string")

// intervalUnits lists the supported units in descending size.
var intervalUnits = []string{"y", "M", "w", "d", "h", "m", "s", "ms"}

// intervalsInSeconds holds fixed-length approximations: a month is 30 days
// and a year is 365 days.
var intervalsInSeconds = map[string]float64{
	"y":  31536000,
	"M":  2592000,
	"w":  604800,
	"d":  86400,
	"h":  3600,
	"m":  60,
	"s":  1,
	"ms": 0.001,
}

var intervalRegex = regexp.MustCompile(`(-?\d+)(?:\.\d+)?(ms|[Mwdhmsy])`)

// DescribeInterval parses a duration string such as "5m", "2M" or "30".
// Unit-less numbers are seconds. Fractional magnitudes are truncated.
func DescribeInterval(str string) (IntervalSpec, error) {
	if f, err := strconv.ParseFloat(str, 64); err == nil && f != 0 && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return IntervalSpec{Sec: intervalsInSeconds["s"], Type: "s", Count: int64(f)}, nil
	}

	matches := intervalRegex.FindStringSubmatch(str)
	if matches == nil {
		return IntervalSpec{}, fmt.Errorf(
			"%w %q: has to be either unit-less or end with one of the following units: %q",
			ErrInvalidInterval, str, strings.Join(intervalUnits, ", "),
		)
	}

	count, err := strconv.ParseInt(matches[1], 10, 64)
	if err != nil {
		return IntervalSpec{}, fmt.Errorf("%w %q: %w", ErrInvalidInterval, str, err)
	}
	return IntervalSpec{Sec: intervalsInSeconds[matches[2]], Type: matches[2], Count: count}, nil
}

// IntervalToSeconds returns the length of str in seconds.
func IntervalToSeconds(str string) (float64, error) {
	spec, err := DescribeInterval(str)
	if err != nil {
		return 0, err
	}
	return spec.Sec * float64(spec.Count), nil
}

// IntervalToMs returns the length of str in milliseconds.
func IntervalToMs(str string) (int64, error) {
	seconds, err := IntervalToSeconds(str)
	if err != nil {
		return 0, err
	}
	return int64(math.Round(seconds * 1000)), nil
}

// CalculateInterval derives a query step for tr so that roughly resolution
// points are returned. The raw step is snapped to the RoundInterval ladder;
// when lowLimitInterval is set and larger than the snapped value it wins.
func CalculateInterval(tr TimeRange, resolution int64, lowLimitInterval string) (IntervalValues, error) {
	if resolution <= 0 {
		return IntervalValues{}, fmt.Errorf("resolution must be positive, got %d", resolution)
	}

	lowLimitMs := int64(1)
	if lowLimitInterval != "" {
		ms, err := IntervalToMs(lowLimitInterval)
		if err != nil {
			return IntervalValues{}, fmt.Errorf("parse low limit interval: %w", err)
		}
		lowLimitMs = ms
	}

	intervalMs := RoundInterval(tr.To.Sub(tr.From).Milliseconds() / resolution)
	if lowLimitMs > intervalMs {
		intervalMs = lowLimitMs
	}
	return IntervalValues{
		IntervalMs: intervalMs,
		Interval:   SecondsToHms(float64(intervalMs) / 1000),
	}, nil
}

// intervalRung is one step of the ladder: inputs below limit snap to value.
type intervalRung struct {
	limit int64
	value int64
}

var intervalLadder = []intervalRung{
	{10, 1},                  // 1ms
	{15, 10},                 // 10ms
	{35, 20},                 // 20ms
	{75, 50},                 // 50ms
	{150, 100},               // 100ms
	{350, 200},               // 200ms
	{750, 500},               // 500ms
	{1500, 1000},             // 1s
	{3500, 2000},             // 2s
	{7500, 5000},             // 5s
	{15000, 10000},           // 10s
	{17500, 15000},           // 15s
	{25000, 20000},           // 20s
	{45000, 30000},           // 30s
	{90000, 60000},           // 1m
	{210000, 120000},         // 2m
	{450000, 300000},         // 5m
	{750000, 600000},         // 10m
	{1050000, 900000},        // 15m
	{1500000, 1200000},       // 20m
	{2700000, 1800000},       // 30m
	{5400000, 3600000},       // 1h
	{9000000, 7200000},       // 2h
	{16200000, 10800000},     // 3h
	{32400000, 21600000},     // 6h
	{86400000, 43200000},     // 12h
	{604800000, 86400000},    // 1d
	{1814400000, 604800000},  // 1w
	{3628800000, 2592000000}, // 30d
}

const maxInterval = 31536000000 // 1y

// RoundInterval snaps a step in milliseconds to the nearest human friendly
// value. interval must not be negative.
func RoundInterval(interval int64) int64 {
	for _, rung := range intervalLadder {
		if interval < rung.limit {
			return rung.value
		}
	}
	return maxInterval
}

// SecondsToHms renders seconds as a single-unit label using the largest
// non-zero unit, e.g. 90 -> "1m". Weeks are rendered as days.
func SecondsToHms(seconds float64) string {
	if n := math.Floor(seconds / 31536000); n != 0 {
		return strconv.FormatFloat(n, 'f', -1, 64) + "y"
	}
	rem := math.Mod(seconds, 31536000)
	if n := math.Floor(rem / 86400); n != 0 {
		return strconv.FormatFloat(n, 'f', -1, 64) + "d"
	}
	rem = math.Mod(rem, 86400)
	if n := math.Floor(rem / 3600); n != 0 {
		return strconv.FormatFloat(n, 'f', -1, 64) + "h"
	}
	rem = math.Mod(rem, 3600)
	if n := math.Floor(rem / 60); n != 0 {
		return strconv.FormatFloat(n, 'f', -1, 64) + "m"
	}
	rem = math.Mod(rem, 60)
	if n := math.Floor(rem); n != 0 {
		return strconv.FormatFloat(n, 'f', -1, 64) + "s"
	}
	if n := math.Floor(seconds * 1000); n != 0 {
		return strconv.FormatFloat(n, 'f', -1, 64) + "ms"
	}
	return "less than a millisecond"
}

// MsRangeToTimeString renders a millisecond length as hours, minutes and
// seconds, e.g. "1h 2min 3s". The length is rounded to whole seconds and
// hours are not folded into days. Lengths that round to zero read
// "less than 1s".
func MsRangeToTimeString(rangeMs int64) string {
	total := int64(math.Round(float64(rangeMs) / 1000))
	parts := []struct {
		n    int64
		unit string
	}{
		{total / 3600, "h"},
		{total % 3600 / 60, "min"},
		{total % 60, "s"},
	}

	var out []string
	for _, p := range parts {
		if p.n != 0 {
			out = append(out, strconv.FormatInt(p.n, 10)+p.unit)
		}
	}
	if len(out) == 0 {
		return "less than 1s"
	}
	return strings.Join(out, " ")
}
