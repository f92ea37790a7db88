package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/grafana/grafana-plugin-sdk-go/backend/gtime"

	mcptimerange "github.com/grafana/mcp-timerange"
	"github.com/grafana/mcp-timerange/rangeutil"
)

// TimeContext holds the per-call overrides shared by every tool that
// resolves expressions.
type TimeContext struct {
	Now                  string `json:"now,omitempty" jsonschema:"description=Reference time used for 'now' (RFC3339\\, YYYY-MM-DD or epoch milliseconds). Defaults to the current time"`
	TimeZone             string `json:"timeZone,omitempty" jsonschema:"description=IANA time zone used to round and display times (e.g. 'Europe/Berlin'). Defaults to the server time zone"`
	FiscalYearStartMonth int    `json:"fiscalYearStartMonth,omitempty" jsonschema:"description=First month of the fiscal year (1-12). Defaults to the server setting"`
}

// resolve merges tc into the server config and returns it with the
// reference time the call should use.
func (tc TimeContext) resolve(ctx context.Context) (mcptimerange.Config, time.Time, error) {
	cfg := mcptimerange.ConfigFromContext(ctx)
	if tc.TimeZone != "" {
		loc, err := time.LoadLocation(tc.TimeZone)
		if err != nil {
			return cfg, time.Time{}, fmt.Errorf("invalid time zone %q: %w", tc.TimeZone, err)
		}
		cfg.Location = loc
	}
	if tc.FiscalYearStartMonth != 0 {
		if tc.FiscalYearStartMonth < 1 || tc.FiscalYearStartMonth > 12 {
			return cfg, time.Time{}, fmt.Errorf("invalid fiscal year start month %d: must be between 1 and 12", tc.FiscalYearStartMonth)
		}
		cfg.FiscalYearStartMonth = time.Month(tc.FiscalYearStartMonth)
	}
	now, err := parseReferenceTime(cfg, tc.Now)
	if err != nil {
		return cfg, time.Time{}, err
	}
	return cfg, now, nil
}

// parseReferenceTime parses the optional reference time. An empty string
// means the configured clock. Dates without a zone are read in
// cfg.Location.
func parseReferenceTime(cfg mcptimerange.Config, timeStr string) (time.Time, error) {
	now := cfg.ReferenceTime()
	if timeStr == "" {
		return now, nil
	}

	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	tr := gtime.TimeRange{
		From: timeStr,
		Now:  now,
	}
	t, err := tr.ParseFrom(gtime.WithLocation(loc))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid reference time %q: %w", timeStr, err)
	}
	return t, nil
}

// rawRange builds a RawRange from tool arguments. Absolute timestamps
// become instants; everything else is kept as an expression.
func rawRange(cfg mcptimerange.Config, from, to string, now time.Time) (rangeutil.RawRange, error) {
	if from == "" {
		return rangeutil.RawRange{}, fmt.Errorf("from is required")
	}
	if to == "" {
		return rangeutil.RawRange{}, fmt.Errorf("to is required")
	}
	opts := rangeutil.ParseOptions{
		Now:                  now,
		Location:             cfg.Location,
		FiscalYearStartMonth: cfg.FiscalYearStartMonth,
	}
	return rangeutil.RawRange{
		From: rangeutil.ParseRawTime(from, opts),
		To:   rangeutil.ParseRawTime(to, opts),
	}, nil
}

// resolveRange converts from and to into a TimeRange and fails if either
// side cannot be resolved.
func resolveRange(cfg mcptimerange.Config, from, to string, now time.Time) (rangeutil.TimeRange, error) {
	raw, err := rawRange(cfg, from, to, now)
	if err != nil {
		return rangeutil.TimeRange{}, err
	}
	tr := rangeutil.ConvertRawToRange(raw, now, cfg.RangeOptions()...)
	if tr.From.IsZero() {
		return tr, fmt.Errorf("could not resolve from %q", from)
	}
	if tr.To.IsZero() {
		return tr, fmt.Errorf("could not resolve to %q", to)
	}
	return tr, nil
}

// formatInstant renders t for tool output.
func formatInstant(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(time.RFC3339)
}
