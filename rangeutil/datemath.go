package rangeutil

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/grafana/grafana-plugin-sdk-go/backend/gtime"
	"github.com/jszwedko/go-datemath"
)

// DisplayLayout is the layout used to render absolute instants.
const DisplayLayout = "2006-01-02 15:04:05"

// ParseOptions control how DateMath resolves an expression.
type ParseOptions struct {
	// RoundUp rounds "/unit" expressions to the end of the unit instead of
	// the start.
	RoundUp bool
	// Now is the reference instant for relative expressions.
	Now      time.Time
	Location *time.Location
	// FiscalYearStartMonth anchors "fy" and "fQ" units. Zero means January.
	FiscalYearStartMonth time.Month
}

// DateMath resolves and formats instants.
type DateMath interface {
	// Parse resolves expr to an instant. It returns false if expr cannot
	// be resolved.
	Parse(expr string, opts ParseOptions) (time.Time, bool)
	// Format renders t in loc.
	Format(t time.Time, loc *time.Location) string
	// FormatTimeAgo renders t relative to now, e.g. "3 hours ago".
	FormatTimeAgo(t, now time.Time) string
}

// GrafanaDateMath implements DateMath with Grafana's date math grammar.
// "now"-based expressions are evaluated by go-datemath; everything else
// (epoch milliseconds, RFC3339, plain dates, bare durations) by gtime.
type GrafanaDateMath struct{}

var defaultDateMath DateMath = GrafanaDateMath{}

func (GrafanaDateMath) Parse(expr string, opts ParseOptions) (time.Time, bool) {
	if expr == "" {
		return time.Time{}, false
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	if IsMathString(expr) {
		options := []func(*datemath.Options){
			datemath.WithNow(opts.Now),
			datemath.WithRoundUp(opts.RoundUp),
			datemath.WithLocation(loc),
		}
		if opts.FiscalYearStartMonth != 0 {
			fiscalStart := time.Date(1, opts.FiscalYearStartMonth, 1, 0, 0, 0, 0, loc)
			options = append(options, datemath.WithStartOfFiscalYear(fiscalStart))
		}
		t, err := datemath.ParseAndEvaluate(expr, options...)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}

	tr := gtime.TimeRange{Now: opts.Now}
	zone := gtime.WithLocation(loc)
	fiscal := gtime.WithFiscalStartMonth(fiscalMonthIndex(opts.FiscalYearStartMonth))
	var (
		t   time.Time
		err error
	)
	if opts.RoundUp {
		tr.To = expr
		t, err = tr.ParseTo(zone, fiscal)
	} else {
		tr.From = expr
		t, err = tr.ParseFrom(zone, fiscal)
	}
	if err != nil || t.IsZero() {
		return time.Time{}, false
	}
	return t, true
}

// fiscalMonthIndex converts m to the zero-based month gtime expects.
func fiscalMonthIndex(m time.Month) int {
	if m == 0 {
		return 0
	}
	return int(m) - 1
}

func (GrafanaDateMath) Format(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DisplayLayout)
}

func (GrafanaDateMath) FormatTimeAgo(t, now time.Time) string {
	return humanize.RelTime(t, now, "ago", "from now")
}

// IsMathString reports whether s is a date math expression rather than an
// absolute timestamp.
func IsMathString(s string) bool {
	return strings.HasPrefix(s, "now") || strings.Contains(s, "||")
}

// ParseRawTime turns user input into a RawTime. Absolute timestamps that
// gtime understands (RFC3339, dates, epoch milliseconds) become instants,
// resolved in opts.Location when they carry no zone. Expressions and bare
// durations such as "5m", "1d" or "+2w" are kept as they are.
func ParseRawTime(s string, opts ParseOptions) RawTime {
	if s == "" || IsMathString(s) || isDuration(s) {
		return Expr(s)
	}
	t, ok := defaultDateMath.Parse(s, ParseOptions{
		Now:                  opts.Now,
		Location:             opts.Location,
		FiscalYearStartMonth: opts.FiscalYearStartMonth,
	})
	if !ok {
		return Expr(s)
	}
	return Instant(t)
}

// isDuration reports whether s is a duration in any Grafana unit,
// optionally signed with a leading "+".
func isDuration(s string) bool {
	_, err := gtime.ParseDuration(strings.TrimPrefix(s, "+"))
	return err == nil
}
