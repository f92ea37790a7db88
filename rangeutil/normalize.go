package rangeutil

import (
	"strings"
	"time"
)

// Options configure range resolution and description.
type Options struct {
	Location             *time.Location
	FiscalYearStartMonth time.Month
	DateMath             DateMath
	// QuickRanges are extra presets consulted before the built-in ones.
	QuickRanges []TimeOption
}

// Option configures Options.
type Option func(*Options)

// WithLocation sets the time zone used to resolve and format instants.
func WithLocation(loc *time.Location) Option {
	return func(o *Options) { o.Location = loc }
}

// WithFiscalYearStartMonth sets the first month of the fiscal year.
func WithFiscalYearStartMonth(m time.Month) Option {
	return func(o *Options) { o.FiscalYearStartMonth = m }
}

// WithDateMath replaces the default Grafana date math implementation.
func WithDateMath(dm DateMath) Option {
	return func(o *Options) { o.DateMath = dm }
}

// WithQuickRanges adds caller-defined presets to DescribeTimeRange.
func WithQuickRanges(opts []TimeOption) Option {
	return func(o *Options) { o.QuickRanges = opts }
}

func buildOptions(opts []Option) Options {
	o := Options{Location: time.UTC, DateMath: defaultDateMath}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.DateMath == nil {
		o.DateMath = defaultDateMath
	}
	return o
}

func (o Options) parse(rt RawTime, roundUp bool, now time.Time) (time.Time, bool) {
	if t, ok := rt.Time(); ok {
		return t, true
	}
	return o.DateMath.Parse(rt.String(), ParseOptions{
		RoundUp:              roundUp,
		Now:                  now,
		Location:             o.Location,
		FiscalYearStartMonth: o.FiscalYearStartMonth,
	})
}

// ConvertRawToRange resolves raw against now. From is rounded down and To is
// rounded up, so "now/d" to "now/d" covers the whole day. Sides that cannot
// be resolved are left as the zero time.
//
// Raw is kept on the result when either side is a date math expression;
// otherwise it is replaced by the two resolved instants.
func ConvertRawToRange(raw RawRange, now time.Time, opts ...Option) TimeRange {
	o := buildOptions(opts)
	from, _ := o.parse(raw.From, false, now)
	to, _ := o.parse(raw.To, true, now)

	if (!raw.From.IsInstant() && IsMathString(raw.From.String())) ||
		(!raw.To.IsInstant() && IsMathString(raw.To.String())) {
		return TimeRange{From: from, To: to, Raw: raw}
	}
	return TimeRange{From: from, To: to, Raw: RawRange{From: Instant(from), To: Instant(to)}}
}

// DescribeTimeRange returns a human readable label for raw. The first
// matching rule wins:
//
//  1. an exact preset (quick ranges first, then built-in)
//  2. both sides absolute: "<from> to <to>"
//  3. only from absolute: "<from> to <to as time ago>"
//  4. only to absolute: "<from as time ago> to <to>"
//  5. to is "now": DescribeTextRange(from)
//  6. "<from> to <to>" verbatim
//
// A relative side that cannot be resolved in rules 3 and 4 yields "".
func DescribeTimeRange(raw RawRange, now time.Time, opts ...Option) string {
	o := buildOptions(opts)
	from, to := raw.From.String(), raw.To.String()

	for _, opt := range o.QuickRanges {
		if opt.From == from && opt.To == to {
			return opt.Display
		}
	}
	if opt, ok := lookupPreset(from, to); ok {
		return opt.Display
	}

	fromTime, fromAbs := raw.From.Time()
	toTime, toAbs := raw.To.Time()
	switch {
	case fromAbs && toAbs:
		return o.DateMath.Format(fromTime, o.Location) + " to " + o.DateMath.Format(toTime, o.Location)
	case fromAbs:
		parsed, ok := o.parse(raw.To, true, now)
		if !ok {
			return ""
		}
		return o.DateMath.Format(fromTime, o.Location) + " to " + o.DateMath.FormatTimeAgo(parsed, now)
	case toAbs:
		parsed, ok := o.parse(raw.From, false, now)
		if !ok {
			return ""
		}
		return o.DateMath.FormatTimeAgo(parsed, now) + " to " + o.DateMath.Format(toTime, o.Location)
	case to == "now":
		return DescribeTextRange(from).Label()
	}
	return from + " to " + to
}

// IsValidTimeSpan reports whether value is a describable relative time span.
// Template variables ("$var", "+$var") are always valid.
func IsValidTimeSpan(value string) bool {
	if strings.HasPrefix(value, "$") || strings.HasPrefix(value, "+$") {
		return true
	}
	_, unparseable := DescribeTextRange(value).(Unparseable)
	return !unparseable
}

// IsFiscal reports whether either raw side of tr uses a fiscal unit.
func IsFiscal(tr TimeRange) bool {
	return isExprContaining(tr.Raw.From, "f") || isExprContaining(tr.Raw.To, "f")
}

// IsRelativeTimeRange reports whether either side of raw refers to "now".
func IsRelativeTimeRange(raw RawRange) bool {
	return isExprContaining(raw.From, "now") || isExprContaining(raw.To, "now")
}

func isExprContaining(rt RawTime, substr string) bool {
	return !rt.IsInstant() && strings.Contains(rt.String(), substr)
}
