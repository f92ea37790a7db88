// Package rangeutil resolves, describes and sizes dashboard time ranges.
//
// It understands Grafana-style relative expressions ("now-1h", "now/d",
// "now-1M/M"), turns them into concrete instants through a DateMath
// implementation, produces human readable labels for them, derives "nice"
// query step intervals and converts between absolute ranges and the
// "seconds before now" form used by alert rules.
//
// Every function in this package is pure: the reference instant is always
// passed in explicitly and the preset tables are read-only after init.
package rangeutil

import (
	"encoding/json"
	"time"
)

// RawTime is one side of a raw time range. It holds either a relative
// expression such as "now-6h" or an absolute instant.
type RawTime struct {
	expr    string
	instant time.Time
	isTime  bool
}

// Expr returns a RawTime holding the expression s.
func Expr(s string) RawTime {
	return RawTime{expr: s}
}

// Instant returns a RawTime holding the absolute instant t.
func Instant(t time.Time) RawTime {
	return RawTime{instant: t, isTime: true}
}

// IsInstant reports whether r holds an absolute instant.
func (r RawTime) IsInstant() bool {
	return r.isTime
}

// Time returns the instant held by r and whether r holds one.
func (r RawTime) Time() (time.Time, bool) {
	return r.instant, r.isTime
}

// String returns the expression, or the instant in RFC3339 with
// millisecond precision.
func (r RawTime) String() string {
	if r.isTime {
		return r.instant.UTC().Format(rfc3339Milli)
	}
	return r.expr
}

// MarshalJSON encodes r as a JSON string.
func (r RawTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON decodes r from a JSON string, keeping it as an expression.
// Use ParseRawTime to promote absolute timestamps to instants.
func (r *RawTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*r = Expr(s)
	return nil
}

const rfc3339Milli = "2006-01-02T15:04:05.000Z07:00"

// RawRange is an unresolved time range as entered by a user.
type RawRange struct {
	From RawTime `json:"from"`
	To   RawTime `json:"to"`
}

// NewRawRange builds a RawRange from two expressions.
func NewRawRange(from, to string) RawRange {
	return RawRange{From: Expr(from), To: Expr(to)}
}

// String returns the "<from> to <to>" key used by the preset tables.
func (r RawRange) String() string {
	return r.From.String() + " to " + r.To.String()
}

// TimeRange is a resolved time range. Raw keeps the original expressions
// when either side was relative, so the range can be re-evaluated against
// a later reference instant. From is not guaranteed to precede To.
type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
	Raw  RawRange  `json:"raw"`
}

// TimeOption is a described time range, either a preset or a decomposed
// ad hoc expression.
type TimeOption struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Display string `json:"display"`
	Section int    `json:"section,omitempty"`
	Invalid bool   `json:"invalid,omitempty"`
}

// IntervalSpec is a parsed duration string such as "5m".
type IntervalSpec struct {
	// Sec is the number of seconds in one Type unit.
	Sec   float64 `json:"sec"`
	Type  string  `json:"type"`
	Count int64   `json:"count"`
}

// IntervalValues is a computed query step.
type IntervalValues struct {
	IntervalMs int64  `json:"intervalMs"`
	Interval   string `json:"interval"`
}

// RelativeTimeRange is a range expressed as seconds before a reference
// instant. To == 0 means exactly the reference instant.
type RelativeTimeRange struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}
