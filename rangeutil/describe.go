package rangeutil

import (
	"strconv"
	"strings"
)

type span struct {
	display string
	section int
}

// spans lists the units a relative expression may be decomposed into.
// "m" is minutes and "M" is months.
var spans = map[byte]span{
	's': {display: "second", section: 3},
	'm': {display: "minute", section: 3},
	'h': {display: "hour", section: 3},
	'd': {display: "day", section: 3},
	'w': {display: "week", section: 3},
	'M': {display: "month", section: 3},
	'y': {display: "year", section: 3},
}

// Description is the result of DescribeTextRange: either Described or
// Unparseable.
type Description interface {
	// Option returns the description as a TimeOption. Unparseable
	// descriptions have Invalid set.
	Option() TimeOption
	// Label returns the human readable label.
	Label() string

	description()
}

// Described is a preset or a successfully decomposed expression.
type Described struct {
	TimeOption
}

func (d Described) Option() TimeOption { return d.TimeOption }
func (d Described) Label() string      { return d.Display }
func (Described) description()         {}

// Unparseable is an expression that matched no preset and could not be
// decomposed into now, sign, amount and unit.
type Unparseable struct {
	From string
	To   string
}

func (u Unparseable) Option() TimeOption {
	return TimeOption{From: u.From, To: u.To, Display: u.Label(), Invalid: true}
}
func (u Unparseable) Label() string { return u.From + " to " + u.To }
func (Unparseable) description()    {}

// relativeToken is a decomposed "now<sign><amount><unit>" expression.
type relativeToken struct {
	future bool
	amount int64
	unit   byte
}

// tokenizeRelative decomposes expr into a relativeToken. Text after the unit
// letter (e.g. a "/d" rounding suffix) is ignored.
func tokenizeRelative(expr string) (relativeToken, bool) {
	rest, ok := strings.CutPrefix(expr, "now")
	if !ok || rest == "" {
		return relativeToken{}, false
	}

	var tok relativeToken
	switch rest[0] {
	case '-':
	case '+':
		tok.future = true
	default:
		return relativeToken{}, false
	}
	rest = rest[1:]

	n := 0
	for n < len(rest) && rest[n] >= '0' && rest[n] <= '9' {
		n++
	}
	if n == 0 || n == len(rest) {
		return relativeToken{}, false
	}
	amount, err := strconv.ParseInt(rest[:n], 10, 64)
	if err != nil {
		return relativeToken{}, false
	}
	tok.amount = amount

	tok.unit = rest[n]
	if _, ok := spans[tok.unit]; !ok {
		return relativeToken{}, false
	}
	return tok, true
}

// DescribeTextRange describes a single relative expression. A bare duration
// such as "5m" means "now-5m to now"; a leading "+" ("+5m") means
// "now to now+5m". Expressions containing "now" are used as is and always
// end at now, so "now+5m" is labelled "Last 5 minutes" like in Grafana.
//
// Exact preset matches return the preset's label. Otherwise the expression
// is decomposed into "Last|Next <amount> <unit>"; if that fails the result
// is Unparseable.
func DescribeTextRange(expr string) Description {
	isLast := !strings.HasPrefix(expr, "+")
	if !strings.Contains(expr, "now") {
		if isLast {
			expr = "now-" + expr
		} else {
			expr = "now" + expr
		}
	}

	if opt, ok := lookupPreset(expr, "now"); ok {
		return Described{opt}
	}
	if !isLast {
		if opt, ok := lookupPreset("now", expr); ok {
			return Described{opt}
		}
	}

	opt := TimeOption{From: expr, To: "now"}
	if !isLast {
		opt = TimeOption{From: "now", To: expr}
	}

	tok, ok := tokenizeRelative(expr)
	if !ok {
		return Unparseable{From: opt.From, To: opt.To}
	}

	s := spans[tok.unit]
	var b strings.Builder
	if isLast {
		b.WriteString("Last ")
	} else {
		b.WriteString("Next ")
	}
	b.WriteString(strconv.FormatInt(tok.amount, 10))
	b.WriteByte(' ')
	b.WriteString(s.display)
	if tok.amount > 1 {
		b.WriteByte('s')
	}
	opt.Display = b.String()
	opt.Section = s.section
	return Described{opt}
}
