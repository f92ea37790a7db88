package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	mcptimerange "github.com/grafana/mcp-timerange"
	"github.com/grafana/mcp-timerange/rangeutil"
)

type DescribeTimeRangeParams struct {
	From string `json:"from" jsonschema:"required,description=Start of the range: a date math expression (e.g. 'now-6h'\\, 'now/d') or an absolute time (RFC3339\\, YYYY-MM-DD or epoch milliseconds)"`
	To   string `json:"to" jsonschema:"required,description=End of the range\\, in the same formats as 'from' (e.g. 'now')"`
	TimeContext
}

type TimeRangeDescription struct {
	Display  string `json:"display"`
	Relative bool   `json:"relative"`
	Fiscal   bool   `json:"fiscal"`
}

func describeTimeRange(ctx context.Context, args DescribeTimeRangeParams) (*TimeRangeDescription, error) {
	cfg, now, err := args.resolve(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := rawRange(cfg, args.From, args.To, now)
	if err != nil {
		return nil, err
	}
	opts := cfg.RangeOptions()
	tr := rangeutil.ConvertRawToRange(raw, now, opts...)
	relative := rangeutil.IsRelativeTimeRange(raw)
	mcptimerange.AnnotateSpan(ctx, mcptimerange.RangeRelativeKey.Bool(relative))
	return &TimeRangeDescription{
		Display:  rangeutil.DescribeTimeRange(raw, now, opts...),
		Relative: relative,
		Fiscal:   rangeutil.IsFiscal(tr),
	}, nil
}

var DescribeTimeRange = mcptimerange.MustTool(
	"describe_time_range",
	"Describe a time range the way Grafana's time picker labels it. Returns the label (e.g. 'Last 6 hours'\\, 'Today so far'\\, '2024-01-01 00:00:00 to 2024-01-02 00:00:00') and whether the range is relative to now or uses fiscal units.",
	describeTimeRange,
	mcp.WithTitleAnnotation("Describe time range"),
	mcp.WithIdempotentHintAnnotation(true),
	mcp.WithReadOnlyHintAnnotation(true),
)

type DescribeTextRangeParams struct {
	Expression string `json:"expression" jsonschema:"required,description=A single relative expression. '5m' means the last 5 minutes\\, '+5m' the next 5 minutes; expressions containing 'now' (e.g. 'now-2d'\\, 'now/w') are used as is"`
}

type TextRangeDescription struct {
	rangeutil.TimeOption
	Valid bool `json:"valid"`
}

func describeTextRange(ctx context.Context, args DescribeTextRangeParams) (*TextRangeDescription, error) {
	if args.Expression == "" {
		return nil, fmt.Errorf("expression is required")
	}
	d := rangeutil.DescribeTextRange(args.Expression)
	_, unparseable := d.(rangeutil.Unparseable)
	mcptimerange.AnnotateSpan(ctx, mcptimerange.RangeInvalidKey.Bool(unparseable))
	return &TextRangeDescription{TimeOption: d.Option(), Valid: !unparseable}, nil
}

var DescribeTextRange = mcptimerange.MustTool(
	"describe_text_range",
	"Expand a single relative expression into a from/to pair with a label such as 'Last 5 minutes' or 'Next 2 days'. Expressions that cannot be decomposed are returned with valid=false.",
	describeTextRange,
	mcp.WithTitleAnnotation("Describe relative expression"),
	mcp.WithIdempotentHintAnnotation(true),
	mcp.WithReadOnlyHintAnnotation(true),
)

type ResolveTimeRangeParams struct {
	From string `json:"from" jsonschema:"required,description=Start of the range (e.g. 'now-7d/d' or '2024-01-01T00:00:00Z')"`
	To   string `json:"to" jsonschema:"required,description=End of the range (e.g. 'now/d' or '2024-01-02T00:00:00Z')"`
	TimeContext
}

// ResolvedTimeRange is a TimeRange rendered for tool output.
type ResolvedTimeRange struct {
	From   string             `json:"from"`
	To     string             `json:"to"`
	FromMs int64              `json:"fromMs"`
	ToMs   int64              `json:"toMs"`
	Raw    rangeutil.RawRange `json:"raw"`
	// Duration is the length of the range, e.g. "1h 30min".
	Duration string `json:"duration"`
}

func newResolvedTimeRange(tr rangeutil.TimeRange, cfg mcptimerange.Config) *ResolvedTimeRange {
	return &ResolvedTimeRange{
		From:     formatInstant(tr.From, cfg.Location),
		To:       formatInstant(tr.To, cfg.Location),
		FromMs:   tr.From.UnixMilli(),
		ToMs:     tr.To.UnixMilli(),
		Raw:      tr.Raw,
		Duration: rangeutil.MsRangeToTimeString(tr.To.Sub(tr.From).Milliseconds()),
	}
}

func resolveTimeRange(ctx context.Context, args ResolveTimeRangeParams) (*ResolvedTimeRange, error) {
	cfg, now, err := args.resolve(ctx)
	if err != nil {
		return nil, err
	}
	tr, err := resolveRange(cfg, args.From, args.To, now)
	if err != nil {
		return nil, err
	}
	return newResolvedTimeRange(tr, cfg), nil
}

var ResolveTimeRange = mcptimerange.MustTool(
	"resolve_time_range",
	"Resolve a time range to absolute instants and its length. 'from' is rounded down and 'to' is rounded up\\, so 'now/d' to 'now/d' covers the whole current day. The raw expressions are kept when either side is relative.",
	resolveTimeRange,
	mcp.WithTitleAnnotation("Resolve time range"),
	mcp.WithIdempotentHintAnnotation(true),
	mcp.WithReadOnlyHintAnnotation(true),
)

type ValidateTimeSpanParams struct {
	Value string `json:"value" jsonschema:"required,description=A relative time span such as '5m'\\, '+2d' or 'now-1h'. Template variables ('$interval') are always valid"`
}

type TimeSpanValidation struct {
	Value string `json:"value"`
	Valid bool   `json:"valid"`
}

func validateTimeSpan(ctx context.Context, args ValidateTimeSpanParams) (*TimeSpanValidation, error) {
	return &TimeSpanValidation{Value: args.Value, Valid: rangeutil.IsValidTimeSpan(args.Value)}, nil
}

var ValidateTimeSpan = mcptimerange.MustTool(
	"validate_time_span",
	"Check whether a relative time span can be described\\, e.g. for a panel's relative time or time shift setting.",
	validateTimeSpan,
	mcp.WithTitleAnnotation("Validate time span"),
	mcp.WithIdempotentHintAnnotation(true),
	mcp.WithReadOnlyHintAnnotation(true),
)

type ListTimeRangePresetsParams struct {
	IncludeHidden bool `json:"includeHidden,omitempty" jsonschema:"description=Also list the 'Next ...' presets that the time picker does not show"`
}

type TimeRangePreset struct {
	rangeutil.TimeOption
	Source string `json:"source"`
}

const (
	presetSourceQuickRange = "quick_range"
	presetSourceBuiltin    = "builtin"
	presetSourceHidden     = "hidden"
)

func listTimeRangePresets(ctx context.Context, args ListTimeRangePresetsParams) ([]TimeRangePreset, error) {
	cfg := mcptimerange.ConfigFromContext(ctx)
	var presets []TimeRangePreset
	for _, opt := range cfg.QuickRanges {
		presets = append(presets, TimeRangePreset{TimeOption: opt, Source: presetSourceQuickRange})
	}
	for _, opt := range rangeutil.RangeOptions() {
		presets = append(presets, TimeRangePreset{TimeOption: opt, Source: presetSourceBuiltin})
	}
	if args.IncludeHidden {
		for _, opt := range rangeutil.HiddenRangeOptions() {
			presets = append(presets, TimeRangePreset{TimeOption: opt, Source: presetSourceHidden})
		}
	}
	return presets, nil
}

var ListTimeRangePresets = mcptimerange.MustTool(
	"list_time_range_presets",
	"List the named time ranges (e.g. 'Last 24 hours'\\, 'This week so far'\\, 'Previous fiscal quarter') with their from/to expressions. Quick ranges configured on the server are listed first.",
	listTimeRangePresets,
	mcp.WithTitleAnnotation("List time range presets"),
	mcp.WithIdempotentHintAnnotation(true),
	mcp.WithReadOnlyHintAnnotation(true),
)

type TimeRangeToRelativeParams struct {
	From string `json:"from" jsonschema:"required,description=Start of the range"`
	To   string `json:"to" jsonschema:"required,description=End of the range"`
	TimeContext
}

func timeRangeToRelative(ctx context.Context, args TimeRangeToRelativeParams) (*rangeutil.RelativeTimeRange, error) {
	cfg, now, err := args.resolve(ctx)
	if err != nil {
		return nil, err
	}
	now = now.Truncate(time.Second)
	tr, err := resolveRange(cfg, args.From, args.To, now)
	if err != nil {
		return nil, err
	}
	rel := rangeutil.TimeRangeToRelative(tr, now)
	return &rel, nil
}

var TimeRangeToRelative = mcptimerange.MustTool(
	"time_range_to_relative",
	"Express a time range as whole seconds before the reference time\\, as used by alert rule queries. Future instants give negative values. The reference time is truncated to whole seconds.",
	timeRangeToRelative,
	mcp.WithTitleAnnotation("Convert time range to relative"),
	mcp.WithIdempotentHintAnnotation(true),
	mcp.WithReadOnlyHintAnnotation(true),
)

type RelativeToTimeRangeParams struct {
	From int64 `json:"from" jsonschema:"required,description=Seconds before the reference time at which the range starts"`
	To   int64 `json:"to,omitempty" jsonschema:"description=Seconds before the reference time at which the range ends. 0 means the reference time itself"`
	TimeContext
}

func relativeToTimeRange(ctx context.Context, args RelativeToTimeRangeParams) (*ResolvedTimeRange, error) {
	cfg, now, err := args.resolve(ctx)
	if err != nil {
		return nil, err
	}
	now = now.Truncate(time.Second)
	tr := rangeutil.RelativeToTimeRange(rangeutil.RelativeTimeRange{From: args.From, To: args.To}, now)
	return newResolvedTimeRange(tr, cfg), nil
}

var RelativeToTimeRange = mcptimerange.MustTool(
	"relative_to_time_range",
	"Anchor a relative range (seconds before the reference time) to absolute instants. The reference time is truncated to whole seconds\\, so converting a range to relative and back with the same reference time is exact.",
	relativeToTimeRange,
	mcp.WithTitleAnnotation("Convert relative range to time range"),
	mcp.WithIdempotentHintAnnotation(true),
	mcp.WithReadOnlyHintAnnotation(true),
)

func AddTimeRangeTools(adder mcptimerange.ToolAdder) {
	DescribeTimeRange.Register(adder)
	DescribeTextRange.Register(adder)
	ResolveTimeRange.Register(adder)
	ValidateTimeSpan.Register(adder)
	ListTimeRangePresets.Register(adder)
	TimeRangeToRelative.Register(adder)
	RelativeToTimeRange.Register(adder)
}
