package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/prometheus/common/model"

	mcptimerange "github.com/grafana/mcp-timerange"
	"github.com/grafana/mcp-timerange/rangeutil"
)

type ParseIntervalParams struct {
	Interval string `json:"interval" jsonschema:"required,description=A duration such as '30s'\\, '5m'\\, '1M' or '100ms'. Unit-less numbers are seconds. 'm' is minutes and 'M' is months"`
}

type ParsedInterval struct {
	rangeutil.IntervalSpec
	Seconds      float64 `json:"seconds"`
	Milliseconds int64   `json:"milliseconds"`
}

func parseInterval(ctx context.Context, args ParseIntervalParams) (*mcp.CallToolResult, error) {
	spec, err := rangeutil.DescribeInterval(args.Interval)
	if err != nil {
		return intervalErrorResult(err, "interval")
	}
	ms, err := rangeutil.IntervalToMs(args.Interval)
	if err != nil {
		return intervalErrorResult(err, "interval")
	}
	return jsonResult(ParsedInterval{
		IntervalSpec: spec,
		Seconds:      spec.Sec * float64(spec.Count),
		Milliseconds: ms,
	})
}

var ParseInterval = mcptimerange.MustTool(
	"parse_interval",
	"Parse a Grafana duration string into its unit\\, count and length in seconds and milliseconds. Months and years use fixed lengths (30 and 365 days).",
	parseInterval,
	mcp.WithTitleAnnotation("Parse interval"),
	mcp.WithIdempotentHintAnnotation(true),
	mcp.WithReadOnlyHintAnnotation(true),
)

type CalculateIntervalParams struct {
	From             string `json:"from" jsonschema:"required,description=Start of the query range (e.g. 'now-6h')"`
	To               string `json:"to" jsonschema:"required,description=End of the query range (e.g. 'now')"`
	Resolution       int64  `json:"resolution" jsonschema:"required,description=Target number of data points\\, usually the panel width in pixels"`
	LowLimitInterval string `json:"lowLimitInterval,omitempty" jsonschema:"description=Minimum interval (e.g. '15s' for a datasource scrape interval)"`
	TimeContext
}

type CalculatedInterval struct {
	rangeutil.IntervalValues
	// Step is the interval as a Prometheus duration.
	Step       string `json:"step"`
	LowLimited bool   `json:"lowLimited"`
}

func calculateInterval(ctx context.Context, args CalculateIntervalParams) (*mcp.CallToolResult, error) {
	cfg, now, err := args.resolve(ctx)
	if err != nil {
		return nil, err
	}
	tr, err := resolveRange(cfg, args.From, args.To, now)
	if err != nil {
		return nil, err
	}
	values, err := rangeutil.CalculateInterval(tr, args.Resolution, args.LowLimitInterval)
	if err != nil {
		return intervalErrorResult(err, "lowLimitInterval")
	}

	lowLimited := false
	if args.LowLimitInterval != "" {
		lowLimitMs, err := rangeutil.IntervalToMs(args.LowLimitInterval)
		if err != nil {
			return intervalErrorResult(err, "lowLimitInterval")
		}
		lowLimited = values.IntervalMs == lowLimitMs && lowLimitMs > rangeutil.RoundInterval(tr.To.Sub(tr.From).Milliseconds()/args.Resolution)
	}
	mcptimerange.AnnotateSpan(ctx,
		mcptimerange.IntervalMsKey.Int64(values.IntervalMs),
		mcptimerange.IntervalLowLimitedKey.Bool(lowLimited),
	)
	if cfg.Intervals != nil {
		cfg.Intervals.RecordInterval(ctx, values.IntervalMs, lowLimited)
	}

	return jsonResult(CalculatedInterval{
		IntervalValues: values,
		Step:           model.Duration(time.Duration(values.IntervalMs) * time.Millisecond).String(),
		LowLimited:     lowLimited,
	})
}

var CalculateInterval = mcptimerange.MustTool(
	"calculate_interval",
	"Calculate the query step Grafana would use for a time range so that about 'resolution' points are returned. The step is snapped to a ladder of round values (1ms\\, 10ms\\, ...\\, 1s\\, 5s\\, 10s\\, 15s\\, 20s\\, 30s\\, 1m\\, ...\\, 1y) and never goes below 'lowLimitInterval'.",
	calculateInterval,
	mcp.WithTitleAnnotation("Calculate query interval"),
	mcp.WithIdempotentHintAnnotation(true),
	mcp.WithReadOnlyHintAnnotation(true),
)

func AddIntervalTools(adder mcptimerange.ToolAdder) {
	ParseInterval.Register(adder)
	CalculateInterval.Register(adder)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}
