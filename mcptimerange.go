// Package mcptimerange exposes Grafana-style time range and query interval
// computations as MCP tools.
package mcptimerange

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/grafana/mcp-timerange/rangeutil"
)

const (
	timeZoneEnvVar             = "MCP_TIMERANGE_TIMEZONE"
	fiscalYearStartMonthEnvVar = "MCP_TIMERANGE_FISCAL_YEAR_START_MONTH"

	timeZoneHeader = "X-Timezone"
)

// ToolAdder is implemented by anything tools can be registered with: an
// *server.MCPServer in server mode and a *ToolCollector in CLI mode.
type ToolAdder interface {
	AddTool(tool mcp.Tool, handler server.ToolHandlerFunc)
}

// IntervalRecorder receives the query steps computed by calculate_interval.
// *observability.Observability implements it.
type IntervalRecorder interface {
	RecordInterval(ctx context.Context, intervalMs int64, lowLimited bool)
}

// Config holds the settings tool handlers resolve time ranges with.
type Config struct {
	// IncludeArgumentsInSpans adds the raw tool arguments to trace spans.
	IncludeArgumentsInSpans bool

	// Location is the default time zone for resolving and formatting
	// instants. Nil means UTC.
	Location *time.Location

	// FiscalYearStartMonth anchors fiscal units. Zero means January.
	FiscalYearStartMonth time.Month

	// QuickRanges are extra presets loaded from a file.
	QuickRanges []rangeutil.TimeOption

	// Now returns the reference instant. Nil means time.Now.
	Now func() time.Time

	// Intervals records computed query steps. Nil disables recording.
	Intervals IntervalRecorder
}

// ReferenceTime returns the current reference instant.
func (c Config) ReferenceTime() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// RangeOptions returns the rangeutil options implied by c.
func (c Config) RangeOptions() []rangeutil.Option {
	opts := []rangeutil.Option{
		rangeutil.WithLocation(c.Location),
		rangeutil.WithFiscalYearStartMonth(c.FiscalYearStartMonth),
	}
	if len(c.QuickRanges) > 0 {
		opts = append(opts, rangeutil.WithQuickRanges(c.QuickRanges))
	}
	return opts
}

// ConfigFromEnv reads the default time zone and fiscal year start month
// from the environment.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if tz := os.Getenv(timeZoneEnvVar); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", timeZoneEnvVar, err)
		}
		cfg.Location = loc
	}
	if m := os.Getenv(fiscalYearStartMonthEnvVar); m != "" {
		month, err := ParseMonth(m)
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", fiscalYearStartMonthEnvVar, err)
		}
		cfg.FiscalYearStartMonth = month
	}
	return cfg, nil
}

// ParseMonth parses a month number between 1 and 12.
func ParseMonth(s string) (time.Month, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid month %q: %w", s, err)
	}
	if n < 1 || n > 12 {
		return 0, fmt.Errorf("invalid month %d: must be between 1 and 12", n)
	}
	return time.Month(n), nil
}

type configKey struct{}

// WithConfig returns a context carrying cfg.
func WithConfig(ctx context.Context, cfg Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// ConfigFromContext returns the Config stored in ctx, or the zero Config.
func ConfigFromContext(ctx context.Context) Config {
	if cfg, ok := ctx.Value(configKey{}).(Config); ok {
		return cfg
	}
	return Config{}
}

// ComposedContextFunc returns a function that attaches cfg to a context.
// It is used for stdio transports and CLI mode.
func ComposedContextFunc(cfg Config) server.StdioContextFunc {
	return func(ctx context.Context) context.Context {
		return WithConfig(ctx, cfg)
	}
}

// HTTPContextFunc returns a function that attaches cfg to a request
// context. An X-Timezone header overrides cfg.Location for that request;
// unknown zones are ignored.
func HTTPContextFunc(cfg Config) func(ctx context.Context, req *http.Request) context.Context {
	return func(ctx context.Context, req *http.Request) context.Context {
		reqCfg := cfg
		if tz := req.Header.Get(timeZoneHeader); tz != "" {
			loc, err := time.LoadLocation(tz)
			if err != nil {
				slog.Warn("Ignoring invalid time zone header", "header", timeZoneHeader, "value", tz, "error", err)
			} else {
				reqCfg.Location = loc
			}
		}
		return WithConfig(ctx, reqCfg)
	}
}
