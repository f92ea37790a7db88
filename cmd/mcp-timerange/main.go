package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/semconv/v1.39.0/mcpconv"

	mcptimerange "github.com/grafana/mcp-timerange"
	"github.com/grafana/mcp-timerange/observability"
	"github.com/grafana/mcp-timerange/tools"
)

const (
	serverName          = "mcp-timerange"
	defaultEnabledTools = "timerange,interval"
)

func version() string {
	info, ok := debug.ReadBuildInfo()
	if !ok || info.Main.Version == "" {
		return "(devel)"
	}
	return info.Main.Version
}

type enabledTools struct {
	categories string
}

func (et *enabledTools) addFlags(fs *flag.FlagSet) {
	fs.StringVar(&et.categories, "enabled-tools", defaultEnabledTools, "Comma-separated list of tool categories to enable ("+strings.Join(tools.Categories, ", ")+")")
}

func (et *enabledTools) list() []string {
	var out []string
	for _, c := range strings.Split(et.categories, ",") {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// timeRangeConfig holds the flags that control how expressions resolve.
type timeRangeConfig struct {
	timeZone                string
	fiscalYearStartMonth    int
	quickRangesFile         string
	includeArgumentsInSpans bool
}

func (tc *timeRangeConfig) addFlags(fs *flag.FlagSet) {
	fs.StringVar(&tc.timeZone, "timezone", "", "Default IANA time zone for resolving and displaying times. Overrides MCP_TIMERANGE_TIMEZONE")
	fs.IntVar(&tc.fiscalYearStartMonth, "fiscal-year-start-month", 0, "First month of the fiscal year (1-12). Overrides MCP_TIMERANGE_FISCAL_YEAR_START_MONTH")
	fs.StringVar(&tc.quickRangesFile, "quick-ranges-file", "", "YAML file with additional named time ranges")
	fs.BoolVar(&tc.includeArgumentsInSpans, "include-arguments-in-spans", false, "Include tool arguments in trace spans")
}

func (tc *timeRangeConfig) toConfig() (mcptimerange.Config, error) {
	cfg, err := mcptimerange.ConfigFromEnv()
	if err != nil {
		return cfg, err
	}
	cfg.IncludeArgumentsInSpans = tc.includeArgumentsInSpans
	if tc.timeZone != "" {
		loc, err := time.LoadLocation(tc.timeZone)
		if err != nil {
			return cfg, fmt.Errorf("--timezone: %w", err)
		}
		cfg.Location = loc
	}
	if tc.fiscalYearStartMonth != 0 {
		month, err := mcptimerange.ParseMonth(strconv.Itoa(tc.fiscalYearStartMonth))
		if err != nil {
			return cfg, fmt.Errorf("--fiscal-year-start-month: %w", err)
		}
		cfg.FiscalYearStartMonth = month
	}
	if tc.quickRangesFile != "" {
		opts, err := tools.LoadQuickRanges(tc.quickRangesFile)
		if err != nil {
			return cfg, err
		}
		cfg.QuickRanges = opts
		slog.Debug("Loaded quick ranges", "file", tc.quickRangesFile, "count", len(opts))
	}
	return cfg, nil
}

func newServer(et enabledTools, obs *observability.Observability) *server.MCPServer {
	s := server.NewMCPServer(serverName, version(),
		server.WithInstructions(`
This server describes and resolves Grafana-style time ranges and computes query intervals.

Time range tools:
- Describe a range as the time picker labels it: describe_time_range, describe_text_range
- Resolve expressions such as 'now-7d/d' to absolute instants: resolve_time_range
- Check relative time spans and list the named presets: validate_time_span, list_time_range_presets
- Convert between absolute ranges and seconds-before-now: time_range_to_relative, relative_to_time_range

Interval tools:
- Parse a duration string such as '5m' or '1M': parse_interval
- Compute the query step for a range and a number of points: calculate_interval

Note that 'm' is minutes and 'M' is months. Months are 30 days and years 365 days.
`),
		server.WithToolCapabilities(true),
		server.WithHooks(observability.MergeHooks(obs.MCPHooks())),
	)
	tools.CollectAllTools(s, et.list())
	return s
}

type httpConfig struct {
	address        string
	basePath       string
	endpointPath   string
	metricsAddress string
}

// serveHTTP serves handler on addr until ctx is cancelled. Metrics are
// served on the same mux unless a separate metrics address is set.
func serveHTTP(ctx context.Context, hc httpConfig, pattern string, handler http.Handler, obs *observability.Observability) error {
	mux := http.NewServeMux()
	mux.Handle(pattern, observability.WrapHandler(handler, "mcp"))

	servers := []*http.Server{{Addr: hc.address, Handler: mux}}
	if metrics := obs.MetricsHandler(); metrics != nil {
		if hc.metricsAddress == "" {
			mux.Handle("/metrics", metrics)
		} else {
			metricsMux := http.NewServeMux()
			metricsMux.Handle("/metrics", metrics)
			servers = append(servers, &http.Server{Addr: hc.metricsAddress, Handler: metricsMux})
		}
	}

	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		go func(srv *http.Server) {
			slog.Info("Listening", "address", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}(srv)
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Error shutting down server", "address", srv.Addr, "error", err)
		}
	}
	return nil
}

func run(transport string, hc httpConfig, level slog.Level, et enabledTools, tc timeRangeConfig, metrics bool) error {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg, err := tc.toConfig()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	networkTransport := mcpconv.NetworkTransportAttr("tcp")
	if transport == "stdio" {
		networkTransport = mcpconv.NetworkTransportAttr("pipe")
	}
	obs, err := observability.Setup(observability.Config{
		MetricsEnabled:   metrics,
		MetricsAddress:   hc.metricsAddress,
		NetworkTransport: networkTransport,
		ServerName:       serverName,
		ServerVersion:    version(),
	})
	if err != nil {
		return fmt.Errorf("setup observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := obs.Shutdown(shutdownCtx); err != nil {
			slog.Error("Error shutting down observability", "error", err)
		}
	}()
	cfg.Intervals = obs

	s := newServer(et, obs)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch transport {
	case "stdio":
		srv := server.NewStdioServer(s)
		srv.SetContextFunc(mcptimerange.ComposedContextFunc(cfg))
		slog.Info("Starting MCP server using stdio transport", "version", version())
		if err := srv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case "sse":
		srv := server.NewSSEServer(s,
			server.WithSSEContextFunc(mcptimerange.HTTPContextFunc(cfg)),
			server.WithStaticBasePath(hc.basePath),
		)
		slog.Info("Starting MCP server using SSE transport", "version", version(), "address", hc.address, "basePath", hc.basePath)
		return serveHTTP(ctx, hc, "/", srv, obs)
	case "streamable-http":
		srv := server.NewStreamableHTTPServer(s,
			server.WithHTTPContextFunc(mcptimerange.HTTPContextFunc(cfg)),
			server.WithEndpointPath(hc.endpointPath),
		)
		slog.Info("Starting MCP server using StreamableHTTP transport", "version", version(), "address", hc.address, "endpointPath", hc.endpointPath)
		return serveHTTP(ctx, hc, hc.endpointPath, srv, obs)
	default:
		return fmt.Errorf("invalid transport type: %s. Must be 'stdio', 'sse' or 'streamable-http'", transport)
	}
}

func main() {
	if len(os.Args) > 1 && os.Args[1] == "cli" {
		os.Exit(runCLI(os.Args[2:]))
	}

	var (
		transport string
		hc        httpConfig
		debugLog  bool
		metrics   bool
		showVer   bool
		et        enabledTools
		tc        timeRangeConfig
	)
	flag.StringVar(&transport, "t", "stdio", "Transport type (stdio, sse or streamable-http)")
	flag.StringVar(&transport, "transport", "stdio", "Transport type (stdio, sse or streamable-http)")
	flag.StringVar(&hc.address, "address", "localhost:8000", "The host and port to start the sse or streamable-http server on")
	flag.StringVar(&hc.basePath, "base-path", "", "Base path for the sse server")
	flag.StringVar(&hc.endpointPath, "endpoint-path", "/mcp", "Endpoint path for the streamable-http server")
	flag.StringVar(&hc.metricsAddress, "metrics-address", "", "Separate address for the metrics server. Defaults to the main server")
	flag.BoolVar(&debugLog, "debug", false, "Enable debug logging")
	flag.BoolVar(&metrics, "metrics", false, "Enable Prometheus metrics at /metrics")
	flag.BoolVar(&showVer, "version", false, "Print the version and exit")
	et.addFlags(flag.CommandLine)
	tc.addFlags(flag.CommandLine)
	flag.Parse()

	if showVer {
		fmt.Println(version())
		os.Exit(0)
	}

	level := slog.LevelInfo
	if debugLog {
		level = slog.LevelDebug
	}
	if err := run(transport, hc, level, et, tc, metrics); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
