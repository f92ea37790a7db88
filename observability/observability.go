// Package observability wires OpenTelemetry tracing and Prometheus metrics
// into the time range MCP server.
//
// Protocol metrics follow the OTel MCP semantic conventions (mcpconv).
// Domain metrics record the query steps handed out by calculate_interval.
// Tracing is configured with the standard OTEL_* environment variables.
package observability

import (
	"context"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
	"go.opentelemetry.io/otel/semconv/v1.39.0/mcpconv"
)

// Config holds configuration for observability features.
type Config struct {
	// MetricsEnabled serves Prometheus metrics at /metrics.
	MetricsEnabled bool

	// MetricsAddress moves /metrics to its own listener when set.
	MetricsAddress string

	// NetworkTransport is "pipe" for stdio and "tcp" for the HTTP transports.
	NetworkTransport mcpconv.NetworkTransportAttr

	ServerName    string
	ServerVersion string
}

// session tracks one client session. protocolVersion is set after
// initialize and read by request hooks on other goroutines.
type session struct {
	opened          time.Time
	protocolVersion atomic.Value
}

func (s *session) version() string {
	v, _ := s.protocolVersion.Load().(string)
	return v
}

// Observability owns the providers installed by Setup and the instruments
// recorded by the MCP hooks and the interval tools.
type Observability struct {
	meterProvider  *sdkmetric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	promHandler    http.Handler
	transport      mcpconv.NetworkTransportAttr

	operationDuration mcpconv.ServerOperationDuration
	sessionDuration   mcpconv.ServerSessionDuration
	intervalStep      metric.Float64Histogram

	inflight sync.Map // request ID -> time.Time
	sessions sync.Map // session ID -> *session
}

// Setup installs the global providers. Tracing is enabled when
// OTEL_EXPORTER_OTLP_ENDPOINT is set. With MetricsEnabled the MCP and
// interval instruments are created on a Prometheus-backed MeterProvider,
// which also becomes the global one for otelhttp.
func Setup(cfg Config) (*Observability, error) {
	obs := &Observability{transport: cfg.NetworkTransport}

	res, err := sdkresource.Merge(
		sdkresource.Default(),
		sdkresource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServerName),
			semconv.ServiceVersion(cfg.ServerVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "" {
		if err := obs.setupTracing(res); err != nil {
			return nil, err
		}
	}
	if cfg.MetricsEnabled {
		if err := obs.setupMetrics(res); err != nil {
			return nil, err
		}
	}
	return obs, nil
}

func (o *Observability) setupTracing(res *sdkresource.Resource) error {
	exporter, err := otlptracegrpc.New(context.Background())
	if err != nil {
		return err
	}
	o.tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(o.tracerProvider)
	return nil
}

// setupMetrics uses a private registry so repeated Setup calls never
// collide on collector registration.
func (o *Observability) setupMetrics(res *sdkresource.Resource) error {
	registry := promclient.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return err
	}

	o.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(o.meterProvider)
	o.promHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{EnableOpenMetrics: true})

	meter := o.meterProvider.Meter(meterName)
	if o.operationDuration, err = mcpconv.NewServerOperationDuration(meter, mcpHistogramBuckets); err != nil {
		return err
	}
	if o.sessionDuration, err = mcpconv.NewServerSessionDuration(meter, mcpHistogramBuckets); err != nil {
		return err
	}
	o.intervalStep, err = newIntervalStepHistogram(meter)
	return err
}

// Shutdown flushes and stops the providers started by Setup.
func (o *Observability) Shutdown(ctx context.Context) error {
	if o.tracerProvider != nil {
		if err := o.tracerProvider.Shutdown(ctx); err != nil {
			return err
		}
	}
	if o.meterProvider != nil {
		return o.meterProvider.Shutdown(ctx)
	}
	return nil
}

// MetricsHandler returns the Prometheus handler, or nil when metrics are
// disabled.
func (o *Observability) MetricsHandler() http.Handler {
	return o.promHandler
}

// WrapHandler instruments h with otelhttp; operation is the span name.
func WrapHandler(h http.Handler, operation string) http.Handler {
	return otelhttp.NewHandler(h, operation)
}

func (o *Observability) metricsEnabled() bool {
	return o.meterProvider != nil
}

// MCPHooks returns hooks recording MCP operation and session durations.
// Combine them with other hooks using MergeHooks.
func (o *Observability) MCPHooks() *server.Hooks {
	hooks := &server.Hooks{}
	if !o.metricsEnabled() {
		return hooks
	}
	hooks.AddOnRegisterSession(o.openSession)
	hooks.AddOnUnregisterSession(o.closeSession)
	hooks.AddAfterInitialize(o.negotiated)
	hooks.AddBeforeAny(o.beginRequest)
	hooks.AddOnSuccess(func(ctx context.Context, id any, method mcp.MCPMethod, message any, _ any) {
		o.endRequest(ctx, id, method, message, nil)
	})
	hooks.AddOnError(o.endRequest)
	return hooks
}

func (o *Observability) openSession(_ context.Context, cs server.ClientSession) {
	o.sessions.Store(cs.SessionID(), &session{opened: time.Now()})
}

func (o *Observability) closeSession(ctx context.Context, cs server.ClientSession) {
	v, ok := o.sessions.LoadAndDelete(cs.SessionID())
	if !ok {
		return
	}
	s := v.(*session)
	var attrs []attribute.KeyValue
	if o.transport != "" {
		attrs = append(attrs, o.sessionDuration.AttrNetworkTransport(o.transport))
	}
	if pv := s.version(); pv != "" {
		attrs = append(attrs, o.sessionDuration.AttrProtocolVersion(pv))
	}
	o.sessionDuration.Record(ctx, time.Since(s.opened).Seconds(), attrs...)
}

func (o *Observability) negotiated(ctx context.Context, _ any, _ *mcp.InitializeRequest, result *mcp.InitializeResult) {
	if result == nil {
		return
	}
	if s := o.sessionFor(ctx); s != nil {
		s.protocolVersion.Store(result.ProtocolVersion)
	}
}

func (o *Observability) beginRequest(_ context.Context, id any, _ mcp.MCPMethod, _ any) {
	o.inflight.Store(id, time.Now())
}

func (o *Observability) endRequest(ctx context.Context, id any, method mcp.MCPMethod, message any, err error) {
	started, ok := o.inflight.LoadAndDelete(id)
	if !ok {
		return
	}
	elapsed := time.Since(started.(time.Time)).Seconds()
	o.operationDuration.Record(ctx, elapsed, mcpconv.MethodNameAttr(method), o.operationAttrs(ctx, method, message, err)...)
}

func (o *Observability) sessionFor(ctx context.Context) *session {
	cs := server.ClientSessionFromContext(ctx)
	if cs == nil {
		return nil
	}
	v, ok := o.sessions.Load(cs.SessionID())
	if !ok {
		return nil
	}
	return v.(*session)
}

// operationAttrs leaves out mcp.session.id, which is unbounded and only
// goes on spans.
func (o *Observability) operationAttrs(ctx context.Context, method mcp.MCPMethod, message any, err error) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	if req, ok := message.(*mcp.CallToolRequest); ok && req != nil && method == mcp.MethodToolsCall {
		attrs = append(attrs, o.operationDuration.AttrGenAIToolName(req.Params.Name))
	}
	if err != nil {
		attrs = append(attrs, o.operationDuration.AttrErrorType(mcpconv.ErrorTypeAttr(errorTypeName(err))))
	}
	if o.transport != "" {
		attrs = append(attrs, o.operationDuration.AttrNetworkTransport(o.transport))
	}
	if s := o.sessionFor(ctx); s != nil {
		if pv := s.version(); pv != "" {
			attrs = append(attrs, o.operationDuration.AttrProtocolVersion(pv))
		}
	}
	return attrs
}

func errorTypeName(err error) string {
	if typed, ok := err.(interface{ ErrorType() string }); ok {
		return typed.ErrorType()
	}
	return "_OTHER"
}

// MergeHooks combines hooks, keeping every hook function of each.
func MergeHooks(hooks ...*server.Hooks) *server.Hooks {
	merged := &server.Hooks{}
	for _, h := range hooks {
		if h == nil {
			continue
		}
		merged.OnRegisterSession = append(merged.OnRegisterSession, h.OnRegisterSession...)
		merged.OnUnregisterSession = append(merged.OnUnregisterSession, h.OnUnregisterSession...)
		merged.OnBeforeAny = append(merged.OnBeforeAny, h.OnBeforeAny...)
		merged.OnSuccess = append(merged.OnSuccess, h.OnSuccess...)
		merged.OnError = append(merged.OnError, h.OnError...)
		merged.OnBeforeInitialize = append(merged.OnBeforeInitialize, h.OnBeforeInitialize...)
		merged.OnAfterInitialize = append(merged.OnAfterInitialize, h.OnAfterInitialize...)
		merged.OnBeforeListTools = append(merged.OnBeforeListTools, h.OnBeforeListTools...)
		merged.OnAfterListTools = append(merged.OnAfterListTools, h.OnAfterListTools...)
		merged.OnBeforeCallTool = append(merged.OnBeforeCallTool, h.OnBeforeCallTool...)
		merged.OnAfterCallTool = append(merged.OnAfterCallTool, h.OnAfterCallTool...)
	}
	return merged
}
