package mcptimerange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/invopop/jsonschema"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "mcp-timerange"

// Span attributes describing what a tool call resolved.
const (
	ToolCategoryKey       = attribute.Key("mcp_timerange.tool.category")
	RangeRelativeKey      = attribute.Key("mcp_timerange.range.relative")
	RangeInvalidKey       = attribute.Key("mcp_timerange.range.invalid")
	IntervalMsKey         = attribute.Key("mcp_timerange.interval.ms")
	IntervalLowLimitedKey = attribute.Key("mcp_timerange.interval.low_limited")
)

var (
	contextType = reflect.TypeFor[context.Context]()
	errorType   = reflect.TypeFor[error]()
)

// Tool pairs an MCP tool definition with its handler.
// Create one with MustTool for package-level definitions, or ConvertTool
// when creation errors must be handled.
type Tool struct {
	Tool    mcp.Tool
	Handler server.ToolHandlerFunc
}

// HardError marks an error that must surface as a JSON-RPC protocol error
// instead of a CallToolResult with IsError set.
type HardError struct {
	Err error
}

func (e *HardError) Error() string { return e.Err.Error() }

func (e *HardError) Unwrap() error { return e.Err }

// Register adds the Tool to adder.
func (t Tool) Register(adder ToolAdder) {
	adder.AddTool(t.Tool, t.Handler)
}

// MustTool is like ConvertTool but panics on error.
func MustTool[T any, R any](
	name, description string,
	toolHandler ToolHandlerFunc[T, R],
	options ...mcp.ToolOption,
) Tool {
	tool, handler, err := ConvertTool(name, description, toolHandler, options...)
	if err != nil {
		panic(err)
	}
	return Tool{Tool: tool, Handler: handler}
}

// ToolHandlerFunc handles a tool call. T is a struct with jsonschema tags
// describing the arguments; R is a string, a *mcp.CallToolResult or any
// JSON-marshalable value.
type ToolHandlerFunc[T any, R any] = func(ctx context.Context, request T) (R, error)

// ConvertTool builds an MCP tool from toolHandler. The input schema is
// reflected from the handler's argument struct, and every call runs in a
// server span named "tools/call <name>".
func ConvertTool[T any, R any](name, description string, toolHandler ToolHandlerFunc[T, R], options ...mcp.ToolOption) (mcp.Tool, server.ToolHandlerFunc, error) {
	fn := reflect.ValueOf(toolHandler)
	if err := checkHandlerType(fn.Type()); err != nil {
		return mcp.Tool{}, nil, err
	}
	argType := fn.Type().In(1)

	schema, err := inputSchema(argType)
	if err != nil {
		return mcp.Tool{}, nil, err
	}
	tool := mcp.Tool{
		Name:           name,
		Description:    description,
		RawInputSchema: schema,
	}
	for _, option := range options {
		option(&tool)
	}

	call := toolCall{name: name, fn: fn, argType: argType}
	return tool, call.handle, nil
}

func checkHandlerType(t reflect.Type) error {
	switch {
	case t.Kind() != reflect.Func:
		return errors.New("tool handler must be a function")
	case t.NumIn() != 2:
		return errors.New("tool handler must have 2 arguments")
	case t.NumOut() != 2:
		return errors.New("tool handler must return 2 values")
	case t.In(0) != contextType:
		return errors.New("tool handler first argument must be context.Context")
	case t.In(1).Kind() != reflect.Struct:
		return errors.New("tool handler second argument must be a struct")
	case t.Out(1) != errorType:
		return errors.New("tool handler second return value must be error")
	}
	return nil
}

// toolCall adapts a typed handler to server.ToolHandlerFunc.
type toolCall struct {
	name    string
	fn      reflect.Value
	argType reflect.Type
}

func (c toolCall) handle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, span := c.startSpan(ctx, request)
	defer span.End()

	argBytes, err := json.Marshal(request.Params.Arguments)
	if err != nil {
		failSpan(span, err, "failed to marshal arguments")
		return nil, fmt.Errorf("marshal args: %w", err)
	}
	if ConfigFromContext(ctx).IncludeArgumentsInSpans {
		span.SetAttributes(attribute.String("gen_ai.tool.call.arguments", string(argBytes)))
	}

	args := reflect.New(c.argType)
	if err := json.Unmarshal(argBytes, args.Interface()); err != nil {
		failSpan(span, err, "failed to unmarshal arguments")
		return nil, fmt.Errorf("unmarshal args: %w", err)
	}

	out := c.fn.Call([]reflect.Value{reflect.ValueOf(ctx), args.Elem()})
	if !out[1].IsNil() {
		handlerErr := out[1].Interface().(error)
		failSpan(span, handlerErr, handlerErr.Error())
		span.SetAttributes(semconv.ErrorType(handlerErr))
		var hardErr *HardError
		if errors.As(handlerErr, &hardErr) {
			return nil, hardErr.Err
		}
		return mcp.NewToolResultError(handlerErr.Error()), nil
	}

	span.SetStatus(codes.Ok, "tool execution completed")
	return toolResult(out[0])
}

func (c toolCall) startSpan(ctx context.Context, request mcp.CallToolRequest) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		semconv.GenAIToolName(c.name),
		attribute.String("mcp.method.name", "tools/call"),
	}
	if category := ToolCategoryFromContext(ctx); category != "" {
		attrs = append(attrs, ToolCategoryKey.String(category))
	}
	if session := server.ClientSessionFromContext(ctx); session != nil {
		attrs = append(attrs, semconv.McpSessionID(session.SessionID()))
	}
	return otel.Tracer(tracerName).Start(extractTraceContext(ctx, request),
		"tools/call "+c.name,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attrs...),
	)
}

func failSpan(span trace.Span, err error, description string) {
	span.RecordError(err)
	span.SetStatus(codes.Error, description)
}

// AnnotateSpan adds attributes to the tool span carried by ctx. Handlers
// use it to record what their arguments resolved to.
func AnnotateSpan(ctx context.Context, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).SetAttributes(attrs...)
}

// toolResult converts a handler's return value. Nil values and empty
// strings produce a nil result.
func toolResult(v reflect.Value) (*mcp.CallToolResult, error) {
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		if v.IsNil() {
			return nil, nil
		}
	}
	switch r := v.Interface().(type) {
	case *mcp.CallToolResult:
		return r, nil
	case mcp.CallToolResult:
		return &r, nil
	case string:
		return textResult(r), nil
	case *string:
		return textResult(*r), nil
	}
	b, err := json.Marshal(v.Interface())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal return value: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}

func textResult(s string) *mcp.CallToolResult {
	if s == "" {
		return nil
	}
	return mcp.NewToolResultText(s)
}

// extractTraceContext makes the tool span a child of the caller's trace
// when the request's _meta carries traceparent/tracestate.
func extractTraceContext(ctx context.Context, request mcp.CallToolRequest) context.Context {
	if request.Params.Meta == nil {
		return ctx
	}
	carrier := propagation.MapCarrier{}
	for _, key := range []string{"traceparent", "tracestate"} {
		if v, ok := request.Params.Meta.AdditionalFields[key].(string); ok && v != "" {
			carrier.Set(key, v)
		}
	}
	if len(carrier) == 0 {
		return ctx
	}
	return propagation.TraceContext{}.Extract(ctx, carrier)
}

// inputSchema reflects the argument struct into an MCP input schema.
// Properties are copied into a plain map so that an empty struct still
// emits "properties".
func inputSchema(argType reflect.Type) ([]byte, error) {
	reflected := jsonSchemaReflector.ReflectFromType(argType)
	properties := make(map[string]any, reflected.Properties.Len())
	for pair := reflected.Properties.Oldest(); pair != nil; pair = pair.Next() {
		properties[pair.Key] = pair.Value
	}
	b, err := json.Marshal(mcp.ToolArgumentsSchema{
		Type:       reflected.Type,
		Properties: properties,
		Required:   reflected.Required,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal input schema: %w", err)
	}
	return b, nil
}

var jsonSchemaReflector = jsonschema.Reflector{
	Anonymous:                  true,
	AllowAdditionalProperties:  true,
	RequiredFromJSONSchemaTags: true,
	DoNotReference:             true,
	ExpandedStruct:             true,
}

type categoryKey struct{}

// WithToolCategory returns a context naming the category of the tool
// being called.
func WithToolCategory(ctx context.Context, category string) context.Context {
	return context.WithValue(ctx, categoryKey{}, category)
}

// ToolCategoryFromContext returns the category set by WithToolCategory.
func ToolCategoryFromContext(ctx context.Context) string {
	category, _ := ctx.Value(categoryKey{}).(string)
	return category
}

// CategoryAdder returns a ToolAdder that registers tools with adder and
// tags every call with category.
func CategoryAdder(adder ToolAdder, category string) ToolAdder {
	return categoryAdder{adder: adder, category: category}
}

type categoryAdder struct {
	adder    ToolAdder
	category string
}

func (a categoryAdder) AddTool(tool mcp.Tool, handler server.ToolHandlerFunc) {
	a.adder.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handler(WithToolCategory(ctx, a.category), request)
	})
}
