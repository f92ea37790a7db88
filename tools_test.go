//go:build unit
// +build unit

package mcptimerange

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

type rangeParams struct {
	From       string `json:"from" jsonschema:"required,description=Start of the range"`
	To         string `json:"to" jsonschema:"required,description=End of the range"`
	Resolution int    `json:"resolution,omitempty" jsonschema:"description=Number of points"`
}

type rangeResult struct {
	Label string `json:"label"`
}

func stringRangeHandler(ctx context.Context, p rangeParams) (string, error) {
	switch p.From {
	case "error":
		return "", errors.New("cannot resolve range")
	case "empty":
		return "", nil
	case "hard":
		return "", &HardError{Err: errors.New("clock unavailable")}
	}
	return p.From + " to " + p.To, nil
}

func structRangeHandler(ctx context.Context, p rangeParams) (*rangeResult, error) {
	if p.From == "nil" {
		return nil, nil
	}
	return &rangeResult{Label: p.From + " to " + p.To}, nil
}

func callToolResultHandler(ctx context.Context, p rangeParams) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText("raw " + p.From), nil
}

func newRequest(name string, args map[string]any) mcp.CallToolRequest {
	request := mcp.CallToolRequest{}
	request.Params.Name = name
	request.Params.Arguments = args
	return request
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestConvertTool(t *testing.T) {
	t.Run("schema is reflected from params", func(t *testing.T) {
		tool, handler, err := ConvertTool("describe", "Describe a range", stringRangeHandler)
		require.NoError(t, err)
		require.NotNil(t, handler)
		assert.Equal(t, "describe", tool.Name)
		assert.Equal(t, "Describe a range", tool.Description)

		var schema map[string]any
		require.NoError(t, json.Unmarshal(tool.RawInputSchema, &schema))
		assert.Equal(t, "object", schema["type"])
		properties, ok := schema["properties"].(map[string]any)
		require.True(t, ok)
		assert.Contains(t, properties, "from")
		assert.Contains(t, properties, "to")
		assert.Contains(t, properties, "resolution")
		assert.ElementsMatch(t, []any{"from", "to"}, schema["required"])
	})

	t.Run("string return", func(t *testing.T) {
		_, handler, err := ConvertTool("describe", "Describe a range", stringRangeHandler)
		require.NoError(t, err)

		result, err := handler(context.Background(), newRequest("describe", map[string]any{"from": "now-1h", "to": "now"}))
		require.NoError(t, err)
		assert.Equal(t, "now-1h to now", resultText(t, result))
	})

	t.Run("empty string return is nil", func(t *testing.T) {
		_, handler, err := ConvertTool("describe", "Describe a range", stringRangeHandler)
		require.NoError(t, err)

		result, err := handler(context.Background(), newRequest("describe", map[string]any{"from": "empty", "to": "now"}))
		require.NoError(t, err)
		assert.Nil(t, result)
	})

	t.Run("handler error becomes tool error", func(t *testing.T) {
		_, handler, err := ConvertTool("describe", "Describe a range", stringRangeHandler)
		require.NoError(t, err)

		result, err := handler(context.Background(), newRequest("describe", map[string]any{"from": "error", "to": "now"}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
		assert.Equal(t, "cannot resolve range", resultText(t, result))
	})

	t.Run("hard error propagates", func(t *testing.T) {
		_, handler, err := ConvertTool("describe", "Describe a range", stringRangeHandler)
		require.NoError(t, err)

		result, err := handler(context.Background(), newRequest("describe", map[string]any{"from": "hard", "to": "now"}))
		assert.Nil(t, result)
		assert.EqualError(t, err, "clock unavailable")
	})

	t.Run("struct return is JSON", func(t *testing.T) {
		_, handler, err := ConvertTool("describe", "Describe a range", structRangeHandler)
		require.NoError(t, err)

		result, err := handler(context.Background(), newRequest("describe", map[string]any{"from": "now/d", "to": "now/d"}))
		require.NoError(t, err)
		assert.JSONEq(t, `{"label":"now/d to now/d"}`, resultText(t, result))

		result, err = handler(context.Background(), newRequest("describe", map[string]any{"from": "nil", "to": "now"}))
		require.NoError(t, err)
		assert.Nil(t, result)
	})

	t.Run("call tool result is passed through", func(t *testing.T) {
		_, handler, err := ConvertTool("describe", "Describe a range", callToolResultHandler)
		require.NoError(t, err)

		result, err := handler(context.Background(), newRequest("describe", map[string]any{"from": "now-5m"}))
		require.NoError(t, err)
		assert.Equal(t, "raw now-5m", resultText(t, result))
	})

	t.Run("invalid arguments", func(t *testing.T) {
		_, handler, err := ConvertTool("describe", "Describe a range", stringRangeHandler)
		require.NoError(t, err)

		_, err = handler(context.Background(), newRequest("describe", map[string]any{"resolution": "many"}))
		assert.Error(t, err)
	})

	t.Run("options are applied", func(t *testing.T) {
		tool, _, err := ConvertTool("describe", "Describe a range", stringRangeHandler, mcp.WithReadOnlyHintAnnotation(true))
		require.NoError(t, err)
		require.NotNil(t, tool.Annotations.ReadOnlyHint)
		assert.True(t, *tool.Annotations.ReadOnlyHint)
	})
}

func TestMustToolPanicsOnInvalidHandler(t *testing.T) {
	assert.Panics(t, func() {
		MustTool("bad", "Not a struct argument", func(ctx context.Context, s string) (string, error) {
			return s, nil
		})
	})
}

func TestToolTracing(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	original := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	defer otel.SetTracerProvider(original)

	tool := MustTool("describe", "Describe a range", stringRangeHandler)

	t.Run("success span", func(t *testing.T) {
		recorder.Reset()
		ctx := WithConfig(context.Background(), Config{IncludeArgumentsInSpans: true})
		_, err := tool.Handler(ctx, newRequest("describe", map[string]any{"from": "now-1h", "to": "now"}))
		require.NoError(t, err)

		spans := recorder.Ended()
		require.Len(t, spans, 1)
		assert.Equal(t, "tools/call describe", spans[0].Name())
		assert.Equal(t, codes.Ok, spans[0].Status().Code)
		assertHasAttribute(t, spans[0].Attributes(), "gen_ai.tool.name", "describe")
		assertHasAttribute(t, spans[0].Attributes(), "gen_ai.tool.call.arguments", `{"from":"now-1h","to":"now"}`)
	})

	t.Run("arguments are omitted by default", func(t *testing.T) {
		recorder.Reset()
		_, err := tool.Handler(context.Background(), newRequest("describe", map[string]any{"from": "now-1h", "to": "now"}))
		require.NoError(t, err)

		spans := recorder.Ended()
		require.Len(t, spans, 1)
		for _, attr := range spans[0].Attributes() {
			assert.NotEqual(t, "gen_ai.tool.call.arguments", string(attr.Key))
		}
	})

	t.Run("error span", func(t *testing.T) {
		recorder.Reset()
		result, err := tool.Handler(context.Background(), newRequest("describe", map[string]any{"from": "error", "to": "now"}))
		require.NoError(t, err)
		assert.True(t, result.IsError)

		spans := recorder.Ended()
		require.Len(t, spans, 1)
		assert.Equal(t, codes.Error, spans[0].Status().Code)
		assert.Equal(t, "cannot resolve range", spans[0].Status().Description)
	})
}

func TestToolSpanDomainAttributes(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	original := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	defer otel.SetTracerProvider(original)

	annotated := MustTool("describe", "Describe a range", func(ctx context.Context, p rangeParams) (string, error) {
		AnnotateSpan(ctx, RangeInvalidKey.Bool(p.From == "bad"))
		return p.From + " to " + p.To, nil
	})

	collector := NewToolCollector()
	annotated.Register(CategoryAdder(collector, "timerange"))
	handler := collector.Tools()["describe"].Handler

	_, err := handler(context.Background(), newRequest("describe", map[string]any{"from": "bad", "to": "now"}))
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assertHasAttribute(t, spans[0].Attributes(), string(ToolCategoryKey), "timerange")
	var invalid bool
	for _, attr := range spans[0].Attributes() {
		if attr.Key == RangeInvalidKey {
			invalid = attr.Value.AsBool()
		}
	}
	assert.True(t, invalid)

	t.Run("uncategorized tools carry no category", func(t *testing.T) {
		recorder.Reset()
		_, err := annotated.Handler(context.Background(), newRequest("describe", map[string]any{"from": "now-1h", "to": "now"}))
		require.NoError(t, err)
		spans := recorder.Ended()
		require.Len(t, spans, 1)
		for _, attr := range spans[0].Attributes() {
			assert.NotEqual(t, ToolCategoryKey, attr.Key)
		}
	})
}

func TestToolCategoryContext(t *testing.T) {
	assert.Empty(t, ToolCategoryFromContext(context.Background()))
	assert.Equal(t, "interval", ToolCategoryFromContext(WithToolCategory(context.Background(), "interval")))
}

func TestExtractTraceContext(t *testing.T) {
	req := newRequest("describe", nil)
	req.Params.Meta = &mcp.Meta{AdditionalFields: map[string]any{
		"traceparent": "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01",
	}}
	ctx := extractTraceContext(context.Background(), req)
	sc := trace.SpanContextFromContext(ctx)
	assert.True(t, sc.IsValid())
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", sc.TraceID().String())

	plain := newRequest("describe", nil)
	assert.False(t, trace.SpanContextFromContext(extractTraceContext(context.Background(), plain)).IsValid())
}

func assertHasAttribute(t *testing.T, attributes []attribute.KeyValue, key string, expectedValue string) {
	t.Helper()
	for _, attr := range attributes {
		if string(attr.Key) == key {
			assert.Equal(t, expectedValue, attr.Value.AsString())
			return
		}
	}
	t.Errorf("Expected attribute %s with value %s not found", key, expectedValue)
}
