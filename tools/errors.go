package tools

import (
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/grafana/mcp-timerange/rangeutil"
)

// IsIntervalValidationError reports whether err was caused by a malformed
// duration string.
func IsIntervalValidationError(err error) bool {
	return err != nil && errors.Is(err, rangeutil.ErrInvalidInterval)
}

// NewValidationErrorResult creates a CallToolResult for validation errors.
// This returns a successful MCP response with IsError=true, allowing LLMs
// to see the error details and retry with corrected input.
//
// The context parameter names the offending argument.
func NewValidationErrorResult(err error, context string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: fmt.Sprintf("Validation error in %s: %v", context, err),
			},
		},
		IsError: true,
	}
}

// intervalErrorResult turns malformed duration errors into validation
// results and passes any other error through as a tool error.
func intervalErrorResult(err error, context string) (*mcp.CallToolResult, error) {
	if IsIntervalValidationError(err) {
		return NewValidationErrorResult(err, context), nil
	}
	return nil, err
}
