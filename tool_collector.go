package mcptimerange

import (
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ToolCollector is a ToolAdder that keeps tools in a map instead of
// serving them. CLI mode uses it to look tools up by name.
type ToolCollector struct {
	tools map[string]Tool
}

// NewToolCollector returns an empty ToolCollector.
func NewToolCollector() *ToolCollector {
	return &ToolCollector{tools: make(map[string]Tool)}
}

// AddTool stores the tool, replacing any tool with the same name.
func (c *ToolCollector) AddTool(tool mcp.Tool, handler server.ToolHandlerFunc) {
	c.tools[tool.Name] = Tool{Tool: tool, Handler: handler}
}

// Tools returns the collected tools keyed by name.
func (c *ToolCollector) Tools() map[string]Tool {
	return c.tools
}

// Names returns the collected tool names in sorted order.
func (c *ToolCollector) Names() []string {
	names := make([]string, 0, len(c.tools))
	for name := range c.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
