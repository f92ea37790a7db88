package tools

import (
	"log/slog"
	"slices"

	mcptimerange "github.com/grafana/mcp-timerange"
)

// Categories lists the tool categories in registration order.
var Categories = []string{"timerange", "interval"}

// CollectAllTools registers all tool categories with the given ToolAdder,
// filtered by the enabledTools list. It is used by both MCP server mode
// and CLI mode.
func CollectAllTools(adder mcptimerange.ToolAdder, enabledTools []string) {
	maybeAdd(adder, AddTimeRangeTools, enabledTools, "timerange")
	maybeAdd(adder, AddIntervalTools, enabledTools, "interval")
}

func maybeAdd(adder mcptimerange.ToolAdder, fn func(mcptimerange.ToolAdder), enabledTools []string, category string) {
	if !slices.Contains(enabledTools, category) {
		slog.Debug("Not enabling tools", "category", category)
		return
	}
	slog.Debug("Enabling tools", "category", category)
	fn(mcptimerange.CategoryAdder(adder, category))
}
