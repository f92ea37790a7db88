package tools

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/grafana/mcp-timerange/rangeutil"
)

type quickRange struct {
	From    string `yaml:"from"`
	To      string `yaml:"to"`
	Display string `yaml:"display"`
	Section int    `yaml:"section"`
}

// LoadQuickRanges reads quick ranges from a YAML file holding a list of
// {from, to, display} entries.
func LoadQuickRanges(path string) ([]rangeutil.TimeOption, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read quick ranges: %w", err)
	}
	return ParseQuickRanges(data)
}

// ParseQuickRanges parses a YAML list of quick ranges. Every entry needs
// from, to and display.
func ParseQuickRanges(data []byte) ([]rangeutil.TimeOption, error) {
	var entries []quickRange
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse quick ranges: %w", err)
	}

	opts := make([]rangeutil.TimeOption, 0, len(entries))
	for i, e := range entries {
		switch {
		case e.From == "":
			return nil, fmt.Errorf("quick range %d: from is required", i)
		case e.To == "":
			return nil, fmt.Errorf("quick range %d: to is required", i)
		case e.Display == "":
			return nil, fmt.Errorf("quick range %d: display is required", i)
		}
		opts = append(opts, rangeutil.TimeOption{
			From:    e.From,
			To:      e.To,
			Display: e.Display,
			Section: e.Section,
		})
	}
	return opts, nil
}
