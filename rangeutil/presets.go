package rangeutil

// rangeOptions are the presets offered to users.
var rangeOptions = []TimeOption{
	{From: "now-5m", To: "now", Display: "Last 5 minutes"},
	{From: "now-15m", To: "now", Display: "Last 15 minutes"},
	{From: "now-30m", To: "now", Display: "Last 30 minutes"},
	{From: "now-1h", To: "now", Display: "Last 1 hour"},
	{From: "now-3h", To: "now", Display: "Last 3 hours"},
	{From: "now-6h", To: "now", Display: "Last 6 hours"},
	{From: "now-12h", To: "now", Display: "Last 12 hours"},
	{From: "now-24h", To: "now", Display: "Last 24 hours"},
	{From: "now-2d", To: "now", Display: "Last 2 days"},
	{From: "now-7d", To: "now", Display: "Last 7 days"},
	{From: "now-30d", To: "now", Display: "Last 30 days"},
	{From: "now-90d", To: "now", Display: "Last 90 days"},
	{From: "now-6M", To: "now", Display: "Last 6 months"},
	{From: "now-1y", To: "now", Display: "Last 1 year"},
	{From: "now-2y", To: "now", Display: "Last 2 years"},
	{From: "now-5y", To: "now", Display: "Last 5 years"},
	{From: "now-1d/d", To: "now-1d/d", Display: "Yesterday"},
	{From: "now-2d/d", To: "now-2d/d", Display: "Day before yesterday"},
	{From: "now-7d/d", To: "now-7d/d", Display: "This day last week"},
	{From: "now-1w/w", To: "now-1w/w", Display: "Previous week"},
	{From: "now-1M/M", To: "now-1M/M", Display: "Previous month"},
	{From: "now-1Q/fQ", To: "now-1Q/fQ", Display: "Previous fiscal quarter"},
	{From: "now-1y/y", To: "now-1y/y", Display: "Previous year"},
	{From: "now-1y/fy", To: "now-1y/fy", Display: "Previous fiscal year"},
	{From: "now/d", To: "now/d", Display: "Today"},
	{From: "now/d", To: "now", Display: "Today so far"},
	{From: "now/w", To: "now/w", Display: "This week"},
	{From: "now/w", To: "now", Display: "This week so far"},
	{From: "now/M", To: "now/M", Display: "This month"},
	{From: "now/M", To: "now", Display: "This month so far"},
	{From: "now/y", To: "now/y", Display: "This year"},
	{From: "now/y", To: "now", Display: "This year so far"},
	{From: "now/fQ", To: "now", Display: "This fiscal quarter so far"},
	{From: "now/fQ", To: "now/fQ", Display: "This fiscal quarter"},
	{From: "now/fy", To: "now", Display: "This fiscal year so far"},
	{From: "now/fy", To: "now/fy", Display: "This fiscal year"},
}

// hiddenRangeOptions resolve to a label but are never offered as choices.
var hiddenRangeOptions = []TimeOption{
	{From: "now", To: "now+1m", Display: "Next minute"},
	{From: "now", To: "now+5m", Display: "Next 5 minutes"},
	{From: "now", To: "now+15m", Display: "Next 15 minutes"},
	{From: "now", To: "now+30m", Display: "Next 30 minutes"},
	{From: "now", To: "now+1h", Display: "Next hour"},
	{From: "now", To: "now+3h", Display: "Next 3 hours"},
	{From: "now", To: "now+6h", Display: "Next 6 hours"},
	{From: "now", To: "now+12h", Display: "Next 12 hours"},
	{From: "now", To: "now+24h", Display: "Next 24 hours"},
	{From: "now", To: "now+2d", Display: "Next 2 days"},
	{From: "now", To: "now+7d", Display: "Next 7 days"},
	{From: "now", To: "now+30d", Display: "Next 30 days"},
	{From: "now", To: "now+90d", Display: "Next 90 days"},
	{From: "now", To: "now+6M", Display: "Next 6 months"},
	{From: "now", To: "now+1y", Display: "Next year"},
	{From: "now", To: "now+2y", Display: "Next 2 years"},
	{From: "now", To: "now+5y", Display: "Next 5 years"},
}

// rangeIndex maps "<from> to <to>" to its preset. Built once in init and
// only read afterwards.
var rangeIndex = buildRangeIndex(rangeOptions, hiddenRangeOptions)

func buildRangeIndex(tables ...[]TimeOption) map[string]TimeOption {
	index := make(map[string]TimeOption)
	for _, table := range tables {
		for _, opt := range table {
			index[presetKey(opt.From, opt.To)] = opt
		}
	}
	return index
}

func presetKey(from, to string) string {
	return from + " to " + to
}

func lookupPreset(from, to string) (TimeOption, bool) {
	opt, ok := rangeIndex[presetKey(from, to)]
	return opt, ok
}

// RangeOptions returns a copy of the user-facing presets in display order.
func RangeOptions() []TimeOption {
	return append([]TimeOption(nil), rangeOptions...)
}

// HiddenRangeOptions returns a copy of the forward-looking presets that
// resolve to a label but are not offered as choices.
func HiddenRangeOptions() []TimeOption {
	return append([]TimeOption(nil), hiddenRangeOptions...)
}
