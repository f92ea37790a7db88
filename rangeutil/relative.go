package rangeutil

import "time"

// TimeRangeToRelative expresses tr as whole seconds before now. Both values
// are negative for ranges in the future.
func TimeRangeToRelative(tr TimeRange, now time.Time) RelativeTimeRange {
	return RelativeTimeRange{
		From: now.Unix() - tr.From.Unix(),
		To:   now.Unix() - tr.To.Unix(),
	}
}

// RelativeToTimeRange anchors rel to now. To == 0 maps to exactly now.
// Resolving the same RelativeTimeRange against a different now yields a
// different range.
func RelativeToTimeRange(rel RelativeTimeRange, now time.Time) TimeRange {
	from := now.Add(-time.Duration(rel.From) * time.Second)
	to := now
	if rel.To != 0 {
		to = now.Add(-time.Duration(rel.To) * time.Second)
	}
	return TimeRange{
		From: from,
		To:   to,
		Raw:  RawRange{From: Instant(from), To: Instant(to)},
	}
}
