package geekhack

import (
	"fmt"
	"strings"
	"time"

	"hackwatch/lib/timezone"
)

// absolute listing timestamps look like "Mon, 18 August 2025, 14:03:11"
const listingTimeLayout = "Mon, 02 January 2006, 15:04:05"

const clockLayout = "15:04:05"

// ParseTimestamp converts a listing timestamp into a time.Time pinned
// to the forum's display timezone. Threads bumped since midnight show
// a relative "Today at HH:MM:SS" form which is resolved against `now`.
func ParseTimestamp(text string, now time.Time) (time.Time, error) {
	text = strings.TrimSpace(text)

	if rest, ok := strings.CutPrefix(text, "Today at "); ok {
		clock, err := time.Parse(clockLayout, strings.TrimSpace(rest))
		if err != nil {
			return time.Time{}, fmt.Errorf("bad relative timestamp %q: %w", text, err)
		}
		return time.Date(
			now.Year(), now.Month(), now.Day(),
			clock.Hour(), clock.Minute(), clock.Second(),
			0, timezone.Location,
		), nil
	}

	t, err := time.ParseInLocation(listingTimeLayout, text, timezone.Location)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad timestamp %q: %w", text, err)
	}
	return t, nil
}
