package geekhack

import (
	"testing"
	"time"

	"hackwatch/lib/timezone"

	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	now := time.Date(2025, time.August, 18, 16, 30, 0, 0, timezone.Location)

	cases := []struct {
		text     string
		expected time.Time
	}{
		{
			text:     "Mon, 18 August 2025, 09:41:27",
			expected: time.Date(2025, time.August, 18, 9, 41, 27, 0, timezone.Location),
		},
		{
			text:     "Sat, 04 January 2020, 09:12:44",
			expected: time.Date(2020, time.January, 4, 9, 12, 44, 0, timezone.Location),
		},
		{
			text:     "Today at 14:03:11",
			expected: time.Date(2025, time.August, 18, 14, 3, 11, 0, timezone.Location),
		},
	}

	for _, test := range cases {
		parsed, err := ParseTimestamp(test.text, now)
		require.NoError(t, err)
		require.Equal(t, test.expected, parsed)
	}
}

func TestParseTimestampRejectsGarbage(t *testing.T) {
	now := time.Date(2025, time.August, 18, 16, 30, 0, 0, timezone.Location)

	for _, text := range []string{"", "yesterday", "Today at noon", "18/08/2025"} {
		_, err := ParseTimestamp(text, now)
		require.Error(t, err, "input %q", text)
	}
}
