package geekhack

import (
	"context"
	"os"
	"testing"
	"time"

	"hackwatch/lib/timezone"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func loadListingFixture(t *testing.T) *goquery.Document {
	f, err := os.Open("testdata/listing.html")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestParseListing(t *testing.T) {
	doc := loadListingFixture(t)
	now := time.Date(2025, time.August, 18, 16, 30, 0, 0, timezone.Location)

	threads := parseListing(context.Background(), doc, now)
	require.Len(t, threads, 3, "sticky row must be skipped")

	require.Equal(t, Thread{
		ID:          127544,
		URL:         "https://geekhack.org/index.php?topic=127544",
		Title:       "[IC] Cumulus R2 - Cirrus profile keycaps",
		Author:      "nimbus",
		Replies:     142,
		LastReplyAt: time.Date(2025, time.August, 18, 14, 3, 11, 0, timezone.Location),
		LastReplyBy: "condensation",
	}, threads[0])

	require.Equal(t, int64(131001), threads[1].ID)
	require.Equal(t, "https://geekhack.org/index.php?topic=131001", threads[1].URL,
		"session junk must be stripped from the stored url")
	require.Equal(t, "plateau", threads[1].Author)
	require.Equal(t, int64(57), threads[1].Replies)
	require.Equal(t, time.Date(2025, time.August, 18, 9, 41, 27, 0, timezone.Location), threads[1].LastReplyAt)
	require.Equal(t, "gasketeer", threads[1].LastReplyBy)

	// locked threads use the lockedbg cell variants
	require.Equal(t, int64(130217), threads[2].ID)
	require.Equal(t, "[IC] Meridian65 (closed)", threads[2].Title)
	require.Equal(t, int64(203), threads[2].Replies)
	require.Equal(t, "latitude", threads[2].LastReplyBy)
}

func TestParseListingOrder(t *testing.T) {
	doc := loadListingFixture(t)
	now := time.Date(2025, time.August, 18, 16, 30, 0, 0, timezone.Location)

	threads := parseListing(context.Background(), doc, now)
	for i := 1; i < len(threads); i++ {
		require.True(t, !threads[i].LastReplyAt.After(threads[i-1].LastReplyAt),
			"listing must come out newest activity first")
	}
}

func TestParsePageCount(t *testing.T) {
	doc := loadListingFixture(t)

	count, err := parsePageCount(doc)
	require.NoError(t, err)
	require.Equal(t, 212, count)
}

func TestParseTopicLink(t *testing.T) {
	id, clean, err := parseTopicLink("https://geekhack.org/index.php?topic=127544.150&sesc=ff00")
	require.NoError(t, err)
	require.Equal(t, int64(127544), id)
	require.Equal(t, "https://geekhack.org/index.php?topic=127544", clean)

	_, _, err = parseTopicLink("https://geekhack.org/index.php?board=132.0")
	require.Error(t, err)
}
