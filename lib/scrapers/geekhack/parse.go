package geekhack

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"hackwatch/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// parseListing extracts every thread row from a board listing page in
// display order (newest activity first). Rows that fail to parse are
// logged and skipped rather than failing the page: sticky rows and ad
// rows are expected casualties.
func parseListing(ctx context.Context, doc *goquery.Document, now time.Time) []Thread {
	var threads []Thread
	listingRows(doc).Each(func(_ int, row *goquery.Selection) {
		thread, err := parseRow(row, now)
		if err != nil {
			if row.Find("td.subject.stickybg2").Length() > 0 {
				slog.DebugContext(ctx, "ignoring pinned thread")
				return
			}
			slog.WarnContext(ctx, "skipping unparseable listing row", "err", err)
			return
		}
		threads = append(threads, thread)
	})
	return threads
}

// thread rows carry no class attribute, unlike the header and filler
// rows of the same table
func listingRows(doc *goquery.Document) *goquery.Selection {
	return doc.Find("table.table_grid tr").FilterFunction(func(_ int, row *goquery.Selection) bool {
		_, hasClass := row.Attr("class")
		return !hasClass
	})
}

func parseRow(row *goquery.Selection, now time.Time) (Thread, error) {
	id, canonicalURL, title, author, err := parseSubjectCell(row)
	if err != nil {
		return Thread{}, err
	}
	replies, err := parseStatsCell(row)
	if err != nil {
		return Thread{}, err
	}
	lastReplyAt, lastReplyBy, err := parseLastPostCell(row, now)
	if err != nil {
		return Thread{}, err
	}

	return Thread{
		ID:          id,
		URL:         canonicalURL,
		Title:       title,
		Author:      author,
		Replies:     replies,
		LastReplyAt: lastReplyAt,
		LastReplyBy: lastReplyBy,
	}, nil
}

func parseSubjectCell(row *goquery.Selection) (id int64, canonicalURL, title, author string, err error) {
	cell := row.Find("td.subject.windowbg2, td.subject.lockedbg2").First()
	if cell.Length() == 0 {
		return 0, "", "", "", fmt.Errorf("no subject cell")
	}

	span := cell.Find("span").First()
	if span.Length() == 0 {
		return 0, "", "", "", fmt.Errorf("subject cell has no title span")
	}
	title = cleanSelection(span)

	// the "Started by somebody" paragraph; only its first line matters,
	// later lines hold the thread's mini page navigation
	startedBy := firstLine(cell.Find("p").First().Text())
	byIdx := strings.Index(startedBy, "by")
	if byIdx < 0 {
		return 0, "", "", "", fmt.Errorf("no author line in subject cell")
	}
	author = htmlutil.Clean(startedBy[byIdx+2:])

	href, ok := span.Find("a[href]").First().Attr("href")
	if !ok {
		return 0, "", "", "", fmt.Errorf("no thread link in subject cell")
	}
	id, canonicalURL, err = parseTopicLink(href)
	if err != nil {
		return 0, "", "", "", err
	}

	return id, canonicalURL, title, author, nil
}

// parseTopicLink pulls the stable topic id out of a thread URL and
// rebuilds the URL with only that parameter, so stored links do not
// churn on session junk the forum appends.
func parseTopicLink(href string) (int64, string, error) {
	link, err := url.Parse(href)
	if err != nil {
		return 0, "", fmt.Errorf("bad thread link %q: %w", href, err)
	}
	topic := link.Query().Get("topic")
	if topic == "" {
		return 0, "", fmt.Errorf("thread link %q has no topic parameter", href)
	}
	// topic ids come with a post offset suffix, e.g. "123456.0"
	topic, _, _ = strings.Cut(topic, ".")
	id, err := strconv.ParseInt(topic, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("bad topic id in %q: %w", href, err)
	}

	clean := url.URL{
		Scheme:   link.Scheme,
		Host:     link.Host,
		Path:     link.Path,
		RawQuery: url.Values{"topic": {strconv.FormatInt(id, 10)}}.Encode(),
	}
	return id, clean.String(), nil
}

func parseStatsCell(row *goquery.Selection) (int64, error) {
	cell := row.Find("td.stats.windowbg, td.stats.lockedbg").First()
	if cell.Length() == 0 {
		return 0, fmt.Errorf("no stats cell")
	}

	// "123 Replies \n 4567 Views"
	stats := strings.ToLower(cleanSelection(cell))
	repliesIdx := strings.Index(stats, "replies")
	if repliesIdx < 0 {
		return 0, fmt.Errorf("no reply count in stats cell %q", stats)
	}
	replies, err := strconv.ParseInt(strings.TrimSpace(stats[:repliesIdx]), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad reply count in stats cell %q: %w", stats, err)
	}
	return replies, nil
}

func parseLastPostCell(row *goquery.Selection, now time.Time) (time.Time, string, error) {
	cell := row.Find("td.lastpost.windowbg2, td.lastpost.lockedbg2").First()
	if cell.Length() == 0 {
		return time.Time{}, "", fmt.Errorf("no lastpost cell")
	}

	// "<timestamp> by <author>"
	text := cleanSelection(cell)
	byIdx := strings.Index(text, "by")
	if byIdx < 0 {
		return time.Time{}, "", fmt.Errorf("no author in lastpost cell %q", text)
	}
	lastReplyBy := strings.TrimSpace(text[byIdx+2:])

	lastReplyAt, err := ParseTimestamp(strings.TrimSpace(text[:byIdx]), now)
	if err != nil {
		return time.Time{}, "", err
	}
	return lastReplyAt, lastReplyBy, nil
}

func parsePageCount(doc *goquery.Document) (int, error) {
	nav := doc.Find("div.pagelinks.floatleft").First()
	if nav.Length() == 0 {
		return 0, fmt.Errorf("%w: no page navigation", ErrParse)
	}

	// the link before the "»" marker is the last page number
	fields := strings.Fields(cleanSelection(nav))
	for i, field := range fields {
		if field == "»" && i > 0 {
			count, err := strconv.Atoi(fields[i-1])
			if err != nil {
				return 0, fmt.Errorf("%w: bad page number %q: %w", ErrParse, fields[i-1], err)
			}
			return count, nil
		}
	}
	return 0, fmt.Errorf("%w: page navigation has no end marker", ErrParse)
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			return line
		}
	}
	return ""
}

func cleanSelection(sel *goquery.Selection) string {
	var parts []string
	for _, node := range sel.Nodes {
		parts = append(parts, htmlutil.GetText(node))
	}
	return htmlutil.Clean(strings.Join(parts, " "))
}
