package geekhack

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"hackwatch/lib/pagearchive"
	"hackwatch/lib/telemetry"
	"hackwatch/lib/timezone"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/geekhack")

const defaultBaseURL = "https://geekhack.org"

// geekhack serves a stripped-down page to clients without a browser UA
const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

type Client struct {
	http    *resty.Client
	archive *pagearchive.Archive
}

type ClientOptions struct {
	// overrides https://geekhack.org, used by tests
	BaseURL string
	// when non-nil, every fetched page body is archived
	Archive *pagearchive.Archive
}

func NewClient(opts ClientOptions) Client {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	http := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(time.Second * 30).
		SetHeader("User-Agent", userAgent)
	telemetry.InstrumentResty(http, "scrapers/geekhack")

	return Client{
		http:    http,
		archive: opts.Archive,
	}
}

// ListPage fetches and parses one listing page of a board. `page` is
// 1-indexed; geekhack addresses pages by post offset so page n starts
// at offset (n-1)*50. An empty result means the listing has ended.
func (c Client) ListPage(ctx context.Context, board Board, page int) ([]Thread, error) {
	ctx, span := tracer.Start(ctx, "ListPage")
	defer span.End()
	span.SetAttributes(
		attribute.String("board", board.Slug),
		attribute.Int("page", page),
	)

	body, err := c.fetchListing(ctx, board, page)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch")
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(body))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse html")
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}

	threads := parseListing(ctx, doc, timezone.Now())
	span.SetAttributes(attribute.Int("threads", len(threads)))
	return threads, nil
}

// PageCount reads the board's page navigation and returns the number
// of the last listing page. The scan loop itself stops on its own;
// this exists for the CLI's informational output.
func (c Client) PageCount(ctx context.Context, board Board) (int, error) {
	ctx, span := tracer.Start(ctx, "PageCount")
	defer span.End()
	span.SetAttributes(attribute.String("board", board.Slug))

	body, err := c.fetchListing(ctx, board, 1)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch")
		return 0, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(body))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse html")
		return 0, fmt.Errorf("%w: %w", ErrParse, err)
	}

	count, err := parsePageCount(doc)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse page navigation")
		return 0, err
	}
	span.SetAttributes(attribute.Int("pages", count))
	return count, nil
}

func (c Client) fetchListing(ctx context.Context, board Board, page int) ([]byte, error) {
	// the board parameter doubles as the page selector:
	// board=132 is the first page, board=132.50 starts at post 50
	boardParam := strconv.Itoa(board.ID)
	offset := (page - 1) * PostsPerPage
	if offset > 0 {
		boardParam = fmt.Sprintf("%d.%d", board.ID, offset)
	}

	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("board", boardParam).
		Get("/index.php")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	if res.StatusCode() != 200 {
		return nil, fmt.Errorf("%w: status %s for board %s page %d", ErrFetch, res.Status(), board.Slug, page)
	}

	if c.archive != nil {
		err := c.archive.Put(ctx, res.Request.URL, timezone.Now(), res.Body())
		if err != nil {
			slog.WarnContext(ctx, "failed to archive listing page", "url", res.Request.URL, "err", err)
		}
	}
	return res.Body(), nil
}
