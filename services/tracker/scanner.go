// Package tracker walks geekhack board listings and records thread
// state changes into a local database.
//
// A scan stops at the first thread whose observed state exactly
// matches storage (the watermark): listings are sorted by last
// activity descending and a thread's activity time only moves
// forward, so everything past the watermark was already up to date
// as of an earlier scan. One known approximation follows from this:
// a thread bumped after an older, never-yet-synced thread was last
// scanned can make the older thread act as a premature watermark,
// hiding genuinely stale rows behind it until a later run closes the
// gap. That behavior is inherent to a single-watermark incremental
// scan and is kept as-is.
package tracker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"hackwatch/lib/scrapers/geekhack"
	"hackwatch/lib/timezone"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/tracker")

// Source yields one listing page of threads in display order, newest
// activity first. An empty page means the listing has ended. The
// geekhack client implements this; tests substitute a fake.
type Source interface {
	ListPage(ctx context.Context, board geekhack.Board, page int) ([]geekhack.Thread, error)
}

type ScanResult struct {
	PagesVisited     int
	ThreadsUpdated   int
	ThreadsUnchanged int
}

type ScannerOptions struct {
	// boards to scan, in order; defaults to geekhack.Boards
	Boards []geekhack.Board
	// pause between listing page fetches; zero disables it
	PageDelay time.Duration
}

// Scanner reconciles board listings against the store, one board, one
// page, one thread at a time. Order is load-bearing: the termination
// rule is only sound if threads are visited in the listing's own
// newest-first order, so nothing here may be parallelized.
type Scanner struct {
	source Source
	store  Store
	boards []geekhack.Board
	delay  time.Duration
}

func NewScanner(source Source, store Store, opts ScannerOptions) Scanner {
	boards := opts.Boards
	if len(boards) == 0 {
		boards = geekhack.Boards
	}
	return Scanner{
		source: source,
		store:  store,
		boards: boards,
		delay:  opts.PageDelay,
	}
}

// Scan walks one board's listing from page 1 until the watermark or
// the end of the listing. Fetch, parse and store failures abort the
// scan of this board; whatever was upserted before the failure stays
// committed, the next run picks up from the top again.
func (s Scanner) Scan(ctx context.Context, board geekhack.Board) (ScanResult, error) {
	ctx, span := tracer.Start(ctx, "Scan")
	defer span.End()
	span.SetAttributes(attribute.String("board", board.Slug))

	var result ScanResult
	var prevPageOldest time.Time

	for page := 1; ; page++ {
		if page > 1 && s.delay > 0 {
			select {
			case <-time.After(s.delay):
			case <-ctx.Done():
				return result, ctx.Err()
			}
		}

		threads, err := s.source.ListPage(ctx, board, page)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "listing page failed")
			return result, err
		}
		// a trailing empty page just signals the end of the listing,
		// it does not count as a visited page
		if len(threads) == 0 {
			slog.InfoContext(ctx, "reached end of listing", "board", board.Slug, "pages", result.PagesVisited)
			break
		}
		result.PagesVisited++

		// the termination rule assumes the site never reorders active
		// threads ahead of our observation point mid-scan; this cannot
		// be enforced from here, only noticed
		if page > 1 && threads[0].LastReplyAt.After(prevPageOldest) {
			slog.WarnContext(ctx, "listing order violation between pages",
				"board", board.Slug,
				"page", page,
				"page_top", threads[0].LastReplyAt,
				"prev_page_bottom", prevPageOldest,
			)
		}
		prevPageOldest = threads[len(threads)-1].LastReplyAt

		done, err := s.reconcilePage(ctx, board, threads, &result)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "reconciliation failed")
			return result, err
		}
		if done {
			break
		}
	}

	span.SetAttributes(
		attribute.Int("pages_visited", result.PagesVisited),
		attribute.Int("threads_updated", result.ThreadsUpdated),
		attribute.Int("threads_unchanged", result.ThreadsUnchanged),
	)
	return result, nil
}

// reconcilePage visits a page's threads in order. It reports done
// once a thread matches its stored state: everything older is already
// known, so the remainder of this page and all later pages are
// skipped.
func (s Scanner) reconcilePage(ctx context.Context, board geekhack.Board, threads []geekhack.Thread, result *ScanResult) (bool, error) {
	for _, thread := range threads {
		stored, exists, err := s.store.Get(ctx, board, thread.ID)
		if err != nil {
			return false, err
		}

		if exists && !changed(stored, thread) {
			result.ThreadsUnchanged++
			slog.InfoContext(ctx, "watermark reached",
				"board", board.Slug,
				"thread", thread.ID,
				"title", thread.Title,
			)
			return true, nil
		}

		err = s.store.Upsert(ctx, board, thread, timezone.Now())
		if err != nil {
			return false, err
		}
		result.ThreadsUpdated++
		slog.DebugContext(ctx, "thread updated",
			"board", board.Slug,
			"thread", thread.ID,
			"title", thread.Title,
			"replies", thread.Replies,
		)
	}
	return false, nil
}

// ScanAll scans every configured board sequentially. A failing board
// does not stop the rest from being scanned; the errors are joined.
func (s Scanner) ScanAll(ctx context.Context) (map[geekhack.Board]ScanResult, error) {
	ctx, span := tracer.Start(ctx, "ScanAll")
	defer span.End()

	results := make(map[geekhack.Board]ScanResult, len(s.boards))
	var errlist []error

	for _, board := range s.boards {
		result, err := s.Scan(ctx, board)
		results[board] = result
		if err != nil {
			slog.ErrorContext(ctx, "board scan failed", "board", board.Slug, "err", err)
			errlist = append(errlist, err)
			continue
		}
		slog.InfoContext(ctx, "board scan finished",
			"board", board.Slug,
			"pages_visited", result.PagesVisited,
			"threads_updated", result.ThreadsUpdated,
			"threads_unchanged", result.ThreadsUnchanged,
		)
	}

	err := errors.Join(errlist...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "one or more boards failed")
	}
	return results, err
}
