package tracker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"hackwatch/lib/scrapers/geekhack"
	"hackwatch/lib/testutil"
	"hackwatch/lib/timezone"
	"hackwatch/services/tracker/db"

	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	pages   map[geekhack.Board][][]geekhack.Thread
	calls   []int
	failOn  int
	failErr error
}

func (f *fakeSource) ListPage(ctx context.Context, board geekhack.Board, page int) ([]geekhack.Thread, error) {
	f.calls = append(f.calls, page)
	if f.failOn != 0 && page == f.failOn {
		return nil, f.failErr
	}
	boardPages := f.pages[board]
	if page > len(boardPages) {
		return nil, nil
	}
	return boardPages[page-1], nil
}

// makeThreads generates n threads in listing order, newest activity
// first, one minute apart.
func makeThreads(n int, newest time.Time) []geekhack.Thread {
	threads := make([]geekhack.Thread, n)
	for i := 0; i < n; i++ {
		id := int64(100000 + n - i)
		threads[i] = geekhack.Thread{
			ID:          id,
			URL:         fmt.Sprintf("https://geekhack.org/index.php?topic=%d", id),
			Title:       fmt.Sprintf("[IC] thread %d", id),
			Author:      fmt.Sprintf("author%d", id),
			Replies:     int64(i * 3),
			LastReplyAt: newest.Add(-time.Duration(i) * time.Minute),
			LastReplyBy: fmt.Sprintf("replier%d", id),
		}
	}
	return threads
}

func paginate(threads []geekhack.Thread, perPage int) [][]geekhack.Thread {
	var pages [][]geekhack.Thread
	for start := 0; start < len(threads); start += perPage {
		end := start + perPage
		if end > len(threads) {
			end = len(threads)
		}
		pages = append(pages, threads[start:end])
	}
	return pages
}

func setupScanner(t *testing.T, source Source) (Scanner, Store, func()) {
	database, cleanup := testutil.SetupDB(t, testutil.DBParams{
		Name:   "services/tracker",
		Schema: db.Schema,
	})
	store := NewStore(database)
	scanner := NewScanner(source, store, ScannerOptions{})
	return scanner, store, cleanup
}

func seedStore(t *testing.T, store Store, board geekhack.Board, threads []geekhack.Thread) {
	ctx := context.Background()
	for _, thread := range threads {
		err := store.Upsert(ctx, board, thread, timezone.Now())
		if err != nil {
			t.Fatal(err)
		}
	}
}

func TestFirstRunCompleteness(t *testing.T) {
	newest := time.Date(2025, time.August, 18, 12, 0, 0, 0, timezone.Location)
	threads := makeThreads(120, newest)
	source := &fakeSource{pages: map[geekhack.Board][][]geekhack.Thread{
		geekhack.InterestChecks: paginate(threads, 50),
	}}
	scanner, store, cleanup := setupScanner(t, source)
	defer cleanup()

	result, err := scanner.Scan(context.Background(), geekhack.InterestChecks)
	require.NoError(t, err)
	require.Equal(t, ScanResult{
		PagesVisited:     3,
		ThreadsUpdated:   120,
		ThreadsUnchanged: 0,
	}, result)

	count, err := store.Count(context.Background(), geekhack.InterestChecks)
	require.NoError(t, err)
	require.EqualValues(t, 120, count)
}

func TestNoOpIdempotence(t *testing.T) {
	newest := time.Date(2025, time.August, 18, 12, 0, 0, 0, timezone.Location)
	threads := makeThreads(80, newest)
	source := &fakeSource{pages: map[geekhack.Board][][]geekhack.Thread{
		geekhack.InterestChecks: paginate(threads, 50),
	}}
	scanner, _, cleanup := setupScanner(t, source)
	defer cleanup()

	_, err := scanner.Scan(context.Background(), geekhack.InterestChecks)
	require.NoError(t, err)

	source.calls = nil
	result, err := scanner.Scan(context.Background(), geekhack.InterestChecks)
	require.NoError(t, err)
	require.Equal(t, ScanResult{
		PagesVisited:     1,
		ThreadsUpdated:   0,
		ThreadsUnchanged: 1,
	}, result)
	require.Equal(t, []int{1}, source.calls, "an up-to-date board takes exactly one fetch")
}

func TestTerminationSoundness(t *testing.T) {
	newest := time.Date(2025, time.August, 18, 12, 0, 0, 0, timezone.Location)
	threads := makeThreads(40, newest)
	source := &fakeSource{pages: map[geekhack.Board][][]geekhack.Thread{
		geekhack.InterestChecks: paginate(threads, 50),
	}}
	scanner, store, cleanup := setupScanner(t, source)
	defer cleanup()

	seedStore(t, store, geekhack.InterestChecks, threads)

	// bump the top k threads; everything from position k on still
	// matches storage
	const k = 5
	bumped := make([]geekhack.Thread, len(threads))
	copy(bumped, threads)
	for i := 0; i < k; i++ {
		bumped[i].Replies += 1
		bumped[i].LastReplyAt = bumped[i].LastReplyAt.Add(time.Hour)
	}
	source.pages[geekhack.InterestChecks] = paginate(bumped, 50)

	result, err := scanner.Scan(context.Background(), geekhack.InterestChecks)
	require.NoError(t, err)
	require.Equal(t, ScanResult{
		PagesVisited:     1,
		ThreadsUpdated:   k,
		ThreadsUnchanged: 1,
	}, result)

	// the bumps landed, and nothing past the watermark was touched
	updated, found, err := store.Get(context.Background(), geekhack.InterestChecks, bumped[0].ID)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, bumped[0].Replies, updated.Replies)

	untouched, found, err := store.Get(context.Background(), geekhack.InterestChecks, threads[k+1].ID)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, threads[k+1].Replies, untouched.Replies)
}

func TestPageBoundaryTermination(t *testing.T) {
	newest := time.Date(2025, time.August, 18, 12, 0, 0, 0, timezone.Location)
	threads := makeThreads(100, newest)
	source := &fakeSource{pages: map[geekhack.Board][][]geekhack.Thread{
		geekhack.InterestChecks: paginate(threads, 50),
	}}
	scanner, store, cleanup := setupScanner(t, source)
	defer cleanup()

	seedStore(t, store, geekhack.InterestChecks, threads)

	// diverge everything except the very last record of page 2,
	// putting the watermark exactly on the page boundary
	bumped := make([]geekhack.Thread, len(threads))
	copy(bumped, threads)
	for i := 0; i < len(bumped)-1; i++ {
		bumped[i].Replies += 1
	}
	source.pages[geekhack.InterestChecks] = paginate(bumped, 50)

	result, err := scanner.Scan(context.Background(), geekhack.InterestChecks)
	require.NoError(t, err)
	require.Equal(t, ScanResult{
		PagesVisited:     2,
		ThreadsUpdated:   99,
		ThreadsUnchanged: 1,
	}, result)
	require.Equal(t, []int{1, 2}, source.calls, "the watermark on page 2 must not trigger a page 3 fetch")
}

func TestFieldLevelChangeDetection(t *testing.T) {
	newest := time.Date(2025, time.August, 18, 12, 0, 0, 0, timezone.Location)
	threads := makeThreads(1, newest)
	source := &fakeSource{pages: map[geekhack.Board][][]geekhack.Thread{
		geekhack.InterestChecks: paginate(threads, 50),
	}}
	scanner, store, cleanup := setupScanner(t, source)
	defer cleanup()

	seedStore(t, store, geekhack.InterestChecks, threads)

	// only the reply count moves; title and activity time stay put
	bumped := make([]geekhack.Thread, 1)
	copy(bumped, threads)
	bumped[0].Replies += 1
	source.pages[geekhack.InterestChecks] = paginate(bumped, 50)

	result, err := scanner.Scan(context.Background(), geekhack.InterestChecks)
	require.NoError(t, err)
	require.Equal(t, 1, result.ThreadsUpdated)

	stored, found, err := store.Get(context.Background(), geekhack.InterestChecks, bumped[0].ID)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, bumped[0].Replies, stored.Replies)
}

func TestEndOfListingTermination(t *testing.T) {
	newest := time.Date(2025, time.August, 18, 12, 0, 0, 0, timezone.Location)
	threads := makeThreads(50, newest)
	source := &fakeSource{pages: map[geekhack.Board][][]geekhack.Thread{
		geekhack.InterestChecks: paginate(threads, 50),
	}}
	scanner, _, cleanup := setupScanner(t, source)
	defer cleanup()

	result, err := scanner.Scan(context.Background(), geekhack.InterestChecks)
	require.NoError(t, err)
	require.Equal(t, ScanResult{
		PagesVisited:     1,
		ThreadsUpdated:   50,
		ThreadsUnchanged: 0,
	}, result, "an empty trailing page must not count a phantom unchanged record")
	require.Equal(t, []int{1, 2}, source.calls)
}

func TestFailedPageAbortsBoardButKeepsUpserts(t *testing.T) {
	newest := time.Date(2025, time.August, 18, 12, 0, 0, 0, timezone.Location)
	threads := makeThreads(100, newest)
	boom := errors.New("listing fetch blew up")
	source := &fakeSource{
		pages: map[geekhack.Board][][]geekhack.Thread{
			geekhack.InterestChecks: paginate(threads, 50),
		},
		failOn:  2,
		failErr: boom,
	}
	scanner, store, cleanup := setupScanner(t, source)
	defer cleanup()

	result, err := scanner.Scan(context.Background(), geekhack.InterestChecks)
	require.ErrorIs(t, err, boom)
	require.Equal(t, 50, result.ThreadsUpdated)

	count, err := store.Count(context.Background(), geekhack.InterestChecks)
	require.NoError(t, err)
	require.EqualValues(t, 50, count, "page 1 upserts survive a page 2 failure")
}

func TestScanAllKeepsGoingAcrossBoards(t *testing.T) {
	newest := time.Date(2025, time.August, 18, 12, 0, 0, 0, timezone.Location)
	boom := errors.New("interest checks are down")
	source := &fakeSource{
		pages: map[geekhack.Board][][]geekhack.Thread{
			geekhack.GroupBuys: paginate(makeThreads(10, newest), 50),
		},
	}

	database, cleanup := testutil.SetupDB(t, testutil.DBParams{
		Name:   "services/tracker",
		Schema: db.Schema,
	})
	defer cleanup()
	store := NewStore(database)

	failing := &boardFailingSource{
		inner:    source,
		failFor:  geekhack.InterestChecks,
		failWith: boom,
	}
	scanner := NewScanner(failing, store, ScannerOptions{})

	results, err := scanner.ScanAll(context.Background())
	require.ErrorIs(t, err, boom)
	require.Equal(t, 10, results[geekhack.GroupBuys].ThreadsUpdated,
		"a failing board must not stop the boards after it")
}

type boardFailingSource struct {
	inner    Source
	failFor  geekhack.Board
	failWith error
}

func (s *boardFailingSource) ListPage(ctx context.Context, board geekhack.Board, page int) ([]geekhack.Thread, error) {
	if board == s.failFor {
		return nil, s.failWith
	}
	return s.inner.ListPage(ctx, board, page)
}

func TestOrderViolationDoesNotChangeResults(t *testing.T) {
	newest := time.Date(2025, time.August, 18, 12, 0, 0, 0, timezone.Location)
	threads := makeThreads(100, newest)
	pages := paginate(threads, 50)
	// page 2 opens with a record newer than page 1's bottom, which the
	// scanner logs as a data-quality signal and otherwise ignores
	pages[1][0].LastReplyAt = newest.Add(time.Hour)
	source := &fakeSource{pages: map[geekhack.Board][][]geekhack.Thread{
		geekhack.InterestChecks: pages,
	}}
	scanner, _, cleanup := setupScanner(t, source)
	defer cleanup()

	result, err := scanner.Scan(context.Background(), geekhack.InterestChecks)
	require.NoError(t, err)
	require.Equal(t, 100, result.ThreadsUpdated)
	require.Equal(t, 2, result.PagesVisited)
}
