package tracker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"hackwatch/lib/scrapers/geekhack"
	"hackwatch/services/tracker/db"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ErrStore marks persistence failures so the driver can tell them
// apart from fetch/parse trouble.
var ErrStore = errors.New("thread store failure")

// StoredThread is the last observed state of a thread plus the
// tracking metadata the scanner itself never compares on.
type StoredThread struct {
	geekhack.Thread
	FirstSeen   time.Time
	LastUpdated time.Time
}

// Store persists the last known state of every thread, keyed by
// (board, thread id). Rows are never deleted; threads that fall off
// the listing simply stop updating.
type Store struct {
	db  *sql.DB
	qry *db.Queries
}

func NewStore(database *sql.DB) Store {
	return Store{
		db:  database,
		qry: db.New(database),
	}
}

// Get returns the stored state for a thread, reporting absence
// separately from failure.
func (s Store) Get(ctx context.Context, board geekhack.Board, id int64) (StoredThread, bool, error) {
	row, err := s.qry.GetThread(ctx, db.GetThreadParams{
		Board: board.Slug,
		ID:    id,
	})
	if errors.Is(err, sql.ErrNoRows) {
		return StoredThread{}, false, nil
	}
	if err != nil {
		return StoredThread{}, false, fmt.Errorf("%w: %w", ErrStore, err)
	}
	return storedFromRow(row), true, nil
}

// Upsert writes the freshly observed state. first_seen is set once on
// insert and preserved forever after; last_updated is refreshed on
// every write.
func (s Store) Upsert(ctx context.Context, board geekhack.Board, thread geekhack.Thread, now time.Time) error {
	_, exists, err := s.Get(ctx, board, thread.ID)
	if err != nil {
		return err
	}

	if exists {
		err = s.qry.UpdateThread(ctx, db.UpdateThreadParams{
			Url:         thread.URL,
			Title:       thread.Title,
			Author:      thread.Author,
			Replies:     thread.Replies,
			LastReplyAt: thread.LastReplyAt.Unix(),
			LastReplyBy: thread.LastReplyBy,
			LastUpdated: now.Unix(),
			Board:       board.Slug,
			ID:          thread.ID,
		})
	} else {
		err = s.qry.CreateThread(ctx, db.CreateThreadParams{
			Board:       board.Slug,
			ID:          thread.ID,
			Url:         thread.URL,
			Title:       thread.Title,
			Author:      thread.Author,
			Replies:     thread.Replies,
			LastReplyAt: thread.LastReplyAt.Unix(),
			LastReplyBy: thread.LastReplyBy,
			FirstSeen:   now.Unix(),
			LastUpdated: now.Unix(),
		})
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStore, err)
	}
	return nil
}

// List returns stored threads for a board, newest activity first.
func (s Store) List(ctx context.Context, board geekhack.Board, limit int64) ([]StoredThread, error) {
	ctx, span := tracer.Start(ctx, "store:List")
	defer span.End()
	span.SetAttributes(attribute.String("board", board.Slug))

	rows, err := s.qry.ListThreads(ctx, db.ListThreadsParams{
		Board: board.Slug,
		Limit: limit,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}

	threads := make([]StoredThread, len(rows))
	for i, row := range rows {
		threads[i] = storedFromRow(row)
	}
	return threads, nil
}

func (s Store) Count(ctx context.Context, board geekhack.Board) (int64, error) {
	count, err := s.qry.CountThreads(ctx, board.Slug)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrStore, err)
	}
	return count, nil
}

func storedFromRow(row db.Thread) StoredThread {
	return StoredThread{
		Thread: geekhack.Thread{
			ID:          row.ID,
			URL:         row.Url,
			Title:       row.Title,
			Author:      row.Author,
			Replies:     row.Replies,
			LastReplyAt: time.Unix(row.LastReplyAt, 0),
			LastReplyBy: row.LastReplyBy,
		},
		FirstSeen:   time.Unix(row.FirstSeen, 0),
		LastUpdated: time.Unix(row.LastUpdated, 0),
	}
}

// changed reports whether any tracked field diverges between the
// stored state and a fresh observation. Each field is compared on its
// own; first_seen and last_updated are bookkeeping, not observations.
func changed(old StoredThread, fresh geekhack.Thread) bool {
	switch {
	case old.URL != fresh.URL:
		return true
	case old.Title != fresh.Title:
		return true
	case old.Author != fresh.Author:
		return true
	case old.Replies != fresh.Replies:
		return true
	case !old.LastReplyAt.Equal(fresh.LastReplyAt):
		return true
	case old.LastReplyBy != fresh.LastReplyBy:
		return true
	}
	return false
}
