package db

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

const getThread = `
SELECT board, id, url, title, author, replies, last_reply_at, last_reply_by, first_seen, last_updated
FROM threads
WHERE board = ? AND id = ?
`

type GetThreadParams struct {
	Board string
	ID    int64
}

func (q *Queries) GetThread(ctx context.Context, arg GetThreadParams) (Thread, error) {
	row := q.db.QueryRowContext(ctx, getThread, arg.Board, arg.ID)
	var i Thread
	err := row.Scan(
		&i.Board,
		&i.ID,
		&i.Url,
		&i.Title,
		&i.Author,
		&i.Replies,
		&i.LastReplyAt,
		&i.LastReplyBy,
		&i.FirstSeen,
		&i.LastUpdated,
	)
	return i, err
}

const createThread = `
INSERT INTO threads (board, id, url, title, author, replies, last_reply_at, last_reply_by, first_seen, last_updated)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

type CreateThreadParams struct {
	Board       string
	ID          int64
	Url         string
	Title       string
	Author      string
	Replies     int64
	LastReplyAt int64
	LastReplyBy string
	FirstSeen   int64
	LastUpdated int64
}

func (q *Queries) CreateThread(ctx context.Context, arg CreateThreadParams) error {
	_, err := q.db.ExecContext(ctx, createThread,
		arg.Board,
		arg.ID,
		arg.Url,
		arg.Title,
		arg.Author,
		arg.Replies,
		arg.LastReplyAt,
		arg.LastReplyBy,
		arg.FirstSeen,
		arg.LastUpdated,
	)
	return err
}

const updateThread = `
UPDATE threads
SET url = ?, title = ?, author = ?, replies = ?, last_reply_at = ?, last_reply_by = ?, last_updated = ?
WHERE board = ? AND id = ?
`

type UpdateThreadParams struct {
	Url         string
	Title       string
	Author      string
	Replies     int64
	LastReplyAt int64
	LastReplyBy string
	LastUpdated int64
	Board       string
	ID          int64
}

func (q *Queries) UpdateThread(ctx context.Context, arg UpdateThreadParams) error {
	_, err := q.db.ExecContext(ctx, updateThread,
		arg.Url,
		arg.Title,
		arg.Author,
		arg.Replies,
		arg.LastReplyAt,
		arg.LastReplyBy,
		arg.LastUpdated,
		arg.Board,
		arg.ID,
	)
	return err
}

const listThreads = `
SELECT board, id, url, title, author, replies, last_reply_at, last_reply_by, first_seen, last_updated
FROM threads
WHERE board = ?
ORDER BY last_reply_at DESC
LIMIT ?
`

type ListThreadsParams struct {
	Board string
	Limit int64
}

func (q *Queries) ListThreads(ctx context.Context, arg ListThreadsParams) ([]Thread, error) {
	rows, err := q.db.QueryContext(ctx, listThreads, arg.Board, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Thread
	for rows.Next() {
		var i Thread
		err := rows.Scan(
			&i.Board,
			&i.ID,
			&i.Url,
			&i.Title,
			&i.Author,
			&i.Replies,
			&i.LastReplyAt,
			&i.LastReplyBy,
			&i.FirstSeen,
			&i.LastUpdated,
		)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countThreads = `
SELECT COUNT(*) FROM threads WHERE board = ?
`

func (q *Queries) CountThreads(ctx context.Context, board string) (int64, error) {
	row := q.db.QueryRowContext(ctx, countThreads, board)
	var count int64
	err := row.Scan(&count)
	return count, err
}
