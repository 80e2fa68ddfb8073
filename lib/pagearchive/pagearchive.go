package pagearchive

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/gob"
	"net/url"
	"time"

	"github.com/PuerkitoBio/purell"
	"github.com/dgraph-io/badger/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("lib/pagearchive")

// Archive keeps raw copies of fetched listing pages so parser
// regressions can be replayed against the exact markup that caused
// them. Entries are keyed by fetch time so iteration in key order is
// chronological.
type Archive struct {
	db *badger.DB
}

type Entry struct {
	URL       string
	FetchedAt time.Time
	Contents  []byte
}

func Open(dir string) (*Archive, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Archive{db: db}, nil
}

func (a *Archive) Close() error {
	return a.db.Close()
}

func key(fetchedAt time.Time, normalizedURL string) []byte {
	buf := make([]byte, 8, 8+len(normalizedURL))
	binary.BigEndian.PutUint64(buf, uint64(fetchedAt.UnixNano()))
	return append(buf, normalizedURL...)
}

func normalize(rawURL string) (string, error) {
	link, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	return purell.NormalizeURL(
		link,
		purell.FlagsSafe|
			purell.FlagsUsuallySafeNonGreedy|
			purell.FlagRemoveFragment|
			purell.FlagSortQuery,
	), nil
}

func (a *Archive) Put(ctx context.Context, rawURL string, fetchedAt time.Time, contents []byte) error {
	ctx, span := tracer.Start(ctx, "Put")
	defer span.End()

	normalized, err := normalize(rawURL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to normalize url")
		return err
	}
	span.SetAttributes(attribute.String("url", normalized))

	var serialized bytes.Buffer
	err = gob.NewEncoder(&serialized).Encode(Entry{
		URL:       normalized,
		FetchedAt: fetchedAt,
		Contents:  contents,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to serialize entry")
		return err
	}

	err = a.db.Update(func(tx *badger.Txn) error {
		return tx.Set(key(fetchedAt, normalized), serialized.Bytes())
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to write entry")
		return err
	}
	return nil
}

// Recent returns up to n archived pages, newest first.
func (a *Archive) Recent(ctx context.Context, n int) ([]Entry, error) {
	ctx, span := tracer.Start(ctx, "Recent")
	defer span.End()

	var entries []Entry
	err := a.db.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := tx.NewIterator(opts)
		defer it.Close()

		// reverse iteration starts past the last key
		it.Seek([]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff})
		for ; it.Valid() && len(entries) < n; it.Next() {
			serialized, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			var entry Entry
			err = gob.NewDecoder(bytes.NewReader(serialized)).Decode(&entry)
			if err != nil {
				return err
			}
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to iterate archive")
		return nil, err
	}
	return entries, nil
}
