package db

// Thread mirrors one row of the threads table. Timestamps are unix
// seconds.
type Thread struct {
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
