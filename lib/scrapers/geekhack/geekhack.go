// Package geekhack scrapes thread listings off the geekhack.org forum.
package geekhack

import (
	"errors"
	"time"
)

// error kinds so callers can tell a dead network apart from markup
// that no longer matches the selectors
var (
	ErrFetch = errors.New("failed to fetch listing page")
	ErrParse = errors.New("failed to parse listing page")
)

// Board is one of the forum sections being tracked. ID is the numeric
// board id geekhack assigns, Slug is the stable name rows are stored
// under.
type Board struct {
	Slug string
	ID   int
}

var (
	InterestChecks = Board{Slug: "interest-checks", ID: 132}
	GroupBuys      = Board{Slug: "group-buys", ID: 70}
)

// Boards is every board hackwatch knows about, in scan order.
var Boards = []Board{InterestChecks, GroupBuys}

func BoardBySlug(slug string) (Board, bool) {
	for _, b := range Boards {
		if b.Slug == slug {
			return b, true
		}
	}
	return Board{}, false
}

// Thread is the state of a single posting as it appears on a listing
// page. Listings are sorted by LastReplyAt descending, which the
// tracker's termination rule relies on.
type Thread struct {
	// stable topic id from the thread URL's `topic` parameter
	ID    int64
	URL   string
	Title string
	// original poster, from the "Started by" line
	Author  string
	Replies int64
	// timestamp of the most recent reply
	LastReplyAt time.Time
	LastReplyBy string
}

// PostsPerPage is how many threads geekhack lists per page; listing
// URLs address pages by post offset in multiples of this.
const PostsPerPage = 50
