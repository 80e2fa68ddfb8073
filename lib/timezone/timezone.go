package timezone

import "time"

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("America/New_York")
	if err != nil {
		panic(err)
	}
}

// geekhack timestamps carry no zone marker, so parsing is pinned to a
// single location to keep stored values comparable between runs even
// when the host machine moves timezones.
func Now() time.Time {
	return time.Now().In(Location)
}
