package core

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// NewID returns a time-ordered identifier for t. IDs generated in the same
// millisecond stay unique and increasing within the process.
func NewID(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t), ulid.DefaultEntropy()).String()
}

// IDTime extracts the creation time encoded in an id produced by NewID.
func IDTime(id string) (time.Time, bool) {
	u, err := ulid.ParseStrict(id)
	if err != nil {
		return time.Time{}, false
	}
	return ulid.Time(u.Time()), true
}
