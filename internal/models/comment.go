package models

import "time"

// Comment is a message left by a user on an ad.
type Comment struct {
	ID        int64
	Text      string
	CreatedAt time.Time
	AdID      int64
	AuthorID  int64
}
