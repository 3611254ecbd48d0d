package models

// Ad is a classified advertisement posted by a user.
type Ad struct {
	ID          int64
	Title       string
	Price       int64
	Description string
	Image       string // Stored filename in the "ads" namespace, empty if none
	AuthorID    int64
}

// AdFields are the user-editable properties of an ad.
type AdFields struct {
	Title       string
	Price       int64
	Description string
}
