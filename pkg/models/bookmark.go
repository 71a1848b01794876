package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	BookmarkTypeFavorite   = "favorite"
	BookmarkTypeReading    = "reading"
	BookmarkTypeCompleted  = "completed"
	BookmarkTypePlanToRead = "plan_to_read"
	BookmarkTypeDropped    = "dropped"
)

// BookmarkTypes lists every bookmark type in display order.
var BookmarkTypes = []string{
	BookmarkTypeFavorite,
	BookmarkTypeReading,
	BookmarkTypeCompleted,
	BookmarkTypePlanToRead,
	BookmarkTypeDropped,
}

var BookmarkTypeDisplayNames = map[string]string{
	BookmarkTypeFavorite:   "Favorite",
	BookmarkTypeReading:    "Currently Reading",
	BookmarkTypeCompleted:  "Completed",
	BookmarkTypePlanToRead: "Plan to Read",
	BookmarkTypeDropped:    "Dropped",
}

const BookmarkNotesMaxLength = 2000

type Bookmark struct {
	bun.BaseModel `bun:"table:bookmarks,alias:bm"`

	ID           int       `bun:",pk,nullzero" json:"id"`
	CreatedAt    time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt    time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"updated_at"`
	UserID       int       `bun:",notnull" json:"user_id"`
	MangaID      string    `bun:",notnull" json:"manga_id"`
	BookmarkType string    `bun:",notnull" json:"bookmark_type"`
	Notes        *string   `json:"notes"`
	Manga        *Book     `bun:"rel:belongs-to,join:manga_id=book_key" json:"manga,omitempty"`
}

// IsValidBookmarkType reports whether t is one of BookmarkTypes.
func IsValidBookmarkType(t string) bool {
	_, ok := BookmarkTypeDisplayNames[t]
	return ok
}
