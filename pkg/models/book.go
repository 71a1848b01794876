package models

import (
	"context"
	"time"

	"github.com/uptrace/bun"
	"golang.org/x/text/cases"
)

// Book is a catalog entry keyed by the scraper-assigned book key.
type Book struct {
	bun.BaseModel `bun:"table:books,alias:b"`

	ID         int         `bun:",pk,nullzero" json:"id"`
	CreatedAt  time.Time   `bun:",nullzero,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt  time.Time   `bun:",nullzero,notnull,default:current_timestamp" json:"updatedAt"`
	BookKey    string      `bun:",notnull" json:"bookKey"`
	BookURL    string      `bun:"book_url,notnull" json:"bookUrl"`
	BookDetail *BookDetail `bun:"rel:has-one,join:book_key=book_key" json:"bookDetail,omitempty"`
}

const (
	BookStatusOngoing = iota + 1
	BookStatusCompleted
	BookStatusOnHold
	BookStatusCancelled
	BookStatusUpcoming
)

var BookStatusNames = map[int]string{
	BookStatusOngoing:   "ongoing",
	BookStatusCompleted: "completed",
	BookStatusOnHold:    "on-hold",
	BookStatusCancelled: "cancelled",
	BookStatusUpcoming:  "upcoming",
}

type BookDetail struct {
	bun.BaseModel `bun:"table:book_details,alias:bd"`

	ID            int       `bun:",pk,nullzero" json:"id"`
	CreatedAt     time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt     time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"updatedAt"`
	BookKey       string    `bun:",notnull" json:"bookKey"`
	Title         string    `json:"title"`
	BannerURL     string    `bun:"banner_url" json:"bannerUrl"`
	Rank          string    `json:"rank"`
	Authors       string    `json:"authors"`
	Alternative   string    `json:"alternative"`
	Author        string    `json:"author"`
	Genres        string    `json:"genres"`
	Summary       string    `json:"summary"`
	Tags          string    `json:"tags"`
	Rating        float64   `json:"rating"`
	Status        int       `json:"status"`
	LatestChapter string    `json:"latestChapter"`

	// Case-folded copies of Title and Genres. SQLite's LIKE only ignores
	// ASCII case, so searches compare these against a folded query.
	SearchTitle  string `bun:",notnull" json:"-"`
	SearchGenres string `bun:",notnull" json:"-"`
}

var _ bun.BeforeAppendModelHook = (*BookDetail)(nil)

// BeforeAppendModel keeps the folded search columns in step with Title and
// Genres on every insert and update.
func (d *BookDetail) BeforeAppendModel(_ context.Context, query bun.Query) error {
	switch query.(type) {
	case *bun.InsertQuery, *bun.UpdateQuery:
		d.SearchTitle = FoldForSearch(d.Title)
		d.SearchGenres = FoldForSearch(d.Genres)
	}
	return nil
}

// FoldForSearch case-folds s with full Unicode rules, so "ÉTÉ" and "été"
// compare equal.
func FoldForSearch(s string) string {
	return cases.Fold().String(s)
}

// StatusName returns the readable label for Status, or "unknown".
func (d *BookDetail) StatusName() string {
	if name, ok := BookStatusNames[d.Status]; ok {
		return name
	}
	return "unknown"
}
