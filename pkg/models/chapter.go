package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Chapter struct {
	bun.BaseModel `bun:"table:chapters,alias:ch"`

	ID          int       `bun:",pk,autoincrement" json:"id"`
	CreatedAt   time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt   time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"updatedAt"`
	BookKey     string    `bun:",notnull" json:"bookKey"`
	ChapterNo   string    `bun:",notnull" json:"chapterNo"`
	ChapterURL  string    `bun:"chapter_url" json:"chapterUrl"`
	ChapterDate string    `json:"chapterDate"`
}

// ChapterImage is one page of a chapter. Pages are ordered by ID.
type ChapterImage struct {
	bun.BaseModel `bun:"table:chapter_images,alias:ci"`

	ID           int        `bun:",pk,autoincrement" json:"id"`
	CreatedAt    time.Time  `bun:",nullzero,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt    time.Time  `bun:",nullzero,notnull,default:current_timestamp" json:"updatedAt"`
	CID          *int       `bun:"c_id" json:"cId"`
	BookKey      string     `json:"bookKey"`
	ChapterNo    string     `json:"chapterNo"`
	ImageURL     string     `bun:"image_url" json:"imageUrl"`
	IsDownloaded bool       `bun:",notnull" json:"isDownloaded"`
	ImageName    *string    `json:"imageName"`
	ScrapedAt    *time.Time `json:"scrapedAt"`
	IsBigSize    bool       `bun:",notnull" json:"isBigSize"`
}
