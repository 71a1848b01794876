// Package seed loads catalog fixtures (books, details, chapters, chapter
// images and genres) into the database. The scraper normally owns these
// tables; fixtures exist for local development and tests.
package seed

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/mangalife/mangalife-server/pkg/genres"
	"github.com/mangalife/mangalife-server/pkg/models"
	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/uptrace/bun"
)

type Catalog struct {
	Books  []Book   `json:"books"`
	Genres []string `json:"genres"`
}

type Book struct {
	BookKey       string    `json:"bookKey"`
	BookURL       string    `json:"bookUrl"`
	Title         string    `json:"title"`
	BannerURL     string    `json:"bannerUrl"`
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
	Chapters      []Chapter `json:"chapters"`
	// CreatedAt is optional and only matters for ordering.
	CreatedAt *time.Time `json:"createdAt"`
}

type Chapter struct {
	ChapterNo   string   `json:"chapterNo"`
	ChapterURL  string   `json:"chapterUrl"`
	ChapterDate string   `json:"chapterDate"`
	Images      []string `json:"images"`
}

type Result struct {
	Books    int `json:"books"`
	Chapters int `json:"chapters"`
	Images   int `json:"images"`
	Genres   int `json:"genres"`
}

// Decode reads a JSON catalog fixture.
func Decode(r io.Reader) (*Catalog, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	cat := &Catalog{}
	if err := dec.Decode(cat); err != nil {
		return nil, errors.Wrap(err, "failed to decode catalog")
	}
	return cat, nil
}

// Load inserts every book of cat together with its detail row, chapters and
// images, one transaction per book. Books whose key already exists are
// skipped. Genres named in cat.Genres or in any book's comma separated genre
// list are created if missing.
func Load(ctx context.Context, db *bun.DB, cat *Catalog) (*Result, error) {
	res := &Result{}
	genreService := genres.NewService(db)

	names := append([]string{}, cat.Genres...)
	for i := range cat.Books {
		b := &cat.Books[i]
		if strings.TrimSpace(b.BookKey) == "" {
			return nil, errors.Errorf("book %d has no bookKey", i)
		}
		inserted, err := loadBook(ctx, db, b, res)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to load book %s", b.BookKey)
		}
		if inserted {
			res.Books++
		}
		names = append(names, strings.Split(b.Genres, ",")...)
	}

	seen := map[int]struct{}{}
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		genre, err := genreService.FindOrCreateGenre(ctx, name)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		seen[genre.ID] = struct{}{}
	}
	res.Genres = len(seen)

	return res, nil
}

func loadBook(ctx context.Context, db *bun.DB, b *Book, res *Result) (bool, error) {
	now := time.Now()
	createdAt := now
	if b.CreatedAt != nil {
		createdAt = *b.CreatedAt
	}

	inserted := false
	err := db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().
			Model((*models.Book)(nil)).
			Where("b.book_key = ?", b.BookKey).
			Exists(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if exists {
			return nil
		}

		book := &models.Book{
			CreatedAt: createdAt,
			UpdatedAt: createdAt,
			BookKey:   b.BookKey,
			BookURL:   b.BookURL,
		}
		if _, err := tx.NewInsert().Model(book).Exec(ctx); err != nil {
			return errors.WithStack(err)
		}

		status := b.Status
		if status == 0 {
			status = models.BookStatusOngoing
		}
		detail := &models.BookDetail{
			CreatedAt:     createdAt,
			UpdatedAt:     createdAt,
			BookKey:       b.BookKey,
			Title:         b.Title,
			BannerURL:     b.BannerURL,
			Rank:          b.Rank,
			Authors:       b.Authors,
			Alternative:   b.Alternative,
			Author:        b.Author,
			Genres:        b.Genres,
			Summary:       b.Summary,
			Tags:          b.Tags,
			Rating:        b.Rating,
			Status:        status,
			LatestChapter: b.LatestChapter,
		}
		if _, err := tx.NewInsert().Model(detail).Exec(ctx); err != nil {
			return errors.WithStack(err)
		}

		for _, ch := range b.Chapters {
			chapter := &models.Chapter{
				CreatedAt:   now,
				UpdatedAt:   now,
				BookKey:     b.BookKey,
				ChapterNo:   ch.ChapterNo,
				ChapterURL:  ch.ChapterURL,
				ChapterDate: ch.ChapterDate,
			}
			if _, err := tx.NewInsert().Model(chapter).Exec(ctx); err != nil {
				return errors.WithStack(err)
			}
			res.Chapters++

			if len(ch.Images) == 0 {
				continue
			}
			images := make([]*models.ChapterImage, 0, len(ch.Images))
			for _, u := range ch.Images {
				images = append(images, &models.ChapterImage{
					CreatedAt: now,
					UpdatedAt: now,
					CID:       &chapter.ID,
					BookKey:   b.BookKey,
					ChapterNo: ch.ChapterNo,
					ImageURL:  u,
				})
			}
			if _, err := tx.NewInsert().Model(&images).Exec(ctx); err != nil {
				return errors.WithStack(err)
			}
			res.Images += len(images)
		}

		inserted = true
		return nil
	})
	return inserted, errors.WithStack(err)
}
