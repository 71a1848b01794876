package chapters

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	"github.com/mangalife/mangalife-server/pkg/chapternum"
	"github.com/mangalife/mangalife-server/pkg/errcodes"
	"github.com/mangalife/mangalife-server/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

// ChapterDetails is a chapter with its page images and links to the
// chapters on either side of it.
type ChapterDetails struct {
	Chapter        *models.Chapter        `json:"chapter"`
	Images         []*models.ChapterImage `json:"images"`
	PrevChapterURL *string                `json:"prevChapterUrl"`
	NextChapterURL *string                `json:"nextChapterUrl"`
}

type Service struct {
	db          *bun.DB
	frontendURL string
}

func NewService(db *bun.DB, frontendURL string) *Service {
	return &Service{db: db, frontendURL: strings.TrimRight(frontendURL, "/")}
}

// ListChapters returns the chapters of a book, highest chapter number first.
// An unknown book has no chapters.
func (svc *Service) ListChapters(ctx context.Context, bookKey string) ([]*models.Chapter, error) {
	chapters := []*models.Chapter{}
	err := svc.db.NewSelect().
		Model(&chapters).
		Where("ch.book_key = ?", bookKey).
		Order("ch.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	chapternum.SortDesc(chapters, func(ch *models.Chapter) string { return ch.ChapterNo })
	return chapters, nil
}

// RetrieveChapterDetails returns the chapter, its images in page order, and
// reader links to the numerically adjacent chapters of the same book.
func (svc *Service) RetrieveChapterDetails(ctx context.Context, bookKey, chapterNo string) (*ChapterDetails, error) {
	chapter := &models.Chapter{}
	err := svc.db.NewSelect().
		Model(chapter).
		Where("ch.book_key = ?", bookKey).
		Where("ch.chapter_no = ?", chapterNo).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errcodes.NotFound("Chapter")
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}

	images := []*models.ChapterImage{}
	err = svc.db.NewSelect().
		Model(&images).
		Where("ci.book_key = ?", bookKey).
		Where("ci.chapter_no = ?", chapterNo).
		Order("ci.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	var labels []string
	err = svc.db.NewSelect().
		Model((*models.Chapter)(nil)).
		Column("ch.chapter_no").
		Where("ch.book_key = ?", bookKey).
		Scan(ctx, &labels)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	prev, next := chapternum.Neighbors(labels, chapter.ChapterNo)

	return &ChapterDetails{
		Chapter:        chapter,
		Images:         images,
		PrevChapterURL: svc.readerURL(bookKey, prev),
		NextChapterURL: svc.readerURL(bookKey, next),
	}, nil
}

func (svc *Service) readerURL(bookKey, chapterNo string) *string {
	if chapterNo == "" {
		return nil
	}
	u := fmt.Sprintf("%s/manga/%s/chapter/%s", svc.frontendURL, url.PathEscape(bookKey), url.PathEscape(chapterNo))
	return &u
}
