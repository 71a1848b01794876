package books

import (
	"context"
	"database/sql"
	"strings"

	"github.com/mangalife/mangalife-server/pkg/errcodes"
	"github.com/mangalife/mangalife-server/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
	// SearchLimit caps title search results.
	SearchLimit = 10
)

type ListBooksOptions struct {
	Page  int
	Limit int
	Genre string
}

// SearchResult is the trimmed-down book shape returned by title search.
type SearchResult struct {
	BookKey   string `bun:"book_key" json:"bookKey"`
	Title     string `bun:"title" json:"title"`
	Author    string `bun:"author" json:"author"`
	BannerURL string `bun:"banner_url" json:"bannerUrl"`
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

// ListBooks returns one page of books, newest first, along with the total
// number of matching books.
func (svc *Service) ListBooks(ctx context.Context, opts ListBooksOptions) ([]*models.Book, int, error) {
	opts.Page, opts.Limit = normalizePage(opts.Page, opts.Limit)

	books := []*models.Book{}
	q := svc.db.NewSelect().
		Model(&books).
		Relation("BookDetail")
	if genre := strings.TrimSpace(opts.Genre); genre != "" {
		q = q.Where(`book_detail.search_genres LIKE ? ESCAPE '!'`, ContainsPattern(models.FoldForSearch(genre)))
	}

	// Count and Scan run separately; ScanAndCount runs both at once, which
	// a single sqlite connection serializes anyway.
	total, err := q.Count(ctx)
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	err = q.
		Order("b.created_at DESC", "b.id DESC").
		Limit(opts.Limit).
		Offset((opts.Page - 1) * opts.Limit).
		Scan(ctx)
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	return books, total, nil
}

// SearchBooks matches query against titles case-insensitively, including
// non-ASCII letters. A blank query matches nothing.
func (svc *Service) SearchBooks(ctx context.Context, query string) ([]*SearchResult, error) {
	results := []*SearchResult{}
	query = strings.TrimSpace(query)
	if query == "" {
		return results, nil
	}

	err := svc.db.NewSelect().
		Model((*models.BookDetail)(nil)).
		Column("bd.book_key", "bd.title", "bd.author", "bd.banner_url").
		Where(`bd.search_title LIKE ? ESCAPE '!'`, ContainsPattern(models.FoldForSearch(query))).
		OrderExpr("bd.title COLLATE NOCASE ASC").
		Limit(SearchLimit).
		Scan(ctx, &results)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return results, nil
}

// RetrieveBook returns the book with its details.
func (svc *Service) RetrieveBook(ctx context.Context, bookKey string) (*models.Book, error) {
	book := &models.Book{}
	err := svc.db.NewSelect().
		Model(book).
		Relation("BookDetail").
		Where("b.book_key = ?", bookKey).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errcodes.NotFound("Book")
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return book, nil
}

// Exists reports whether a book with bookKey is in the catalog.
func (svc *Service) Exists(ctx context.Context, bookKey string) (bool, error) {
	exists, err := svc.db.NewSelect().
		Model((*models.Book)(nil)).
		Where("b.book_key = ?", bookKey).
		Exists(ctx)
	return exists, errors.WithStack(err)
}

// ContainsPattern builds a LIKE pattern matching s anywhere. Wildcards in s
// are escaped with "!", so queries must use ESCAPE '!'.
func ContainsPattern(s string) string {
	r := strings.NewReplacer(`!`, `!!`, `%`, `!%`, `_`, `!_`)
	return "%" + r.Replace(s) + "%"
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}
