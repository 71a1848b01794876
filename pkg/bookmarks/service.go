package bookmarks

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/mangalife/mangalife-server/pkg/books"
	"github.com/mangalife/mangalife-server/pkg/errcodes"
	"github.com/mangalife/mangalife-server/pkg/htmlutil"
	"github.com/mangalife/mangalife-server/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
	// MaxBulk caps how many bookmarks one bulk request may create.
	MaxBulk = 100

	SortCreatedAt = "created_at"
	SortTitle     = "title"
	SortRating    = "rating"
)

type ListBookmarksOptions struct {
	UserID int
	Type   string
	Page   int
	Limit  int
	Sort   string
}

type UpsertBookmarkOptions struct {
	UserID  int
	MangaID string
	Type    string
	Notes   *string
}

type UpdateBookmarkOptions struct {
	Type  *string
	Notes *string
}

type BulkEntry struct {
	MangaID string
	Type    string
	Notes   *string
}

type Stats struct {
	Total            int               `json:"total"`
	ByType           map[string]int    `json:"by_type"`
	TypeDisplayNames map[string]string `json:"type_display_names"`
}

type ExportEntry struct {
	MangaID     string    `json:"mangaId"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Type        string    `json:"type"`
	Notes       *string   `json:"notes"`
	DateAdded   time.Time `json:"dateAdded"`
	LastUpdated time.Time `json:"lastUpdated"`
}

type typeCount struct {
	BookmarkType string `bun:"bookmark_type"`
	Count        int    `bun:"count"`
}

type Service struct {
	db          *bun.DB
	bookService *books.Service
}

func NewService(db *bun.DB, bookService *books.Service) *Service {
	return &Service{db: db, bookService: bookService}
}

// UpsertBookmark creates the user's bookmark for a manga or, if one already
// exists, overwrites its type and notes. The returned bool is true when a new
// row was created.
func (svc *Service) UpsertBookmark(ctx context.Context, opts UpsertBookmarkOptions) (*models.Bookmark, bool, error) {
	if !models.IsValidBookmarkType(opts.Type) {
		return nil, false, invalidTypeError(opts.Type)
	}
	if err := svc.ensureManga(ctx, opts.MangaID); err != nil {
		return nil, false, err
	}

	now := time.Now()
	notes := cleanNotes(opts.Notes)
	bookmark := &models.Bookmark{
		CreatedAt:    now,
		UpdatedAt:    now,
		UserID:       opts.UserID,
		MangaID:      opts.MangaID,
		BookmarkType: opts.Type,
		Notes:        notes,
	}

	created := false
	err := svc.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewInsert().
			Model(bookmark).
			On("CONFLICT (user_id, manga_id) DO NOTHING").
			Returning("NULL").
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return errors.WithStack(err)
		}
		created = n == 1

		if !created {
			_, err = tx.NewUpdate().
				Model((*models.Bookmark)(nil)).
				Set("bookmark_type = ?", opts.Type).
				Set("notes = ?", notes).
				Set("updated_at = ?", now).
				Where("user_id = ?", opts.UserID).
				Where("manga_id = ?", opts.MangaID).
				Exec(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
		}

		reloaded, err := retrieveBookmark(ctx, tx, opts.UserID, "bm.manga_id = ?", opts.MangaID)
		if err != nil {
			return err
		}
		bookmark = reloaded
		return nil
	})
	if err != nil {
		return nil, false, errors.WithStack(err)
	}

	return bookmark, created, nil
}

// ListBookmarks returns one page of the user's bookmarks with their manga.
// An unrecognised type is ignored and an unrecognised sort falls back to
// newest first.
func (svc *Service) ListBookmarks(ctx context.Context, opts ListBookmarksOptions) ([]*models.Bookmark, int, error) {
	opts.Page, opts.Limit = normalizePage(opts.Page, opts.Limit)

	bookmarks := []*models.Bookmark{}
	q := svc.db.NewSelect().
		Model(&bookmarks).
		Relation("Manga.BookDetail").
		Where("bm.user_id = ?", opts.UserID)
	if models.IsValidBookmarkType(opts.Type) {
		q = q.Where("bm.bookmark_type = ?", opts.Type)
	}

	total, err := q.Count(ctx)
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	switch opts.Sort {
	case SortTitle:
		q = q.OrderExpr(`"manga__book_detail"."title" COLLATE NOCASE ASC`)
	case SortRating:
		q = q.OrderExpr(`"manga__book_detail"."rating" DESC`)
	default:
		q = q.Order("bm.created_at DESC")
	}

	err = q.
		Order("bm.id DESC").
		Limit(opts.Limit).
		Offset((opts.Page - 1) * opts.Limit).
		Scan(ctx)
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	return bookmarks, total, nil
}

// UpdateBookmark changes the type and/or notes of a bookmark the user owns.
func (svc *Service) UpdateBookmark(ctx context.Context, userID, bookmarkID int, opts UpdateBookmarkOptions) (*models.Bookmark, error) {
	if opts.Type != nil && !models.IsValidBookmarkType(*opts.Type) {
		return nil, invalidTypeError(*opts.Type)
	}

	var bookmark *models.Bookmark
	err := svc.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing, err := retrieveBookmark(ctx, tx, userID, "bm.id = ?", bookmarkID)
		if err != nil {
			return err
		}

		columns := []string{"updated_at"}
		existing.UpdatedAt = time.Now()
		if opts.Type != nil {
			existing.BookmarkType = *opts.Type
			columns = append(columns, "bookmark_type")
		}
		if opts.Notes != nil {
			existing.Notes = cleanNotes(opts.Notes)
			columns = append(columns, "notes")
		}

		_, err = tx.NewUpdate().
			Model(existing).
			Column(columns...).
			WherePK().
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		bookmark = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return bookmark, nil
}

// DeleteBookmark removes the user's bookmark for the given book.
func (svc *Service) DeleteBookmark(ctx context.Context, userID int, bookKey string) error {
	res, err := svc.db.NewDelete().
		Model((*models.Bookmark)(nil)).
		Where("user_id = ?", userID).
		Where("manga_id = ?", bookKey).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.WithStack(err)
	}
	if n == 0 {
		return errcodes.NotFound("Bookmark")
	}
	return nil
}

// FindBookmark returns the user's bookmark for mangaID, or nil if there is
// none.
func (svc *Service) FindBookmark(ctx context.Context, userID int, mangaID string) (*models.Bookmark, error) {
	bookmark, err := retrieveBookmark(ctx, svc.db, userID, "bm.manga_id = ?", mangaID)
	if errors.Is(err, errcodes.NotFound("Bookmark")) {
		return nil, nil
	}
	return bookmark, err
}

// Stats counts the user's bookmarks per type. Every type is present in the
// result, with zero when unused.
func (svc *Service) Stats(ctx context.Context, userID int) (*Stats, error) {
	var rows []typeCount
	err := svc.db.NewSelect().
		Model((*models.Bookmark)(nil)).
		Column("bm.bookmark_type").
		ColumnExpr("COUNT(*) AS count").
		Where("bm.user_id = ?", userID).
		Group("bm.bookmark_type").
		Scan(ctx, &rows)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	stats := &Stats{
		ByType:           make(map[string]int, len(models.BookmarkTypes)),
		TypeDisplayNames: models.BookmarkTypeDisplayNames,
	}
	for _, t := range models.BookmarkTypes {
		stats.ByType[t] = 0
	}
	for _, r := range rows {
		stats.ByType[r.BookmarkType] = r.Count
		stats.Total += r.Count
	}
	return stats, nil
}

// BulkCreate validates every entry before writing any of them, then inserts
// them all, skipping mangas the user has already bookmarked. It returns the
// number of rows actually created.
func (svc *Service) BulkCreate(ctx context.Context, userID int, entries []BulkEntry) (int, error) {
	if len(entries) == 0 {
		return 0, errcodes.ValidationError("At least one bookmark is required.")
	}
	if len(entries) > MaxBulk {
		return 0, errcodes.ValidationError(fmt.Sprintf("At most %d bookmarks can be created at once.", MaxBulk))
	}

	now := time.Now()
	rows := make([]*models.Bookmark, 0, len(entries))
	checked := map[string]struct{}{}
	for _, e := range entries {
		if !models.IsValidBookmarkType(e.Type) {
			return 0, errcodes.ValidationError(fmt.Sprintf("Invalid bookmark type %q for manga %s", e.Type, e.MangaID))
		}
		if _, ok := checked[e.MangaID]; !ok {
			if err := svc.ensureManga(ctx, e.MangaID); err != nil {
				return 0, err
			}
			checked[e.MangaID] = struct{}{}
		}
		rows = append(rows, &models.Bookmark{
			CreatedAt:    now,
			UpdatedAt:    now,
			UserID:       userID,
			MangaID:      e.MangaID,
			BookmarkType: e.Type,
			Notes:        cleanNotes(e.Notes),
		})
	}

	res, err := svc.db.NewInsert().
		Model(&rows).
		On("CONFLICT (user_id, manga_id) DO NOTHING").
		Returning("NULL").
		Exec(ctx)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.WithStack(err)
	}
	return int(n), nil
}

// Export returns every bookmark of the user, newest first, flattened for
// download.
func (svc *Service) Export(ctx context.Context, userID int) ([]*ExportEntry, error) {
	bookmarks := []*models.Bookmark{}
	err := svc.db.NewSelect().
		Model(&bookmarks).
		Relation("Manga.BookDetail").
		Where("bm.user_id = ?", userID).
		Order("bm.created_at DESC", "bm.id DESC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	entries := make([]*ExportEntry, 0, len(bookmarks))
	for _, b := range bookmarks {
		e := &ExportEntry{
			MangaID:     b.MangaID,
			Type:        b.BookmarkType,
			Notes:       b.Notes,
			DateAdded:   b.CreatedAt,
			LastUpdated: b.UpdatedAt,
		}
		if b.Manga != nil && b.Manga.BookDetail != nil {
			e.Title = b.Manga.BookDetail.Title
			e.Author = b.Manga.BookDetail.Author
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// SetType forces the type of the user's bookmark for mangaID. It reports
// whether a bookmark existed; none is created.
func (svc *Service) SetType(ctx context.Context, db bun.IDB, userID int, mangaID, bookmarkType string) (bool, error) {
	res, err := db.NewUpdate().
		Model((*models.Bookmark)(nil)).
		Set("bookmark_type = ?", bookmarkType).
		Set("updated_at = ?", time.Now()).
		Where("user_id = ?", userID).
		Where("manga_id = ?", mangaID).
		Exec(ctx)
	if err != nil {
		return false, errors.WithStack(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.WithStack(err)
	}
	return n > 0, nil
}

func (svc *Service) ensureManga(ctx context.Context, mangaID string) error {
	exists, err := svc.bookService.Exists(ctx, mangaID)
	if err != nil {
		return err
	}
	if !exists {
		return errcodes.NotFound("Manga")
	}
	return nil
}

func retrieveBookmark(ctx context.Context, db bun.IDB, userID int, where string, arg interface{}) (*models.Bookmark, error) {
	bookmark := &models.Bookmark{}
	err := db.NewSelect().
		Model(bookmark).
		Relation("Manga.BookDetail").
		Where("bm.user_id = ?", userID).
		Where(where, arg).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errcodes.NotFound("Bookmark")
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return bookmark, nil
}

// cleanNotes stores notes as plain text. Blank notes become NULL.
func cleanNotes(notes *string) *string {
	if notes == nil {
		return nil
	}
	s := htmlutil.Sanitize(*notes, models.BookmarkNotesMaxLength)
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

func invalidTypeError(t string) error {
	return errcodes.ValidationError(fmt.Sprintf("Invalid bookmark type %q. Valid types: %s", t, strings.Join(models.BookmarkTypes, ", ")))
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
