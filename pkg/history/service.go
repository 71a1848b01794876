package history

import (
	"context"
	"database/sql"
	"time"

	"github.com/mangalife/mangalife-server/pkg/bookmarks"
	"github.com/mangalife/mangalife-server/pkg/books"
	"github.com/mangalife/mangalife-server/pkg/chapternum"
	"github.com/mangalife/mangalife-server/pkg/errcodes"
	"github.com/mangalife/mangalife-server/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

const (
	DefaultLimit = 50
	MaxLimit     = 100
)

// Client identifies where a request came from. It is recorded on sessions.
type Client struct {
	UserAgent string
	IPAddress string
}

type RecordProgressOptions struct {
	UserID             int
	MangaID            string
	ChapterNumber      string
	ChapterTitle       *string
	PageNumber         int
	TotalPages         *int
	ReadingTimeSeconds int
	DeviceType         string
	Client             Client
}

type RecordProgressResult struct {
	History            *models.ReadingHistory `json:"history"`
	Created            bool                   `json:"created"`
	IsChapterCompleted bool                   `json:"isChapterCompleted"`
}

type ListHistoryOptions struct {
	UserID  int
	Page    int
	Limit   int
	MangaID string
	Days    int
}

type MangaProgress struct {
	CurrentChapter            string     `json:"current_chapter"`
	CurrentPage               int        `json:"current_page"`
	TotalPages                *int       `json:"total_pages"`
	TotalChaptersRead         int        `json:"total_chapters_read"`
	ReadingProgressPercentage float64    `json:"reading_progress_percentage"`
	LastReadAt                *time.Time `json:"last_read_at"`
	IsChapterCompleted        bool       `json:"is_chapter_completed"`
	MangaTitle                string     `json:"manga_title"`
}

type Service struct {
	db              *bun.DB
	bookService     *books.Service
	bookmarkService *bookmarks.Service
	now             func() time.Time
}

func NewService(db *bun.DB, bookService *books.Service, bookmarkService *bookmarks.Service) *Service {
	return &Service{
		db:              db,
		bookService:     bookService,
		bookmarkService: bookmarkService,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// RecordProgress upserts the (user, manga, chapter) history row. Progress is
// recomputed whenever the total page count is known, completion never
// reverts, and reading time accumulates. A positive ReadingTimeSeconds also
// records a closed session covering that much time up to now.
func (svc *Service) RecordProgress(ctx context.Context, opts RecordProgressOptions) (*RecordProgressResult, error) {
	if opts.PageNumber < 1 {
		return nil, errcodes.ValidationError(`"page_number" must be greater than or equal to 1`)
	}
	if opts.TotalPages != nil && *opts.TotalPages < opts.PageNumber {
		return nil, errcodes.ValidationError(`"page_number" cannot exceed "total_pages"`)
	}
	if opts.ReadingTimeSeconds < 0 {
		return nil, errcodes.ValidationError(`"reading_time_seconds" must be greater than or equal to 0`)
	}
	if err := svc.ensureManga(ctx, opts.MangaID); err != nil {
		return nil, err
	}

	deviceType := opts.DeviceType
	if deviceType == "" {
		deviceType = models.DetectDeviceType(opts.Client.UserAgent)
	}

	now := svc.now()
	result := &RecordProgressResult{}
	err := svc.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		fresh := &models.ReadingHistory{
			CreatedAt:          now,
			UpdatedAt:          now,
			UserID:             opts.UserID,
			MangaID:            opts.MangaID,
			ChapterNumber:      opts.ChapterNumber,
			ChapterTitle:       opts.ChapterTitle,
			PageNumber:         opts.PageNumber,
			TotalPages:         opts.TotalPages,
			ReadingTimeSeconds: opts.ReadingTimeSeconds,
			ReadAt:             now,
			DeviceType:         deviceType,
		}
		fresh.ApplyProgress()

		res, err := tx.NewInsert().
			Model(fresh).
			On("CONFLICT (user_id, manga_id, chapter_number) DO NOTHING").
			Returning("NULL").
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return errors.WithStack(err)
		}

		h, err := findHistory(ctx, tx, opts.UserID, opts.MangaID, opts.ChapterNumber)
		if err != nil {
			return err
		}

		pagesRead := opts.PageNumber
		if n == 1 {
			result.Created = true
		} else {
			pagesRead = max(0, opts.PageNumber-h.PageNumber)

			h.UpdatedAt = now
			h.ReadAt = now
			h.PageNumber = opts.PageNumber
			if opts.TotalPages != nil {
				h.TotalPages = opts.TotalPages
			}
			if opts.ChapterTitle != nil {
				h.ChapterTitle = opts.ChapterTitle
			}
			h.ReadingTimeSeconds += opts.ReadingTimeSeconds
			h.DeviceType = deviceType
			h.ApplyProgress()

			_, err = tx.NewUpdate().
				Model(h).
				Column("updated_at", "read_at", "page_number", "total_pages", "chapter_title",
					"reading_time_seconds", "reading_progress", "device_type", "is_completed").
				WherePK().
				Exec(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
		}

		if opts.ReadingTimeSeconds > 0 {
			session := newSession(h, opts.Client, now.Add(-time.Duration(opts.ReadingTimeSeconds)*time.Second))
			session.PagesRead = pagesRead
			session.Close(now)
			if _, err := tx.NewInsert().Model(session).Exec(ctx); err != nil {
				return errors.WithStack(err)
			}
		}

		result.History = h
		return nil
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	history, err := svc.retrieveWithManga(ctx, result.History.ID)
	if err != nil {
		return nil, err
	}
	result.History = history
	result.IsChapterCompleted = history.IsCompleted
	return result, nil
}

// ListHistory returns one page of the user's history, most recently read
// first, each row carrying its manga and its latest session.
func (svc *Service) ListHistory(ctx context.Context, opts ListHistoryOptions) ([]*models.ReadingHistory, int, error) {
	opts.Page, opts.Limit = normalizePage(opts.Page, opts.Limit, DefaultLimit)

	rows := []*models.ReadingHistory{}
	q := svc.db.NewSelect().
		Model(&rows).
		Relation("Manga.BookDetail").
		Where("rh.user_id = ?", opts.UserID)
	if opts.MangaID != "" {
		q = q.Where("rh.manga_id = ?", opts.MangaID)
	}
	if opts.Days > 0 {
		q = q.Where("rh.read_at >= ?", svc.now().AddDate(0, 0, -opts.Days))
	}

	total, err := q.Count(ctx)
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	err = q.
		Order("rh.read_at DESC", "rh.id DESC").
		Limit(opts.Limit).
		Offset((opts.Page - 1) * opts.Limit).
		Scan(ctx)
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	if err := svc.attachLatestSessions(ctx, rows); err != nil {
		return nil, 0, err
	}
	for _, h := range rows {
		decorate(h)
	}
	return rows, total, nil
}

// RetrieveChapterHistory returns the user's history row for one chapter with
// all of its sessions, newest first, or nil if the chapter was never read.
func (svc *Service) RetrieveChapterHistory(ctx context.Context, userID int, mangaID, chapterNumber string) (*models.ReadingHistory, error) {
	h := &models.ReadingHistory{}
	err := svc.db.NewSelect().
		Model(h).
		Relation("Sessions", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("rs.session_start DESC", "rs.id DESC")
		}).
		Where("rh.user_id = ?", userID).
		Where("rh.manga_id = ?", mangaID).
		Where("rh.chapter_number = ?", chapterNumber).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}
	decorate(h)
	return h, nil
}

// MangaProgress summarises where the user is in a manga. The current chapter
// is the numerically highest one read, ties going to the latest read.
func (svc *Service) MangaProgress(ctx context.Context, userID int, mangaID string) (*MangaProgress, error) {
	rows := []*models.ReadingHistory{}
	err := svc.db.NewSelect().
		Model(&rows).
		Relation("Manga.BookDetail").
		Where("rh.user_id = ?", userID).
		Where("rh.manga_id = ?", mangaID).
		Order("rh.read_at DESC", "rh.id DESC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	progress := &MangaProgress{}
	current := furthestChapter(rows)
	if current == nil {
		return progress, nil
	}

	readAt := current.ReadAt
	progress.CurrentChapter = current.ChapterNumber
	progress.CurrentPage = current.PageNumber
	progress.TotalPages = current.TotalPages
	progress.TotalChaptersRead = len(rows)
	progress.ReadingProgressPercentage = current.ReadingProgress
	progress.LastReadAt = &readAt
	progress.IsChapterCompleted = current.IsCompleted
	if current.Manga != nil && current.Manga.BookDetail != nil {
		progress.MangaTitle = current.Manga.BookDetail.Title
	}
	return progress, nil
}

// MarkMangaCompleted marks every history row of the manga as completed and,
// if the user has bookmarked it, moves the bookmark to "completed". No
// bookmark is created. It reports whether a bookmark was updated.
func (svc *Service) MarkMangaCompleted(ctx context.Context, userID int, mangaID string) (bool, error) {
	if err := svc.ensureManga(ctx, mangaID); err != nil {
		return false, err
	}

	bookmarkUpdated := false
	err := svc.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewUpdate().
			Model((*models.ReadingHistory)(nil)).
			Set("is_completed = ?", true).
			Set("updated_at = ?", svc.now()).
			Where("user_id = ?", userID).
			Where("manga_id = ?", mangaID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		bookmarkUpdated, err = svc.bookmarkService.SetType(ctx, tx, userID, mangaID, models.BookmarkTypeCompleted)
		return err
	})
	return bookmarkUpdated, errors.WithStack(err)
}

// DeleteHistory removes a history row the user owns together with its
// sessions.
func (svc *Service) DeleteHistory(ctx context.Context, userID, historyID int) error {
	return svc.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().
			Model((*models.ReadingHistory)(nil)).
			Where("rh.id = ?", historyID).
			Where("rh.user_id = ?", userID).
			Exists(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if !exists {
			return errcodes.NotFound("Reading history entry")
		}

		_, err = tx.NewDelete().
			Model((*models.ReadingSession)(nil)).
			Where("history_id = ?", historyID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = tx.NewDelete().
			Model((*models.ReadingHistory)(nil)).
			Where("id = ?", historyID).
			Exec(ctx)
		return errors.WithStack(err)
	})
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

func (svc *Service) retrieveWithManga(ctx context.Context, id int) (*models.ReadingHistory, error) {
	h := &models.ReadingHistory{}
	err := svc.db.NewSelect().
		Model(h).
		Relation("Manga.BookDetail").
		Where("rh.id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errcodes.NotFound("Reading history entry")
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}
	decorate(h)
	return h, nil
}

// attachLatestSessions sets Sessions on each row to its most recent session,
// if it has any.
func (svc *Service) attachLatestSessions(ctx context.Context, rows []*models.ReadingHistory) error {
	if len(rows) == 0 {
		return nil
	}
	ids := make([]int, 0, len(rows))
	for _, h := range rows {
		ids = append(ids, h.ID)
	}

	sessions := []*models.ReadingSession{}
	err := svc.db.NewSelect().
		Model(&sessions).
		Where("rs.history_id IN (?)", bun.In(ids)).
		Where(`rs.id = (
			SELECT s2.id FROM reading_sessions AS s2
			WHERE s2.history_id = rs.history_id
			ORDER BY s2.session_start DESC, s2.id DESC
			LIMIT 1
		)`).
		Scan(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	byHistory := make(map[int]*models.ReadingSession, len(sessions))
	for _, s := range sessions {
		byHistory[s.HistoryID] = s
	}
	for _, h := range rows {
		h.Sessions = []*models.ReadingSession{}
		if s, ok := byHistory[h.ID]; ok {
			h.Sessions = append(h.Sessions, s)
		}
	}
	return nil
}

func findHistory(ctx context.Context, db bun.IDB, userID int, mangaID, chapterNumber string) (*models.ReadingHistory, error) {
	h := &models.ReadingHistory{}
	err := db.NewSelect().
		Model(h).
		Where("rh.user_id = ?", userID).
		Where("rh.manga_id = ?", mangaID).
		Where("rh.chapter_number = ?", chapterNumber).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errcodes.NotFound("Reading history")
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return h, nil
}

// furthestChapter picks the row with the numerically highest chapter. rows
// must be ordered most recently read first so ties keep the latest read.
func furthestChapter(rows []*models.ReadingHistory) *models.ReadingHistory {
	var best *models.ReadingHistory
	for _, h := range rows {
		if best == nil || chapternum.Compare(h.ChapterNumber, best.ChapterNumber) > 0 {
			best = h
		}
	}
	return best
}

func decorate(h *models.ReadingHistory) {
	h.ReadingTimeFormatted = models.FormatDuration(h.ReadingTimeSeconds)
	for _, s := range h.Sessions {
		if s.SessionDurationSeconds != nil {
			s.DurationFormatted = models.FormatDuration(*s.SessionDurationSeconds)
		}
	}
}

func normalizePage(page, limit, def int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = def
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}
