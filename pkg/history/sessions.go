package history

import (
	"context"
	"database/sql"
	"time"

	"github.com/mangalife/mangalife-server/pkg/database"
	"github.com/mangalife/mangalife-server/pkg/errcodes"
	"github.com/mangalife/mangalife-server/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

type StartSessionOptions struct {
	UserID        int
	MangaID       string
	ChapterNumber string
	Client        Client
}

type EndSessionOptions struct {
	UserID    int
	SessionID int
	PagesRead *int
}

// StartSession opens a session on an existing history row. If one is already
// open it is returned with created false.
func (svc *Service) StartSession(ctx context.Context, opts StartSessionOptions) (*models.ReadingSession, bool, error) {
	h, err := findHistory(ctx, svc.db, opts.UserID, opts.MangaID, opts.ChapterNumber)
	if err != nil {
		return nil, false, err
	}

	open, err := svc.openSession(ctx, h.ID)
	if err != nil {
		return nil, false, err
	}
	if open != nil {
		return open, false, nil
	}

	session := newSession(h, opts.Client, svc.now())
	_, err = svc.db.NewInsert().Model(session).Exec(ctx)
	if database.IsUniqueViolation(err) {
		// Lost a race with a concurrent start for the same chapter.
		open, err = svc.openSession(ctx, h.ID)
		if err != nil {
			return nil, false, err
		}
		if open != nil {
			return open, false, nil
		}
		return nil, false, errors.New("open reading session vanished after conflict")
	}
	if err != nil {
		return nil, false, errors.WithStack(err)
	}
	return session, true, nil
}

// EndSession closes an open session owned by the user. Ending a session that
// is already closed is a NotFound.
func (svc *Service) EndSession(ctx context.Context, opts EndSessionOptions) (*models.ReadingSession, error) {
	if opts.PagesRead != nil && *opts.PagesRead < 0 {
		return nil, errcodes.ValidationError(`"pages_read" must be greater than or equal to 0`)
	}

	session := &models.ReadingSession{}
	err := svc.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		err := tx.NewSelect().
			Model(session).
			Where("rs.id = ?", opts.SessionID).
			Where("rs.user_id = ?", opts.UserID).
			Where("rs.session_end IS NULL").
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return errcodes.NotFound("Active reading session")
		}
		if err != nil {
			return errors.WithStack(err)
		}

		now := svc.now()
		session.Close(now)
		session.UpdatedAt = now
		if opts.PagesRead != nil {
			session.PagesRead = *opts.PagesRead
		}

		res, err := tx.NewUpdate().
			Model(session).
			Column("session_end", "session_duration_seconds", "pages_read", "updated_at").
			WherePK().
			Where("session_end IS NULL").
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return errors.WithStack(err)
		}
		if n == 0 {
			return errcodes.NotFound("Active reading session")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// ActiveSessions lists the user's open sessions, newest first, with their
// history row and manga.
func (svc *Service) ActiveSessions(ctx context.Context, userID int) ([]*models.ReadingSession, error) {
	sessions := []*models.ReadingSession{}
	err := svc.db.NewSelect().
		Model(&sessions).
		Relation("History.Manga.BookDetail").
		Where("rs.user_id = ?", userID).
		Where("rs.session_end IS NULL").
		Order("rs.session_start DESC", "rs.id DESC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	for _, s := range sessions {
		if s.History != nil {
			decorate(s.History)
		}
	}
	return sessions, nil
}

func (svc *Service) openSession(ctx context.Context, historyID int) (*models.ReadingSession, error) {
	session := &models.ReadingSession{}
	err := svc.db.NewSelect().
		Model(session).
		Where("rs.history_id = ?", historyID).
		Where("rs.session_end IS NULL").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return session, nil
}

func newSession(h *models.ReadingHistory, client Client, start time.Time) *models.ReadingSession {
	s := &models.ReadingSession{
		CreatedAt:    start,
		UpdatedAt:    start,
		HistoryID:    h.ID,
		UserID:       h.UserID,
		SessionStart: start,
		DeviceInfo:   models.NewDeviceInfo(client.UserAgent, start),
	}
	if client.IPAddress != "" {
		ip := client.IPAddress
		s.IPAddress = &ip
	}
	if client.UserAgent != "" {
		ua := client.UserAgent
		s.UserAgent = &ua
	}
	return s
}
