package history

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/mangalife/mangalife-server/pkg/auth"
	"github.com/mangalife/mangalife-server/pkg/binder"
	"github.com/mangalife/mangalife-server/pkg/errcodes"
	"github.com/mangalife/mangalife-server/pkg/models"
	"github.com/mangalife/mangalife-server/pkg/response"
	"github.com/pkg/errors"
	echologger "github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/logger"
)

type handler struct {
	historyService *Service
}

func clientOf(c echo.Context) Client {
	return Client{
		UserAgent: c.Request().UserAgent(),
		IPAddress: c.RealIP(),
	}
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := auth.MustUserID(c)
	if err != nil {
		return err
	}

	params := ListHistoryQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	page, limit := normalizePage(params.Page, params.Limit, DefaultLimit)
	rows, total, err := h.historyService.ListHistory(ctx, ListHistoryOptions{
		UserID:  userID,
		Page:    page,
		Limit:   limit,
		MangaID: params.MangaID,
		Days:    params.Days,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		History    []*models.ReadingHistory `json:"history"`
		Pagination response.Pagination      `json:"pagination"`
	}{rows, response.NewPagination(page, limit, total)}

	return errors.WithStack(response.OK(c, "Reading history retrieved successfully", resp))
}

func (h *handler) record(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := auth.MustUserID(c)
	if err != nil {
		return err
	}

	params := RecordProgressPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	result, err := h.historyService.RecordProgress(ctx, RecordProgressOptions{
		UserID:             userID,
		MangaID:            params.MangaID,
		ChapterNumber:      params.ChapterNumber,
		ChapterTitle:       params.ChapterTitle,
		PageNumber:         params.PageNumber,
		TotalPages:         params.TotalPages,
		ReadingTimeSeconds: params.ReadingTimeSeconds,
		DeviceType:         params.DeviceType,
		Client:             clientOf(c),
	})
	if err != nil {
		return errors.WithStack(err)
	}

	if result.Created {
		return errors.WithStack(response.Created(c, "Reading progress recorded", result))
	}
	return errors.WithStack(response.OK(c, "Reading progress updated", result))
}

func (h *handler) chapterHistory(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := auth.MustUserID(c)
	if err != nil {
		return err
	}

	history, err := h.historyService.RetrieveChapterHistory(ctx, userID, c.Param("mangaId"), c.Param("chapterNumber"))
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		History *models.ReadingHistory `json:"history"`
	}{history}

	return errors.WithStack(response.OK(c, "Chapter reading history retrieved", resp))
}

func (h *handler) progress(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := auth.MustUserID(c)
	if err != nil {
		return err
	}

	progress, err := h.historyService.MangaProgress(ctx, userID, c.Param("mangaId"))
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(response.OK(c, "Manga progress retrieved", progress))
}

func (h *handler) stats(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := auth.MustUserID(c)
	if err != nil {
		return err
	}

	params := StatsQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	stats, err := h.historyService.ReadingStats(ctx, userID, params.Days)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(response.OK(c, "Reading statistics retrieved", stats))
}

func (h *handler) continueReading(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := auth.MustUserID(c)
	if err != nil {
		return err
	}

	params := ContinueReadingQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	rows, err := h.historyService.ContinueReading(ctx, userID, params.Limit)
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		ContinueReading []*models.ReadingHistory `json:"continue_reading"`
		TotalCount      int                      `json:"total_count"`
	}{rows, len(rows)}

	return errors.WithStack(response.OK(c, "Continue reading list retrieved", resp))
}

func (h *handler) markCompleted(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := auth.MustUserID(c)
	if err != nil {
		return err
	}

	mangaID := c.Param("mangaId")
	bookmarkUpdated, err := h.historyService.MarkMangaCompleted(ctx, userID, mangaID)
	if err != nil {
		return errors.WithStack(err)
	}

	echologger.FromEchoContext(c).Info("manga marked completed", logger.Data{
		"user_id":          userID,
		"manga_id":         mangaID,
		"bookmark_updated": bookmarkUpdated,
	})

	resp := struct {
		Message         string `json:"message"`
		BookmarkUpdated bool   `json:"bookmark_updated"`
	}{"Manga marked as completed", bookmarkUpdated}

	return errors.WithStack(response.OK(c, "Manga marked as completed", resp))
}

func (h *handler) delete(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := auth.MustUserID(c)
	if err != nil {
		return err
	}

	id, err := strconv.Atoi(c.Param("historyId"))
	if err != nil {
		return errcodes.NotFound("Reading history entry")
	}

	if err := h.historyService.DeleteHistory(ctx, userID, id); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(response.OK(c, "Reading history entry deleted", nil))
}

func (h *handler) startSession(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := auth.MustUserID(c)
	if err != nil {
		return err
	}

	params := StartSessionPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	session, created, err := h.historyService.StartSession(ctx, StartSessionOptions{
		UserID:        userID,
		MangaID:       params.MangaID,
		ChapterNumber: params.ChapterNumber,
		Client:        clientOf(c),
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Session *models.ReadingSession `json:"session"`
		Created bool                   `json:"created"`
	}{session, created}

	if !created {
		return errors.WithStack(response.OK(c, "Reading session already active", resp))
	}
	return errors.WithStack(response.Created(c, "Reading session started", resp))
}

func (h *handler) endSession(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := auth.MustUserID(c)
	if err != nil {
		return err
	}

	id, err := strconv.Atoi(c.Param("sessionId"))
	if err != nil {
		return errcodes.NotFound("Active reading session")
	}

	c.Set(binder.DisallowEmptyBody, false)
	params := EndSessionPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	session, err := h.historyService.EndSession(ctx, EndSessionOptions{
		UserID:    userID,
		SessionID: id,
		PagesRead: params.PagesRead,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Session *models.ReadingSession `json:"session"`
	}{session}

	return errors.WithStack(response.OK(c, "Reading session ended", resp))
}

func (h *handler) activeSessions(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := auth.MustUserID(c)
	if err != nil {
		return err
	}

	sessions, err := h.historyService.ActiveSessions(ctx, userID)
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		ActiveSessions []*models.ReadingSession `json:"active_sessions"`
		Count          int                      `json:"count"`
	}{sessions, len(sessions)}

	return errors.WithStack(response.OK(c, "Active sessions retrieved", resp))
}
