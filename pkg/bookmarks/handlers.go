package bookmarks

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/mangalife/mangalife-server/pkg/auth"
	"github.com/mangalife/mangalife-server/pkg/errcodes"
	"github.com/mangalife/mangalife-server/pkg/models"
	"github.com/mangalife/mangalife-server/pkg/response"
	"github.com/pkg/errors"
	echologger "github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/logger"
	"github.com/segmentio/encoding/json"
)

type handler struct {
	bookmarkService *Service
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := auth.MustUserID(c)
	if err != nil {
		return err
	}

	params := CreateBookmarkPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	bookmark, created, err := h.bookmarkService.UpsertBookmark(ctx, UpsertBookmarkOptions{
		UserID:  userID,
		MangaID: params.MangaID,
		Type:    params.Type,
		Notes:   params.Notes,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Bookmark *models.Bookmark `json:"bookmark"`
		Created  bool             `json:"created"`
	}{bookmark, created}

	if created {
		return errors.WithStack(response.Created(c, "Bookmark created successfully", resp))
	}
	return errors.WithStack(response.OK(c, "Bookmark updated successfully", resp))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := auth.MustUserID(c)
	if err != nil {
		return err
	}

	params := ListBookmarksQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	page, limit := normalizePage(params.Page, params.Limit)
	bookmarks, total, err := h.bookmarkService.ListBookmarks(ctx, ListBookmarksOptions{
		UserID: userID,
		Type:   params.Type,
		Page:   page,
		Limit:  limit,
		Sort:   params.Sort,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Bookmarks  []*models.Bookmark  `json:"bookmarks"`
		Pagination response.Pagination `json:"pagination"`
	}{bookmarks, response.NewPagination(page, limit, total)}

	return errors.WithStack(response.OK(c, "Bookmarks retrieved successfully", resp))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := auth.MustUserID(c)
	if err != nil {
		return err
	}

	id, err := strconv.Atoi(c.Param("bookmarkId"))
	if err != nil {
		return errcodes.NotFound("Bookmark")
	}

	params := UpdateBookmarkPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	bookmark, err := h.bookmarkService.UpdateBookmark(ctx, userID, id, UpdateBookmarkOptions{
		Type:  params.Type,
		Notes: params.Notes,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(response.OK(c, "Bookmark updated successfully", bookmark))
}

func (h *handler) delete(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := auth.MustUserID(c)
	if err != nil {
		return err
	}

	if err := h.bookmarkService.DeleteBookmark(ctx, userID, c.Param("bookKey")); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(response.OK(c, "Bookmark deleted successfully", nil))
}

func (h *handler) check(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := auth.MustUserID(c)
	if err != nil {
		return err
	}

	bookmark, err := h.bookmarkService.FindBookmark(ctx, userID, c.Param("mangaId"))
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		IsBookmarked bool             `json:"isBookmarked"`
		Bookmark     *models.Bookmark `json:"bookmark"`
	}{bookmark != nil, bookmark}

	return errors.WithStack(response.OK(c, "Bookmark status retrieved", resp))
}

func (h *handler) stats(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := auth.MustUserID(c)
	if err != nil {
		return err
	}

	stats, err := h.bookmarkService.Stats(ctx, userID)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(response.OK(c, "Bookmark statistics retrieved", stats))
}

func (h *handler) bulkCreate(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := auth.MustUserID(c)
	if err != nil {
		return err
	}

	params := BulkBookmarkPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	entries := make([]BulkEntry, 0, len(params.Bookmarks))
	for _, b := range params.Bookmarks {
		entries = append(entries, BulkEntry{MangaID: b.MangaID, Type: b.Type, Notes: b.Notes})
	}

	created, err := h.bookmarkService.BulkCreate(ctx, userID, entries)
	if err != nil {
		return errors.WithStack(err)
	}

	echologger.FromEchoContext(c).Info("bulk bookmarks created", logger.Data{
		"user_id":   userID,
		"requested": len(entries),
		"created":   created,
	})

	resp := struct {
		Created        int `json:"created"`
		TotalRequested int `json:"total_requested"`
	}{created, len(entries)}

	return errors.WithStack(response.Created(c, "Bulk bookmark operation completed", resp))
}

func (h *handler) export(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := auth.MustUserID(c)
	if err != nil {
		return err
	}

	params := ExportBookmarksQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	entries, err := h.bookmarkService.Export(ctx, userID)
	if err != nil {
		return errors.WithStack(err)
	}

	now := time.Now().UTC()
	body, err := json.Marshal(response.Envelope{
		Success: true,
		Message: "Bookmarks exported successfully",
		Data: struct {
			Bookmarks  []*ExportEntry `json:"bookmarks"`
			ExportDate time.Time      `json:"exportDate"`
			TotalCount int            `json:"totalCount"`
			Format     string         `json:"format"`
		}{entries, now, len(entries), params.Format},
	})
	if err != nil {
		return errors.WithStack(err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="bookmarks-%s.json"`, now.Format("2006-01-02")))
	return errors.WithStack(c.Blob(http.StatusOK, echo.MIMEApplicationJSON, body))
}
