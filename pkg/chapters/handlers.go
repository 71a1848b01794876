package chapters

import (
	"github.com/labstack/echo/v4"
	"github.com/mangalife/mangalife-server/pkg/response"
	"github.com/pkg/errors"
)

type handler struct {
	chapterService *Service
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	chapters, err := h.chapterService.ListChapters(ctx, c.Param("bookKey"))
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(response.OK(c, "", chapters))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()

	details, err := h.chapterService.RetrieveChapterDetails(ctx, c.Param("bookKey"), c.Param("chapterNo"))
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(response.OK(c, "", details))
}
