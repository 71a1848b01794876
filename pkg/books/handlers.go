package books

import (
	"github.com/labstack/echo/v4"
	"github.com/mangalife/mangalife-server/pkg/models"
	"github.com/mangalife/mangalife-server/pkg/response"
	"github.com/pkg/errors"
)

type handler struct {
	bookService *Service
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	// Bind params.
	params := ListBooksQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	page, limit := normalizePage(params.Page, params.Limit)
	books, total, err := h.bookService.ListBooks(ctx, ListBooksOptions{
		Page:  page,
		Limit: limit,
		Genre: params.Genre,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Books      []*models.Book      `json:"books"`
		Total      int                 `json:"total"`
		Pagination response.Pagination `json:"pagination"`
	}{books, total, response.NewPagination(page, limit, total)}

	return errors.WithStack(response.OK(c, "", resp))
}

func (h *handler) search(c echo.Context) error {
	ctx := c.Request().Context()

	params := SearchBooksQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	results, err := h.bookService.SearchBooks(ctx, params.Q)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(response.OK(c, "", results))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()

	book, err := h.bookService.RetrieveBook(ctx, c.Param("bookKey"))
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(response.OK(c, "", book))
}
