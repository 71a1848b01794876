package genres

import (
	"github.com/labstack/echo/v4"
	"github.com/mangalife/mangalife-server/pkg/models"
	"github.com/mangalife/mangalife-server/pkg/response"
	"github.com/pkg/errors"
)

type handler struct {
	genreService *Service
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	genres, err := h.genreService.ListGenres(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Genres []*models.Genre `json:"genres"`
		Total  int             `json:"total"`
	}{genres, len(genres)}

	return errors.WithStack(response.OK(c, "", resp))
}
