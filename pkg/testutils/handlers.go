package testutils

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/mangalife/mangalife-server/pkg/auth"
	"github.com/mangalife/mangalife-server/pkg/errcodes"
	"github.com/mangalife/mangalife-server/pkg/models"
	"github.com/mangalife/mangalife-server/pkg/response"
	"github.com/mangalife/mangalife-server/pkg/seed"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

type handler struct {
	db          *bun.DB
	authService *auth.Service
}

type createUserPayload struct {
	Name     string `json:"name" default:"Test Reader"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// createUser registers a user and returns a ready-to-use bearer token.
// POST /test/users.
func (h *handler) createUser(c echo.Context) error {
	ctx := c.Request().Context()

	params := createUserPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	user, err := h.authService.Register(ctx, auth.RegisterOptions{
		Name:     params.Name,
		Email:    params.Email,
		Password: params.Password,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	token, err := h.authService.GenerateToken(user)
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		ID    int    `json:"id"`
		Email string `json:"email"`
		Token string `json:"token"`
	}{user.ID, user.Email, token}

	return errors.WithStack(response.Created(c, "Test user created", resp))
}

// loadCatalog inserts a catalog fixture.
// POST /test/catalog.
func (h *handler) loadCatalog(c echo.Context) error {
	ctx := c.Request().Context()

	cat, err := seed.Decode(c.Request().Body)
	if err != nil {
		return errcodes.MalformedPayload()
	}

	result, err := seed.Load(ctx, h.db, cat)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(response.Created(c, "Catalog loaded", result))
}

// deleteAll removes every user and everything they own. Comments go first
// because their author is only nulled on user deletion.
// DELETE /test/data.
func (h *handler) deleteAll(c echo.Context) error {
	ctx := c.Request().Context()

	tables := []interface{}{
		(*models.CommentLike)(nil),
		(*models.Comment)(nil),
		(*models.ReadingSession)(nil),
		(*models.ReadingHistory)(nil),
		(*models.Bookmark)(nil),
		(*models.User)(nil),
	}

	deleted := 0
	err := h.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, model := range tables {
			q := tx.NewDelete().Model(model).Where("1=1")
			if _, ok := model.(*models.User); ok {
				q = q.ForceDelete()
			}
			res, err := q.Exec(ctx)
			if err != nil {
				return errors.Wrapf(err, "failed to delete %T", model)
			}
			if _, ok := model.(*models.User); ok {
				n, _ := res.RowsAffected()
				deleted = int(n)
			}
		}
		return nil
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		DeletedUsers int `json:"deleted_users"`
	}{deleted}

	return errors.WithStack(response.OK(c, "Test data deleted", resp))
}
