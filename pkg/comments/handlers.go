package comments

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/mangalife/mangalife-server/pkg/auth"
	"github.com/mangalife/mangalife-server/pkg/errcodes"
	"github.com/mangalife/mangalife-server/pkg/response"
	"github.com/pkg/errors"
)

type handler struct {
	commentService *Service
}

func viewer(c echo.Context) *int {
	if id, ok := auth.GetUserIDFromContext(c); ok {
		return &id
	}
	return nil
}

func commentID(c echo.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return 0, errcodes.NotFound("Comment")
	}
	return id, nil
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListCommentsQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	views, err := h.commentService.ListComments(ctx, params.PostID, viewer(c))
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(response.OK(c, "Comments fetched", views))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := commentID(c)
	if err != nil {
		return err
	}

	view, err := h.commentService.RetrieveComment(ctx, id, viewer(c))
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(response.OK(c, "Comment fetched", view))
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := auth.MustUserID(c)
	if err != nil {
		return err
	}

	params := CreateCommentPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	view, err := h.commentService.CreateComment(ctx, CreateCommentOptions{
		PostID:   params.PostID,
		Text:     params.Text,
		ParentID: params.ParentID,
		UserID:   userID,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(response.Created(c, "Comment created", view))
}

func (h *handler) toggleLike(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := auth.MustUserID(c)
	if err != nil {
		return err
	}
	id, err := commentID(c)
	if err != nil {
		return err
	}

	liked, likes, err := h.commentService.ToggleLike(ctx, id, userID)
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Liked bool `json:"liked"`
		Likes int  `json:"likes"`
	}{liked, likes}

	return errors.WithStack(response.OK(c, "Toggled like", resp))
}
