package users

import (
	"fmt"
	"io"

	"github.com/labstack/echo/v4"
	"github.com/mangalife/mangalife-server/pkg/auth"
	"github.com/mangalife/mangalife-server/pkg/errcodes"
	"github.com/mangalife/mangalife-server/pkg/response"
	"github.com/pkg/errors"
)

type handler struct {
	userService *Service
	avatars     *AvatarStore
	mediaURL    string
}

func (h *handler) profile(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := auth.MustUserID(c)
	if err != nil {
		return err
	}

	user, err := h.userService.Retrieve(ctx, userID)
	if err != nil {
		return err
	}

	return errors.WithStack(response.OK(c, "", user.WithMediaURL(h.mediaURL)))
}

func (h *handler) updateProfile(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := auth.MustUserID(c)
	if err != nil {
		return err
	}

	params := UpdateProfilePayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	user, err := h.userService.Retrieve(ctx, userID)
	if err != nil {
		return err
	}

	user, err = h.userService.UpdateProfile(ctx, user, UpdateProfileOptions(params))
	if err != nil {
		return err
	}

	return errors.WithStack(response.OK(c, "Profile updated successfully", user.WithMediaURL(h.mediaURL)))
}

func (h *handler) uploadAvatar(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := auth.MustUserID(c)
	if err != nil {
		return err
	}

	fh, err := c.FormFile("avatar")
	if err != nil {
		return errcodes.ValidationError("Avatar file is required")
	}
	maxBytes := h.avatars.MaxBytes()
	if fh.Size > maxBytes {
		return errcodes.PayloadTooLarge(fmt.Sprintf("Avatar must be at most %d bytes", maxBytes))
	}

	f, err := fh.Open()
	if err != nil {
		return errors.WithStack(err)
	}
	defer f.Close()

	// read one byte past the limit so an understated part size is still caught
	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return errors.WithStack(err)
	}

	user, err := h.userService.Retrieve(ctx, userID)
	if err != nil {
		return err
	}

	user, err = h.userService.UpdateAvatar(ctx, user, data)
	if err != nil {
		return err
	}

	return errors.WithStack(response.OK(c, "Avatar uploaded successfully", AvatarResponse{
		ProfilePicture:         user.ProfilePictureURL(h.mediaURL),
		ProfilePictureBlurhash: user.ProfilePictureBlurhash,
	}))
}
