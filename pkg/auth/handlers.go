package auth

import (
	"github.com/labstack/echo/v4"
	"github.com/mangalife/mangalife-server/pkg/response"
	"github.com/pkg/errors"
)

type handler struct {
	authService *Service
	mediaURL    string
}

// register creates an account and signs the new user in.
func (h *handler) register(c echo.Context) error {
	ctx := c.Request().Context()

	params := RegisterPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	user, err := h.authService.Register(ctx, RegisterOptions{
		Name:     params.Name,
		Email:    params.Email,
		Password: params.Password,
		Mobile:   params.Mobile,
		Dob:      params.Dob,
	})
	if err != nil {
		return err
	}

	token, err := h.authService.GenerateToken(user)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(response.Created(c, "User registered successfully", AuthResponse{
		Token: token,
		User:  user.WithMediaURL(h.mediaURL),
	}))
}

// login handles user login.
func (h *handler) login(c echo.Context) error {
	ctx := c.Request().Context()

	params := LoginPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	user, err := h.authService.Authenticate(ctx, params.Email, params.Password)
	if err != nil {
		return err
	}

	token, err := h.authService.GenerateToken(user)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(response.OK(c, "Login successful", AuthResponse{
		Token: token,
		User:  user.WithMediaURL(h.mediaURL),
	}))
}
