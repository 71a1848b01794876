package config

import (
	"github.com/labstack/echo/v4"
	"github.com/mangalife/mangalife-server/pkg/response"
	"github.com/pkg/errors"
)

type handler struct {
	configService *Service
}

func (h *handler) retrieve(c echo.Context) error {
	return errors.WithStack(response.OK(c, "", h.configService.RetrieveClientConfig()))
}
