package config

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutesWithGroup registers the public client config route.
func RegisterRoutesWithGroup(g *echo.Group, cfg *Config) {
	h := &handler{configService: NewService(cfg)}

	g.GET("", h.retrieve)
}
