package auth

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutesWithGroup registers the public account routes. loginLimit
// throttles credential guessing on both endpoints.
func RegisterRoutesWithGroup(g *echo.Group, authService *Service, mediaURL string, loginLimit echo.MiddlewareFunc) {
	h := &handler{
		authService: authService,
		mediaURL:    mediaURL,
	}

	g.POST("/register", h.register, loginLimit)
	g.POST("/login", h.login, loginLimit)
}
