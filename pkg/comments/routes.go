package comments

import (
	"github.com/labstack/echo/v4"
	"github.com/mangalife/mangalife-server/pkg/auth"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers the comment routes. Reads are open to
// anonymous users; writing and liking require a login.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB, mediaURL string, authMiddleware *auth.Middleware) {
	commentService := NewService(db, mediaURL)
	h := &handler{commentService}

	g.GET("", h.list, authMiddleware.AuthenticateOptional)
	g.GET("/:id", h.retrieve, authMiddleware.AuthenticateOptional)
	g.POST("", h.create, authMiddleware.Authenticate)
	g.POST("/:id/like", h.toggleLike, authMiddleware.Authenticate)
}
