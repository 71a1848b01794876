package bookmarks

import (
	"github.com/labstack/echo/v4"
	"github.com/mangalife/mangalife-server/pkg/auth"
	"github.com/mangalife/mangalife-server/pkg/books"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers the bookmark routes. Every route requires
// an authenticated user.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB, bookService *books.Service, authMiddleware *auth.Middleware) *Service {
	bookmarkService := NewService(db, bookService)
	h := &handler{bookmarkService}

	g.Use(authMiddleware.Authenticate)

	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/stats", h.stats)
	g.GET("/export", h.export)
	g.GET("/check/:mangaId", h.check)
	g.POST("/bulk", h.bulkCreate)
	g.PUT("/:bookmarkId", h.update)
	g.DELETE("/:bookKey", h.delete)

	return bookmarkService
}
