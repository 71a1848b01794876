package books

import (
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers the public catalog routes.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB) *Service {
	bookService := NewService(db)
	h := &handler{bookService}

	g.GET("/books", h.list)
	g.GET("/bookSearch", h.search)
	g.GET("/book/:bookKey", h.retrieve)

	return bookService
}
