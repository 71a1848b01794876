package chapters

import (
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers the chapter routes nested under a book.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB, frontendURL string) {
	h := &handler{NewService(db, frontendURL)}

	g.GET("/book/:bookKey/chapters", h.list)
	g.GET("/book/:bookKey/chapters/:chapterNo", h.retrieve)
}
