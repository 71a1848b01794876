package history

import (
	"github.com/labstack/echo/v4"
	"github.com/mangalife/mangalife-server/pkg/auth"
	"github.com/mangalife/mangalife-server/pkg/bookmarks"
	"github.com/mangalife/mangalife-server/pkg/books"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers the reading history and session routes.
// Every route requires an authenticated user.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB, bookService *books.Service, bookmarkService *bookmarks.Service, authMiddleware *auth.Middleware) *Service {
	historyService := NewService(db, bookService, bookmarkService)
	h := &handler{historyService}

	g.Use(authMiddleware.Authenticate)

	g.GET("", h.list)
	g.POST("", h.record)
	g.GET("/stats", h.stats)
	g.GET("/continue-reading", h.continueReading)
	g.GET("/manga/:mangaId/:chapterNumber", h.chapterHistory)
	g.GET("/progress/:mangaId", h.progress)
	g.POST("/session/start", h.startSession)
	g.PUT("/session/:sessionId/end", h.endSession)
	g.GET("/sessions/active", h.activeSessions)
	g.PUT("/mark-completed/:mangaId", h.markCompleted)
	g.DELETE("/:historyId", h.delete)

	return historyService
}
