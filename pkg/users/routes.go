package users

import (
	"github.com/labstack/echo/v4"
	"github.com/mangalife/mangalife-server/pkg/auth"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers the profile routes for the signed-in
// user.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB, authMiddleware *auth.Middleware, avatars *AvatarStore, mediaURL string) *Service {
	userService := NewService(db, avatars)

	h := &handler{
		userService: userService,
		avatars:     avatars,
		mediaURL:    mediaURL,
	}

	g.GET("/profile", h.profile, authMiddleware.Authenticate)
	g.PUT("/profile", h.updateProfile, authMiddleware.Authenticate)
	g.POST("/upload-avatar", h.uploadAvatar, authMiddleware.Authenticate)

	return userService
}
