package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/mangalife/mangalife-server/pkg/auth"
	"github.com/mangalife/mangalife-server/pkg/binder"
	"github.com/mangalife/mangalife-server/pkg/bookmarks"
	"github.com/mangalife/mangalife-server/pkg/books"
	"github.com/mangalife/mangalife-server/pkg/chapters"
	"github.com/mangalife/mangalife-server/pkg/comments"
	"github.com/mangalife/mangalife-server/pkg/config"
	"github.com/mangalife/mangalife-server/pkg/errcodes"
	"github.com/mangalife/mangalife-server/pkg/genres"
	"github.com/mangalife/mangalife-server/pkg/history"
	"github.com/mangalife/mangalife-server/pkg/imageproxy"
	"github.com/mangalife/mangalife-server/pkg/ratelimit"
	"github.com/mangalife/mangalife-server/pkg/testutils"
	"github.com/mangalife/mangalife-server/pkg/users"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/health"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/echo/v4/middleware/recovery"
	"github.com/uptrace/bun"
)

// bodyLimit leaves headroom over the avatar size for multipart framing.
const bodyLimit = "8M"

func New(cfg *config.Config, db *bun.DB) (*http.Server, error) {
	e := echo.New()

	b, err := binder.New()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	e.Binder = b

	e.IPExtractor, err = ratelimit.IPExtractor(cfg.TrustedProxies)
	if err != nil {
		return nil, err
	}

	e.Use(logger.Middleware())
	e.Use(recovery.Middleware())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:  cfg.CORSAllowedOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{echo.HeaderAuthorization, echo.HeaderContentType, "Range", "If-None-Match", "If-Modified-Since"},
		ExposeHeaders: []string{echo.HeaderContentDisposition, echo.HeaderContentLength, "Content-Range", "Accept-Ranges"},
	}))
	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}))
	e.Use(middleware.BodyLimit(bodyLimit))

	health.RegisterRoutes(e)
	e.Static("/media", cfg.MediaDir)

	apiLimiter := ratelimit.New(cfg.RateLimitRequestsPerMinute, cfg.RateLimitBurst)
	loginLimiter := ratelimit.New(cfg.LoginRequestsPerMinute, cfg.LoginBurst)
	proxyLimiter := ratelimit.New(cfg.ImageProxyRequestsPerMinute, cfg.ImageProxyBurst)

	// The proxy sits outside the /api group so image bursts only count
	// against their own limiter.
	proxyGroup := e.Group("/api/proxy-image")
	if err := imageproxy.RegisterRoutesWithGroup(proxyGroup, cfg, proxyLimiter); err != nil {
		return nil, errors.WithStack(err)
	}

	api := e.Group("/api")
	api.Use(ratelimit.Middleware(apiLimiter))

	authService := auth.NewService(db, cfg.JWTSecret, cfg.JWTExpiry)
	authMiddleware := auth.NewMiddleware(authService)
	auth.RegisterRoutesWithGroup(api, authService, cfg.MediaURL, ratelimit.Middleware(loginLimiter))

	avatars := users.NewAvatarStore(cfg.MediaDir, cfg.AvatarMaxBytes)
	users.RegisterRoutesWithGroup(api, db, authMiddleware, avatars, cfg.MediaURL)

	bookService := books.RegisterRoutesWithGroup(api, db)
	chapters.RegisterRoutesWithGroup(api, db, cfg.FrontendURL)
	genres.RegisterRoutesWithGroup(api.Group("/genres"), db)

	bookmarkService := bookmarks.RegisterRoutesWithGroup(api.Group("/bookmarks"), db, bookService, authMiddleware)
	history.RegisterRoutesWithGroup(api.Group("/history"), db, bookService, bookmarkService, authMiddleware)
	comments.RegisterRoutesWithGroup(api.Group("/comments"), db, cfg.MediaURL, authMiddleware)

	config.RegisterRoutesWithGroup(api.Group("/config"), cfg)

	if cfg.IsTest() {
		testutils.RegisterRoutes(e, db, authService)
	}

	echo.NotFoundHandler = notFoundHandler
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort),
		Handler:           e,
		ReadHeaderTimeout: 3 * time.Second,
	}
	srv.RegisterOnShutdown(func() {
		apiLimiter.Stop()
		loginLimiter.Stop()
		proxyLimiter.Stop()
	})

	return srv, nil
}

func notFoundHandler(c echo.Context) error {
	c.SetPath("/:path")
	return errcodes.NotFound("Page")
}
