package imageproxy

import (
	"github.com/labstack/echo/v4"
	"github.com/mangalife/mangalife-server/pkg/config"
	"github.com/mangalife/mangalife-server/pkg/ratelimit"
	"github.com/pkg/errors"
)

// RegisterRoutesWithGroup mounts the proxy behind its own per-IP limiter.
func RegisterRoutesWithGroup(g *echo.Group, cfg *config.Config, limiter *ratelimit.KeyedLimiter) error {
	p, err := New(Options{
		AllowedHosts: cfg.ImageProxyAllowedHosts,
		Referer:      cfg.ImageProxyReferer,
		UserAgent:    cfg.ImageProxyUserAgent,
		Timeout:      cfg.ImageProxyTimeout,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	mw := ratelimit.Middleware(limiter)
	g.GET("", p.Serve, mw)
	g.HEAD("", p.Serve, mw)
	return nil
}
