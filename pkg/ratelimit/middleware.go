package ratelimit

import (
	"github.com/labstack/echo/v4"
	"github.com/mangalife/mangalife-server/pkg/errcodes"
	echologger "github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/logger"
)

// Middleware rejects requests with 429 once the client IP has exhausted its
// bucket.
func Middleware(kl *KeyedLimiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			if !kl.Allow(ip) {
				echologger.FromEchoContext(c).Warn("rate limit exceeded", logger.Data{
					"ip":   ip,
					"path": c.Path(),
				})
				return errcodes.TooManyRequests()
			}
			return next(c)
		}
	}
}
