package auth

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/mangalife/mangalife-server/pkg/errcodes"
	"github.com/mangalife/mangalife-server/pkg/models"
	"github.com/pkg/errors"
)

const (
	contextKeyUserID = "user_id"
	contextKeyUser   = "user"
)

// Middleware provides authentication middleware.
type Middleware struct {
	authService *Service
}

// NewMiddleware creates a new auth middleware.
func NewMiddleware(authService *Service) *Middleware {
	return &Middleware{
		authService: authService,
	}
}

// Authenticate extracts and validates the bearer token from the
// Authorization header. If valid, it verifies the user still exists and adds
// the user to the context. Otherwise it returns 401.
func (m *Middleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := bearerToken(c)
		if !ok {
			return errcodes.Unauthorized("No token provided")
		}

		claims, err := m.authService.ValidateToken(token)
		if err != nil {
			return errcodes.Unauthorized("Invalid or expired token")
		}

		user, err := m.authService.GetUserByID(c.Request().Context(), claims.UserID)
		if errors.Is(err, errcodes.NotFound("User")) {
			return errcodes.Unauthorized("User not found")
		}
		if err != nil {
			return err
		}

		setUser(c, user)
		return next(c)
	}
}

// AuthenticateOptional attaches the user when a valid token is present but
// lets anonymous requests through.
func (m *Middleware) AuthenticateOptional(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := bearerToken(c)
		if !ok {
			return next(c)
		}
		claims, err := m.authService.ValidateToken(token)
		if err != nil {
			return next(c)
		}
		user, err := m.authService.GetUserByID(c.Request().Context(), claims.UserID)
		if errors.Is(err, errcodes.NotFound("User")) {
			return next(c)
		}
		if err != nil {
			return err
		}
		setUser(c, user)
		return next(c)
	}
}

func bearerToken(c echo.Context) (string, bool) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func setUser(c echo.Context, user *models.User) {
	c.Set(contextKeyUserID, user.ID)
	c.Set(contextKeyUser, user)
}

// GetUserFromContext retrieves the authenticated user from the Echo context.
func GetUserFromContext(c echo.Context) *models.User {
	user, _ := c.Get(contextKeyUser).(*models.User)
	return user
}

// GetUserIDFromContext retrieves the user ID from the Echo context.
func GetUserIDFromContext(c echo.Context) (int, bool) {
	userID, ok := c.Get(contextKeyUserID).(int)
	return userID, ok
}

// MustUserID returns the authenticated user's ID or a 401 error when the
// route was reached without Authenticate.
func MustUserID(c echo.Context) (int, error) {
	id, ok := GetUserIDFromContext(c)
	if !ok {
		return 0, errcodes.Unauthorized("Authentication required")
	}
	return id, nil
}
