package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/mangalife/mangalife-server/pkg/errcodes"
	"github.com/mangalife/mangalife-server/pkg/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runMiddleware(t *testing.T, mw echo.MiddlewareFunc, header string) (echo.Context, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	c := e.NewContext(req, httptest.NewRecorder())
	err := mw(func(c echo.Context) error { return nil })(c)
	return c, err
}

func assertUnauthorized(t *testing.T, err error) {
	t.Helper()
	var ec *errcodes.Error
	require.ErrorAs(t, err, &ec)
	assert.Equal(t, http.StatusUnauthorized, ec.HTTPCode)
}

func TestMiddleware_Authenticate(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	m := NewMiddleware(svc)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterOptions{Name: "A", Email: "a@x.com", Password: "pw1234"})
	require.NoError(t, err)
	token, err := svc.GenerateToken(user)
	require.NoError(t, err)

	t.Run("valid token attaches the user", func(t *testing.T) {
		c, err := runMiddleware(t, m.Authenticate, "Bearer "+token)
		require.NoError(t, err)
		id, ok := GetUserIDFromContext(c)
		assert.True(t, ok)
		assert.Equal(t, user.ID, id)
		assert.Equal(t, "A", GetUserFromContext(c).Name)
	})

	t.Run("missing header", func(t *testing.T) {
		_, err := runMiddleware(t, m.Authenticate, "")
		assertUnauthorized(t, err)
	})

	t.Run("wrong scheme", func(t *testing.T) {
		_, err := runMiddleware(t, m.Authenticate, "Basic "+token)
		assertUnauthorized(t, err)
	})

	t.Run("malformed token", func(t *testing.T) {
		_, err := runMiddleware(t, m.Authenticate, "Bearer not.a.jwt")
		assertUnauthorized(t, err)
	})

	t.Run("bad signature", func(t *testing.T) {
		other := NewService(db, "another-secret", time.Hour)
		forged, err := other.GenerateToken(user)
		require.NoError(t, err)
		_, err = runMiddleware(t, m.Authenticate, "Bearer "+forged)
		assertUnauthorized(t, err)
	})

	t.Run("expired token", func(t *testing.T) {
		claims := JWTClaims{
			UserID: user.ID,
			Email:  user.Email,
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
				IssuedAt:  jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			},
		}
		expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-jwt-secret"))
		require.NoError(t, err)
		_, err = runMiddleware(t, m.Authenticate, "Bearer "+expired)
		assertUnauthorized(t, err)
	})

	t.Run("user that no longer exists", func(t *testing.T) {
		gone, err := svc.GenerateToken(&models.User{ID: 9999, Email: "gone@x.com"})
		require.NoError(t, err)
		_, err = runMiddleware(t, m.Authenticate, "Bearer "+gone)
		assertUnauthorized(t, err)
	})

	t.Run("soft-deleted user", func(t *testing.T) {
		deleted, err := svc.Register(ctx, RegisterOptions{Name: "D", Email: "d@x.com", Password: "pw1234"})
		require.NoError(t, err)
		deletedToken, err := svc.GenerateToken(deleted)
		require.NoError(t, err)
		_, err = db.NewDelete().Model(deleted).WherePK().Exec(ctx)
		require.NoError(t, err)

		_, err = runMiddleware(t, m.Authenticate, "Bearer "+deletedToken)
		assertUnauthorized(t, err)
	})
}

func TestMiddleware_AuthenticateOptional(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	m := NewMiddleware(svc)
	user, err := svc.Register(context.Background(), RegisterOptions{Name: "A", Email: "a@x.com", Password: "pw1234"})
	require.NoError(t, err)
	token, err := svc.GenerateToken(user)
	require.NoError(t, err)

	c, err := runMiddleware(t, m.AuthenticateOptional, "")
	require.NoError(t, err)
	_, ok := GetUserIDFromContext(c)
	assert.False(t, ok)

	c, err = runMiddleware(t, m.AuthenticateOptional, "Bearer garbage")
	require.NoError(t, err)
	_, ok = GetUserIDFromContext(c)
	assert.False(t, ok)

	c, err = runMiddleware(t, m.AuthenticateOptional, "Bearer "+token)
	require.NoError(t, err)
	id, ok := GetUserIDFromContext(c)
	assert.True(t, ok)
	assert.Equal(t, user.ID, id)
}

func TestMiddleware_StorageFailureIsNotUnauthorized(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	m := NewMiddleware(svc)
	user, err := svc.Register(context.Background(), RegisterOptions{Name: "A", Email: "a@x.com", Password: "pw1234"})
	require.NoError(t, err)
	token, err := svc.GenerateToken(user)
	require.NoError(t, err)

	require.NoError(t, db.Close())

	for name, mw := range map[string]echo.MiddlewareFunc{
		"required": m.Authenticate,
		"optional": m.AuthenticateOptional,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := runMiddleware(t, mw, "Bearer "+token)
			require.Error(t, err)
			var ec *errcodes.Error
			assert.False(t, errors.As(err, &ec), "got client error %v", err)
		})
	}
}
