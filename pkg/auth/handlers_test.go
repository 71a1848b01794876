package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/mangalife/mangalife-server/pkg/binder"
	"github.com/mangalife/mangalife-server/pkg/errcodes"
	"github.com/mangalife/mangalife-server/pkg/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"golang.org/x/crypto/bcrypt"
)

const testMediaURL = "http://media.test"

func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func newTestService(t *testing.T) (*Service, *bun.DB) {
	t.Helper()
	db := setupTestDB(t)
	svc := NewService(db, "test-jwt-secret", time.Hour)
	svc.cost = bcrypt.MinCost
	return svc, db
}

func newTestContext(t *testing.T, payload, method, path string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()

	e := echo.New()
	b, err := binder.New()
	require.NoError(t, err)
	e.Binder = b
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	req := httptest.NewRequest(method, path, strings.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rr := httptest.NewRecorder()
	return e.NewContext(req, rr), rr
}

type authEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		Token string                 `json:"token"`
		User  map[string]interface{} `json:"user"`
	} `json:"data"`
}

func TestHandler_Register(t *testing.T) {
	t.Parallel()

	t.Run("creates the user and returns a token", func(t *testing.T) {
		t.Parallel()
		svc, _ := newTestService(t)
		h := &handler{authService: svc, mediaURL: testMediaURL}

		payload := `{"name":"A","email":" A@X.com ","password":"pw1234","mobile":"+1 555 0100"}`
		c, rr := newTestContext(t, payload, http.MethodPost, "/api/register")
		require.NoError(t, h.register(c))
		assert.Equal(t, http.StatusCreated, rr.Code)

		var resp authEnvelope
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.NotEmpty(t, resp.Data.Token)
		assert.Equal(t, "A", resp.Data.User["name"])
		assert.Equal(t, "a@x.com", resp.Data.User["email"])
		assert.NotContains(t, resp.Data.User, "passwordHash")
		assert.NotContains(t, rr.Body.String(), "password")

		claims, err := svc.ValidateToken(resp.Data.Token)
		require.NoError(t, err)
		assert.Equal(t, "a@x.com", claims.Email)
	})

	t.Run("rejects a duplicate email regardless of case", func(t *testing.T) {
		t.Parallel()
		svc, _ := newTestService(t)
		h := &handler{authService: svc, mediaURL: testMediaURL}

		c, _ := newTestContext(t, `{"name":"A","email":"a@x.com","password":"pw1234"}`, http.MethodPost, "/api/register")
		require.NoError(t, h.register(c))

		c, _ = newTestContext(t, `{"name":"B","email":"A@x.com","password":"pw1234"}`, http.MethodPost, "/api/register")
		err := h.register(c)
		var ec *errcodes.Error
		require.ErrorAs(t, err, &ec)
		assert.Equal(t, http.StatusConflict, ec.HTTPCode)
		assert.Equal(t, "Email already registered", ec.Message)
	})

	t.Run("requires name, email and password", func(t *testing.T) {
		t.Parallel()
		svc, _ := newTestService(t)
		h := &handler{authService: svc, mediaURL: testMediaURL}

		for _, payload := range []string{
			`{"email":"a@x.com","password":"pw1234"}`,
			`{"name":"A","password":"pw1234"}`,
			`{"name":"A","email":"a@x.com"}`,
			`{"name":"A","email":"not-an-email","password":"pw1234"}`,
		} {
			c, _ := newTestContext(t, payload, http.MethodPost, "/api/register")
			err := h.register(c)
			var ec *errcodes.Error
			require.ErrorAs(t, err, &ec, payload)
			assert.Equal(t, http.StatusBadRequest, ec.HTTPCode, payload)
		}
	})
}

func TestHandler_Login(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	h := &handler{authService: svc, mediaURL: testMediaURL}
	_, err := svc.Register(context.Background(), RegisterOptions{Name: "A", Email: "a@x.com", Password: "pw1234"})
	require.NoError(t, err)

	t.Run("returns a token for valid credentials", func(t *testing.T) {
		c, rr := newTestContext(t, `{"email":"a@x.com","password":"pw1234"}`, http.MethodPost, "/api/login")
		require.NoError(t, h.login(c))
		assert.Equal(t, http.StatusOK, rr.Code)

		var resp authEnvelope
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.Data.Token)
		assert.Equal(t, "A", resp.Data.User["name"])
	})

	t.Run("wrong password and unknown email look the same", func(t *testing.T) {
		for _, payload := range []string{
			`{"email":"a@x.com","password":"wrong"}`,
			`{"email":"nobody@x.com","password":"pw1234"}`,
		} {
			c, _ := newTestContext(t, payload, http.MethodPost, "/api/login")
			err := h.login(c)
			var ec *errcodes.Error
			require.ErrorAs(t, err, &ec)
			assert.Equal(t, http.StatusUnauthorized, ec.HTTPCode)
			assert.Equal(t, "Invalid email or password", ec.Message)
		}
	})
}
