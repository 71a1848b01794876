package binder

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type params struct {
	Hello string `json:"hello" mod:"trim" validate:"max=9"`
	Omit  string `json:"-"`
}

type queryParams struct {
	Page      int    `query:"page" default:"1" validate:"min=1"`
	ChapterNo string `query:"chapter" validate:"omitempty,chapterno"`
}

type profileParams struct {
	Mobile string `json:"mobile" validate:"mobile"`
	Dob    string `json:"dob" validate:"date"`
}

var (
	goodJSON             = `{"hello":" world "}`
	unknownFieldsErrJSON = `{"hello":"world","foo":"bar"}`
	typeErrJSON          = `{"hello":123}`
	validationErrJSON    = `{"hello":"0123456789"}`
)

func TestNew(t *testing.T) {
	t.Parallel()
	b, err := New()
	require.NoError(t, err)
	assert.NotNil(t, b)

	t.Run("only allows json and form payloads", func(t *testing.T) {
		t.Parallel()
		c := newContext(http.MethodPost, "/", goodJSON, echo.MIMEApplicationXML)
		p := params{}
		err := b.Bind(&p, c)
		assert.Contains(t, err.Error(), "Unsupported Media Type")
	})

	t.Run("disallows unknown fields", func(t *testing.T) {
		t.Parallel()
		c := newContext(http.MethodPost, "/", unknownFieldsErrJSON, echo.MIMEApplicationJSON)
		p := params{}
		err := b.Bind(&p, c)
		assert.Contains(t, err.Error(), `Unknown Parameter "foo"`)
	})

	t.Run("allows unknown fields when the handler opts in", func(t *testing.T) {
		t.Parallel()
		c := newContext(http.MethodPost, "/", unknownFieldsErrJSON, echo.MIMEApplicationJSON)
		c.Set(DisallowUnknownFields, false)
		p := params{}
		require.NoError(t, b.Bind(&p, c))
		assert.Equal(t, "world", p.Hello)
	})

	t.Run("returns a good message for type errors", func(t *testing.T) {
		t.Parallel()
		c := newContext(http.MethodPost, "/", typeErrJSON, echo.MIMEApplicationJSON)
		p := params{}
		err := b.Bind(&p, c)
		assert.Contains(t, err.Error(), `"hello" should be of type string`)
	})

	t.Run("use mod tag to modify params", func(t *testing.T) {
		t.Parallel()
		c := newContext(http.MethodPost, "/", goodJSON, echo.MIMEApplicationJSON)
		p := params{}
		require.NoError(t, b.Bind(&p, c))
		assert.Equal(t, "world", p.Hello)
	})

	t.Run("use validate tag to validate params", func(t *testing.T) {
		t.Parallel()
		c := newContext(http.MethodPost, "/", validationErrJSON, echo.MIMEApplicationJSON)
		p := params{}
		err := b.Bind(&p, c)
		assert.Contains(t, err.Error(), "length must be less than or equal to 9 characters")
	})

	t.Run("rejects an empty body on writes", func(t *testing.T) {
		t.Parallel()
		c := newContext(http.MethodPost, "/", "", echo.MIMEApplicationJSON)
		p := params{}
		err := b.Bind(&p, c)
		assert.Contains(t, err.Error(), "can't be empty")
	})

	t.Run("an explicit true keeps rejecting empty bodies", func(t *testing.T) {
		t.Parallel()
		c := newContext(http.MethodPut, "/", "", echo.MIMEApplicationJSON)
		c.Set(DisallowEmptyBody, true)
		p := params{}
		err := b.Bind(&p, c)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "can't be empty")
	})

	t.Run("allows an empty body when the handler opts in", func(t *testing.T) {
		t.Parallel()
		c := newContext(http.MethodPut, "/", "", echo.MIMEApplicationJSON)
		c.Set(DisallowEmptyBody, false)
		p := params{}
		assert.NoError(t, b.Bind(&p, c))
	})

	t.Run("decodes query params on GET and applies defaults", func(t *testing.T) {
		t.Parallel()
		c := newContext(http.MethodGet, "/?chapter=10.5", "", "")
		p := queryParams{}
		require.NoError(t, b.Bind(&p, c))
		assert.Equal(t, 1, p.Page)
		assert.Equal(t, "10.5", p.ChapterNo)
	})

	t.Run("rejects unknown query params", func(t *testing.T) {
		t.Parallel()
		c := newContext(http.MethodGet, "/?sort=asc", "", "")
		p := queryParams{}
		err := b.Bind(&p, c)
		assert.Contains(t, err.Error(), `Unknown Parameter "sort"`)
	})

	t.Run("reports query conversion errors", func(t *testing.T) {
		t.Parallel()
		c := newContext(http.MethodGet, "/?page=abc", "", "")
		p := queryParams{}
		err := b.Bind(&p, c)
		assert.Contains(t, err.Error(), `"page" should be of type int`)
	})

	t.Run("validates chapter numbers", func(t *testing.T) {
		t.Parallel()
		c := newContext(http.MethodGet, "/?chapter=..", "", "")
		p := queryParams{}
		err := b.Bind(&p, c)
		assert.Contains(t, err.Error(), "is not a valid chapter number")
	})

	t.Run("validates mobile and date formats", func(t *testing.T) {
		t.Parallel()
		c := newContext(http.MethodPut, "/", `{"mobile":"abc","dob":"2000-01-01"}`, echo.MIMEApplicationJSON)
		p := profileParams{}
		err := b.Bind(&p, c)
		assert.Contains(t, err.Error(), `"mobile" is not a valid mobile number`)

		c = newContext(http.MethodPut, "/", `{"mobile":"+1 555 0100","dob":"2000-13-01"}`, echo.MIMEApplicationJSON)
		err = b.Bind(&p, c)
		assert.Contains(t, err.Error(), `"dob" should be in the format of YYYY-MM-DD`)
	})
}

func newContext(method, target, payload, mime string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(payload))
	if mime != "" {
		req.Header.Set(echo.HeaderContentType, mime)
	}
	rr := httptest.NewRecorder()
	return e.NewContext(req, rr)
}
