package users

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/mangalife/mangalife-server/pkg/binder"
	"github.com/mangalife/mangalife-server/pkg/errcodes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMediaURL = "http://media.test"

func newTestContext(t *testing.T, method, path string, body *bytes.Buffer, contentType string, userID int) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()

	e := echo.New()
	b, err := binder.New()
	require.NoError(t, err)
	e.Binder = b
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rr := httptest.NewRecorder()
	c := e.NewContext(req, rr)
	// what auth.Middleware.Authenticate stores
	c.Set("user_id", userID)
	return c, rr
}

func TestHandler_ProfileRoundTrip(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	store := NewAvatarStore(t.TempDir(), 1<<20)
	h := &handler{userService: NewService(db, store), avatars: store, mediaURL: testMediaURL}
	user := createUser(t, db, "a@x.com")

	c, rr := newTestContext(t, http.MethodPut, "/api/profile",
		bytes.NewBufferString(`{"name":"  Renamed ","dob":"2001-05-06"}`), echo.MIMEApplicationJSON, user.ID)
	require.NoError(t, h.updateProfile(c))
	assert.Equal(t, http.StatusOK, rr.Code)

	c, rr = newTestContext(t, http.MethodGet, "/api/profile", &bytes.Buffer{}, "", user.ID)
	require.NoError(t, h.profile(c))

	var resp struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "Renamed", resp.Data["name"])
	assert.Equal(t, "2001-05-06", resp.Data["dob"])
	assert.Nil(t, resp.Data["profilePicture"])
	assert.NotContains(t, rr.Body.String(), "password")
}

func TestHandler_UpdateProfile_RejectsOtherFields(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	store := NewAvatarStore(t.TempDir(), 1<<20)
	h := &handler{userService: NewService(db, store), avatars: store, mediaURL: testMediaURL}
	user := createUser(t, db, "a@x.com")

	c, _ := newTestContext(t, http.MethodPut, "/api/profile",
		bytes.NewBufferString(`{"email":"evil@x.com"}`), echo.MIMEApplicationJSON, user.ID)
	err := h.updateProfile(c)
	var ec *errcodes.Error
	require.ErrorAs(t, err, &ec)
	assert.Equal(t, "unknown_parameter", ec.Code)
}

func TestHandler_UploadAvatar(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	store := NewAvatarStore(t.TempDir(), 1<<20)
	h := &handler{userService: NewService(db, store), avatars: store, mediaURL: testMediaURL}
	user := createUser(t, db, "a@x.com")

	t.Run("stores the image and returns its URL", func(t *testing.T) {
		body, ctype := multipartBody(t, "avatar", "me.png", pngBytes(t, 32, 32))
		c, rr := newTestContext(t, http.MethodPost, "/api/upload-avatar", body, ctype, user.ID)
		require.NoError(t, h.uploadAvatar(c))
		assert.Equal(t, http.StatusOK, rr.Code)

		var resp struct {
			Data AvatarResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		require.NotNil(t, resp.Data.ProfilePicture)
		assert.True(t, strings.HasPrefix(*resp.Data.ProfilePicture, testMediaURL+"/avatars/"))
		assert.NotNil(t, resp.Data.ProfilePictureBlurhash)
	})

	t.Run("requires the avatar field", func(t *testing.T) {
		body, ctype := multipartBody(t, "file", "me.png", pngBytes(t, 8, 8))
		c, _ := newTestContext(t, http.MethodPost, "/api/upload-avatar", body, ctype, user.ID)
		err := h.uploadAvatar(c)
		var ec *errcodes.Error
		require.ErrorAs(t, err, &ec)
		assert.Equal(t, http.StatusBadRequest, ec.HTTPCode)
	})

	t.Run("rejects content that only claims to be an image", func(t *testing.T) {
		body, ctype := multipartBody(t, "avatar", "me.png", []byte("<html>not an image</html>"))
		c, _ := newTestContext(t, http.MethodPost, "/api/upload-avatar", body, ctype, user.ID)
		err := h.uploadAvatar(c)
		var ec *errcodes.Error
		require.ErrorAs(t, err, &ec)
		assert.Equal(t, "Only image files are allowed", ec.Message)
	})
}

func multipartBody(t *testing.T, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}
