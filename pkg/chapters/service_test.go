package chapters

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/mangalife/mangalife-server/pkg/errcodes"
	"github.com/mangalife/mangalife-server/pkg/migrations"
	"github.com/mangalife/mangalife-server/pkg/models"
	"github.com/mangalife/mangalife-server/pkg/seed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const testFrontendURL = "http://frontend.test/"

func newTestDB(t *testing.T) *bun.DB {
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

// seedChapters inserts the chapters in the given order, so row ids do not
// follow chapter numbers.
func seedChapters(t *testing.T, db *bun.DB, bookKey string, chapterNos ...string) {
	t.Helper()
	book := seed.Book{BookKey: bookKey, Title: bookKey}
	for _, no := range chapterNos {
		book.Chapters = append(book.Chapters, seed.Chapter{
			ChapterNo: no,
			Images:    []string{"https://img.test/" + no + "/1.jpg", "https://img.test/" + no + "/2.jpg"},
		})
	}
	_, err := seed.Load(context.Background(), db, &seed.Catalog{Books: []seed.Book{book}})
	require.NoError(t, err)
}

func chapterNos(chapters []*models.Chapter) []string {
	out := make([]string, 0, len(chapters))
	for _, ch := range chapters {
		out = append(out, ch.ChapterNo)
	}
	return out
}

func TestListChapters(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db, testFrontendURL)
	ctx := context.Background()
	seedChapters(t, db, "m1", "2", "10", "1", "10.5", "9")
	seedChapters(t, db, "m2", "3")

	chapters, err := svc.ListChapters(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, []string{"10.5", "10", "9", "2", "1"}, chapterNos(chapters))

	chapters, err = svc.ListChapters(ctx, "unknown")
	require.NoError(t, err)
	assert.NotNil(t, chapters)
	assert.Empty(t, chapters)
}

func TestRetrieveChapterDetails(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db, testFrontendURL)
	ctx := context.Background()
	seedChapters(t, db, "m1", "2", "10", "1", "10.5", "9")

	t.Run("links follow numeric neighbours", func(t *testing.T) {
		details, err := svc.RetrieveChapterDetails(ctx, "m1", "10")
		require.NoError(t, err)
		assert.Equal(t, "10", details.Chapter.ChapterNo)
		require.NotNil(t, details.PrevChapterURL)
		require.NotNil(t, details.NextChapterURL)
		assert.Equal(t, "http://frontend.test/manga/m1/chapter/9", *details.PrevChapterURL)
		assert.Equal(t, "http://frontend.test/manga/m1/chapter/10.5", *details.NextChapterURL)
	})

	t.Run("images in page order", func(t *testing.T) {
		details, err := svc.RetrieveChapterDetails(ctx, "m1", "9")
		require.NoError(t, err)
		require.Len(t, details.Images, 2)
		assert.Equal(t, "https://img.test/9/1.jpg", details.Images[0].ImageURL)
		assert.Equal(t, "https://img.test/9/2.jpg", details.Images[1].ImageURL)
	})

	t.Run("first and last chapters have one link", func(t *testing.T) {
		first, err := svc.RetrieveChapterDetails(ctx, "m1", "1")
		require.NoError(t, err)
		assert.Nil(t, first.PrevChapterURL)
		require.NotNil(t, first.NextChapterURL)
		assert.Equal(t, "http://frontend.test/manga/m1/chapter/2", *first.NextChapterURL)

		last, err := svc.RetrieveChapterDetails(ctx, "m1", "10.5")
		require.NoError(t, err)
		assert.Nil(t, last.NextChapterURL)
	})

	t.Run("unknown chapter", func(t *testing.T) {
		_, err := svc.RetrieveChapterDetails(ctx, "m1", "99")
		assert.ErrorIs(t, err, errcodes.NotFound("Chapter"))
	})
}

func TestHandler_Retrieve(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	seedChapters(t, db, "m1", "1", "2")

	e := echo.New()
	e.HTTPErrorHandler = errcodes.NewHandler().Handle
	RegisterRoutesWithGroup(e.Group("/api"), db, testFrontendURL)

	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/book/m1/chapters/2", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Chapter struct {
				ChapterNo string `json:"chapterNo"`
			} `json:"chapter"`
			Images         []interface{} `json:"images"`
			PrevChapterURL *string       `json:"prevChapterUrl"`
			NextChapterURL *string       `json:"nextChapterUrl"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "2", resp.Data.Chapter.ChapterNo)
	assert.Len(t, resp.Data.Images, 2)
	require.NotNil(t, resp.Data.PrevChapterURL)
	assert.Nil(t, resp.Data.NextChapterURL)

	rr = httptest.NewRecorder()
	e.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/book/m1/chapters/3", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "Chapter not found")

	rr = httptest.NewRecorder()
	e.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/book/m1/chapters", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"chapterNo":"2"`)
}
