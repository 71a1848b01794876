package books

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

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

// seedBooks loads books oldest first, so the last one is the newest.
func seedBooks(t *testing.T, db *bun.DB, books ...seed.Book) {
	t.Helper()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range books {
		at := base.Add(time.Duration(i) * time.Hour)
		books[i].CreatedAt = &at
	}
	_, err := seed.Load(context.Background(), db, &seed.Catalog{Books: books})
	require.NoError(t, err)
}

func TestListBooks(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()
	seedBooks(t, db,
		seed.Book{BookKey: "a", Title: "Alpha", Genres: "Action, Comedy"},
		seed.Book{BookKey: "b", Title: "Beta", Genres: "Romance"},
		seed.Book{BookKey: "c", Title: "Gamma", Genres: "action,Drama"},
		seed.Book{BookKey: "d", Title: "Delta", Genres: "100%_Fun"},
	)

	t.Run("newest first", func(t *testing.T) {
		books, total, err := svc.ListBooks(ctx, ListBooksOptions{Page: 1, Limit: 20})
		require.NoError(t, err)
		assert.Equal(t, 4, total)
		require.Len(t, books, 4)
		assert.Equal(t, "d", books[0].BookKey)
		assert.Equal(t, "a", books[3].BookKey)
		require.NotNil(t, books[0].BookDetail)
		assert.Equal(t, "Delta", books[0].BookDetail.Title)
	})

	t.Run("genre filter is a case-insensitive substring", func(t *testing.T) {
		books, total, err := svc.ListBooks(ctx, ListBooksOptions{Page: 1, Limit: 20, Genre: "ACTION"})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		require.Len(t, books, 2)
		assert.Equal(t, "c", books[0].BookKey)
		assert.Equal(t, "a", books[1].BookKey)
	})

	t.Run("genre wildcards are literal", func(t *testing.T) {
		_, total, err := svc.ListBooks(ctx, ListBooksOptions{Genre: "%"})
		require.NoError(t, err)
		assert.Equal(t, 1, total)

		_, total, err = svc.ListBooks(ctx, ListBooksOptions{Genre: "o_a"})
		require.NoError(t, err)
		assert.Equal(t, 0, total)
	})

	t.Run("pagination keeps the full total", func(t *testing.T) {
		books, total, err := svc.ListBooks(ctx, ListBooksOptions{Page: 2, Limit: 3})
		require.NoError(t, err)
		assert.Equal(t, 4, total)
		require.Len(t, books, 1)
		assert.Equal(t, "a", books[0].BookKey)
	})
}

func TestSearchBooks(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	books := []seed.Book{{BookKey: "z", Title: "zeta Hero", Author: "Z"}}
	for i := 0; i < 12; i++ {
		books = append(books, seed.Book{BookKey: fmt.Sprintf("h%02d", i), Title: fmt.Sprintf("Hero %02d", i)})
	}
	books = append(books, seed.Book{BookKey: "x", Title: "Villain"})
	seedBooks(t, db, books...)

	t.Run("blank query returns an empty list", func(t *testing.T) {
		results, err := svc.SearchBooks(ctx, "   ")
		require.NoError(t, err)
		assert.NotNil(t, results)
		assert.Empty(t, results)
	})

	t.Run("caps results and orders by title", func(t *testing.T) {
		results, err := svc.SearchBooks(ctx, "hero")
		require.NoError(t, err)
		require.Len(t, results, SearchLimit)
		assert.Equal(t, "Hero 00", results[0].Title)
		assert.Equal(t, "h00", results[0].BookKey)
		assert.Equal(t, "Hero 09", results[9].Title)
	})

	t.Run("matches anywhere in the title", func(t *testing.T) {
		results, err := svc.SearchBooks(ctx, "LLAI")
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "x", results[0].BookKey)
	})
}

func TestSearch_NonASCIICase(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()
	seedBooks(t, db,
		seed.Book{BookKey: "ete", Title: "ÉTÉ À Paris", Genres: "Школа, Драма"},
		seed.Book{BookKey: "arz", Title: "Die Ärzte", Genres: "Ação"},
		seed.Book{BookKey: "plain", Title: "Summer", Genres: "Comedy"},
	)

	tests := []struct {
		query string
		want  []string
	}{
		{"été à", []string{"ete"}},
		{"ÉTÉ", []string{"ete"}},
		{"ÄRZTE", []string{"arz"}},
		{"die är", []string{"arz"}},
	}
	for _, tt := range tests {
		t.Run("title "+tt.query, func(t *testing.T) {
			results, err := svc.SearchBooks(ctx, tt.query)
			require.NoError(t, err)
			keys := []string{}
			for _, r := range results {
				keys = append(keys, r.BookKey)
			}
			assert.Equal(t, tt.want, keys)
		})
	}

	t.Run("genre filter folds too", func(t *testing.T) {
		books, total, err := svc.ListBooks(ctx, ListBooksOptions{Genre: "школа"})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, books, 1)
		assert.Equal(t, "ete", books[0].BookKey)

		_, total, err = svc.ListBooks(ctx, ListBooksOptions{Genre: "AÇÃO"})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
	})

	t.Run("updates refresh the folded title", func(t *testing.T) {
		_, err := db.NewUpdate().
			Model(&models.BookDetail{Title: "Ünter", Genres: "Comedy"}).
			Column("title", "genres", "search_title", "search_genres").
			Where("book_key = ?", "plain").
			Exec(ctx)
		require.NoError(t, err)

		results, err := svc.SearchBooks(ctx, "ÜNTER")
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "plain", results[0].BookKey)
	})
}

func TestRetrieveBook(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()
	seedBooks(t, db, seed.Book{BookKey: "solo", Title: "Solo", Status: 2})

	book, err := svc.RetrieveBook(ctx, "solo")
	require.NoError(t, err)
	require.NotNil(t, book.BookDetail)
	assert.Equal(t, "completed", book.BookDetail.StatusName())

	_, err = svc.RetrieveBook(ctx, "missing")
	assert.ErrorIs(t, err, errcodes.NotFound("Book"))

	exists, err := svc.Exists(ctx, "solo")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = svc.Exists(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestNormalizePage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		page, limit       int
		expPage, expLimit int
	}{
		{0, 0, 1, DefaultLimit},
		{-3, 5, 1, 5},
		{4, 500, 4, MaxLimit},
	}
	for _, tt := range tests {
		page, limit := normalizePage(tt.page, tt.limit)
		assert.Equal(t, tt.expPage, page)
		assert.Equal(t, tt.expLimit, limit)
	}
}
