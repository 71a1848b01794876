package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

func init() {
	up := func(ctx context.Context, db *bun.DB) error {
		stmts := []string{`
			CREATE TABLE books (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				book_key TEXT NOT NULL,
				book_url TEXT NOT NULL
			)
`,
			`CREATE UNIQUE INDEX ux_books_book_key ON books (book_key)`,
			`CREATE INDEX ix_books_created_at ON books (created_at)`,
			`
			CREATE TABLE book_details (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				book_key TEXT REFERENCES books (book_key) ON DELETE CASCADE NOT NULL,
				title TEXT NOT NULL DEFAULT '',
				banner_url TEXT NOT NULL DEFAULT '',
				rank TEXT NOT NULL DEFAULT '',
				authors TEXT NOT NULL DEFAULT '',
				alternative TEXT NOT NULL DEFAULT '',
				author TEXT NOT NULL DEFAULT '',
				genres TEXT NOT NULL DEFAULT '',
				summary TEXT NOT NULL DEFAULT '',
				tags TEXT NOT NULL DEFAULT '',
				rating REAL NOT NULL DEFAULT 0,
				status INTEGER NOT NULL DEFAULT 1,
				latest_chapter TEXT NOT NULL DEFAULT ''
			)
`,
			`CREATE UNIQUE INDEX ux_book_details_book_key ON book_details (book_key)`,
			`CREATE INDEX ix_book_details_title ON book_details (title COLLATE NOCASE)`,
			`
			CREATE TABLE chapters (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				book_key TEXT REFERENCES books (book_key) ON DELETE CASCADE NOT NULL,
				chapter_no TEXT NOT NULL,
				chapter_url TEXT NOT NULL DEFAULT '',
				chapter_date TEXT NOT NULL DEFAULT ''
			)
`,
			`CREATE UNIQUE INDEX ux_chapters_book_key_chapter_no ON chapters (book_key, chapter_no)`,
			`
			CREATE TABLE chapter_images (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				c_id INTEGER,
				book_key TEXT NOT NULL,
				chapter_no TEXT NOT NULL,
				image_url TEXT NOT NULL,
				is_downloaded BOOLEAN NOT NULL DEFAULT FALSE,
				image_name TEXT,
				scraped_at TIMESTAMPTZ,
				is_big_size BOOLEAN NOT NULL DEFAULT FALSE
			)
`,
			`CREATE INDEX ix_chapter_images_book_key_chapter_no ON chapter_images (book_key, chapter_no)`,
			`
			CREATE TABLE genres (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				name TEXT NOT NULL,
				slug TEXT NOT NULL
			)
`,
			`CREATE UNIQUE INDEX ux_genres_name ON genres (name COLLATE NOCASE)`,
			`CREATE UNIQUE INDEX ux_genres_slug ON genres (slug)`,
		}
		return execAll(ctx, db, stmts)
	}

	down := func(ctx context.Context, db *bun.DB) error {
		return execAll(ctx, db, []string{
			"DROP TABLE IF EXISTS genres",
			"DROP TABLE IF EXISTS chapter_images",
			"DROP TABLE IF EXISTS chapters",
			"DROP TABLE IF EXISTS book_details",
			"DROP TABLE IF EXISTS books",
		})
	}

	Migrations.MustRegister(up, down)
}

func execAll(ctx context.Context, db *bun.DB, stmts []string) error {
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}
