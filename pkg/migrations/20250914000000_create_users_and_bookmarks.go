package migrations

import (
	"context"

	"github.com/uptrace/bun"
)

func init() {
	up := func(ctx context.Context, db *bun.DB) error {
		return execAll(ctx, db, []string{`
			CREATE TABLE users (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				email TEXT NOT NULL,
				name TEXT NOT NULL,
				password_hash TEXT NOT NULL,
				profile_picture TEXT,
				profile_picture_blurhash TEXT,
				dob TEXT,
				mobile TEXT,
				deleted_at TIMESTAMPTZ
			)
`,
			// Case-insensitive unique constraint (only for non-deleted records)
			`CREATE UNIQUE INDEX ux_users_email ON users (email COLLATE NOCASE) WHERE deleted_at IS NULL`,
			`
			CREATE TABLE bookmarks (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				user_id INTEGER REFERENCES users (id) ON DELETE CASCADE NOT NULL,
				manga_id TEXT REFERENCES books (book_key) ON DELETE CASCADE NOT NULL,
				bookmark_type TEXT NOT NULL DEFAULT 'favorite'
					CHECK (bookmark_type IN ('favorite', 'reading', 'completed', 'plan_to_read', 'dropped')),
				notes TEXT CHECK (notes IS NULL OR length(notes) <= 2000)
			)
`,
			`CREATE UNIQUE INDEX ux_bookmarks_user_id_manga_id ON bookmarks (user_id, manga_id)`,
			`CREATE INDEX ix_bookmarks_manga_id ON bookmarks (manga_id)`,
			`CREATE INDEX ix_bookmarks_user_id_bookmark_type ON bookmarks (user_id, bookmark_type)`,
			`CREATE INDEX ix_bookmarks_created_at ON bookmarks (created_at)`,
		})
	}

	down := func(ctx context.Context, db *bun.DB) error {
		return execAll(ctx, db, []string{
			"DROP TABLE IF EXISTS bookmarks",
			"DROP TABLE IF EXISTS users",
		})
	}

	Migrations.MustRegister(up, down)
}
