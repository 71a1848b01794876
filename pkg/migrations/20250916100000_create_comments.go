package migrations

import (
	"context"

	"github.com/uptrace/bun"
)

func init() {
	up := func(ctx context.Context, db *bun.DB) error {
		return execAll(ctx, db, []string{`
			CREATE TABLE comments (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				post_id TEXT NOT NULL CHECK (length(post_id) <= 64),
				user_id INTEGER REFERENCES users (id) ON DELETE SET NULL,
				text TEXT NOT NULL,
				parent_id INTEGER REFERENCES comments (id) ON DELETE CASCADE
			)
`,
			`CREATE INDEX ix_comments_post_id_parent_id ON comments (post_id, parent_id)`,
			`CREATE INDEX ix_comments_parent_id ON comments (parent_id)`,
			`
			CREATE TABLE comment_likes (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				comment_id INTEGER REFERENCES comments (id) ON DELETE CASCADE NOT NULL,
				user_id INTEGER REFERENCES users (id) ON DELETE CASCADE NOT NULL
			)
`,
			`CREATE UNIQUE INDEX ux_comment_likes_comment_id_user_id ON comment_likes (comment_id, user_id)`,
		})
	}

	down := func(ctx context.Context, db *bun.DB) error {
		return execAll(ctx, db, []string{
			"DROP TABLE IF EXISTS comment_likes",
			"DROP TABLE IF EXISTS comments",
		})
	}

	Migrations.MustRegister(up, down)
}
