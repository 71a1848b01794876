package migrations

import (
	"context"

	"github.com/uptrace/bun"
)

func init() {
	up := func(ctx context.Context, db *bun.DB) error {
		return execAll(ctx, db, []string{`
			CREATE TABLE reading_history (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				user_id INTEGER REFERENCES users (id) ON DELETE CASCADE NOT NULL,
				manga_id TEXT REFERENCES books (book_key) ON DELETE CASCADE NOT NULL,
				chapter_number TEXT NOT NULL,
				chapter_title TEXT CHECK (chapter_title IS NULL OR length(chapter_title) <= 500),
				page_number INTEGER NOT NULL DEFAULT 1 CHECK (page_number >= 1),
				total_pages INTEGER CHECK (total_pages IS NULL OR total_pages >= 1),
				reading_progress REAL NOT NULL DEFAULT 0 CHECK (reading_progress BETWEEN 0 AND 100),
				reading_time_seconds INTEGER NOT NULL DEFAULT 0 CHECK (reading_time_seconds >= 0),
				read_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				device_type TEXT NOT NULL DEFAULT 'unknown'
					CHECK (device_type IN ('mobile', 'tablet', 'desktop', 'unknown')),
				is_completed BOOLEAN NOT NULL DEFAULT FALSE
			)
`,
			`CREATE UNIQUE INDEX ux_reading_history_user_manga_chapter ON reading_history (user_id, manga_id, chapter_number)`,
			`CREATE INDEX ix_reading_history_user_id_read_at ON reading_history (user_id, read_at)`,
			`CREATE INDEX ix_reading_history_user_id_is_completed ON reading_history (user_id, is_completed)`,
			`CREATE INDEX ix_reading_history_manga_id ON reading_history (manga_id)`,
			`
			CREATE TABLE reading_sessions (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				history_id INTEGER REFERENCES reading_history (id) ON DELETE CASCADE NOT NULL,
				user_id INTEGER REFERENCES users (id) ON DELETE CASCADE NOT NULL,
				session_start TIMESTAMPTZ NOT NULL,
				session_end TIMESTAMPTZ,
				pages_read INTEGER NOT NULL DEFAULT 0 CHECK (pages_read >= 0),
				session_duration_seconds INTEGER,
				device_info TEXT,
				ip_address TEXT,
				user_agent TEXT
			)
`,
			`CREATE INDEX ix_reading_sessions_history_id ON reading_sessions (history_id)`,
			`CREATE INDEX ix_reading_sessions_user_id_session_end ON reading_sessions (user_id, session_end)`,
			`CREATE UNIQUE INDEX ux_reading_sessions_open_history_id ON reading_sessions (history_id) WHERE session_end IS NULL`,
		})
	}

	down := func(ctx context.Context, db *bun.DB) error {
		return execAll(ctx, db, []string{
			"DROP TABLE IF EXISTS reading_sessions",
			"DROP TABLE IF EXISTS reading_history",
		})
	}

	Migrations.MustRegister(up, down)
}
