package migrations

import (
	"context"

	"github.com/mangalife/mangalife-server/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

func init() {
	up := func(ctx context.Context, db *bun.DB) error {
		err := execAll(ctx, db, []string{
			`ALTER TABLE book_details ADD COLUMN search_title TEXT NOT NULL DEFAULT ''`,
			`ALTER TABLE book_details ADD COLUMN search_genres TEXT NOT NULL DEFAULT ''`,
		})
		if err != nil {
			return err
		}

		// Folding needs Unicode tables, so existing rows are filled in here
		// rather than with SQL.
		var rows []struct {
			ID     int    `bun:"id"`
			Title  string `bun:"title"`
			Genres string `bun:"genres"`
		}
		err = db.NewSelect().
			Table("book_details").
			Column("id", "title", "genres").
			Scan(ctx, &rows)
		if err != nil {
			return errors.WithStack(err)
		}
		for _, r := range rows {
			_, err := db.NewUpdate().
				Table("book_details").
				Set("search_title = ?", models.FoldForSearch(r.Title)).
				Set("search_genres = ?", models.FoldForSearch(r.Genres)).
				Where("id = ?", r.ID).
				Exec(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
		}
		return nil
	}

	down := func(ctx context.Context, db *bun.DB) error {
		return execAll(ctx, db, []string{
			"ALTER TABLE book_details DROP COLUMN search_genres",
			"ALTER TABLE book_details DROP COLUMN search_title",
		})
	}

	Migrations.MustRegister(up, down)
}
