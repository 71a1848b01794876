package main

import (
	"os"

	"github.com/mangalife/mangalife-server/pkg/config"
	"github.com/mangalife/mangalife-server/pkg/database"
	"github.com/mangalife/mangalife-server/pkg/migrations"
	"github.com/mangalife/mangalife-server/pkg/seed"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/urfave/cli/v2"
)

func main() {
	log := logger.New()

	fileFlag := &cli.StringFlag{
		Name:     "file",
		Aliases:  []string{"f"},
		Usage:    "path to a JSON catalog fixture",
		Required: true,
	}

	app := &cli.App{
		Name:  "seed",
		Usage: "load catalog fixtures into the mangalife database",
		Commands: []*cli.Command{
			{
				Name:  "check",
				Usage: "parse a fixture without touching the database",
				Flags: []cli.Flag{fileFlag},
				Action: func(c *cli.Context) error {
					cat, err := readCatalog(c.String("file"))
					if err != nil {
						return err
					}
					chapters := 0
					for _, b := range cat.Books {
						chapters += len(b.Chapters)
					}
					log.Info("fixture ok", logger.Data{"books": len(cat.Books), "chapters": chapters, "genres": len(cat.Genres)})
					return nil
				},
			},
			{
				Name:  "load",
				Usage: "insert a fixture, skipping books that already exist",
				Flags: []cli.Flag{fileFlag},
				Action: func(c *cli.Context) error {
					cat, err := readCatalog(c.String("file"))
					if err != nil {
						return err
					}

					cfg, err := config.New()
					if err != nil {
						return errors.WithStack(err)
					}
					db, err := database.New(cfg)
					if err != nil {
						return errors.WithStack(err)
					}
					defer db.Close()

					if _, err := migrations.BringUpToDate(c.Context, db); err != nil {
						return errors.WithStack(err)
					}

					result, err := seed.Load(c.Context, db, cat)
					if err != nil {
						return errors.WithStack(err)
					}
					log.Info("catalog loaded", logger.Data{
						"books":    result.Books,
						"chapters": result.Chapters,
						"images":   result.Images,
						"genres":   result.Genres,
					})
					return nil
				},
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Err(err).Fatal("seed failed")
	}
}

func readCatalog(path string) (*seed.Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()

	cat, err := seed.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid fixture %s", path)
	}
	return cat, nil
}
