package genres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/mangalife/mangalife-server/pkg/database"
	"github.com/mangalife/mangalife-server/pkg/errcodes"
	"github.com/mangalife/mangalife-server/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

type RetrieveGenreOptions struct {
	ID   *int
	Name *string
	Slug *string
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

func (svc *Service) CreateGenre(ctx context.Context, genre *models.Genre) error {
	now := time.Now()
	if genre.CreatedAt.IsZero() {
		genre.CreatedAt = now
	}
	genre.UpdatedAt = genre.CreatedAt
	if genre.Slug == "" {
		genre.Slug = slug.Make(genre.Name)
	}

	_, err := svc.db.
		NewInsert().
		Model(genre).
		Returning("*").
		Exec(ctx)
	return errors.WithStack(err)
}

func (svc *Service) RetrieveGenre(ctx context.Context, opts RetrieveGenreOptions) (*models.Genre, error) {
	genre := &models.Genre{}

	q := svc.db.
		NewSelect().
		Model(genre)

	if opts.ID != nil {
		q = q.Where("g.id = ?", *opts.ID)
	}
	if opts.Name != nil {
		q = q.Where("g.name = ? COLLATE NOCASE", *opts.Name)
	}
	if opts.Slug != nil {
		q = q.Where("g.slug = ?", *opts.Slug)
	}

	err := q.Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Genre")
		}
		return nil, errors.WithStack(err)
	}

	return genre, nil
}

// FindOrCreateGenre finds a genre by name (case-insensitive) or creates it
// with a slug derived from the name. Two names that slugify the same way
// resolve to the same genre.
func (svc *Service) FindOrCreateGenre(ctx context.Context, name string) (*models.Genre, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("genre name cannot be empty")
	}
	s := slug.Make(name)
	if s == "" {
		return nil, errors.Errorf("genre name %q has no usable characters", name)
	}

	genre, err := svc.RetrieveGenre(ctx, RetrieveGenreOptions{Name: &name})
	if err == nil {
		return genre, nil
	}
	if !errors.Is(err, errcodes.NotFound("Genre")) {
		return nil, err
	}

	genre, err = svc.RetrieveGenre(ctx, RetrieveGenreOptions{Slug: &s})
	if err == nil {
		return genre, nil
	}
	if !errors.Is(err, errcodes.NotFound("Genre")) {
		return nil, err
	}

	genre = &models.Genre{
		Name: name,
		Slug: s,
	}
	err = svc.CreateGenre(ctx, genre)
	if database.IsUniqueViolation(err) {
		// lost a race with another writer
		return svc.RetrieveGenre(ctx, RetrieveGenreOptions{Slug: &s})
	}
	if err != nil {
		return nil, err
	}
	return genre, nil
}

// ListGenres returns every genre in alphabetical order.
func (svc *Service) ListGenres(ctx context.Context) ([]*models.Genre, error) {
	genres := []*models.Genre{}
	err := svc.db.
		NewSelect().
		Model(&genres).
		OrderExpr("g.name COLLATE NOCASE ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return genres, nil
}
