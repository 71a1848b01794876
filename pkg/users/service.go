package users

import (
	"context"
	"database/sql"
	"time"

	"github.com/mangalife/mangalife-server/pkg/errcodes"
	"github.com/mangalife/mangalife-server/pkg/models"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"
)

type Service struct {
	db      *bun.DB
	avatars *AvatarStore
}

func NewService(db *bun.DB, avatars *AvatarStore) *Service {
	return &Service{db: db, avatars: avatars}
}

// Retrieve returns the user with the given ID.
func (svc *Service) Retrieve(ctx context.Context, id int) (*models.User, error) {
	user := &models.User{}
	err := svc.db.NewSelect().
		Model(user).
		Where("u.id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errcodes.NotFound("User")
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return user, nil
}

// UpdateProfileOptions holds the profile fields a user may change. A nil
// field is left alone; an empty mobile or dob clears it.
type UpdateProfileOptions struct {
	Name   *string
	Mobile *string
	Dob    *string
}

// UpdateProfile applies opts to the user and persists only the touched
// columns.
func (svc *Service) UpdateProfile(ctx context.Context, user *models.User, opts UpdateProfileOptions) (*models.User, error) {
	columns := []string{}
	if opts.Name != nil {
		user.Name = *opts.Name
		columns = append(columns, "name")
	}
	if opts.Mobile != nil {
		user.Mobile = nilIfEmpty(*opts.Mobile)
		columns = append(columns, "mobile")
	}
	if opts.Dob != nil {
		user.Dob = nilIfEmpty(*opts.Dob)
		columns = append(columns, "dob")
	}
	if len(columns) == 0 {
		return user, nil
	}

	user.UpdatedAt = time.Now()
	columns = append(columns, "updated_at")
	_, err := svc.db.NewUpdate().
		Model(user).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return user, nil
}

// UpdateAvatar stores data as the user's new avatar and removes the previous
// file once the database points at the new one.
func (svc *Service) UpdateAvatar(ctx context.Context, user *models.User, data []byte) (*models.User, error) {
	saved, err := svc.avatars.Save(data)
	if err != nil {
		return nil, err
	}

	previous := user.ProfilePicture
	user.ProfilePicture = &saved.Filename
	user.ProfilePictureBlurhash = nilIfEmpty(saved.BlurHash)
	user.UpdatedAt = time.Now()

	_, err = svc.db.NewUpdate().
		Model(user).
		Column("profile_picture", "profile_picture_blurhash", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		_ = svc.avatars.Remove(saved.Filename)
		return nil, errors.WithStack(err)
	}

	if previous != nil && *previous != "" && *previous != saved.Filename {
		if err := svc.avatars.Remove(*previous); err != nil {
			logger.FromContext(ctx).Err(err).Warn("failed to remove previous avatar", logger.Data{"file": *previous})
		}
	}

	return user, nil
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
