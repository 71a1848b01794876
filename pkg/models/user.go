package models

import (
	"strings"
	"time"

	"github.com/uptrace/bun"
)

type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID                     int        `bun:",pk,nullzero" json:"id"`
	CreatedAt              time.Time  `bun:",nullzero,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt              time.Time  `bun:",nullzero,notnull,default:current_timestamp" json:"updatedAt"`
	Email                  string     `bun:",nullzero" json:"email"`
	Name                   string     `bun:",nullzero" json:"name"`
	PasswordHash           string     `json:"-"` // Never expose password hash
	ProfilePicture         *string    `json:"profilePicture"`
	ProfilePictureBlurhash *string    `json:"profilePictureBlurhash"`
	Dob                    *string    `json:"dob"`
	Mobile                 *string    `json:"mobile"`
	DeletedAt              *time.Time `bun:",soft_delete,nullzero" json:"-"`
}

// ProfilePictureURL expands the stored avatar file name into a URL under the
// media base. It returns nil when the user has no avatar.
func (u *User) ProfilePictureURL(mediaURL string) *string {
	if u.ProfilePicture == nil || *u.ProfilePicture == "" {
		return nil
	}
	url := strings.TrimRight(mediaURL, "/") + "/avatars/" + *u.ProfilePicture
	return &url
}

// WithMediaURL returns a copy of the user ready to be rendered, with the
// avatar reference replaced by its full URL.
func (u *User) WithMediaURL(mediaURL string) *User {
	out := *u
	out.ProfilePicture = u.ProfilePictureURL(mediaURL)
	return &out
}
