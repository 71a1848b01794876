package models

import (
	"time"

	"github.com/uptrace/bun"
)

const CommentPostIDMaxLength = 64

type Comment struct {
	bun.BaseModel `bun:"table:comments,alias:c"`

	ID        int       `bun:",pk,nullzero" json:"id"`
	CreatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"updatedAt"`
	PostID    string    `bun:",notnull" json:"postId"`
	UserID    *int      `json:"userId"`
	Text      string    `bun:",notnull" json:"text"`
	ParentID  *int      `json:"parentId"`

	User    *User          `bun:"rel:belongs-to,join:user_id=id" json:"-"`
	Replies []*Comment     `bun:"rel:has-many,join:id=parent_id" json:"-"`
	Likes   []*CommentLike `bun:"rel:has-many,join:id=comment_id" json:"-"`
}

// LikedBy reports whether userID is among the loaded likes.
func (c *Comment) LikedBy(userID int) bool {
	for _, l := range c.Likes {
		if l.UserID == userID {
			return true
		}
	}
	return false
}

type CommentLike struct {
	bun.BaseModel `bun:"table:comment_likes,alias:cl"`

	ID        int       `bun:",pk,nullzero" json:"id"`
	CreatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"updatedAt"`
	CommentID int       `bun:",notnull" json:"commentId"`
	UserID    int       `bun:",notnull" json:"userId"`
}
