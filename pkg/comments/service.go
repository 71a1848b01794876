package comments

import (
	"context"
	"database/sql"
	"time"

	"github.com/mangalife/mangalife-server/pkg/errcodes"
	"github.com/mangalife/mangalife-server/pkg/htmlutil"
	"github.com/mangalife/mangalife-server/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

const TextMaxLength = 5000

// Author is the public summary of a comment's writer.
type Author struct {
	ID             int     `json:"id"`
	Name           string  `json:"name"`
	ProfilePicture *string `json:"profilePicture"`
}

// View is a comment as rendered to a particular viewer.
type View struct {
	ID                 int       `json:"id"`
	PostID             string    `json:"postId"`
	User               *Author   `json:"user"`
	Text               string    `json:"text"`
	ParentID           *int      `json:"parentId"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
	Likes              int       `json:"likes"`
	LikedByCurrentUser bool      `json:"likedByCurrentUser"`
	Replies            []*View   `json:"replies"`
}

type CreateCommentOptions struct {
	PostID   string
	Text     string
	ParentID *int
	UserID   int
}

type Service struct {
	db       *bun.DB
	mediaURL string
}

func NewService(db *bun.DB, mediaURL string) *Service {
	return &Service{db: db, mediaURL: mediaURL}
}

// ListComments returns the top-level comments of a post, newest first, each
// with its replies oldest first. viewerID is nil for anonymous requests.
func (svc *Service) ListComments(ctx context.Context, postID string, viewerID *int) ([]*View, error) {
	comments := []*models.Comment{}
	err := svc.db.NewSelect().
		Model(&comments).
		Relation("User").
		Relation("Likes").
		Relation("Replies", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("c.created_at ASC", "c.id ASC")
		}).
		Relation("Replies.User").
		Relation("Replies.Likes").
		Where("c.post_id = ?", postID).
		Where("c.parent_id IS NULL").
		Order("c.created_at DESC", "c.id DESC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	views := make([]*View, 0, len(comments))
	for _, c := range comments {
		views = append(views, svc.render(c, viewerID))
	}
	return views, nil
}

// RetrieveComment returns one comment with its direct replies.
func (svc *Service) RetrieveComment(ctx context.Context, id int, viewerID *int) (*View, error) {
	c := &models.Comment{}
	err := svc.db.NewSelect().
		Model(c).
		Relation("User").
		Relation("Likes").
		Relation("Replies", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("c.created_at ASC", "c.id ASC")
		}).
		Relation("Replies.User").
		Relation("Replies.Likes").
		Where("c.id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errcodes.NotFound("Comment")
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return svc.render(c, viewerID), nil
}

// CreateComment stores a comment as plain text. A reply to a reply is
// attached to the thread's top-level comment so threads stay one level deep.
func (svc *Service) CreateComment(ctx context.Context, opts CreateCommentOptions) (*View, error) {
	text := htmlutil.Sanitize(opts.Text, TextMaxLength)
	if text == "" {
		return nil, errcodes.ValidationError(`"text" is required`)
	}
	if len(opts.PostID) > models.CommentPostIDMaxLength {
		return nil, errcodes.ValidationError(`"postId" is too long`)
	}

	var parentID *int
	if opts.ParentID != nil {
		parent := &models.Comment{}
		err := svc.db.NewSelect().
			Model(parent).
			Where("c.id = ?", *opts.ParentID).
			Where("c.post_id = ?", opts.PostID).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Parent comment")
		}
		if err != nil {
			return nil, errors.WithStack(err)
		}
		id := parent.ID
		if parent.ParentID != nil {
			id = *parent.ParentID
		}
		parentID = &id
	}

	userID := opts.UserID
	now := time.Now()
	comment := &models.Comment{
		CreatedAt: now,
		UpdatedAt: now,
		PostID:    opts.PostID,
		UserID:    &userID,
		Text:      text,
		ParentID:  parentID,
	}
	if _, err := svc.db.NewInsert().Model(comment).Exec(ctx); err != nil {
		return nil, errors.WithStack(err)
	}

	return svc.RetrieveComment(ctx, comment.ID, &userID)
}

// ToggleLike flips the user's like on a comment and returns the new state
// with the comment's like count.
func (svc *Service) ToggleLike(ctx context.Context, commentID, userID int) (bool, int, error) {
	var liked bool
	var likes int
	err := svc.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().
			Model((*models.Comment)(nil)).
			Where("c.id = ?", commentID).
			Exists(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if !exists {
			return errcodes.NotFound("Comment")
		}

		res, err := tx.NewDelete().
			Model((*models.CommentLike)(nil)).
			Where("comment_id = ?", commentID).
			Where("user_id = ?", userID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return errors.WithStack(err)
		}

		if n == 0 {
			now := time.Now()
			like := &models.CommentLike{CreatedAt: now, UpdatedAt: now, CommentID: commentID, UserID: userID}
			if _, err := tx.NewInsert().Model(like).Exec(ctx); err != nil {
				return errors.WithStack(err)
			}
			liked = true
		}

		likes, err = tx.NewSelect().
			Model((*models.CommentLike)(nil)).
			Where("cl.comment_id = ?", commentID).
			Count(ctx)
		return errors.WithStack(err)
	})
	if err != nil {
		return false, 0, err
	}
	return liked, likes, nil
}

func (svc *Service) render(c *models.Comment, viewerID *int) *View {
	v := &View{
		ID:        c.ID,
		PostID:    c.PostID,
		Text:      c.Text,
		ParentID:  c.ParentID,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
		Likes:     len(c.Likes),
		Replies:   make([]*View, 0, len(c.Replies)),
	}
	if viewerID != nil {
		v.LikedByCurrentUser = c.LikedBy(*viewerID)
	}
	if c.User != nil {
		v.User = &Author{
			ID:             c.User.ID,
			Name:           c.User.Name,
			ProfilePicture: c.User.ProfilePictureURL(svc.mediaURL),
		}
	}
	for _, r := range c.Replies {
		v.Replies = append(v.Replies, svc.render(r, viewerID))
	}
	return v
}
