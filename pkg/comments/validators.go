package comments

type ListCommentsQuery struct {
	PostID string `query:"postId" mod:"trim" validate:"required,max=64"`
}

type CreateCommentPayload struct {
	PostID   string `json:"postId" mod:"trim" validate:"required,max=64"`
	Text     string `json:"text" mod:"trim" validate:"required"`
	ParentID *int   `json:"parentId" validate:"omitempty,min=1"`
}
