package bookmarks

type CreateBookmarkPayload struct {
	MangaID string  `json:"manga_id" mod:"trim" validate:"required,max=255"`
	Type    string  `json:"type" default:"favorite" validate:"oneof=favorite reading completed plan_to_read dropped"`
	Notes   *string `json:"notes" validate:"omitempty,max=2000"`
}

type UpdateBookmarkPayload struct {
	Type  *string `json:"type" validate:"omitempty,oneof=favorite reading completed plan_to_read dropped"`
	Notes *string `json:"notes" validate:"omitempty,max=2000"`
}

type BulkBookmarkItem struct {
	MangaID string  `json:"mangaId" mod:"trim" validate:"required,max=255"`
	Type    string  `json:"type" validate:"required,oneof=favorite reading completed plan_to_read dropped"`
	Notes   *string `json:"notes" validate:"omitempty,max=2000"`
}

type BulkBookmarkPayload struct {
	Bookmarks []BulkBookmarkItem `json:"bookmarks" validate:"required,min=1,max=100,dive"`
}

type ListBookmarksQuery struct {
	Type  string `query:"type"`
	Page  int    `query:"page" default:"1" validate:"min=1"`
	Limit int    `query:"limit" default:"20" validate:"min=1"`
	Sort  string `query:"sort" default:"created_at"`
}

type ExportBookmarksQuery struct {
	Format string `query:"format" default:"json" validate:"oneof=json"`
}
