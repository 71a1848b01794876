package history

type RecordProgressPayload struct {
	MangaID            string  `json:"manga_id" mod:"trim" validate:"required,max=255"`
	ChapterNumber      string  `json:"chapter_number" mod:"trim" validate:"required,max=50"`
	ChapterTitle       *string `json:"chapter_title" mod:"trim" validate:"omitempty,max=500"`
	PageNumber         int     `json:"page_number" validate:"required,min=1"`
	TotalPages         *int    `json:"total_pages" validate:"omitempty,min=1"`
	ReadingTimeSeconds int     `json:"reading_time_seconds" validate:"min=0"`
	DeviceType         string  `json:"device_type" mod:"trim" validate:"omitempty,oneof=mobile tablet desktop unknown"`
}

type ListHistoryQuery struct {
	Page    int    `query:"page" default:"1" validate:"min=1"`
	Limit   int    `query:"limit" default:"50" validate:"min=1"`
	MangaID string `query:"manga_id"`
	Days    int    `query:"days" validate:"min=0"`
}

type StatsQuery struct {
	Days int `query:"days" default:"30" validate:"min=1,max=365"`
}

type ContinueReadingQuery struct {
	Limit int `query:"limit" default:"15" validate:"min=1,max=50"`
}

type StartSessionPayload struct {
	MangaID       string `json:"manga_id" mod:"trim" validate:"required"`
	ChapterNumber string `json:"chapter_number" mod:"trim" validate:"required"`
}

type EndSessionPayload struct {
	PagesRead *int `json:"pages_read" validate:"omitempty,min=0"`
}
