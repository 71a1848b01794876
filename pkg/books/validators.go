package books

type ListBooksQuery struct {
	Page  int    `query:"page" default:"1" validate:"min=1"`
	Limit int    `query:"limit" default:"20" validate:"min=1"`
	Genre string `query:"genre" mod:"trim" validate:"max=100"`
}

type SearchBooksQuery struct {
	Q string `query:"q" validate:"max=200"`
}
