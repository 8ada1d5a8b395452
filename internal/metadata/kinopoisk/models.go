package kinopoisk

// searchResponse is the /movie/search payload.
type searchResponse struct {
	Docs []movieDoc `json:"docs"`
}

// movieDoc covers both search hits and /movie/{id} detail payloads; the
// detail adds description fields on top of the base shape.
type movieDoc struct {
	ID               int     `json:"id"`
	Name             string  `json:"name"`
	AlternativeName  string  `json:"alternativeName"`
	EnName           string  `json:"enName"`
	Year             int     `json:"year"`
	IsSeries         bool    `json:"isSeries"`
	Poster           *poster `json:"poster"`
	Description      string  `json:"description"`
	ShortDescription string  `json:"shortDescription"`
}

type poster struct {
	URL        string `json:"url"`
	PreviewURL string `json:"previewUrl"`
}

// seasonListResponse is the /season payload.
type seasonListResponse struct {
	Docs []seasonDoc `json:"docs"`
}

type seasonDoc struct {
	Number        *int   `json:"number"`
	AirDate       string `json:"airDate"`
	EpisodesCount int    `json:"episodesCount"`
}

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}
