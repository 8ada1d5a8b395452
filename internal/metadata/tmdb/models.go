package tmdb

// searchResponse is the /search/multi payload. Movie and TV hits share
// one list, discriminated by media_type; person hits are skipped.
type searchResponse struct {
	Results []searchResult `json:"results"`
}

type searchResult struct {
	ID            int     `json:"id"`
	MediaType     string  `json:"media_type"`
	Title         string  `json:"title"`
	OriginalTitle string  `json:"original_title"`
	Name          string  `json:"name"`
	OriginalName  string  `json:"original_name"`
	ReleaseDate   string  `json:"release_date"`
	FirstAirDate  string  `json:"first_air_date"`
	PosterPath    *string `json:"poster_path"`
}

// movieDetails is the /movie/{id} payload.
type movieDetails struct {
	ID            int     `json:"id"`
	Title         string  `json:"title"`
	OriginalTitle string  `json:"original_title"`
	ReleaseDate   string  `json:"release_date"`
	PosterPath    *string `json:"poster_path"`
	Overview      string  `json:"overview"`
}

// tvDetails is the /tv/{id} payload.
type tvDetails struct {
	ID           int        `json:"id"`
	Name         string     `json:"name"`
	OriginalName string     `json:"original_name"`
	FirstAirDate string     `json:"first_air_date"`
	PosterPath   *string    `json:"poster_path"`
	Overview     string     `json:"overview"`
	Seasons      []tvSeason `json:"seasons"`
}

type tvSeason struct {
	SeasonNumber int    `json:"season_number"`
	AirDate      string `json:"air_date"`
	EpisodeCount int    `json:"episode_count"`
}

type errorResponse struct {
	StatusMessage string `json:"status_message"`
}
