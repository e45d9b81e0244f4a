package metadata

type MediaType string

const (
	MediaMovie MediaType = "movie"
	MediaTV    MediaType = "tv"
)

func (m MediaType) Valid() bool {
	return m == MediaMovie || m == MediaTV
}

// Title is a search or trending result.
type Title struct {
	ID          string    `json:"id"`
	TMDBID      int64     `json:"tmdbId"`
	MediaType   MediaType `json:"mediaType"`
	Title       string    `json:"title"`
	Name        string    `json:"name"`
	ReleaseYear int       `json:"releaseYear,omitempty"`
	Tag         string    `json:"tag"`
	Overview    string    `json:"overview"`
	Poster      string    `json:"poster,omitempty"`
	Backdrop    string    `json:"backdrop,omitempty"`
	Rating      *float64  `json:"rating"`
}

type MovieDetails struct {
	ID              int64    `json:"id"`
	Title           string   `json:"title"`
	Tagline         string   `json:"tagline"`
	Overview        string   `json:"overview"`
	ReleaseDate     string   `json:"releaseDate"`
	Runtime         int      `json:"runtime"`
	Poster          string   `json:"poster,omitempty"`
	Backdrop        string   `json:"backdrop,omitempty"`
	Genres          []string `json:"genres"`
	Rating          *float64 `json:"rating"`
	Status          string   `json:"status"`
	Budget          int64    `json:"budget"`
	Revenue         int64    `json:"revenue"`
	SpokenLanguages []string `json:"spokenLanguages"`
	Homepage        string   `json:"homepage"`
}

type Season struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	SeasonNumber int    `json:"seasonNumber"`
	EpisodeCount int    `json:"episodeCount"`
	AirDate      string `json:"airDate"`
	Overview     string `json:"overview"`
	Poster       string `json:"poster,omitempty"`
}

type SeriesDetails struct {
	ID              int64    `json:"id"`
	Name            string   `json:"name"`
	Tagline         string   `json:"tagline"`
	Overview        string   `json:"overview"`
	FirstAirDate    string   `json:"firstAirDate"`
	Poster          string   `json:"poster,omitempty"`
	Backdrop        string   `json:"backdrop,omitempty"`
	Genres          []string `json:"genres"`
	Rating          *float64 `json:"voteAverage"`
	Status          string   `json:"status"`
	SpokenLanguages []string `json:"spokenLanguages"`
	Homepage        string   `json:"homepage"`
	Seasons         []Season `json:"seasons"`
}

type Episode struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	EpisodeNumber int    `json:"episodeNumber"`
	Overview      string `json:"overview"`
	AirDate       string `json:"airDate"`
	Still         string `json:"stillPath,omitempty"`
}

// wire types

type tmdbNamed struct {
	Name        string `json:"name"`
	EnglishName string `json:"english_name"`
}

type tmdbResult struct {
	ID           int64    `json:"id"`
	MediaType    string   `json:"media_type"`
	Title        string   `json:"title"`
	Name         string   `json:"name"`
	ReleaseDate  string   `json:"release_date"`
	FirstAirDate string   `json:"first_air_date"`
	Overview     string   `json:"overview"`
	PosterPath   string   `json:"poster_path"`
	BackdropPath string   `json:"backdrop_path"`
	VoteAverage  *float64 `json:"vote_average"`
}

type tmdbPage struct {
	Results []tmdbResult `json:"results"`
}

type tmdbMovie struct {
	ID              int64       `json:"id"`
	Title           string      `json:"title"`
	OriginalTitle   string      `json:"original_title"`
	Tagline         string      `json:"tagline"`
	Overview        string      `json:"overview"`
	ReleaseDate     string      `json:"release_date"`
	Runtime         int         `json:"runtime"`
	PosterPath      string      `json:"poster_path"`
	BackdropPath    string      `json:"backdrop_path"`
	Genres          []tmdbNamed `json:"genres"`
	VoteAverage     *float64    `json:"vote_average"`
	Status          string      `json:"status"`
	Budget          int64       `json:"budget"`
	Revenue         int64       `json:"revenue"`
	SpokenLanguages []tmdbNamed `json:"spoken_languages"`
	Homepage        string      `json:"homepage"`
}

type tmdbSeason struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	SeasonNumber int    `json:"season_number"`
	EpisodeCount int    `json:"episode_count"`
	AirDate      string `json:"air_date"`
	Overview     string `json:"overview"`
	PosterPath   string `json:"poster_path"`
}

type tmdbSeries struct {
	ID              int64        `json:"id"`
	Name            string       `json:"name"`
	OriginalName    string       `json:"original_name"`
	Tagline         string       `json:"tagline"`
	Overview        string       `json:"overview"`
	FirstAirDate    string       `json:"first_air_date"`
	PosterPath      string       `json:"poster_path"`
	BackdropPath    string       `json:"backdrop_path"`
	Genres          []tmdbNamed  `json:"genres"`
	VoteAverage     *float64     `json:"vote_average"`
	Status          string       `json:"status"`
	SpokenLanguages []tmdbNamed  `json:"spoken_languages"`
	Homepage        string       `json:"homepage"`
	Seasons         []tmdbSeason `json:"seasons"`
}

type tmdbEpisode struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	EpisodeNumber int    `json:"episode_number"`
	Overview      string `json:"overview"`
	AirDate       string `json:"air_date"`
	StillPath     string `json:"still_path"`
}

type tmdbSeasonDetails struct {
	Episodes []tmdbEpisode `json:"episodes"`
}
