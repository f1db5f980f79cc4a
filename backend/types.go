// ABOUTME: Wire types for the remix backend API
// ABOUTME: JSON bodies of search, remix, create and genres endpoints

package backend

import (
	"errors"
	"io"
)

// Error taxonomy shared by every call. Wrapped errors keep the cause.
var (
	// ErrNetwork covers transport failures and non-2xx responses
	ErrNetwork = errors.New("backend request failed")
	// ErrMalformedResponse covers 2xx responses whose body is unusable
	ErrMalformedResponse = errors.New("malformed backend response")
)

// SearchResultItem is one catalog candidate
type SearchResultItem struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	ChannelName  string `json:"channel"`
	ThumbnailURL string `json:"thumbnail"`
}

type searchRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type searchResponse struct {
	Results *[]SearchResultItem `json:"results"`
}

// RemixRequest asks for one catalog track re-rendered in a genre
type RemixRequest struct {
	TrackID string `json:"video_id"`
	Genre   string `json:"genre"`
}

// UploadFile is one file part of a creation request
type UploadFile struct {
	Name        string
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// CreateRequest is the multipart creation payload.
// Lyrics and VoiceStyle are sent only when Lyrics is non-empty.
type CreateRequest struct {
	Files      []UploadFile
	MixRatios  []float64
	Lyrics     string
	VoiceStyle string
}

type artifactResponse struct {
	URL string `json:"url"`
}

type genresResponse struct {
	Genres []string `json:"genres"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}
