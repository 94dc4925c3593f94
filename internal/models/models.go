package models

import "time"

// Media types a gallery item can carry
const (
	MediaTypePhoto = "photo"
	MediaTypeVideo = "video"
)

// Tour represents a single scheduled show
type Tour struct {
	ID         int64     `json:"id"`
	Date       string    `json:"date"`
	City       string    `json:"city"`
	Venue      string    `json:"venue"`
	TicketLink string    `json:"ticketLink"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// TourInput is the writable part of a tour as submitted by the admin
type TourInput struct {
	Date       string `json:"date" validate:"required"`
	City       string `json:"city" validate:"required,max=100"`
	Venue      string `json:"venue" validate:"required,max=200"`
	TicketLink string `json:"ticketLink"`
}

// GalleryItem represents an uploaded photo or video
type GalleryItem struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Order       int       `json:"order"`
	MediaType   string    `json:"mediaType"`
	Thumbnail   string    `json:"thumbnail,omitempty"`
	MimeType    string    `json:"mimeType"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Gallery is the public view of the gallery
type Gallery struct {
	Enabled bool          `json:"enabled"`
	Photos  []GalleryItem `json:"photos"`
}

// Countdown is the release countdown shown on the desktop
type Countdown struct {
	Enabled              bool       `json:"enabled"`
	ReleaseDate          *time.Time `json:"releaseDate"`
	Title                string     `json:"title"`
	Description          string     `json:"description"`
	CompletedTitle       string     `json:"completedTitle"`
	CompletedDescription string     `json:"completedDescription"`
	UpdatedAt            time.Time  `json:"updatedAt"`
	Released             bool       `json:"released"`
}

// CountdownInput carries a partial countdown update. Nil fields keep their stored value.
// An empty ReleaseDate clears the date.
type CountdownInput struct {
	Enabled              *bool   `json:"enabled"`
	ReleaseDate          *string `json:"releaseDate"`
	Title                *string `json:"title"`
	Description          *string `json:"description"`
	CompletedTitle       *string `json:"completedTitle"`
	CompletedDescription *string `json:"completedDescription"`
}
