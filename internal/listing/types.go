package listing

import (
	"github.com/google/uuid"
)

// Status is the outcome of a single pipeline stage.
type Status int

const (
	StatusSuccess Status = iota
	StatusFailed
)

// Request carries everything the pipeline needs for one submission. It is
// immutable for the duration of the run.
type Request struct {
	ID        string
	ImagePath string
	Note      string
	// UserPrice is the artisan's own asking price. Zero or negative means
	// the artisan did not set one.
	UserPrice float64
}

// NewRequest creates a Request with a fresh ID.
func NewRequest(imagePath, note string, userPrice float64) Request {
	return Request{
		ID:        uuid.NewString(),
		ImagePath: imagePath,
		Note:      note,
		UserPrice: userPrice,
	}
}

// PhotoResult is the output of the photo enhancement stage. On failure the
// original image path is substituted downstream so the final listing always
// has a displayable image.
type PhotoResult struct {
	Status             Status
	ProcessedImagePath string
	Err                string
}

// ContentResult is the output of the content generation stage. On failure
// the description and hashtags fall back to empty values and Price is nil.
type ContentResult struct {
	Status      Status
	Description string
	Hashtags    []string
	Price       *float64
	Err         string
}

// Result is the terminal record for one request, produced exactly once and
// consumed by the presentation layer.
type Result struct {
	ImagePath   string
	Description string
	Hashtags    []string
	AIPrice     *float64
	UserPrice   float64
	PublishURL  string
	PhotoErr    string
	ContentErr  string
}
