package listing

import (
	"fmt"
	"hash/fnv"
	"strconv"
)

const (
	publishURLFormat = "https://kalasahayk.com/gallery/artisan123/product_%s"
	noteTokenWidth   = 6
)

// Finalize packages the stage outputs into the terminal Result. It is
// deterministic, performs no I/O and cannot fail. Failed stages contribute
// their documented fallbacks: empty description and hashtags, no AI price.
// When the photo stage failed, ImagePath is left empty and the caller
// substitutes the original upload.
func Finalize(photo PhotoResult, content ContentResult, note string, userPrice float64) Result {
	result := Result{
		UserPrice:  userPrice,
		PublishURL: fmt.Sprintf(publishURLFormat, noteToken(note)),
	}

	if photo.Status == StatusSuccess {
		result.ImagePath = photo.ProcessedImagePath
	} else {
		result.PhotoErr = photo.Err
	}

	if content.Status == StatusSuccess {
		result.Description = content.Description
		result.Hashtags = content.Hashtags
		result.AIPrice = content.Price
	} else {
		result.ContentErr = content.Err
		result.Hashtags = []string{}
	}

	return result
}

// noteToken derives a fixed-width token from the note text for the mock
// publish URL. It is a presentational identifier only; collisions between
// different notes are acceptable.
func noteToken(note string) string {
	h := fnv.New64a()
	h.Write([]byte(note))
	token := strconv.FormatUint(h.Sum64(), 10)
	if len(token) > noteTokenWidth {
		token = token[:noteTokenWidth]
	}
	return token
}

// DisplayPrice returns the primary price line and an optional secondary
// annotation. A user price above zero takes precedence, with the AI
// suggestion demoted to the annotation; otherwise the AI price is primary;
// with neither, the price is "not available".
func DisplayPrice(r Result) (primary, secondary string) {
	switch {
	case r.UserPrice > 0:
		primary = fmt.Sprintf("$%.2f", r.UserPrice)
		if r.AIPrice != nil {
			secondary = fmt.Sprintf("AI suggestion: $%.2f", *r.AIPrice)
		}
	case r.AIPrice != nil:
		primary = fmt.Sprintf("$%.2f", *r.AIPrice)
	default:
		primary = "not available"
	}
	return primary, secondary
}
