package agent

import (
	"fmt"
	"hash/fnv"
	"math"
	"os"
	"path/filepath"
)

// Narrative is the output of the storytelling operation.
type Narrative struct {
	Description string   `json:"product_description"`
	Hashtags    []string `json:"hashtags"`
}

// Record is the consolidated aggregate that must be complete before
// publishing. It replaces the free-text dictionary hop between the pricing
// and consolidation steps with a schema-validated structure.
type Record struct {
	ArtisanID         string   `json:"artisan_id"`
	EnhancedImagePath string   `json:"enhanced_image_path"`
	Description       string   `json:"description"`
	Hashtags          []string `json:"hashtags"`
	Price             float64  `json:"price"`
}

// Receipt is the result of the mock publish operation.
type Receipt struct {
	URL     string
	Message string
}

var fixedHashtags = []string{"#Handmade", "#ArtisanCraft", "#IndianHeritage", "#SupportLocal"}

// EnhanceImage is the local image enhancement heuristic: the path must
// exist, and the enhanced image is named by prefixing the original basename.
func EnhanceImage(imagePath string) (string, error) {
	if _, err := os.Stat(imagePath); err != nil {
		return "", fmt.Errorf("image path does not exist: %s", imagePath)
	}
	return "processed_" + filepath.Base(imagePath), nil
}

// GenerateNarrative produces a templated product story and a fixed set of
// hashtags from the artisan's note.
func GenerateNarrative(note string) Narrative {
	story := fmt.Sprintf(
		"Inspired by the artisan's words: '%s', this piece is a testament to traditional craftsmanship.",
		note,
	)
	return Narrative{
		Description: story,
		Hashtags:    append([]string(nil), fixedHashtags...),
	}
}

// RecommendPrice derives a market price from the description length,
// rounded to two decimals.
func RecommendPrice(description string) float64 {
	price := 75.0 + float64(len(description))/25.0
	return math.Round(price*100) / 100
}

// Validate checks that the record carries every field required for
// publishing. It returns an error naming the first missing field; a record
// that fails validation must not be published.
func (r Record) Validate() error {
	required := []struct {
		key     string
		missing bool
	}{
		{"artisan_id", r.ArtisanID == ""},
		{"enhanced_image_path", r.EnhancedImagePath == ""},
		{"description", r.Description == ""},
		{"hashtags", len(r.Hashtags) == 0},
		{"price", r.Price == 0},
	}
	for _, f := range required {
		if f.missing {
			return fmt.Errorf("the record is missing the required key: %s", f.key)
		}
	}
	return nil
}

// Publish formats the mock gallery URL for a consolidated record. It always
// succeeds; no persistence failure is modeled.
func Publish(rec Record) Receipt {
	url := fmt.Sprintf("https://www.kalasahayk.com/gallery/%s/product%d",
		rec.ArtisanID, productID(rec.Description))
	return Receipt{
		URL:     url,
		Message: "SUCCESS: Product live at " + url,
	}
}

// productID derives a stable four-digit identifier from the description.
func productID(description string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(description))
	return h.Sum32() % 10000
}
