package llm

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// extractJSONObject extracts a JSON object from text that may contain
// markdown code blocks or other formatting. Returns the extracted JSON
// string or an error.
func extractJSONObject(text string) (string, error) {
	text = strings.TrimSpace(text)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		return "", fmt.Errorf("no JSON object found in response: %s", text)
	}
	return text[start : end+1], nil
}

// parseContent parses the model's response into Content. A missing
// description key is a parse failure; a non-numeric price is tolerated and
// treated as absent.
func parseContent(text string) (*Content, error) {
	jsonStr, err := extractJSONObject(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse response JSON: %w", err)
	}

	var payload struct {
		Description *string         `json:"description"`
		Hashtags    []string        `json:"hashtags"`
		Price       json.RawMessage `json:"price"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &payload); err != nil {
		return nil, fmt.Errorf("failed to parse response JSON: %w (response: %s)", err, jsonStr)
	}
	if payload.Description == nil {
		return nil, fmt.Errorf("response JSON is missing the description key (response: %s)", jsonStr)
	}

	return &Content{
		Description: *payload.Description,
		Hashtags:    payload.Hashtags,
		Price:       coercePrice(payload.Price),
	}, nil
}

// coercePrice interprets the raw price value. Numbers are used directly and
// numeric strings are accepted; anything else means no price was suggested.
func coercePrice(raw json.RawMessage) *float64 {
	if len(raw) == 0 {
		return nil
	}

	var num float64
	if err := json.Unmarshal(raw, &num); err == nil {
		return &num
	}

	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		str = strings.TrimSpace(strings.TrimPrefix(str, "$"))
		if parsed, err := strconv.ParseFloat(str, 64); err == nil {
			return &parsed
		}
	}

	return nil
}
