package clipdrop

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

const ApiBaseUrl = "https://clipdrop-api.co"

// ErrMissingAPIKey is returned when the client has no API key configured.
// No request is made in that case.
var ErrMissingAPIKey = errors.New("clipdrop API key is missing")

// AuthError indicates the API key was rejected by the remote service
// (401 or 403). It gets a distinct user-facing message because a mispasted
// key is by far the most common failure.
type AuthError struct {
	Status int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("clipdrop API error: invalid API key (status: %d)", e.Status)
}

// APIError is any other non-2xx response from the API.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("clipdrop API error: %d - %s", e.Status, e.Body)
}

type ClientOpts struct {
	BaseURL string
	APIKey  string
}

// Client talks to the Clipdrop background removal API.
type Client struct {
	httpClient *resty.Client
	baseURL    string
	apiKey     string
}

func NewClient(opts ClientOpts) *Client {
	c := Client{baseURL: ApiBaseUrl, apiKey: opts.APIKey}
	if opts.BaseURL != "" {
		c.baseURL = opts.BaseURL
	}
	c.httpClient = resty.New().
		SetDebug(false).
		SetBaseURL(c.baseURL).
		SetHeader("Accept", "image/png")

	return &c
}

// RemoveBackground uploads the image at imagePath and returns the processed
// image bytes. The upload is a multipart form with a single image_file part
// named after the original file, authenticated with the x-api-key header.
// A single attempt is made; there is no retry or caching.
func (c *Client) RemoveBackground(ctx context.Context, imagePath string) ([]byte, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	f, err := os.Open(imagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	res, err := c.httpClient.
		NewRequest().
		SetContext(ctx).
		SetHeader("x-api-key", c.apiKey).
		SetFileReader("image_file", filepath.Base(imagePath), f).
		Post("/remove-background/v1")
	if err != nil {
		return nil, fmt.Errorf("background removal request failed: %w", err)
	}

	if res.IsError() {
		status := res.StatusCode()
		if status == 401 || status == 403 {
			return nil, &AuthError{Status: status}
		}
		return nil, &APIError{Status: status, Body: string(res.Body())}
	}

	log.Info().
		Str("image", filepath.Base(imagePath)).
		Int("responseBytes", len(res.Body())).
		Msg("background removed")

	return res.Body(), nil
}
