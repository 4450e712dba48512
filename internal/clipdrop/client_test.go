package clipdrop

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestImage(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("fake jpeg bytes"), 0644))
	return path
}

func TestRemoveBackground(t *testing.T) {
	t.Run("uploads multipart image and returns processed bytes", func(t *testing.T) {
		processed := []byte("processed png bytes")
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/remove-background/v1", r.URL.Path)
			assert.Equal(t, "secret-key", r.Header.Get("x-api-key"))

			file, header, err := r.FormFile("image_file")
			require.NoError(t, err)
			defer file.Close()
			assert.Equal(t, "pot.jpg", header.Filename)

			w.Header().Set("Content-Type", "image/png")
			w.Write(processed)
		}))
		defer ts.Close()

		client := NewClient(ClientOpts{BaseURL: ts.URL, APIKey: "secret-key"})
		got, err := client.RemoveBackground(context.Background(), writeTestImage(t, "pot.jpg"))
		require.NoError(t, err)
		assert.Equal(t, processed, got)
	})

	t.Run("returns ErrMissingAPIKey without making a request", func(t *testing.T) {
		called := false
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		}))
		defer ts.Close()

		client := NewClient(ClientOpts{BaseURL: ts.URL})
		_, err := client.RemoveBackground(context.Background(), writeTestImage(t, "pot.jpg"))
		assert.ErrorIs(t, err, ErrMissingAPIKey)
		assert.False(t, called)
	})

	t.Run("maps 401 to AuthError with invalid key message", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer ts.Close()

		client := NewClient(ClientOpts{BaseURL: ts.URL, APIKey: "bad-key"})
		_, err := client.RemoveBackground(context.Background(), writeTestImage(t, "pot.jpg"))

		var authErr *AuthError
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, 401, authErr.Status)
		assert.Contains(t, err.Error(), "invalid API key")
	})

	t.Run("maps 403 to AuthError", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer ts.Close()

		client := NewClient(ClientOpts{BaseURL: ts.URL, APIKey: "bad-key"})
		_, err := client.RemoveBackground(context.Background(), writeTestImage(t, "pot.jpg"))

		var authErr *AuthError
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, 403, authErr.Status)
	})

	t.Run("maps other non-2xx to APIError with status and body", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusPaymentRequired)
			w.Write([]byte(`{"error":"no credits remaining"}`))
		}))
		defer ts.Close()

		client := NewClient(ClientOpts{BaseURL: ts.URL, APIKey: "key"})
		_, err := client.RemoveBackground(context.Background(), writeTestImage(t, "pot.jpg"))

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, 402, apiErr.Status)
		assert.Contains(t, apiErr.Body, "no credits remaining")
	})

	t.Run("returns error for nonexistent image path", func(t *testing.T) {
		client := NewClient(ClientOpts{BaseURL: "http://127.0.0.1:1", APIKey: "key"})
		_, err := client.RemoveBackground(context.Background(), "/does/not/exist.jpg")
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrMissingAPIKey))
	})
}
