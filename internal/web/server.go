package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kalasahayak/kala-sahayak/internal/config"
	"github.com/kalasahayak/kala-sahayak/internal/listing"
	"github.com/kalasahayak/kala-sahayak/internal/storage"
	"github.com/rs/zerolog/log"
)

//go:embed templates/*.html
var templateFS embed.FS

// maxUploadSize caps product photo uploads at 10MB.
const maxUploadSize = 10 * 1024 * 1024

const notePlaceholder = "e.g., This is a hand-painted necklace made from terracotta clay, " +
	"featuring a traditional 'Warli' art motif. The black beads are made of glass. " +
	"It took me two days to paint the intricate details."

// Server is the web front end: an upload form that feeds the listing
// pipeline and renders the finished listing.
type Server struct {
	cfg      config.Config
	pipeline *listing.Pipeline
	store    storage.Store
	tmpl     *template.Template
}

func NewServer(cfg config.Config, pipeline *listing.Pipeline, store storage.Store) (*Server, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Server{cfg: cfg, pipeline: pipeline, store: store, tmpl: tmpl}, nil
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /listings", s.handleCreate)
	mux.HandleFunc("GET /listings", s.handleHistory)
	mux.Handle("GET /uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(s.cfg.UploadDir))))
	return mux
}

type formView struct {
	Placeholder string
	Error       string
}

type resultView struct {
	ImageURL       string
	PhotoErr       string
	ContentErr     string
	Description    string
	Hashtags       string
	PrimaryPrice   string
	SecondaryPrice string
	PublishURL     string
}

// handleIndex renders the upload form, or a blocking credentials page when
// required API keys are missing. The credential check is a precondition:
// no stage may run without both keys.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if missing := s.cfg.MissingKeys(); len(missing) > 0 {
		s.render(w, http.StatusServiceUnavailable, "credentials.html", missing)
		return
	}
	s.render(w, http.StatusOK, "index.html", formView{Placeholder: notePlaceholder})
}

// handleCreate accepts the multipart submission, stores the upload under its
// original basename in the scratch directory, runs the pipeline and renders
// the result. Two concurrent submissions with the same filename may race on
// the upload file; this is an accepted limitation.
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	if missing := s.cfg.MissingKeys(); len(missing) > 0 {
		s.render(w, http.StatusServiceUnavailable, "credentials.html", missing)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		s.render(w, http.StatusBadRequest, "index.html", formView{
			Placeholder: notePlaceholder,
			Error:       "The upload could not be read. Photos are limited to 10MB.",
		})
		return
	}

	note := strings.TrimSpace(r.FormValue("note"))
	if note == "" {
		s.render(w, http.StatusBadRequest, "index.html", formView{
			Placeholder: notePlaceholder,
			Error:       "Please describe your product before generating a listing.",
		})
		return
	}

	userPrice := 0.0
	if v := strings.TrimSpace(r.FormValue("price")); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || parsed < 0 {
			s.render(w, http.StatusBadRequest, "index.html", formView{
				Placeholder: notePlaceholder,
				Error:       "The selling price must be a non-negative number.",
			})
			return
		}
		userPrice = parsed
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		s.render(w, http.StatusBadRequest, "index.html", formView{
			Placeholder: notePlaceholder,
			Error:       "Please upload a photo of your product.",
		})
		return
	}
	defer file.Close()

	uploadPath, err := s.saveUpload(file, header.Filename)
	if err != nil {
		log.Error().Err(err).Msg("failed to save upload")
		http.Error(w, "failed to save upload", http.StatusInternalServerError)
		return
	}

	req := listing.NewRequest(uploadPath, note, userPrice)
	result := s.pipeline.Run(r.Context(), req)

	if err := s.store.SaveListing(storage.ListingRecord{
		ID:          req.ID,
		Note:        note,
		ImagePath:   result.ImagePath,
		Description: result.Description,
		Hashtags:    result.Hashtags,
		AIPrice:     result.AIPrice,
		UserPrice:   userPrice,
		PublishURL:  result.PublishURL,
	}); err != nil {
		// History is best-effort; the user still gets their listing.
		log.Warn().Err(err).Str("requestId", req.ID).Msg("failed to save listing history")
	}

	s.render(w, http.StatusOK, "result.html", s.resultView(result))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.RecentListings(20)
	if err != nil {
		log.Error().Err(err).Msg("failed to load listing history")
		http.Error(w, "failed to load listing history", http.StatusInternalServerError)
		return
	}
	s.render(w, http.StatusOK, "history.html", records)
}

// saveUpload writes the uploaded photo into the scratch directory under its
// original basename.
func (s *Server) saveUpload(file io.Reader, filename string) (string, error) {
	if err := os.MkdirAll(s.cfg.UploadDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	path := filepath.Join(s.cfg.UploadDir, filepath.Base(filename))
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, file); err != nil {
		return "", fmt.Errorf("failed to write upload file: %w", err)
	}
	return path, nil
}

func (s *Server) resultView(result listing.Result) resultView {
	primary, secondary := listing.DisplayPrice(result)
	return resultView{
		ImageURL:       "/uploads/" + filepath.Base(result.ImagePath),
		PhotoErr:       result.PhotoErr,
		ContentErr:     result.ContentErr,
		Description:    result.Description,
		Hashtags:       strings.Join(result.Hashtags, " "),
		PrimaryPrice:   primary,
		SecondaryPrice: secondary,
		PublishURL:     result.PublishURL,
	}
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.tmpl.ExecuteTemplate(w, name, data); err != nil {
		log.Error().Err(err).Str("template", name).Msg("failed to render template")
	}
}
