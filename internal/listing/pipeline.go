package listing

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kalasahayak/kala-sahayak/internal/llm"
	"github.com/rs/zerolog/log"
)

// BackgroundRemover removes the background from the image at imagePath and
// returns the processed image bytes.
type BackgroundRemover interface {
	RemoveBackground(ctx context.Context, imagePath string) ([]byte, error)
}

// Pipeline runs the three listing stages in fixed order: photo enhancement,
// content generation, finalization. Stage failures never abort the run; the
// documented fallback is substituted and the pipeline continues, so every
// request produces a complete (possibly degraded) Result.
type Pipeline struct {
	remover   BackgroundRemover
	generator llm.Generator
	outputDir string
}

func NewPipeline(remover BackgroundRemover, generator llm.Generator, outputDir string) *Pipeline {
	return &Pipeline{
		remover:   remover,
		generator: generator,
		outputDir: outputDir,
	}
}

// Run executes the pipeline for one request. It never returns an error:
// each stage folds its own failures into its result record.
func (p *Pipeline) Run(ctx context.Context, req Request) Result {
	log.Info().
		Str("requestId", req.ID).
		Str("image", filepath.Base(req.ImagePath)).
		Msg("pipeline started")

	photo := p.enhance(ctx, req.ImagePath)
	if photo.Status == StatusFailed {
		log.Warn().Str("requestId", req.ID).Str("error", photo.Err).Msg("photo enhancement failed, using original image")
	}

	content := p.generate(ctx, req.Note)
	if content.Status == StatusFailed {
		log.Warn().Str("requestId", req.ID).Str("error", content.Err).Msg("content generation failed, using fallback values")
	}

	result := Finalize(photo, content, req.Note, req.UserPrice)
	if result.ImagePath == "" {
		// A listing always has a displayable image: fall back to the
		// original upload when enhancement failed.
		result.ImagePath = req.ImagePath
	}

	log.Info().
		Str("requestId", req.ID).
		Str("publishUrl", result.PublishURL).
		Msg("pipeline finished")

	return result
}

// enhance invokes the background removal capability and writes the
// processed image next to the original, prefixed with "processed_".
// A nonexistent input path fails fast without a network call. Exactly one
// file is written per successful call; nothing is written on failure.
func (p *Pipeline) enhance(ctx context.Context, imagePath string) PhotoResult {
	if _, err := os.Stat(imagePath); err != nil {
		return PhotoResult{
			Status: StatusFailed,
			Err:    fmt.Sprintf("the file path %q does not exist", imagePath),
		}
	}

	processed, err := p.remover.RemoveBackground(ctx, imagePath)
	if err != nil {
		return PhotoResult{Status: StatusFailed, Err: err.Error()}
	}

	if err := os.MkdirAll(p.outputDir, 0755); err != nil {
		return PhotoResult{
			Status: StatusFailed,
			Err:    fmt.Sprintf("failed to create output directory: %v", err),
		}
	}

	processedPath := filepath.Join(p.outputDir, "processed_"+filepath.Base(imagePath))
	if err := os.WriteFile(processedPath, processed, 0644); err != nil {
		return PhotoResult{
			Status: StatusFailed,
			Err:    fmt.Sprintf("failed to write processed image: %v", err),
		}
	}

	return PhotoResult{Status: StatusSuccess, ProcessedImagePath: processedPath}
}

// generate invokes the content generation capability. Transport, credential
// and parse failures all fold into a failed result; no retry is attempted.
func (p *Pipeline) generate(ctx context.Context, note string) ContentResult {
	content, err := p.generator.GenerateContent(ctx, note)
	if err != nil {
		return ContentResult{Status: StatusFailed, Err: err.Error()}
	}

	return ContentResult{
		Status:      StatusSuccess,
		Description: content.Description,
		Hashtags:    content.Hashtags,
		Price:       content.Price,
	}
}
