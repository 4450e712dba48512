package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/lithammer/dedent"
	"github.com/rs/zerolog/log"
)

// Workflow runs the agentic variant of the listing pipeline: three planner
// driven stages (visual, narrative, publishing) in fixed order, each
// restricted to its own closed set of operations.
type Workflow struct {
	planner Planner
}

func NewWorkflow(planner Planner) *Workflow {
	return &Workflow{planner: planner}
}

var (
	visualInstructions = dedent.Dedent(`
		You are a specialized agent that operates a single operation. Your ONLY
		job is to pass the image path from the question to the enhance_image
		operation and then finish with the raw, unmodified observation.`)

	narrativeInstructions = dedent.Dedent(`
		You are a specialized agent that operates a single operation. Your ONLY
		job is to pass the artisan's note from the question to the
		generate_narrative operation and then finish with the raw, unmodified
		JSON observation. Do not add any extra text or explanations.`)

	publishingInstructions = dedent.Dedent(`
		You are a digital publishing manager. The question is a JSON object with
		the initial product details. Follow these steps STRICTLY:
		1. Invoke recommend_price with the product's description.
		2. Invoke consolidate with a complete record containing all of the
		   original details PLUS the recommended price.
		3. Invoke publish.
		4. Finish with the raw, unmodified publish observation.`)
)

// Run executes the full workflow for one artisan submission and returns the
// publish receipt.
func (w *Workflow) Run(ctx context.Context, artisanID, imagePath, note string) (Receipt, error) {
	log.Info().Str("artisanId", artisanID).Str("image", imagePath).Msg("agent workflow started")

	enhancedPath, err := runStage(ctx, w.planner, w.visualStage(), imagePath)
	if err != nil {
		return Receipt{}, err
	}

	narrativeJSON, err := runStage(ctx, w.planner, w.narrativeStage(), note)
	if err != nil {
		return Receipt{}, err
	}
	var narrative Narrative
	if err := json.Unmarshal([]byte(narrativeJSON), &narrative); err != nil {
		return Receipt{}, fmt.Errorf("narrative stage returned invalid JSON: %w (output: %s)", err, narrativeJSON)
	}

	initial := Record{
		ArtisanID:         artisanID,
		EnhancedImagePath: enhancedPath,
		Description:       narrative.Description,
		Hashtags:          narrative.Hashtags,
	}
	question, err := json.Marshal(initial)
	if err != nil {
		return Receipt{}, fmt.Errorf("failed to encode publishing input: %w", err)
	}

	stage, receipt := w.publishingStage()
	if _, err := runStage(ctx, w.planner, stage, string(question)); err != nil {
		return Receipt{}, err
	}
	if receipt.URL == "" {
		return Receipt{}, fmt.Errorf("publishing stage finished without invoking publish")
	}

	log.Info().Str("artisanId", artisanID).Str("url", receipt.URL).Msg("agent workflow finished")
	return *receipt, nil
}

func (w *Workflow) visualStage() stagePolicy {
	return stagePolicy{
		name:         "visual",
		instructions: visualInstructions,
		actions: map[string]actionFunc{
			"enhance_image": func(input json.RawMessage) (string, error) {
				path, err := stringInput(input)
				if err != nil {
					return "", err
				}
				return EnhanceImage(path)
			},
		},
	}
}

func (w *Workflow) narrativeStage() stagePolicy {
	return stagePolicy{
		name:         "narrative",
		instructions: narrativeInstructions,
		actions: map[string]actionFunc{
			"generate_narrative": func(input json.RawMessage) (string, error) {
				note, err := stringInput(input)
				if err != nil {
					return "", err
				}
				out, err := json.Marshal(GenerateNarrative(note))
				if err != nil {
					return "", err
				}
				return string(out), nil
			},
		},
	}
}

// publishingStage returns the stage policy plus a receipt slot the publish
// action fills in. Publishing is gated on a successful consolidation: a
// record missing any required field is a hard stop for the request.
func (w *Workflow) publishingStage() (stagePolicy, *Receipt) {
	receipt := &Receipt{}
	var consolidated *Record

	policy := stagePolicy{
		name:         "publishing",
		instructions: publishingInstructions,
		actions: map[string]actionFunc{
			"recommend_price": func(input json.RawMessage) (string, error) {
				description, err := stringInput(input)
				if err != nil {
					return "", err
				}
				return strconv.FormatFloat(RecommendPrice(description), 'f', 2, 64), nil
			},
			"consolidate": func(input json.RawMessage) (string, error) {
				var rec Record
				if err := json.Unmarshal(input, &rec); err != nil {
					return "", fmt.Errorf("input is not a valid record object: %w", err)
				}
				if err := rec.Validate(); err != nil {
					return "", err
				}
				consolidated = &rec
				out, err := json.Marshal(rec)
				if err != nil {
					return "", err
				}
				return string(out), nil
			},
			"publish": func(input json.RawMessage) (string, error) {
				if consolidated == nil {
					return "", fmt.Errorf("the record has not been consolidated yet")
				}
				*receipt = Publish(*consolidated)
				return receipt.Message, nil
			},
		},
	}

	return policy, receipt
}

// stringInput decodes an action input that should be a plain string,
// tolerating an unquoted value.
func stringInput(input json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(input, &s); err == nil {
		return s, nil
	}
	if len(input) == 0 {
		return "", fmt.Errorf("action input is empty")
	}
	return string(input), nil
}
