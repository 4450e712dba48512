package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedPlanner returns canned responses in order and records every
// transcript it was shown.
type scriptedPlanner struct {
	responses   []string
	transcripts []string
}

func (p *scriptedPlanner) NextAction(ctx context.Context, transcript string) (string, error) {
	p.transcripts = append(p.transcripts, transcript)
	if len(p.responses) == 0 {
		return "", fmt.Errorf("scripted planner ran out of responses")
	}
	next := p.responses[0]
	p.responses = p.responses[1:]
	return next, nil
}

func action(name string, input any) string {
	raw, _ := json.Marshal(input)
	return fmt.Sprintf(`{"action": %q, "input": %s}`, name, raw)
}

func writeImage(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("img"), 0644))
	return path
}

func TestRunStage(t *testing.T) {
	echoPolicy := stagePolicy{
		name:         "echo",
		instructions: "Echo the question.",
		actions: map[string]actionFunc{
			"echo": func(input json.RawMessage) (string, error) {
				var s string
				if err := json.Unmarshal(input, &s); err != nil {
					return "", err
				}
				return "echo: " + s, nil
			},
		},
	}

	t.Run("dispatches and finishes", func(t *testing.T) {
		planner := &scriptedPlanner{responses: []string{
			action("echo", "hello"),
			action("finish", "echo: hello"),
		}}

		answer, err := runStage(context.Background(), planner, echoPolicy, "hello")
		require.NoError(t, err)
		assert.Equal(t, "echo: hello", answer)
		assert.Contains(t, planner.transcripts[1], "Observation: echo: hello")
	})

	t.Run("recovers from malformed planner output with a corrective retry", func(t *testing.T) {
		planner := &scriptedPlanner{responses: []string{
			"Thought: I should probably echo something first",
			action("finish", "done"),
		}}

		answer, err := runStage(context.Background(), planner, echoPolicy, "q")
		require.NoError(t, err)
		assert.Equal(t, "done", answer)
		assert.Contains(t, planner.transcripts[1], "was not a valid action object")
	})

	t.Run("fails after repeated malformed output", func(t *testing.T) {
		planner := &scriptedPlanner{responses: []string{
			"garbage", "more garbage", "still garbage",
		}}

		_, err := runStage(context.Background(), planner, echoPolicy, "q")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "malformed")
	})

	t.Run("rejects non-permitted actions with a corrective observation", func(t *testing.T) {
		planner := &scriptedPlanner{responses: []string{
			action("delete_everything", "now"),
			action("finish", "ok"),
		}}

		answer, err := runStage(context.Background(), planner, echoPolicy, "q")
		require.NoError(t, err)
		assert.Equal(t, "ok", answer)
		assert.Contains(t, planner.transcripts[1], `"delete_everything" is not permitted`)
	})

	t.Run("fails when the step budget is exceeded", func(t *testing.T) {
		responses := make([]string, maxSteps)
		for i := range responses {
			responses[i] = action("echo", "again")
		}
		planner := &scriptedPlanner{responses: responses}

		_, err := runStage(context.Background(), planner, echoPolicy, "q")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "step budget")
	})

	t.Run("surfaces operation errors as observations, not aborts", func(t *testing.T) {
		planner := &scriptedPlanner{responses: []string{
			action("echo", 42),
			action("finish", "recovered"),
		}}

		answer, err := runStage(context.Background(), planner, echoPolicy, "q")
		require.NoError(t, err)
		assert.Equal(t, "recovered", answer)
		assert.Contains(t, planner.transcripts[1], "Observation: Error:")
	})
}

func TestWorkflowRun(t *testing.T) {
	t.Run("full workflow publishes and returns the receipt", func(t *testing.T) {
		imagePath := writeImage(t, "product_image.jpg")
		note := "This is a test note for a beautiful, handmade craft from our village."

		narrative := GenerateNarrative(note)
		narrativeJSON, err := json.Marshal(narrative)
		require.NoError(t, err)

		price := RecommendPrice(narrative.Description)
		record := Record{
			ArtisanID:         "artisan_lc8765",
			EnhancedImagePath: "processed_product_image.jpg",
			Description:       narrative.Description,
			Hashtags:          narrative.Hashtags,
			Price:             price,
		}
		recordJSON, err := json.Marshal(record)
		require.NoError(t, err)

		planner := &scriptedPlanner{responses: []string{
			// visual stage
			action("enhance_image", imagePath),
			action("finish", "processed_product_image.jpg"),
			// narrative stage
			action("generate_narrative", note),
			`{"action": "finish", "input": ` + strconvQuote(string(narrativeJSON)) + `}`,
			// publishing stage
			action("recommend_price", narrative.Description),
			`{"action": "consolidate", "input": ` + string(recordJSON) + `}`,
			action("publish", nil),
			action("finish", "done"),
		}}

		receipt, err := NewWorkflow(planner).Run(context.Background(), "artisan_lc8765", imagePath, note)
		require.NoError(t, err)

		assert.Contains(t, receipt.Message, "SUCCESS")
		assert.Contains(t, receipt.URL, "https://www.kalasahayk.com")
		assert.Contains(t, receipt.URL, "artisan_lc8765")
	})

	t.Run("record missing price stops before publish", func(t *testing.T) {
		imagePath := writeImage(t, "pot.jpg")
		note := "note"

		narrative := GenerateNarrative(note)
		narrativeJSON, _ := json.Marshal(narrative)

		incomplete := Record{
			ArtisanID:         "artisan_lc8765",
			EnhancedImagePath: "processed_pot.jpg",
			Description:       narrative.Description,
			Hashtags:          narrative.Hashtags,
			// Price deliberately absent.
		}
		incompleteJSON, _ := json.Marshal(incomplete)

		planner := &scriptedPlanner{responses: []string{
			action("enhance_image", imagePath),
			action("finish", "processed_pot.jpg"),
			action("generate_narrative", note),
			`{"action": "finish", "input": ` + strconvQuote(string(narrativeJSON)) + `}`,
			`{"action": "consolidate", "input": ` + string(incompleteJSON) + `}`,
			action("publish", nil),
			action("finish", "gave up"),
		}}

		_, err := NewWorkflow(planner).Run(context.Background(), "artisan_lc8765", imagePath, note)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "without invoking publish")

		// The consolidation error named the missing key, and publish was
		// refused because no record was consolidated.
		last := planner.transcripts[len(planner.transcripts)-1]
		assert.Contains(t, last, "missing the required key: price")
		assert.Contains(t, last, "has not been consolidated")
	})

	t.Run("narrative stage must return valid JSON", func(t *testing.T) {
		imagePath := writeImage(t, "pot.jpg")

		planner := &scriptedPlanner{responses: []string{
			action("enhance_image", imagePath),
			action("finish", "processed_pot.jpg"),
			action("generate_narrative", "note"),
			action("finish", "this is not narrative json"),
		}}

		_, err := NewWorkflow(planner).Run(context.Background(), "a1", imagePath, "note")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid JSON")
	})
}

func strconvQuote(s string) string {
	raw, _ := json.Marshal(s)
	return string(raw)
}
