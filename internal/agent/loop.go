package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/lithammer/dedent"
	"github.com/rs/zerolog/log"
)

const (
	// maxSteps bounds the planner/dispatch round trips per stage.
	maxSteps = 8
	// maxParseRetries bounds consecutive corrective retries after
	// malformed planner output before the stage fails.
	maxParseRetries = 2

	finishAction = "finish"
)

// Planner decides the next action for a stage given the transcript so far.
// The returned text is expected to contain a single JSON action object, but
// that is not contractually guaranteed; the loop recovers from malformed
// output with a corrective retry.
type Planner interface {
	NextAction(ctx context.Context, transcript string) (string, error)
}

// Action is the planner's output contract: which permitted operation to
// invoke and with what input.
type Action struct {
	Name  string          `json:"action"`
	Input json.RawMessage `json:"input"`
}

// actionFunc executes one permitted operation and returns the observation
// text appended to the transcript.
type actionFunc func(input json.RawMessage) (string, error)

// stagePolicy is a closed set of operations one stage is permitted to
// invoke. The dispatcher rejects anything outside the set, so the
// restriction is structural rather than prompt discipline.
type stagePolicy struct {
	name         string
	instructions string
	actions      map[string]actionFunc
}

var transcriptHeader = dedent.Dedent(`
	Respond with a single JSON object and nothing else, in one of two forms:
	  {"action": "<name>", "input": <input value>} to invoke an operation
	  {"action": "finish", "input": "<final answer>"} when done

	Permitted operations: %s

	%s

	Question: %s`)

// runStage drives one stage to completion: plan, dispatch, observe, repeat.
// The loop is bounded by maxSteps; malformed planner output or an attempt to
// invoke a non-permitted operation yields a corrective observation instead
// of an abort.
func runStage(ctx context.Context, planner Planner, policy stagePolicy, question string) (string, error) {
	transcript := fmt.Sprintf(transcriptHeader, policy.permittedNames(), policy.instructions, question)
	parseFailures := 0

	for step := 0; step < maxSteps; step++ {
		raw, err := planner.NextAction(ctx, transcript)
		if err != nil {
			return "", fmt.Errorf("stage %s: %w", policy.name, err)
		}

		action, err := parseAction(raw)
		if err != nil {
			parseFailures++
			if parseFailures > maxParseRetries {
				return "", fmt.Errorf("stage %s: planner output stayed malformed after %d retries: %w", policy.name, maxParseRetries, err)
			}
			log.Warn().Str("stage", policy.name).Err(err).Msg("malformed planner output, retrying with correction")
			transcript += "\nObservation: your last response was not a valid action object. " +
				"Respond with exactly one JSON object of the form {\"action\": ..., \"input\": ...}."
			continue
		}
		parseFailures = 0

		if action.Name == finishAction {
			var answer string
			if err := json.Unmarshal(action.Input, &answer); err != nil {
				// Tolerate a non-string final answer by passing the raw JSON through.
				answer = string(action.Input)
			}
			log.Info().Str("stage", policy.name).Int("steps", step+1).Msg("stage finished")
			return answer, nil
		}

		fn, ok := policy.actions[action.Name]
		if !ok {
			log.Warn().Str("stage", policy.name).Str("action", action.Name).Msg("planner proposed non-permitted action")
			transcript += fmt.Sprintf("\nObservation: the action %q is not permitted in this stage. Permitted operations: %s",
				action.Name, policy.permittedNames())
			continue
		}

		observation, err := fn(action.Input)
		if err != nil {
			observation = "Error: " + err.Error()
		}

		log.Debug().
			Str("stage", policy.name).
			Str("action", action.Name).
			Str("observation", observation).
			Msg("action dispatched")

		transcript += fmt.Sprintf("\nAction: %s\nObservation: %s", action.Name, observation)
	}

	return "", fmt.Errorf("stage %s: step budget of %d exceeded", policy.name, maxSteps)
}

func (p stagePolicy) permittedNames() string {
	names := make([]string, 0, len(p.actions)+1)
	for name := range p.actions {
		names = append(names, name)
	}
	sort.Strings(names)
	names = append(names, finishAction)
	return strings.Join(names, ", ")
}

// parseAction extracts the action object from the planner's raw text,
// tolerating code fences and surrounding prose.
func parseAction(text string) (Action, error) {
	text = strings.TrimSpace(text)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		return Action{}, fmt.Errorf("no action object found in planner output: %s", text)
	}

	var action Action
	if err := json.Unmarshal([]byte(text[start:end+1]), &action); err != nil {
		return Action{}, fmt.Errorf("failed to parse action object: %w", err)
	}
	if action.Name == "" {
		return Action{}, fmt.Errorf("action object has no action name: %s", text)
	}
	return action, nil
}
