package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kaptinlin/jsonrepair"

	"github.com/spigell/job-assistant/internal/ai"
	"github.com/spigell/job-assistant/internal/utils"
)

const (
	defaultModelTimeout = 8 * time.Second
	modelPrompt         = "You extract job search details from one chat message.\n" +
		"Return ONLY valid minified JSON with keys: role, location, income_type, salary.\n" +
		"income_type is one of full-time, part-time, temporary, freelance, internship.\n" +
		"If a value is unknown, use null."
)

// ModelStage asks a text-completion model for the signals as strict JSON.
type ModelStage struct {
	Completer ai.Completer
	Model     string
	Timeout   time.Duration
}

func (m *ModelStage) Name() string { return "model" }

func (m *ModelStage) Attempt(ctx context.Context, in Input) (Signals, error) {
	if m.Completer == nil || (in.Found.Role != "" && in.Found.Location != "") {
		return Signals{}, nil
	}

	text := utils.CollapseSpaces(in.Message)
	if text == "" {
		return Signals{}, nil
	}

	timeout := m.Timeout
	if timeout <= 0 {
		timeout = defaultModelTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	raw, err := m.Completer.Complete(ctx, ai.Request{
		Model: m.Model,
		Messages: []ai.Message{
			ai.System(modelPrompt),
			ai.User("Text: " + text),
		},
		Temperature: 0,
	})
	if err != nil {
		return Signals{}, &Error{Stage: m.Name(), Err: err}
	}

	fields, err := parseObject(raw)
	if err != nil {
		return Signals{}, &Error{Stage: m.Name(), Err: err}
	}

	return Signals{
		Role:       coerceString(fields["role"]),
		Location:   coerceString(fields["location"]),
		IncomeType: NormalizeIncomeType(coerceString(fields["income_type"])),
		Salary:     coerceString(fields["salary"]),
	}, nil
}

// parseObject decodes a JSON object from model output, repairing it when needed.
func parseObject(raw string) (map[string]any, error) {
	payload := extractJSON(raw)
	if payload == "" {
		return nil, errors.New("empty model response")
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(payload), &fields); err == nil {
		return fields, nil
	}

	repaired, err := jsonrepair.JSONRepair(payload)
	if err != nil {
		return nil, fmt.Errorf("repairing model json: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), &fields); err != nil {
		return nil, fmt.Errorf("decoding model json: %w", err)
	}
	if fields == nil {
		return nil, errors.New("model json is not an object")
	}

	return fields, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	raw = strings.TrimSpace(raw)

	// Models like to add a sentence around the object.
	if start := strings.Index(raw, "{"); start > 0 {
		raw = raw[start:]
	}
	if end := strings.LastIndex(raw, "}"); end != -1 && end < len(raw)-1 {
		raw = raw[:end+1]
	}

	return raw
}

func coerceString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		trimmed := strings.TrimSpace(val)
		switch strings.ToLower(trimmed) {
		case "null", "none", "unknown", "n/a":
			return ""
		}
		return trimmed
	case float64:
		return strings.TrimSpace(fmt.Sprintf("%v", val))
	default:
		return ""
	}
}
