package gateway

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lorehold/gmassist/internal/store"
)

// stripCodeFence removes markdown code block wrappers (```json ... ```).
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	if len(lines) > 0 {
		lines = lines[1:]
	}
	if len(lines) > 0 && strings.HasPrefix(strings.TrimSpace(lines[len(lines)-1]), "```") {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}

// extractArray slices out the outermost JSON array in text. Models sometimes
// wrap the array in prose or fences even when told not to.
func extractArray(text string) (string, error) {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start == -1 || end == -1 || end < start {
		return "", fmt.Errorf("gateway: no JSON array in response")
	}
	return text[start : end+1], nil
}

// parseHooks parses a response into a list of adventure hooks.
func parseHooks(raw string) ([]string, error) {
	cleaned := stripCodeFence(strings.TrimSpace(raw))
	arr, err := extractArray(cleaned)
	if err != nil {
		return nil, err
	}
	var hooks []string
	if err := json.Unmarshal([]byte(arr), &hooks); err != nil {
		return nil, fmt.Errorf("gateway: parse hooks: %w", err)
	}
	return hooks, nil
}

// parseDrafts parses a response into entity drafts, dropping objects that
// lack the field the kind requires.
func parseDrafts(raw string, kind store.Kind) ([]EntityDraft, error) {
	cleaned := stripCodeFence(strings.TrimSpace(raw))
	var drafts []EntityDraft
	if err := json.Unmarshal([]byte(cleaned), &drafts); err != nil {
		arr, aerr := extractArray(cleaned)
		if aerr != nil {
			return nil, fmt.Errorf("gateway: parse drafts: %w", err)
		}
		if err := json.Unmarshal([]byte(arr), &drafts); err != nil {
			return nil, fmt.Errorf("gateway: parse drafts: %w", err)
		}
	}

	out := make([]EntityDraft, 0, len(drafts))
	for _, d := range drafts {
		d.Name = strings.TrimSpace(d.Name)
		d.Title = strings.TrimSpace(d.Title)
		switch kind {
		case store.KindQuest:
			if d.Title == "" {
				continue
			}
		default:
			if d.Name == "" {
				continue
			}
		}
		out = append(out, d)
	}
	return out, nil
}
