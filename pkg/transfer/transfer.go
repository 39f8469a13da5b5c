// Package transfer moves sessions and entities across the application
// boundary: whole-session export/import as a single JSON document, and batch
// import of entity files into a world.
package transfer

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lorehold/gmassist/internal/store"
	"github.com/lorehold/gmassist/pkg/blob"
)

// Export serializes the whole state document for download. Image fields
// holding transient blob handles are inlined as data URLs so the exported
// file is self-contained; handles the registry no longer knows are dropped.
func Export(s store.AppState, blobs *blob.Registry) ([]byte, error) {
	out := s.Clone()
	for gi := range out.Games {
		npcs := out.Games[gi].World.NPCs
		for ni := range npcs {
			img := npcs[ni].Image
			if !blob.IsHandle(img) {
				continue
			}
			url, err := blobs.DataURL(img)
			if err != nil {
				npcs[ni].Image = ""
				continue
			}
			npcs[ni].Image = url
		}
	}
	data, err := store.EncodeState(out)
	if err != nil {
		return nil, fmt.Errorf("transfer: export: %w", err)
	}
	return data, nil
}

// ExportFilename names an export after the active game and date:
// pbm_gm_assistant_<name>_<YYYY-MM-DD>.json.
func ExportFilename(s store.AppState, now time.Time) string {
	name := "session"
	if g, ok := store.ActiveGame(s); ok {
		name = g.Name
	}
	return fmt.Sprintf("pbm_gm_assistant_%s_%s.json", sanitizeName(name), now.Format("2006-01-02"))
}

func sanitizeName(name string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		} else {
			sb.WriteByte('_')
		}
	}
	return sb.String()
}

// Import validates and parses an exported session. Validation failures return
// a descriptive error and nothing else; the caller's state is untouched until
// it adopts the returned document.
func Import(data []byte) (store.AppState, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return store.AppState{}, fmt.Errorf("transfer: import: not a JSON object: %w", err)
	}
	gamesRaw, ok := probe["games"]
	if !ok {
		return store.AppState{}, fmt.Errorf("transfer: import: missing \"games\"")
	}
	var games []json.RawMessage
	if err := json.Unmarshal(gamesRaw, &games); err != nil {
		return store.AppState{}, fmt.Errorf("transfer: import: \"games\" is not an array: %w", err)
	}
	if _, ok := probe["activeGameId"]; !ok {
		return store.AppState{}, fmt.Errorf("transfer: import: missing \"activeGameId\"")
	}

	s, err := store.DecodeState(data)
	if err != nil {
		return store.AppState{}, fmt.Errorf("transfer: import: %w", err)
	}
	return s, nil
}
