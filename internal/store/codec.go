package store

import (
	"encoding/json"
	"fmt"
)

// stateDoc mirrors AppState on disk, where activeGameId is string|null.
// An empty ActiveGameID in memory round-trips through null.
type stateDoc struct {
	Games        []Game  `json:"games"`
	ActiveGameID *string `json:"activeGameId"`
}

// EncodeState serializes a state document for durable storage or export.
func EncodeState(s AppState) ([]byte, error) {
	doc := stateDoc{Games: s.Games}
	if s.ActiveGameID != "" {
		id := s.ActiveGameID
		doc.ActiveGameID = &id
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("store: encode state: %w", err)
	}
	return data, nil
}

// DecodeState parses a serialized state document. A null or absent
// activeGameId decodes to the empty id (no game selected).
func DecodeState(data []byte) (AppState, error) {
	var doc stateDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return AppState{}, fmt.Errorf("store: decode state: %w", err)
	}
	s := AppState{Games: doc.Games}
	if doc.ActiveGameID != nil {
		s.ActiveGameID = *doc.ActiveGameID
	}
	return s, nil
}
