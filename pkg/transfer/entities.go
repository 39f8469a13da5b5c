package transfer

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/lorehold/gmassist/internal/store"
)

// File is one uploaded entity file.
type File struct {
	Name string
	Data []byte
}

// Draft is one imported or generated entity before it gets an id. NPCs and
// locations carry Name; quests carry Title.
type Draft struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (d Draft) valid(kind store.Kind) bool {
	if kind == store.KindQuest {
		return strings.TrimSpace(d.Title) != ""
	}
	return strings.TrimSpace(d.Name) != ""
}

// ParseEntityBatch parses uploaded entity files concurrently. Each file holds
// a single object or an array of objects; objects missing the field the kind
// requires are dropped without error. Files that fail to parse contribute a
// joined error but never abort the rest of the batch; results keep file
// order.
func ParseEntityBatch(files []File, kind store.Kind) ([]Draft, error) {
	results := make([][]Draft, len(files))
	errs := make([]error, len(files))

	var wg sync.WaitGroup
	for i, f := range files {
		wg.Add(1)
		go func(i int, f File) {
			defer wg.Done()
			drafts, err := parseEntityFile(f.Data, kind)
			if err != nil {
				errs[i] = fmt.Errorf("transfer: file %q: %w", f.Name, err)
				return
			}
			results[i] = drafts
		}(i, f)
	}
	wg.Wait()

	var out []Draft
	for _, r := range results {
		out = append(out, r...)
	}
	return out, errors.Join(errs...)
}

func parseEntityFile(data []byte, kind store.Kind) ([]Draft, error) {
	trimmed := strings.TrimSpace(string(data))
	var raw []Draft
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
			return nil, err
		}
	} else {
		var single Draft
		if err := json.Unmarshal([]byte(trimmed), &single); err != nil {
			return nil, err
		}
		raw = []Draft{single}
	}

	out := make([]Draft, 0, len(raw))
	for _, d := range raw {
		if d.valid(kind) {
			out = append(out, d)
		}
	}
	return out, nil
}

// MergeEntities folds drafts into a world: an incoming entity replaces the
// existing one it collides with and is appended with a fresh id. NPCs collide
// by name within the target location only; locations and quests collide by
// name and title globally. Incoming NPCs are assigned the target location.
func MergeEntities(w store.World, kind store.Kind, targetLocationID string, incoming []Draft) store.World {
	out := w.Clone()
	switch kind {
	case store.KindNPC:
		for _, d := range incoming {
			kept := out.NPCs[:0:0]
			for _, npc := range out.NPCs {
				if npc.Name == d.Name && npc.LocationID == targetLocationID {
					continue
				}
				kept = append(kept, npc)
			}
			out.NPCs = append(kept, store.NewNPC(d.Name, d.Description, targetLocationID))
		}
	case store.KindLocation:
		for _, d := range incoming {
			kept := out.Locations[:0:0]
			for _, loc := range out.Locations {
				if loc.Name == d.Name {
					continue
				}
				kept = append(kept, loc)
			}
			out.Locations = append(kept, store.NewLocation(d.Name, d.Description))
		}
	case store.KindQuest:
		for _, d := range incoming {
			kept := out.Quests[:0:0]
			for _, q := range out.Quests {
				if q.Title == d.Title {
					continue
				}
				kept = append(kept, q)
			}
			out.Quests = append(kept, store.NewQuest(d.Title, d.Description))
		}
	}
	return out
}
