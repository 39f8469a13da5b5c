// Package narrative locates world-entity mentions and inline annotation
// markers in generated text, so the view can highlight NPC names, locations
// and quest titles inside a narrative without re-parsing it.
package narrative

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/coregx/ahocorasick"
	"github.com/orsinium-labs/stopwords"

	"github.com/lorehold/gmassist/internal/store"
)

// Mention is one detected entity reference in a text. Start and End are byte
// offsets into the original text; Text preserves the original casing.
type Mention struct {
	EntityID string
	Kind     store.Kind
	Start    int
	End      int
	Text     string
}

type entityRef struct {
	id   string
	kind store.Kind
}

// Dictionary is an Aho-Corasick automaton over the entity names of one world.
// A single automaton serves every scan; recompile after the world changes.
type Dictionary struct {
	ac   *ahocorasick.Automaton
	refs [][]entityRef
}

// CompileDictionary builds a dictionary from a world's NPC names, location
// names and quest titles. Single-word names that are common English words are
// excluded; matching "The" on every sentence would drown the real mentions.
func CompileDictionary(w store.World) (*Dictionary, error) {
	stop := stopwords.MustGet("en")

	patterns := []string{}
	index := map[string]int{}
	refs := [][]entityRef{}

	add := func(surface, id string, kind store.Kind) {
		key := canonicalize(surface)
		if key == "" {
			return
		}
		if !strings.Contains(key, " ") && stop.Contains(key) {
			return
		}
		if idx, ok := index[key]; ok {
			refs[idx] = append(refs[idx], entityRef{id: id, kind: kind})
			return
		}
		index[key] = len(patterns)
		patterns = append(patterns, key)
		refs = append(refs, []entityRef{{id: id, kind: kind}})
	}

	for _, npc := range w.NPCs {
		add(npc.Name, npc.ID, store.KindNPC)
	}
	for _, loc := range w.Locations {
		add(loc.Name, loc.ID, store.KindLocation)
	}
	for _, q := range w.Quests {
		add(q.Title, q.ID, store.KindQuest)
	}

	if len(patterns) == 0 {
		return &Dictionary{}, nil
	}

	ac, err := ahocorasick.NewBuilder().
		AddStrings(patterns).
		SetMatchKind(ahocorasick.LeftmostLongest).
		SetPrefilter(true).
		Build()
	if err != nil {
		return nil, fmt.Errorf("narrative: compile dictionary: %w", err)
	}
	return &Dictionary{ac: ac, refs: refs}, nil
}

// Scan finds every entity mention in text. Offsets point into the original
// text even though matching runs over the canonicalized form.
func (d *Dictionary) Scan(text string) []Mention {
	if d.ac == nil {
		return nil
	}

	canon := canonicalize(text)
	toOrig := offsetMap(text)

	matches := d.ac.FindAllOverlapping([]byte(canon))
	out := make([]Mention, 0, len(matches))
	for _, m := range matches {
		start := mapOffset(m.Start, toOrig, len(text))
		end := mapOffset(m.End, toOrig, len(text))
		if start >= len(text) || end > len(text) || start >= end {
			continue
		}
		for _, ref := range d.refs[m.PatternID] {
			out = append(out, Mention{
				EntityID: ref.id,
				Kind:     ref.kind,
				Start:    start,
				End:      end,
				Text:     text[start:end],
			})
		}
	}
	return out
}

// isJoiner reports punctuation that appears inside names ("O'Brien",
// "Jean-Luc", "Mt. Doom") and must survive canonicalization.
func isJoiner(r rune) bool {
	switch r {
	case '\'', '’', '‘',
		'-', '–', '—',
		'.', '_', '/', '&':
		return true
	}
	return false
}

// canonicalize lowercases, normalizes apostrophe and dash variants, and
// collapses separator runs to single spaces. Patterns and scanned text go
// through the same function; matching breaks otherwise.
func canonicalize(s string) string {
	var out strings.Builder
	out.Grow(len(s))

	lastWasSpace := true
	for _, ch := range s {
		c := unicode.ToLower(ch)
		if c == '’' || c == '‘' {
			c = '\''
		}
		if c == '–' || c == '—' {
			c = '-'
		}
		if unicode.IsLetter(c) || unicode.IsDigit(c) || isJoiner(c) {
			out.WriteRune(c)
			lastWasSpace = false
		} else if !lastWasSpace {
			out.WriteRune(' ')
			lastWasSpace = true
		}
	}

	result := out.String()
	return strings.TrimSuffix(result, " ")
}

// offsetMap maps each byte position of the canonicalized text back to the
// byte position in the original that produced it.
func offsetMap(original string) []int {
	mapping := make([]int, 0, len(original)+1)

	lastWasSpace := true
	origPos := 0
	for _, ch := range original {
		runeLen := utf8.RuneLen(ch)
		c := unicode.ToLower(ch)
		if c == '’' || c == '‘' {
			c = '\''
		}
		if c == '–' || c == '—' {
			c = '-'
		}

		if unicode.IsLetter(c) || unicode.IsDigit(c) || isJoiner(c) {
			for i := 0; i < utf8.RuneLen(c); i++ {
				mapping = append(mapping, origPos)
			}
			lastWasSpace = false
		} else if !lastWasSpace {
			mapping = append(mapping, origPos)
			lastWasSpace = true
		}
		origPos += runeLen
	}

	mapping = append(mapping, origPos)
	return mapping
}

func mapOffset(canonOffset int, mapping []int, originalLen int) int {
	if canonOffset >= len(mapping) {
		return originalLen
	}
	if canonOffset < 0 {
		return 0
	}
	return mapping[canonOffset]
}
