package gateway

import (
	"context"
	"errors"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lorehold/gmassist/internal/store"
)

type fakeModel struct {
	resp     *genai.GenerateContentResponse
	err      error
	gotParts []genai.Part
}

func (f *fakeModel) GenerateContent(_ context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	f.gotParts = parts
	return f.resp, f.err
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content:      &genai.Content{Parts: []genai.Part{genai.Text(text)}},
			FinishReason: genai.FinishReasonStop,
		}},
	}
}

func testWorld() store.World {
	return store.World{
		Lore: "A land of mists.",
		NPCs: []store.NPC{
			{ID: "npc-1", Name: "Elara", Description: "The mayor."},
		},
		Locations: []store.Location{
			{ID: "loc-1", Name: "Oakhaven", Description: "A small town."},
		},
		Quests: []store.Quest{
			{ID: "q-1", Title: "The Sunstone", Description: "Find it.", Status: store.QuestActive},
			{ID: "q-2", Title: "Old Debts", Description: "Settled long ago.", Status: store.QuestCompleted},
		},
	}
}

func newTestService(text, image contentModel) *Service {
	entity := map[store.Kind]contentModel{
		store.KindNPC:      text,
		store.KindLocation: text,
		store.KindQuest:    text,
	}
	return &Service{text: text, image: image, entity: entity, logger: zap.NewNop()}
}

func TestSerializeContext(t *testing.T) {
	got := SerializeContext(testWorld())

	want := "--- GAME WORLD LORE ---\n" +
		"A land of mists.\n\n" +
		"--- KEY NPCs ---\n" +
		"- Elara: The mayor.\n\n" +
		"--- KEY LOCATIONS ---\n" +
		"- Oakhaven: A small town.\n\n" +
		"--- ACTIVE QUESTS ---\n" +
		"- The Sunstone: Find it.\n\n"
	assert.Equal(t, want, got)
}

func TestSerializeContextOmitsEmptySections(t *testing.T) {
	got := SerializeContext(store.World{Lore: "Quiet."})
	assert.Equal(t, "--- GAME WORLD LORE ---\nQuiet.\n\n", got)
}

func TestNarrateTurn(t *testing.T) {
	text := &fakeModel{resp: textResponse("The door creaks open. [ROLL: Perception DC 12]")}
	s := newTestService(text, nil)

	got := s.NarrateTurn(context.Background(), testWorld(), "Class: Rogue", "I open the door.")
	assert.Equal(t, "The door creaks open. [ROLL: Perception DC 12]", got)

	require.Len(t, text.gotParts, 1)
	prompt := string(text.gotParts[0].(genai.Text))
	assert.Contains(t, prompt, "--- GAME WORLD LORE ---")
	assert.Contains(t, prompt, "Class: Rogue")
	assert.Contains(t, prompt, "I open the door.")
	assert.NotContains(t, prompt, "Old Debts")
}

func TestNarrateTurnFallsBack(t *testing.T) {
	s := newTestService(&fakeModel{err: errors.New("quota exceeded")}, nil)
	got := s.NarrateTurn(context.Background(), testWorld(), "", "act")
	assert.Equal(t, FallbackNarrative, got)
}

func TestNarrateTurnEmptyResponseFallsBack(t *testing.T) {
	s := newTestService(&fakeModel{resp: &genai.GenerateContentResponse{}}, nil)
	got := s.NarrateTurn(context.Background(), testWorld(), "", "act")
	assert.Equal(t, FallbackNarrative, got)
}

func TestGenerateHooks(t *testing.T) {
	raw := "Here you go:\n```json\n[\"A merchant needs help.\", \"A tower appeared overnight.\"]\n```"
	s := newTestService(&fakeModel{resp: textResponse(raw)}, nil)

	hooks := s.GenerateHooks(context.Background(), testWorld())
	assert.Equal(t, []string{"A merchant needs help.", "A tower appeared overnight."}, hooks)
}

func TestGenerateHooksFallsBack(t *testing.T) {
	for name, model := range map[string]*fakeModel{
		"transport error": {err: errors.New("boom")},
		"no array":        {resp: textResponse("I cannot do that.")},
		"bad json":        {resp: textResponse("[\"unterminated]")},
	} {
		s := newTestService(model, nil)
		hooks := s.GenerateHooks(context.Background(), testWorld())
		assert.Equal(t, []string{FallbackHook}, hooks, name)
	}
}

func TestGenerateEntities(t *testing.T) {
	raw := `[{"name": "Seris", "description": "A wandering bard."},
		{"description": "Nameless, dropped."},
		{"name": "Torvald", "description": "A retired soldier."}]`
	s := newTestService(&fakeModel{resp: textResponse(raw)}, nil)

	drafts, err := s.GenerateEntities(context.Background(), testWorld(), store.KindNPC)
	require.NoError(t, err)
	require.Len(t, drafts, 2)
	assert.Equal(t, "Seris", drafts[0].Name)
	assert.Equal(t, "Torvald", drafts[1].Name)
}

func TestGenerateEntitiesQuestsRequireTitle(t *testing.T) {
	raw := `[{"title": "The Hollow Crown", "description": "Recover it."},
		{"name": "not-a-quest", "description": "No title."}]`
	s := newTestService(&fakeModel{resp: textResponse(raw)}, nil)

	drafts, err := s.GenerateEntities(context.Background(), testWorld(), store.KindQuest)
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, "The Hollow Crown", drafts[0].Title)
}

func TestGenerateEntitiesFailureIsTyped(t *testing.T) {
	s := newTestService(&fakeModel{err: errors.New("boom")}, nil)

	_, err := s.GenerateEntities(context.Background(), testWorld(), store.KindLocation)
	var entityErr *EntityError
	require.ErrorAs(t, err, &entityErr)
	assert.Equal(t, store.KindLocation, entityErr.Kind)
}

func TestSynthesizeLore(t *testing.T) {
	text := &fakeModel{resp: textResponse("# History\nLong ago...")}
	s := newTestService(text, nil)

	files := []LoreFile{
		{Name: "notes.md", MIMEType: "text/markdown", Data: []byte("# notes")},
		{Name: "map.png", MIMEType: "image/png", Data: []byte{0x89}},
	}
	lore, err := s.SynthesizeLore(context.Background(), files)
	require.NoError(t, err)
	assert.Equal(t, "# History\nLong ago...", lore)

	// Prompt text plus one blob per file.
	require.Len(t, text.gotParts, 3)
	_, isText := text.gotParts[0].(genai.Text)
	assert.True(t, isText)
	blob, isBlob := text.gotParts[2].(genai.Blob)
	require.True(t, isBlob)
	assert.Equal(t, "image/png", blob.MIMEType)
}

func TestSynthesizeLoreSurfacesError(t *testing.T) {
	s := newTestService(&fakeModel{err: errors.New("boom")}, nil)
	_, err := s.SynthesizeLore(context.Background(), nil)
	require.Error(t, err)
}

func TestGeneratePortrait(t *testing.T) {
	image := &fakeModel{resp: &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{
				genai.Text("Here is the portrait."),
				genai.Blob{MIMEType: "image/png", Data: []byte{1, 2, 3}},
			}},
			FinishReason: genai.FinishReasonStop,
		}},
	}}
	s := newTestService(nil, image)

	img, err := s.GeneratePortrait(context.Background(), store.NPC{Name: "Elara", Description: "The mayor."})
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MIMEType)
	assert.Equal(t, []byte{1, 2, 3}, img.Data)
}

func TestGeneratePortraitRejections(t *testing.T) {
	cases := map[string]struct {
		resp *genai.GenerateContentResponse
		want string
	}{
		"prompt blocked": {
			resp: &genai.GenerateContentResponse{
				PromptFeedback: &genai.PromptFeedback{BlockReason: genai.BlockReasonSafety},
			},
			want: "blocked",
		},
		"no candidate": {
			resp: &genai.GenerateContentResponse{},
			want: "no response candidate",
		},
		"abnormal finish": {
			resp: &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}},
			},
			want: "image generation failed",
		},
		"no image data": {
			resp: &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{{
					Content:      &genai.Content{Parts: []genai.Part{genai.Text("sorry")}},
					FinishReason: genai.FinishReasonStop,
				}},
			},
			want: "no image data",
		},
	}

	for name, tc := range cases {
		s := newTestService(nil, &fakeModel{resp: tc.resp})
		_, err := s.GeneratePortrait(context.Background(), store.NPC{Name: "Elara"})
		require.Error(t, err, name)
		assert.Contains(t, err.Error(), tc.want, name)
	}
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, "[1]", stripCodeFence("```json\n[1]\n```"))
	assert.Equal(t, "[1]", stripCodeFence("```\n[1]\n```"))
	assert.Equal(t, "plain", stripCodeFence("plain"))
}
