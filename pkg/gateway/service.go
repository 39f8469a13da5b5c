package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/lorehold/gmassist/internal/store"
)

// contentModel is the slice of the SDK the service actually calls.
// *genai.GenerativeModel satisfies it; tests substitute fakes.
type contentModel interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Service issues generation requests. Each operation carries its own failure
// policy: narration and hooks degrade to fixed fallbacks, entity generation
// and lore synthesis surface errors, portraits reject with the specific
// reason.
type Service struct {
	client *genai.Client
	text   contentModel
	image  contentModel
	entity map[store.Kind]contentModel
	logger *zap.Logger
}

// New connects to the generation service. A nil logger defaults to a no-op
// logger.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Service, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gateway: missing API key")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("gateway: create client: %w", err)
	}

	entity := make(map[store.Kind]contentModel, 3)
	for _, kind := range []store.Kind{store.KindNPC, store.KindLocation, store.KindQuest} {
		m := client.GenerativeModel(cfg.TextModel)
		m.GenerationConfig.ResponseMIMEType = "application/json"
		m.GenerationConfig.ResponseSchema = &genai.Schema{
			Type:  genai.TypeArray,
			Items: entitySchema(kind),
		}
		entity[kind] = m
	}

	return &Service{
		client: client,
		text:   client.GenerativeModel(cfg.TextModel),
		image:  client.GenerativeModel(cfg.ImageModel),
		entity: entity,
		logger: logger,
	}, nil
}

// Close releases the underlying client.
func (s *Service) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func entitySchema(kind store.Kind) *genai.Schema {
	nameField := "name"
	if kind == store.KindQuest {
		nameField = "title"
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			nameField:     {Type: genai.TypeString},
			"description": {Type: genai.TypeString},
		},
		Required: []string{nameField, "description"},
	}
}

// responseText extracts the concatenated text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", ErrNoCandidate
	}
	content := resp.Candidates[0].Content
	if content == nil || len(content.Parts) == 0 {
		return "", ErrNoCandidate
	}
	var sb strings.Builder
	for _, part := range content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("gateway: no text part in response")
	}
	return sb.String(), nil
}

// NarrateTurn generates the narrative outcome of a player action. Any
// failure returns the fixed fallback narrative rather than an error; turn
// processing always yields a committable response.
func (s *Service) NarrateTurn(ctx context.Context, w store.World, playerState, action string) string {
	resp, err := s.text.GenerateContent(ctx, genai.Text(turnPrompt(w, playerState, action)))
	if err != nil {
		s.logger.Warn("turn narration failed", zap.Error(err))
		return FallbackNarrative
	}
	text, err := responseText(resp)
	if err != nil {
		s.logger.Warn("turn narration returned no text", zap.Error(err))
		return FallbackNarrative
	}
	return text
}

// GenerateHooks generates 3-5 adventure hooks. Any failure returns the
// single-element fallback slice, never an error.
func (s *Service) GenerateHooks(ctx context.Context, w store.World) []string {
	resp, err := s.text.GenerateContent(ctx, genai.Text(hooksPrompt(w)))
	if err != nil {
		s.logger.Warn("hook generation failed", zap.Error(err))
		return []string{FallbackHook}
	}
	text, err := responseText(resp)
	if err != nil {
		s.logger.Warn("hook generation returned no text", zap.Error(err))
		return []string{FallbackHook}
	}
	hooks, err := parseHooks(text)
	if err != nil {
		s.logger.Warn("hook generation unparseable", zap.Error(err))
		return []string{FallbackHook}
	}
	return hooks
}

// GenerateEntities generates 2-3 drafts of the given kind, constrained by a
// response schema. Failures surface as *EntityError.
func (s *Service) GenerateEntities(ctx context.Context, w store.World, kind store.Kind) ([]EntityDraft, error) {
	model, ok := s.entity[kind]
	if !ok {
		return nil, &EntityError{Kind: kind, Err: errors.New("unsupported kind")}
	}
	resp, err := model.GenerateContent(ctx, genai.Text(entityPrompt(w, kind)))
	if err != nil {
		return nil, &EntityError{Kind: kind, Err: err}
	}
	text, err := responseText(resp)
	if err != nil {
		return nil, &EntityError{Kind: kind, Err: err}
	}
	drafts, err := parseDrafts(text, kind)
	if err != nil {
		return nil, &EntityError{Kind: kind, Err: err}
	}
	return drafts, nil
}

// SynthesizeLore builds a world-lore document from uploaded files. Failure
// surfaces as an error; callers decide what lore to fall back to.
func (s *Service) SynthesizeLore(ctx context.Context, files []LoreFile) (string, error) {
	parts := make([]genai.Part, 0, len(files)+1)
	parts = append(parts, genai.Text(lorePrompt))
	for _, f := range files {
		parts = append(parts, genai.Blob{MIMEType: f.MIMEType, Data: f.Data})
	}
	resp, err := s.text.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("gateway: synthesize lore: %w", err)
	}
	text, err := responseText(resp)
	if err != nil {
		return "", fmt.Errorf("gateway: synthesize lore: %w", err)
	}
	return text, nil
}

// GeneratePortrait generates a character portrait for an NPC. The rejection
// reason distinguishes a prompt safety block, a missing candidate, an
// abnormal finish, and a response without image data.
func (s *Service) GeneratePortrait(ctx context.Context, npc store.NPC) (Image, error) {
	resp, err := s.image.GenerateContent(ctx, genai.Text(portraitPrompt(npc)))
	if err != nil {
		return Image{}, fmt.Errorf("gateway: generate portrait: %w", err)
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
		return Image{}, fmt.Errorf("gateway: image generation blocked: %v", resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return Image{}, ErrNoCandidate
	}
	cand := resp.Candidates[0]
	if cand.FinishReason != genai.FinishReasonUnspecified && cand.FinishReason != genai.FinishReasonStop {
		return Image{}, fmt.Errorf("gateway: image generation failed: %v", cand.FinishReason)
	}
	if cand.Content != nil {
		for _, part := range cand.Content.Parts {
			if b, ok := part.(genai.Blob); ok && len(b.Data) > 0 {
				return Image{MIMEType: b.MIMEType, Data: b.Data}, nil
			}
		}
	}
	return Image{}, ErrNoImageData
}
