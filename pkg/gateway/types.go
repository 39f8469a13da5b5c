// Package gateway is the single integration point with the generation
// service. It owns prompt construction, response parsing, and the failure
// policy of each operation; nothing else in the application talks to the
// model SDK.
package gateway

import (
	"errors"
	"fmt"

	"github.com/lorehold/gmassist/internal/store"
)

// Config selects the API key and model names the gateway uses.
type Config struct {
	APIKey     string
	TextModel  string
	ImageModel string
}

// Image is a generated binary image.
type Image struct {
	MIMEType string
	Data     []byte
}

// EntityDraft is one generated entity before it gets an id and joins a world.
// NPCs and locations carry Name; quests carry Title.
type EntityDraft struct {
	Name        string `json:"name,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description"`
}

// LoreFile is one uploaded world-building document sent to lore synthesis.
type LoreFile struct {
	Name     string
	MIMEType string
	Data     []byte
}

// FallbackNarrative is the narrative returned when turn generation fails.
// It is a valid turn response and gets committed like any other.
const FallbackNarrative = "An error occurred while generating the response. The spirits of the digital realm are troubled. Please check your configuration and try again."

// FallbackHook is the single hook returned when hook generation fails.
const FallbackHook = "Failed to generate adventure hooks. The muse is silent."

// FallbackLore is the lore substituted when synthesis from files fails.
const FallbackLore = "Error: Could not generate lore from the provided files. Please ensure they are supported formats (text, markdown, png, jpg) and try again."

// ErrNoCandidate reports a response with no candidate to read.
var ErrNoCandidate = errors.New("gateway: no response candidate")

// ErrNoImageData reports an image response that carried no image payload.
var ErrNoImageData = errors.New("gateway: no image data in response")

// EntityError reports a failed entity generation for one kind.
type EntityError struct {
	Kind store.Kind
	Err  error
}

func (e *EntityError) Error() string {
	return fmt.Sprintf("gateway: generate %ss: %v", e.Kind, e.Err)
}

func (e *EntityError) Unwrap() error { return e.Err }
