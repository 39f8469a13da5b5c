// Package blob keeps generated binary images in memory behind small string
// handles, so the state document stores a handle instead of megabytes of
// base64. Handles are process-transient; export inlines them as data URLs.
package blob

import (
	"encoding/base64"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// HandlePrefix marks a registry handle in an image field.
const HandlePrefix = "blob:"

// Image is one stored binary image.
type Image struct {
	MIMEType string
	Data     []byte
}

// Registry is a thread-safe in-memory image store.
type Registry struct {
	mu     sync.RWMutex
	images map[string]Image
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{images: make(map[string]Image)}
}

// Put stores an image and returns its handle.
func (r *Registry) Put(mimeType string, data []byte) string {
	handle := HandlePrefix + uuid.NewString()
	r.mu.Lock()
	r.images[handle] = Image{MIMEType: mimeType, Data: data}
	r.mu.Unlock()
	return handle
}

// Get returns the image stored under handle, if any.
func (r *Registry) Get(handle string) (Image, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	img, ok := r.images[handle]
	return img, ok
}

// Remove drops the image stored under handle. Unknown handles are ignored.
func (r *Registry) Remove(handle string) {
	r.mu.Lock()
	delete(r.images, handle)
	r.mu.Unlock()
}

// IsHandle reports whether s looks like a registry handle.
func IsHandle(s string) bool {
	return strings.HasPrefix(s, HandlePrefix)
}

// DataURL renders the image stored under handle as a base64 data URL.
func (r *Registry) DataURL(handle string) (string, error) {
	img, ok := r.Get(handle)
	if !ok {
		return "", fmt.Errorf("blob: unknown handle %q", handle)
	}
	return EncodeDataURL(img.MIMEType, img.Data), nil
}

// EncodeDataURL renders raw image bytes as a base64 data URL.
func EncodeDataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// ParseDataURL decodes a base64 data URL back into an image.
func ParseDataURL(url string) (Image, error) {
	rest, ok := strings.CutPrefix(url, "data:")
	if !ok {
		return Image{}, fmt.Errorf("blob: not a data URL")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return Image{}, fmt.Errorf("blob: malformed data URL")
	}
	mimeType, enc, ok := strings.Cut(meta, ";")
	if !ok || enc != "base64" {
		return Image{}, fmt.Errorf("blob: unsupported data URL encoding")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Image{}, fmt.Errorf("blob: decode data URL: %w", err)
	}
	return Image{MIMEType: mimeType, Data: data}, nil
}
