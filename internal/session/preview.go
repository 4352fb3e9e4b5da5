package session

import (
	"sync"

	"github.com/google/uuid"
	"github.com/raine/ecg-analyzer/internal/capture"
)

type previewEntry struct {
	owner string
	image *capture.Image
}

// PreviewRegistry hands out opaque handles for serving a selected image back
// to the browser that uploaded it. A handle stays valid until revoked.
type PreviewRegistry struct {
	mu      sync.Mutex
	entries map[string]previewEntry
}

func NewPreviewRegistry() *PreviewRegistry {
	return &PreviewRegistry{entries: make(map[string]previewEntry)}
}

// Create registers img for owner and returns its handle.
func (r *PreviewRegistry) Create(owner string, img *capture.Image) string {
	handle := uuid.NewString()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[handle] = previewEntry{owner: owner, image: img}
	return handle
}

// Revoke releases a handle. Unknown or empty handles are ignored.
func (r *PreviewRegistry) Revoke(handle string) {
	if handle == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, handle)
}

// Lookup returns the image behind handle if it is live and belongs to owner.
func (r *PreviewRegistry) Lookup(owner, handle string) (*capture.Image, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[handle]
	if !ok || entry.owner != owner {
		return nil, false
	}
	return entry.image, true
}

// Len returns the number of live handles.
func (r *PreviewRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
