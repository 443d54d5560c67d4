package bitdepth

import (
	"io"
	"path/filepath"
	"strings"
	"sync"
)

// Opener constructs a Source from an input reader.
type Opener func(rs io.ReadSeeker) (Source, error)

// Registry maps file extensions (without the dot, lower case) to Openers.
type Registry struct {
	openers map[string]Opener

	mtx sync.Mutex
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{openers: make(map[string]Opener)}
}

// Register associates ext with opener, replacing any previous entry.
func (r *Registry) Register(ext string, opener Opener) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.openers[strings.ToLower(ext)] = opener
}

// Get returns the Opener registered for ext.
func (r *Registry) Get(ext string) (Opener, bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	opener, ok := r.openers[strings.ToLower(ext)]

	return opener, ok
}

// ForPath returns the Opener matching the extension of path.
func (r *Registry) ForPath(path string) (Opener, bool) {
	return r.Get(strings.TrimPrefix(filepath.Ext(path), "."))
}
