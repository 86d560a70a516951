// Package registry holds the documents fetched in the current session, keyed
// by remote path, together with their edit buffers and dirty state.
package registry

import (
	"fmt"
	"sync"
	"time"

	"github.com/eugeniofciuvasile/ipcc/internal/codec"
)

// NotFoundError is returned for a path that was never fetched. Under normal
// orchestration it signals a logic error in the caller.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no document for %s", e.Path)
}

// Document is one fetched remote file.
type Document struct {
	Path   string
	Format codec.Format

	// Raw is the content as last fetched.
	Raw string
	// Content is Raw decoded. A structured file that failed to parse is
	// Plain here and DecodeErr is set.
	Content   codec.Content
	DecodeErr error

	// Buffer is the text being edited and Dirty reports whether it differs
	// from what the device is known to hold.
	Buffer string
	Dirty  bool

	FetchedAt time.Time
	SavedAt   time.Time

	// synced is the text the device is known to hold: Raw after a fetch,
	// the uploaded text after a save.
	synced string
}

// Synced returns the text the device is known to hold.
func (d Document) Synced() string { return d.synced }

// Registry is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	docs  map[string]*Document
	order []string
	now   func() time.Time
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		docs: make(map[string]*Document),
		now:  time.Now,
	}
}

// Upsert decodes content and stores it for path, replacing any existing
// document. The buffer is reset to the fetched text and the dirty flag
// cleared: a later fetch always wins over an unsent edit. discarded reports
// whether a dirty buffer was thrown away.
func (r *Registry) Upsert(path, content string, f codec.Format) (doc Document, discarded bool) {
	decoded, err := codec.Decode(content, f)
	if err != nil {
		err = fmt.Errorf("decode %s: %w", path, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.docs[path]
	if !ok {
		d = &Document{Path: path}
		r.docs[path] = d
		r.order = append(r.order, path)
	} else {
		discarded = d.Dirty
	}

	d.Format = f
	d.Raw = content
	d.Content = decoded
	d.DecodeErr = err
	d.Buffer = content
	d.Dirty = false
	d.synced = content
	d.FetchedAt = r.now()
	return *d, discarded
}

// SetBuffer replaces the edit buffer and marks the document dirty.
func (r *Registry) SetBuffer(path, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.docs[path]
	if !ok {
		return &NotFoundError{Path: path}
	}
	d.Buffer = text
	d.Dirty = true
	return nil
}

// Revert restores the buffer to the last fetched or saved text.
func (r *Registry) Revert(path string) (Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.docs[path]
	if !ok {
		return Document{}, &NotFoundError{Path: path}
	}
	d.Buffer = d.synced
	d.Dirty = false
	return *d, nil
}

// MarkSaved records that text now lives on the device. The dirty flag is
// cleared only if the buffer was not edited again while the upload ran.
func (r *Registry) MarkSaved(path, text string) (Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.docs[path]
	if !ok {
		return Document{}, &NotFoundError{Path: path}
	}
	d.synced = text
	d.Dirty = d.Buffer != text
	d.SavedAt = r.now()

	decoded, err := codec.Decode(text, d.Format)
	if err != nil {
		err = fmt.Errorf("decode %s: %w", path, err)
	}
	d.Content = decoded
	d.DecodeErr = err
	return *d, nil
}

// Get returns a copy of the document for path.
func (r *Registry) Get(path string) (Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.docs[path]
	if !ok {
		return Document{}, &NotFoundError{Path: path}
	}
	return *d, nil
}

// Paths returns every known path in first-fetch order.
func (r *Registry) Paths() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Documents returns copies of all documents in first-fetch order.
func (r *Registry) Documents() []Document {
	r.mu.RLock()
	defer r.mu.RUnlock()

	docs := make([]Document, 0, len(r.order))
	for _, p := range r.order {
		docs = append(docs, *r.docs[p])
	}
	return docs
}

// Dirty returns the paths with unsaved edits, in first-fetch order.
func (r *Registry) Dirty() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var dirty []string
	for _, p := range r.order {
		if r.docs[p].Dirty {
			dirty = append(dirty, p)
		}
	}
	return dirty
}

// Len returns the number of documents.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Reset drops every document. It is used when switching devices.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs = make(map[string]*Document)
	r.order = nil
}
