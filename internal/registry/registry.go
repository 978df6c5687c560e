// Package registry tracks the markup documents discovered on disk and
// notifies watchers when they are added, changed or removed.
package registry

import (
	"sort"
	"sync"
	"time"
)

// Document holds metadata about a source file.
type Document struct {
	// Name is the slash separated path relative to the source directory,
	// e.g. "pages/index.wxml".
	Name string
	// Path is the file path as found by the scanner.
	Path string
	// Root is the source directory the document was discovered under.
	Root    string
	Hash    string
	ModTime time.Time
	Size    int64
}

// EventType represents the type of document event
type EventType string

const (
	EventTypeAdded   EventType = "added"
	EventTypeUpdated EventType = "updated"
	EventTypeRemoved EventType = "removed"
)

// DocumentEvent represents a change in the registry
type DocumentEvent struct {
	Type      EventType
	Document  *Document
	Timestamp time.Time
}

const watcherBuffer = 100

// DocumentRegistry manages all discovered documents, keyed by Path.
type DocumentRegistry struct {
	documents map[string]*Document
	mutex     sync.RWMutex
	watchers  []chan DocumentEvent
}

// NewDocumentRegistry creates an empty registry.
func NewDocumentRegistry() *DocumentRegistry {
	return &DocumentRegistry{
		documents: make(map[string]*Document),
		watchers:  make([]chan DocumentEvent, 0),
	}
}

// Register adds or updates a document. It reports false, and notifies no
// one, when a document with the same path and hash is already registered.
func (r *DocumentRegistry) Register(doc *Document) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	eventType := EventTypeAdded
	if existing, exists := r.documents[doc.Path]; exists {
		if existing.Hash == doc.Hash {
			return false
		}
		eventType = EventTypeUpdated
	}

	r.documents[doc.Path] = doc
	r.notify(eventType, doc)
	return true
}

// Get retrieves a document by path
func (r *DocumentRegistry) Get(path string) (*Document, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	doc, exists := r.documents[path]
	return doc, exists
}

// GetAll returns a snapshot of all registered documents
func (r *DocumentRegistry) GetAll() map[string]*Document {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	result := make(map[string]*Document, len(r.documents))
	for path, doc := range r.documents {
		result[path] = doc
	}
	return result
}

// List returns all documents sorted by path.
func (r *DocumentRegistry) List() []*Document {
	r.mutex.RLock()
	docs := make([]*Document, 0, len(r.documents))
	for _, doc := range r.documents {
		docs = append(docs, doc)
	}
	r.mutex.RUnlock()

	sort.Slice(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })
	return docs
}

// Remove removes a document from the registry
func (r *DocumentRegistry) Remove(path string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	doc, exists := r.documents[path]
	if !exists {
		return
	}

	delete(r.documents, path)
	r.notify(EventTypeRemoved, doc)
}

// Watch returns a channel that receives document events
func (r *DocumentRegistry) Watch() <-chan DocumentEvent {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	ch := make(chan DocumentEvent, watcherBuffer)
	r.watchers = append(r.watchers, ch)
	return ch
}

// UnWatch removes a watcher channel and closes it
func (r *DocumentRegistry) UnWatch(ch <-chan DocumentEvent) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for i, watcher := range r.watchers {
		if watcher == ch {
			close(watcher)
			r.watchers = append(r.watchers[:i], r.watchers[i+1:]...)
			break
		}
	}
}

// Count returns the number of registered documents
func (r *DocumentRegistry) Count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return len(r.documents)
}

// notify must be called with the write lock held.
func (r *DocumentRegistry) notify(eventType EventType, doc *Document) {
	event := DocumentEvent{
		Type:      eventType,
		Document:  doc,
		Timestamp: time.Now(),
	}

	for _, watcher := range r.watchers {
		select {
		case watcher <- event:
		default:
			// Skip if channel is full
		}
	}
}
