package headers

import (
	"strings"
	"sync"
)

// OrderedHeaders preserves the order of KENUTS headers and handles case-insensitive lookups
type OrderedHeaders struct {
	mu      sync.RWMutex
	entries []Header
}

// Header represents a single KENUTS header
type Header struct {
	Name  string
	Value string

	// OriginalLine is the line as received, empty for programmatically added headers
	OriginalLine string
	// LineEnding is the line terminator as received
	LineEnding string
}

// NewOrderedHeaders creates a new OrderedHeaders instance
func NewOrderedHeaders() *OrderedHeaders {
	return &OrderedHeaders{
		entries: make([]Header, 0),
	}
}

// Set adds or updates a header, preserving order and case.
// When the header already exists its first occurrence is replaced and later ones are dropped.
func (h *OrderedHeaders) Set(name, value string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	idx := h.indexUnsafe(name)
	if idx == -1 {
		h.entries = append(h.entries, Header{Name: name, Value: value})
		return
	}

	h.entries[idx] = Header{Name: name, Value: value}
	h.removeFromUnsafe(name, idx+1)
}

// SetWithOriginal appends a header that was parsed off the wire, keeping its exact line
func (h *OrderedHeaders) SetWithOriginal(name, value, originalLine, lineEnding string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append(h.entries, Header{
		Name:         name,
		Value:        value,
		OriginalLine: originalLine,
		LineEnding:   lineEnding,
	})
}

// Add adds a new header without replacing existing ones
func (h *OrderedHeaders) Add(name, value string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append(h.entries, Header{Name: name, Value: value})
}

// Get retrieves the first value of a header (case-insensitive)
func (h *OrderedHeaders) Get(name string) string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if idx := h.indexUnsafe(name); idx != -1 {
		return h.entries[idx].Value
	}
	return ""
}

// Values retrieves every value of a header in order (case-insensitive)
func (h *OrderedHeaders) Values(name string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var values []string
	for _, e := range h.entries {
		if strings.EqualFold(e.Name, name) {
			values = append(values, e.Value)
		}
	}
	return values
}

// Has checks if a header exists (case-insensitive)
func (h *OrderedHeaders) Has(name string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.indexUnsafe(name) != -1
}

// Del removes all occurrences of a header
func (h *OrderedHeaders) Del(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeFromUnsafe(name, 0)
}

// All returns all headers in their original order
func (h *OrderedHeaders) All() []Header {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Header, len(h.entries))
	copy(out, h.entries)
	return out
}

// Len returns the number of headers
func (h *OrderedHeaders) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.entries)
}

// Clone returns an independent copy
func (h *OrderedHeaders) Clone() *OrderedHeaders {
	return &OrderedHeaders{entries: h.All()}
}

func (h *OrderedHeaders) indexUnsafe(name string) int {
	for i, e := range h.entries {
		if strings.EqualFold(e.Name, name) {
			return i
		}
	}
	return -1
}

func (h *OrderedHeaders) removeFromUnsafe(name string, from int) {
	kept := h.entries[:from]
	for _, e := range h.entries[from:] {
		if !strings.EqualFold(e.Name, name) {
			kept = append(kept, e)
		}
	}
	h.entries = kept
}
