// Package registry dispatches page URLs to site extractors.
package registry

import (
	"sort"
	"sync"

	"ertflix-extract/pkg/interfaces"
)

// ExtractorRegistry manages site extractors. Extractors are matched in
// registration order; the first one whose CanExtract accepts a URL wins.
type ExtractorRegistry struct {
	mu         sync.RWMutex
	extractors []interfaces.Extractor
	byName     map[string]interfaces.Extractor
	fallback   interfaces.Extractor
}

// NewExtractorRegistry creates an empty registry with no fallback.
func NewExtractorRegistry() *ExtractorRegistry {
	return &ExtractorRegistry{
		byName: make(map[string]interfaces.Extractor),
	}
}

// Register adds an extractor. Registering a second extractor under an
// existing name replaces the first.
func (r *ExtractorRegistry) Register(extractor interfaces.Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.byName[extractor.Name()]; ok {
		for i, e := range r.extractors {
			if e == old {
				r.extractors = append(r.extractors[:i], r.extractors[i+1:]...)
				break
			}
		}
	}
	r.extractors = append(r.extractors, extractor)
	r.byName[extractor.Name()] = extractor
}

// SetFallback sets the extractor used when no registered extractor matches.
func (r *ExtractorRegistry) SetFallback(extractor interfaces.Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = extractor
}

// Get returns the extractor for url, the fallback, or nil.
func (r *ExtractorRegistry) Get(url string) interfaces.Extractor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.extractors {
		if e.CanExtract(url) {
			return e
		}
	}
	return r.fallback
}

// GetByName returns a registered extractor by name.
func (r *ExtractorRegistry) GetByName(name string) (interfaces.Extractor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.byName[name]
	return e, ok
}

// All returns the registered extractors in match order.
func (r *ExtractorRegistry) All() []interfaces.Extractor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]interfaces.Extractor, len(r.extractors))
	copy(result, r.extractors)
	return result
}

// Names returns the sorted names of the registered extractors.
func (r *ExtractorRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close closes every registered extractor and the fallback, returning the
// first error.
func (r *ExtractorRegistry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var first error
	all := r.extractors
	if r.fallback != nil {
		all = append(all[:len(all):len(all)], r.fallback)
	}
	for _, e := range all {
		if err := e.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

var _ interfaces.Registry[interfaces.Extractor] = (*ExtractorRegistry)(nil)
