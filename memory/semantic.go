package memory

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// confidenceCap bounds monotonic confidence growth during consolidation.
const confidenceCap = 0.99

// Semantic is keyed by concept name; it holds long-lived durable facts
// produced by consolidation.
type Semantic struct {
	mu       sync.RWMutex
	byName   map[string]*SemanticConcept
	now      func() time.Time
}

// NewSemantic creates an empty semantic tier.
func NewSemantic() *Semantic {
	return &Semantic{
		byName: make(map[string]*SemanticConcept),
		now:    time.Now,
	}
}

// Upsert merges a description into an existing concept (raising confidence
// monotonically, appending the description only if novel) or creates one.
// It is idempotent: calling it twice with the same inputs increments
// confidence but never duplicates the description or re-creates the id.
func (s *Semantic) Upsert(name, description string, confidenceDelta float64) *SemanticConcept {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(strings.TrimSpace(name))
	existing, ok := s.byName[key]
	if !ok {
		c := &SemanticConcept{
			ID:          uuid.NewString(),
			Name:        name,
			Description: description,
			Confidence:  clamp01(confidenceDelta),
			LastUpdated: s.now(),
		}
		s.byName[key] = c
		return c
	}

	if description != "" && !strings.Contains(existing.Description, description) {
		if existing.Description == "" {
			existing.Description = description
		} else {
			existing.Description += "; " + description
		}
	}
	newConfidence := existing.Confidence + confidenceDelta
	if newConfidence > confidenceCap {
		newConfidence = confidenceCap
	}
	if newConfidence > existing.Confidence {
		existing.Confidence = newConfidence
	}
	existing.LastUpdated = s.now()
	return existing
}

// Query returns concepts whose name or description contains pattern
// (case-insensitive) and
// whose confidence is at least minConfidence.
func (s *Semantic) Query(pattern string, minConfidence float64) []*SemanticConcept {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pattern = strings.ToLower(pattern)
	var out []*SemanticConcept
	for _, c := range s.byName {
		if c.Confidence < minConfidence {
			continue
		}
		if pattern != "" && !strings.Contains(strings.ToLower(c.Name), pattern) &&
			!strings.Contains(strings.ToLower(c.Description), pattern) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	return out
}

// Get looks up a concept by exact name.
func (s *Semantic) Get(name string) (*SemanticConcept, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byName[strings.ToLower(strings.TrimSpace(name))]
	return c, ok
}

// All returns every semantic concept, for snapshotting.
func (s *Semantic) All() []*SemanticConcept {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*SemanticConcept, 0, len(s.byName))
	for _, c := range s.byName {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Restore replaces the tier's contents with previously exported concepts,
// keyed by name with their original ids kept, rather than re-derived via
// Upsert.
func (s *Semantic) Restore(concepts []*SemanticConcept) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byName = make(map[string]*SemanticConcept, len(concepts))
	for _, c := range concepts {
		cp := *c
		s.byName[strings.ToLower(strings.TrimSpace(cp.Name))] = &cp
	}
}

// Stats reports occupancy for health checks.
func (s *Semantic) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Stats{Count: len(s.byName)}
	first := true
	for _, c := range s.byName {
		if first || c.LastUpdated.Before(st.OldestWrite) {
			st.OldestWrite = c.LastUpdated
		}
		if first || c.LastUpdated.After(st.NewestWrite) {
			st.NewestWrite = c.LastUpdated
		}
		first = false
	}
	return st
}
