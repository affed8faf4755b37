package memory

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Episodic is an append-only, time-indexed log with a secondary index over
// content tokens for pattern queries.
type Episodic struct {
	mu      sync.RWMutex
	records []*EpisodicRecord
	byToken map[string][]*EpisodicRecord
	now     func() time.Time
}

// NewEpisodic creates an empty episodic tier.
func NewEpisodic() *Episodic {
	return &Episodic{
		byToken: make(map[string][]*EpisodicRecord),
		now:     time.Now,
	}
}

// Append records a new episode. Episodic memory never evicts.
func (e *Episodic) Append(content string, importance float64, tags ...string) *EpisodicRecord {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec := &EpisodicRecord{
		ID:         uuid.NewString(),
		Content:    content,
		Timestamp:  e.now(),
		Importance: clamp01(importance),
		Tags:       tags,
	}
	e.records = append(e.records, rec)
	for _, tok := range tokenize(content) {
		e.byToken[tok] = append(e.byToken[tok], rec)
	}
	return rec
}

// Query accepts a content pattern, an inclusive time range (zero values
// mean unbounded), a minimum importance, and a result limit.
func (e *Episodic) Query(pattern string, since, until time.Time, minImportance float64, limit int) []*EpisodicRecord {
	e.mu.RLock()
	defer e.mu.RUnlock()

	pattern = strings.ToLower(pattern)
	var candidates []*EpisodicRecord
	if pattern != "" {
		seen := make(map[string]bool)
		for _, tok := range tokenize(pattern) {
			for _, rec := range e.byToken[tok] {
				if !seen[rec.ID] {
					seen[rec.ID] = true
					candidates = append(candidates, rec)
				}
			}
		}
	} else {
		candidates = append(candidates, e.records...)
	}

	var out []*EpisodicRecord
	for _, rec := range candidates {
		if rec.Importance < minImportance {
			continue
		}
		if !since.IsZero() && rec.Timestamp.Before(since) {
			continue
		}
		if !until.IsZero() && rec.Timestamp.After(until) {
			continue
		}
		if pattern != "" && !strings.Contains(strings.ToLower(rec.Content), pattern) {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Touch records a read access against a record, feeding the consolidation
// invariant's access-count threshold.
func (e *Episodic) Touch(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, rec := range e.records {
		if rec.ID == id {
			rec.AccessedAt = append(rec.AccessedAt, e.now())
			return
		}
	}
}

// All returns a snapshot of every record, used by consolidation scans.
func (e *Episodic) All() []*EpisodicRecord {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*EpisodicRecord, len(e.records))
	copy(out, e.records)
	return out
}

// Stats reports occupancy for health checks.
func (e *Episodic) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s := Stats{Count: len(e.records)}
	for i, rec := range e.records {
		if i == 0 || rec.Timestamp.Before(s.OldestWrite) {
			s.OldestWrite = rec.Timestamp
		}
		if i == 0 || rec.Timestamp.After(s.NewestWrite) {
			s.NewestWrite = rec.Timestamp
		}
	}
	return s
}

func tokenize(s string) []string {
	fields := strings.Fields(strings.ToLower(s))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,!?;:\"'()[]{}")
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}
