package segment

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/cognitron/cognitron/cerr"
	"github.com/cognitron/cognitron/log"
)

// Engine discovers and maintains a vocabulary of variable-length segments
// via an approximate BPE merge procedure plus optional post-training
// heuristics (entropy, confidence, splitting, context stability).
//
// Per the design notes this spec preserves deliberately: merges are
// approximate (overlapping pair-frequency entries are dropped, not
// recomputed by re-tokenizing the corpus), and Segment always returns
// character-level units regardless of training state — the learned
// vocabulary feeds retrieval/pattern statistics, not a tokenizer contract.
type Engine struct {
	mu sync.RWMutex

	cfg Config
	log log.Logger

	active  map[string]*Stats
	archive map[string]*Stats

	pairFreq map[Pair]int
	matrix   *ContextMatrix
	entropy  *entropyAnalyzer

	trainingText []rune
	mergeStep    int
	lastSave     time.Time
}

// New constructs an Engine with the given configuration.
func New(cfg Config, logger log.Logger) *Engine {
	if logger == nil {
		logger = &log.NoOpLogger{}
	}
	return &Engine{
		cfg:      cfg,
		log:      logger,
		active:   make(map[string]*Stats),
		archive:  make(map[string]*Stats),
		pairFreq: make(map[Pair]int),
		matrix:   newContextMatrix(),
		entropy:  newEntropyAnalyzer(cfg.ContextWindowSize),
	}
}

// Initialize builds the character-level base vocabulary, tallies adjacent
// pair frequencies, and, in advanced mode, populates the context matrix
// over a sliding window of ContextWindowSize.
func (e *Engine) Initialize(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.trainingText = []rune(text)
	e.active = make(map[string]*Stats)
	e.pairFreq = make(map[Pair]int)
	now := time.Now()

	charFreq := make(map[rune]int)
	for _, r := range e.trainingText {
		charFreq[r]++
	}
	for r, freq := range charFreq {
		seg := string(r)
		e.active[seg] = &Stats{
			Segment:      seg,
			Length:       1,
			Frequency:    freq,
			CreatedAt:    now,
			LastAccessed: now,
			LastModified: now,
		}
	}

	for i := 0; i+1 < len(e.trainingText); i++ {
		p := Pair{Left: string(e.trainingText[i]), Right: string(e.trainingText[i+1])}
		e.pairFreq[p]++
	}

	if e.cfg.EnableAdvancedHeuristics {
		w := e.cfg.ContextWindowSize
		if w < 2 {
			w = 2
		}
		for i := 0; i+w <= len(e.trainingText); i++ {
			window := e.trainingText[i : i+w]
			for a := 0; a < len(window); a++ {
				for b := a + 1; b < len(window); b++ {
					e.matrix.Record(string(window[a]), string(window[b]))
				}
			}
		}
	}
}

// Train runs up to NumMerges merge steps and, in advanced mode, the
// post-training heuristics in the order the design specifies.
func (e *Engine) Train() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for step := 0; step < e.cfg.NumMerges; step++ {
		if len(e.active) >= e.cfg.MaxVocabSize {
			break
		}
		ok, err := e.mergeStepLocked(step)
		if err != nil {
			return cerr.Wrap("segment", cerr.Internal, "merge step failed", err)
		}
		if !ok {
			break
		}
	}

	if e.cfg.EnableAdvancedHeuristics {
		e.applyAdvancedHeuristicsLocked()
	}
	return nil
}

func (e *Engine) mergeStepLocked(step int) (bool, error) {
	best, bestFreq, found := e.mostFrequentPairLocked()
	if !found || bestFreq < e.cfg.MinFrequency {
		return false, nil
	}

	merged := best.Merged()
	now := time.Now()
	e.active[merged] = &Stats{
		Segment:      merged,
		Length:       len([]rune(merged)),
		Frequency:    bestFreq,
		CreatedAt:    now,
		LastAccessed: now,
		LastModified: now,
		FormedFrom:   &Pair{Left: best.Left, Right: best.Right},
		MergeStep:    step,
	}
	e.mergeStep = step + 1

	// Approximate BPE: drop frequency entries that reference either half
	// of the merge rather than re-tokenizing the corpus to recompute them.
	for p := range e.pairFreq {
		if p.Left == best.Left || p.Left == best.Right || p.Right == best.Left || p.Right == best.Right {
			delete(e.pairFreq, p)
		}
	}
	return true, nil
}

func (e *Engine) mostFrequentPairLocked() (Pair, int, bool) {
	var best Pair
	bestFreq := -1
	found := false
	// Deterministic iteration: break ties by lexicographically-smaller
	// merged form so repeated runs over the same state agree.
	keys := make([]Pair, 0, len(e.pairFreq))
	for p := range e.pairFreq {
		keys = append(keys, p)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Merged() < keys[j].Merged() })
	for _, p := range keys {
		freq := e.pairFreq[p]
		if freq > bestFreq {
			bestFreq = freq
			best = p
			found = true
		}
	}
	return best, bestFreq, found
}

func (e *Engine) applyAdvancedHeuristicsLocked() {
	totalFreq := 0
	names := make([]string, 0, len(e.active))
	for name, st := range e.active {
		totalFreq += st.Frequency
		names = append(names, name)
	}
	if totalFreq == 0 {
		totalFreq = 1
	}

	// (a) entropy, from first occurrence only — see package doc.
	for _, st := range e.active {
		st.Entropy = e.entropy.segmentEntropy(e.trainingText, []rune(st.Segment))
	}

	// (b) confidence. ContextStability at this point reflects whatever
	// stability was computed in the previous heuristics pass (zero on the
	// first pass); this ordering is intentional, not an oversight — see
	// the ambiguous-source-behavior notes this package preserves.
	for _, st := range e.active {
		freqShare := float64(st.Frequency) / float64(totalFreq)
		lengthTerm := math.Log(float64(st.Length)+1) / 10
		st.Confidence = clamp01(freqShare + st.ContextStability + lengthTerm)
	}

	// (c) entropy-based splitting.
	for _, name := range names {
		st, ok := e.active[name]
		if !ok {
			continue
		}
		if st.Length > 2 && st.Entropy > e.cfg.MinEntropyThreshold && st.Confidence < e.cfg.MinConfidence {
			e.splitSegmentLocked(st)
		}
	}

	// (d) context stability.
	for _, st := range e.active {
		st.ContextStability = e.matrix.MeanStrengthWith(st.Segment, names)
	}
}

func (e *Engine) splitSegmentLocked(st *Stats) {
	runes := []rune(st.Segment)
	mid := len(runes) / 2
	left, right := string(runes[:mid]), string(runes[mid:])
	if left == "" || right == "" {
		return // splitting into an empty half is a no-op
	}
	now := time.Now()
	for _, half := range []string{left, right} {
		if _, exists := e.active[half]; !exists {
			e.active[half] = &Stats{
				Segment:      half,
				Length:       len([]rune(half)),
				Frequency:    1,
				CreatedAt:    now,
				LastAccessed: now,
				LastModified: now,
			}
		}
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Segment returns character-level units. This is intentional: the learned
// merge vocabulary drives statistics feeding retrieval and pattern
// detection, not a tokenizer contract.
func (e *Engine) Segment(text string) []string {
	runes := []rune(text)
	out := make([]string, len(runes))
	for i, r := range runes {
		out[i] = string(r)
	}
	return out
}

// MarkAccessed records an access against an active segment, used by the
// retrieval planner's concept-expansion stage and by pruning.
func (e *Engine) MarkAccessed(segment string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if st, ok := e.active[segment]; ok {
		st.AccessCount++
		st.LastAccessed = time.Now()
	}
}

// Prune archives every active segment meeting the pruning predicate, then
// enforces the hard cap by archiving the lowest-confidence remaining
// segments first. Returns the archived keys.
func (e *Engine) Prune() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now()
	var archived []string
	p := e.cfg.Pruning

	for name, st := range e.active {
		age := now.Sub(st.CreatedAt)
		inactivity := now.Sub(st.LastAccessed)
		lowConfidence := st.Confidence < p.MinConfidence && age > p.MinAge
		stale := inactivity > p.MaxInactivity && st.AccessCount < p.MinAccessCount
		if lowConfidence || stale {
			e.archiveLocked(name, st, now)
			archived = append(archived, name)
		}
	}

	if p.MaxActiveSegments > 0 && len(e.active) > p.MaxActiveSegments {
		type scored struct {
			name string
			st   *Stats
		}
		remaining := make([]scored, 0, len(e.active))
		for name, st := range e.active {
			remaining = append(remaining, scored{name, st})
		}
		sort.Slice(remaining, func(i, j int) bool {
			return remaining[i].st.Confidence < remaining[j].st.Confidence
		})
		excess := len(e.active) - p.MaxActiveSegments
		for i := 0; i < excess && i < len(remaining); i++ {
			e.archiveLocked(remaining[i].name, remaining[i].st, now)
			archived = append(archived, remaining[i].name)
		}
	}

	return archived
}

func (e *Engine) archiveLocked(name string, st *Stats, now time.Time) {
	st.IsArchived = true
	st.LastModified = now
	e.archive[name] = st
	delete(e.active, name)
}

// Restore moves a segment from archive back to active.
func (e *Engine) Restore(key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, ok := e.archive[key]
	if !ok {
		return false
	}
	st.IsArchived = false
	st.LastModified = time.Now()
	e.active[key] = st
	delete(e.archive, key)
	return true
}

// VocabSize returns the number of active segments.
func (e *Engine) VocabSize() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.active)
}

// MergeCount returns how many merge steps have run.
func (e *Engine) MergeCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.mergeStep
}

// Get returns an active or archived segment's statistics by name.
func (e *Engine) Get(segment string) (*Stats, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if st, ok := e.active[segment]; ok {
		return st, true
	}
	if st, ok := e.archive[segment]; ok {
		return st, true
	}
	return nil, false
}

// ActiveSegments returns every active segment's statistics.
func (e *Engine) ActiveSegments() []*Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*Stats, 0, len(e.active))
	for _, st := range e.active {
		out = append(out, st)
	}
	return out
}

// MatchConcepts returns active, non-archived segments whose text appears in
// s, used by the retrieval planner's concept-expansion stage.
func (e *Engine) MatchConcepts(s string) []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var out []string
	for name, st := range e.active {
		if st.Length < 2 {
			continue // trivial single-character segments don't seed expansion
		}
		if containsFold(s, name) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func containsFold(haystack, needle string) bool {
	return len(needle) > 0 && indexFold(haystack, needle) >= 0
}

func indexFold(s, substr string) int {
	sl, bl := len(s), len(substr)
	if bl == 0 || bl > sl {
		return -1
	}
	for i := 0; i+bl <= sl; i++ {
		if equalFold(s[i:i+bl], substr) {
			return i
		}
	}
	return -1
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

func (e *Engine) shouldAutoSave() bool {
	if e.cfg.AutoSaveInterval <= 0 {
		return false
	}
	return time.Since(e.lastSave) >= e.cfg.AutoSaveInterval
}

func (e *Engine) describe() string {
	return fmt.Sprintf("segment.Engine{active=%d archived=%d merges=%d}", len(e.active), len(e.archive), e.mergeStep)
}
