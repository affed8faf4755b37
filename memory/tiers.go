package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cognitron/cognitron/cerr"
	"github.com/cognitron/cognitron/log"
)

// Config tunes capacity and consolidation behavior for a Tiers instance.
type Config struct {
	WorkingCapacity int
	// ConsolidateEvery triggers an automatic consolidation cycle after
	// this many episodic writes; 0 disables the automatic trigger and
	// leaves consolidation to an external caller/timer.
	ConsolidateEvery int
	// MinAccessCount and MinImportance implement the Consolidation
	// Invariant: an item must be accessed at least this many times with
	// at least this importance within Window to be promoted.
	MinAccessCount int
	MinImportance  float64
	Window         time.Duration
	Logger         log.Logger
}

// DefaultConfig matches the thresholds used throughout the component
// design's worked examples.
func DefaultConfig() Config {
	return Config{
		WorkingCapacity:  200,
		ConsolidateEvery: 50,
		MinAccessCount:   3,
		MinImportance:    0.6,
		Window:           24 * time.Hour,
		Logger:           &log.NoOpLogger{},
	}
}

// Tiers bundles the working, episodic, and semantic stores plus the
// consolidation cycle that moves data between them. It is the single
// handle the Lifecycle Manager and the Pipeline Orchestrator hold — no
// tier is reachable except through this type.
type Tiers struct {
	Working  *Working
	Episodic *Episodic
	Semantic *Semantic

	cfg           Config
	writeSinceCon int64
	mu            sync.Mutex // serializes consolidation cycles
}

// New constructs a Tiers handle.
func New(cfg Config) *Tiers {
	if cfg.WorkingCapacity <= 0 {
		cfg.WorkingCapacity = 200
	}
	if cfg.Logger == nil {
		cfg.Logger = &log.NoOpLogger{}
	}
	return &Tiers{
		Working:  NewWorking(cfg.WorkingCapacity),
		Episodic: NewEpisodic(),
		Semantic: NewSemantic(),
		cfg:      cfg,
	}
}

// Learn is the orchestrator's writeback entry point: it records an episode
// and a working-memory item, then checks the automatic consolidation
// trigger.
func (t *Tiers) Learn(ctx context.Context, content string, priority Priority, importance float64, tags ...string) {
	t.Working.Insert(content, priority, importance)
	t.Episodic.Append(content, importance, tags...)

	if t.cfg.ConsolidateEvery <= 0 {
		return
	}
	if n := atomic.AddInt64(&t.writeSinceCon, 1); n >= int64(t.cfg.ConsolidateEvery) {
		atomic.StoreInt64(&t.writeSinceCon, 0)
		if err := t.Consolidate(ctx); err != nil {
			t.cfg.Logger.Warn("automatic consolidation failed: %v", err)
		}
	}
}

// Consolidate scans working and episodic tiers for items meeting the
// Consolidation Invariant and promotes them into semantic concepts. It is
// idempotent and never lowers a concept's confidence. Consolidation
// failure is non-fatal by contract: callers should log and retry next
// cycle rather than treat it as a turn failure.
func (t *Tiers) Consolidate(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	select {
	case <-ctx.Done():
		return cerr.Wrap("memory", cerr.Timeout, "consolidation cancelled", ctx.Err())
	default:
	}

	now := time.Now()
	promoted := 0

	for _, it := range t.Working.All() {
		if it.AccessCount >= t.cfg.MinAccessCount &&
			it.Importance >= t.cfg.MinImportance &&
			now.Sub(it.CreatedAt) <= t.cfg.Window {
			t.Semantic.Upsert(conceptNameFor(it.Content), it.Content, promotionDelta(it.Importance))
			promoted++
		}
	}

	for _, rec := range t.Episodic.All() {
		if len(rec.AccessedAt) >= t.cfg.MinAccessCount &&
			rec.Importance >= t.cfg.MinImportance &&
			now.Sub(rec.Timestamp) <= t.cfg.Window {
			t.Semantic.Upsert(conceptNameFor(rec.Content), rec.Content, promotionDelta(rec.Importance))
			promoted++
		}
	}

	t.cfg.Logger.Debug("consolidation cycle promoted %d items", promoted)
	return nil
}

// promotionDelta scales confidence growth by the promoted item's
// importance so highly important repeats gain confidence faster while
// never exceeding the semantic confidence cap.
func promotionDelta(importance float64) float64 {
	return 0.1 + 0.2*importance
}

// conceptNameFor derives a stable semantic-concept key from content. The
// first few significant words of the content are deterministic, resistant
// to whitespace jitter, and cheap to recompute every cycle.
func conceptNameFor(content string) string {
	toks := tokenize(content)
	n := 4
	if len(toks) < n {
		n = len(toks)
	}
	if n == 0 {
		return "concept"
	}
	name := ""
	for i := 0; i < n; i++ {
		if i > 0 {
			name += " "
		}
		name += toks[i]
	}
	return name
}
