package retrieval

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cognitron/cognitron/conceptgraph"
	"github.com/cognitron/cognitron/conversation"
	"github.com/cognitron/cognitron/log"
	"github.com/cognitron/cognitron/memory"
	"github.com/cognitron/cognitron/pattern"
	"github.com/cognitron/cognitron/segment"
	"github.com/cognitron/cognitron/textsim"
	"golang.org/x/sync/errgroup"
)

// Planner composes C1–C4 into ranked knowledge for a query. Stage errors
// are non-fatal: a failing sub-component contributes zero items rather
// than failing the whole plan.
type Planner struct {
	Segments *segment.Engine
	Concepts *conceptgraph.Graph
	Memory   *memory.Tiers
	Patterns *pattern.Detector
	Logger   log.Logger
}

// New constructs a Planner over the given component handles.
func New(segments *segment.Engine, concepts *conceptgraph.Graph, mem *memory.Tiers, patterns *pattern.Detector, logger log.Logger) *Planner {
	if logger == nil {
		logger = &log.NoOpLogger{}
	}
	return &Planner{Segments: segments, Concepts: concepts, Memory: mem, Patterns: patterns, Logger: logger}
}

type candidate struct {
	item              conversation.RetrievedKnowledgeItem
	contextScore      float64
	temporalRelevance float64
	personalization   float64
	sourceStrength    float64
}

// Plan runs the seven-stage pipeline and returns knowledge items ordered
// by final relevance score, truncated to cfg.Limit. An empty result is a
// valid, successful return.
func (p *Planner) Plan(ctx context.Context, message string, convCtx *conversation.Context, cfg Config) []conversation.RetrievedKnowledgeItem {
	expanded := safeStage(p.Logger, "concept_expansion", func() []expandedConcept {
		return p.expandConcepts(message, cfg)
	})

	// Stages 2-6 have no data dependency on one another once concept
	// expansion has run, so they fan out concurrently; a failing stage
	// still contributes zero items rather than failing the whole plan.
	g, _ := errgroup.WithContext(ctx)
	var mu sync.Mutex
	var candidates []candidate

	collect := func(name string, fn func() []candidate) {
		g.Go(func() error {
			items := safeStage(p.Logger, name, fn)
			mu.Lock()
			candidates = append(candidates, items...)
			mu.Unlock()
			return nil
		})
	}

	collect("semantic_lookup", func() []candidate { return p.semanticLookup(expanded) })
	collect("temporal_episodic", func() []candidate { return p.temporalEpisodicLookup(message, cfg) })
	if cfg.EnablePersonalization {
		collect("personalized", func() []candidate { return p.personalizedLookup(message, convCtx, cfg) })
	}
	if cfg.EnableThreads {
		collect("thread", func() []candidate { return p.threadLookup(message, convCtx, cfg) })
	}
	if cfg.EnablePatterns {
		collect("pattern", func() []candidate { return p.patternLookup(message, cfg) })
	}

	_ = g.Wait()

	return p.scoreAndRank(candidates, cfg)
}

// safeStage recovers a sub-stage panic/failure into an empty contribution,
// implementing the "failing sub-component contributes zero items" rule.
func safeStage[T any](logger log.Logger, name string, fn func() T) (out T) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("retrieval stage %s failed: %v", name, r)
			var zero T
			out = zero
		}
	}()
	return fn()
}

type expandedConcept struct {
	nodeID      string
	content     string
	relevance   float64
	contextPath []string
}

func (p *Planner) expandConcepts(message string, cfg Config) []expandedConcept {
	if p.Segments == nil || p.Concepts == nil {
		return nil
	}
	segments := p.Segments.MatchConcepts(message)
	var out []expandedConcept
	for _, seg := range segments {
		matches := p.Concepts.Query(conceptgraph.Query{Pattern: seg, Limit: 1})
		if len(matches) == 0 {
			continue
		}
		seedNode := matches[0]
		result := p.Concepts.SpreadingActivation(seedNode.ID, cfg.MaxDepth, cfg.MaxConceptsPerLayer, cfg.MinActivation)
		for _, nodeID := range result.Visited {
			node, ok := p.Concepts.Node(nodeID)
			if !ok {
				continue
			}
			depth := result.Depth[nodeID]
			relevance := (1.0 / float64(depth+1)) * result.Activation[nodeID] * cfg.WConcept
			path := append([]string{seg}, result.Path[nodeID]...)
			out = append(out, expandedConcept{nodeID: nodeID, content: node.Content, relevance: relevance, contextPath: path})
		}
	}
	return out
}

func (p *Planner) semanticLookup(expanded []expandedConcept) []candidate {
	if p.Memory == nil {
		return nil
	}
	var out []candidate
	for _, ec := range expanded {
		hits := p.Memory.Semantic.Query(ec.content, 0)
		for _, concept := range hits {
			out = append(out, candidate{
				item: conversation.RetrievedKnowledgeItem{
					Content:     concept.Description,
					SourceID:    concept.ID,
					SourceType:  conversation.SourceSemantic,
					Confidence:  concept.Confidence,
					Timestamp:   concept.LastUpdated,
					ContextPath: ec.contextPath,
				},
				contextScore:      ec.relevance,
				temporalRelevance: 1.0,
				sourceStrength:    0.8,
			})
		}
		out = append(out, candidate{
			item: conversation.RetrievedKnowledgeItem{
				Content:     ec.content,
				SourceID:    ec.nodeID,
				SourceType:  conversation.SourceConceptGraph,
				Confidence:  ec.relevance,
				ContextPath: ec.contextPath,
			},
			contextScore:      ec.relevance,
			temporalRelevance: 1.0,
			sourceStrength:    0.9,
		})
	}
	return out
}

func (p *Planner) temporalEpisodicLookup(message string, cfg Config) []candidate {
	if p.Memory == nil {
		return nil
	}
	since := time.Now().AddDate(0, 0, -cfg.RecencyWindowDays)
	var out []candidate
	seen := make(map[string]bool)
	for _, word := range textsim.Tokenize(message) {
		if len(word) < 3 {
			continue
		}
		hits := p.Memory.Episodic.Query(word, since, time.Time{}, 0, 0)
		for _, rec := range hits {
			if seen[rec.ID] {
				continue
			}
			seen[rec.ID] = true
			textSim := textsim.Jaccard(message, rec.Content)
			temporal := temporalRelevance(rec.Timestamp)
			combined := (textSim + temporal*cfg.WTemporal) / 2
			if combined < cfg.MinRelevance {
				continue
			}
			out = append(out, candidate{
				item: conversation.RetrievedKnowledgeItem{
					Content:    rec.Content,
					SourceID:   rec.ID,
					SourceType: conversation.SourceEpisodic,
					Confidence: rec.Importance,
					Timestamp:  rec.Timestamp,
				},
				contextScore:      textSim,
				temporalRelevance: temporal,
				sourceStrength:    0.6,
			})
		}
	}
	return out
}

// temporalRelevance is the step function: <1h→1.0, <24h→0.8, <1wk→0.6,
// <1mo→0.4, else→0.2.
func temporalRelevance(t time.Time) float64 {
	age := time.Since(t)
	switch {
	case age < time.Hour:
		return 1.0
	case age < 24*time.Hour:
		return 0.8
	case age < 7*24*time.Hour:
		return 0.6
	case age < 30*24*time.Hour:
		return 0.4
	default:
		return 0.2
	}
}

func (p *Planner) personalizedLookup(message string, convCtx *conversation.Context, cfg Config) []candidate {
	if p.Memory == nil || convCtx == nil {
		return nil
	}
	var out []candidate
	for interest, strength := range convCtx.Profile.Interests {
		if !textsim.ContainsFold(message, interest) {
			continue
		}
		hits := p.Memory.Working.Query(interest, 0, cfg.MaxConceptsPerLayer)
		for _, it := range hits {
			out = append(out, candidate{
				item: conversation.RetrievedKnowledgeItem{
					Content:    it.Content,
					SourceID:   it.ID,
					SourceType: conversation.SourceWorking,
					Confidence: it.Importance,
					Timestamp:  it.LastAccessed,
				},
				personalization: strength * cfg.WPersonal,
				sourceStrength:  0.5,
			})
		}
	}
	return out
}

func (p *Planner) threadLookup(message string, convCtx *conversation.Context, cfg Config) []candidate {
	if convCtx == nil {
		return nil
	}
	byID := make(map[string]conversation.Message, len(convCtx.Messages))
	for _, m := range convCtx.Messages {
		byID[m.ID] = m
	}

	var out []candidate
	for _, th := range convCtx.Threads {
		threadRelevance := 0.5*textsim.Jaccard(message, th.Topic) +
			0.3*temporalRelevance(th.LastUpdated) +
			0.2*th.Relevance
		if threadRelevance < cfg.MinRelevance {
			continue
		}
		for _, mid := range th.MemberIDs {
			msg, ok := byID[mid]
			if !ok {
				continue
			}
			out = append(out, candidate{
				item: conversation.RetrievedKnowledgeItem{
					Content:    msg.Content,
					SourceID:   msg.ID,
					SourceType: conversation.SourceThread,
					Confidence: threadRelevance,
					Timestamp:  msg.Timestamp,
				},
				contextScore:      threadRelevance,
				temporalRelevance: temporalRelevance(th.LastUpdated),
				sourceStrength:    0.4,
			})
		}
	}
	return out
}

func (p *Planner) patternLookup(message string, cfg Config) []candidate {
	if p.Patterns == nil || p.Memory == nil {
		return nil
	}
	episodes := make([]pattern.Episode, 0)
	for _, rec := range p.Memory.Episodic.All() {
		episodes = append(episodes, pattern.Episode{Content: rec.Content, Timestamp: rec.Timestamp})
	}
	detected := p.Patterns.Detect(episodes)
	if len(detected) > 5 {
		detected = detected[:5]
	}

	var out []candidate
	for _, pat := range detected {
		best := 0.0
		for _, el := range pat.Elements {
			if sim := textsim.Jaccard(message, el); sim > best {
				best = sim
			}
		}
		if best < cfg.MinRelevance {
			continue
		}
		out = append(out, candidate{
			item: conversation.RetrievedKnowledgeItem{
				Content:    joinElements(pat.Elements),
				SourceType: conversation.SourcePattern,
				Confidence: pat.Confidence,
				Timestamp:  pat.DetectedAt,
			},
			contextScore:   best,
			sourceStrength: 0.3,
		})
	}
	return out
}

func joinElements(elements []string) string {
	out := ""
	for i, e := range elements {
		if i > 0 {
			out += " "
		}
		out += e
	}
	return out
}

// scoreAndRank replaces each item's relevance_score with the composite
// formula, drops items below MinRelevance, sorts descending, and applies
// the source-type tie-break before truncating to the limit.
func (p *Planner) scoreAndRank(candidates []candidate, cfg Config) []conversation.RetrievedKnowledgeItem {
	var out []conversation.RetrievedKnowledgeItem
	for _, c := range candidates {
		score := 0.4*c.contextScore +
			cfg.WTemporal*c.temporalRelevance +
			cfg.WPersonal*c.personalization +
			0.2*c.item.Confidence +
			0.1*c.sourceStrength
		if score < cfg.MinRelevance {
			continue
		}
		item := c.item
		item.Relevance = score
		out = append(out, item)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Relevance != out[j].Relevance {
			return out[i].Relevance > out[j].Relevance
		}
		if out[i].SourceType.PriorityRank() != out[j].SourceType.PriorityRank() {
			return out[i].SourceType.PriorityRank() < out[j].SourceType.PriorityRank()
		}
		// Final deterministic tie-break: stage fan-out runs concurrently,
		// so insertion order alone can't be relied on across calls.
		return out[i].Content < out[j].Content
	})

	if cfg.Limit > 0 && len(out) > cfg.Limit {
		out = out[:cfg.Limit]
	}
	return out
}
