package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cognitron/cognitron/cerr"
	"github.com/cognitron/cognitron/conversation"
	"github.com/cognitron/cognitron/generator"
	"github.com/cognitron/cognitron/log"
	"github.com/cognitron/cognitron/memory"
	"github.com/cognitron/cognitron/quality"
	"github.com/cognitron/cognitron/retrieval"
	"github.com/cognitron/cognitron/telemetry"
)

// Orchestrator drives the seven-step turn: append user message, invoke
// retrieval, invoke generation, invoke quality validation, append
// assistant message, write back to memory, and optionally hand the turn
// to a training-data collector.
type Orchestrator struct {
	Planner   *retrieval.Planner
	Generator *generator.Adapter
	Validator *quality.Validator
	Memory    *memory.Tiers
	Collector telemetry.Collector
	Logger    log.Logger

	cfg Config

	gateMu sync.Mutex
	gates  map[string]*sync.Mutex
	sem    chan struct{}
}

// New builds an Orchestrator over the given component handles. A nil
// Collector falls back to telemetry.NoOpCollector.
func New(planner *retrieval.Planner, gen *generator.Adapter, validator *quality.Validator, mem *memory.Tiers, collector telemetry.Collector, logger log.Logger, cfg Config) *Orchestrator {
	if logger == nil {
		logger = &log.NoOpLogger{}
	}
	if collector == nil {
		collector = telemetry.NoOpCollector{}
	}
	if cfg.MaxConcurrentTurns <= 0 {
		cfg.MaxConcurrentTurns = DefaultConfig().MaxConcurrentTurns
	}
	return &Orchestrator{
		Planner:   planner,
		Generator: gen,
		Validator: validator,
		Memory:    mem,
		Collector: collector,
		Logger:    logger,
		cfg:       cfg,
		gates:     make(map[string]*sync.Mutex),
		sem:       make(chan struct{}, cfg.MaxConcurrentTurns),
	}
}

func (o *Orchestrator) conversationGate(conversationID string) *sync.Mutex {
	o.gateMu.Lock()
	defer o.gateMu.Unlock()
	gate, ok := o.gates[conversationID]
	if !ok {
		gate = &sync.Mutex{}
		o.gates[conversationID] = gate
	}
	return gate
}

// Turn runs one full pipeline pass for a message within convCtx. Turns on
// distinct conversation ids run concurrently (bounded by
// cfg.MaxConcurrentTurns); turns sharing a conversation id are
// serialized so that writeback for turn N completes before turn N+1
// begins retrieval.
func (o *Orchestrator) Turn(ctx context.Context, message string, convCtx *conversation.Context, retrievalCfg retrieval.Config) (TurnResult, error) {
	select {
	case o.sem <- struct{}{}:
	default:
		return TurnResult{}, cerr.New("orchestrator", cerr.ResourceExhausted, "concurrent turn limit reached")
	}
	defer func() { <-o.sem }()

	gate := o.conversationGate(convCtx.ConversationID)
	gate.Lock()
	defer gate.Unlock()

	turnStart := time.Now()

	// The user and assistant messages are staged locally and only committed
	// to convCtx.Messages once every stage below has succeeded, so a
	// mid-pipeline failure (e.g. a generate-stage timeout) leaves the
	// conversation log exactly as it was before the turn started — no
	// half-turn is ever visible to a later Turn call or a snapshot.
	userMsg := conversation.Message{
		ID:        uuid.NewString(),
		Role:      conversation.User,
		Content:   message,
		Timestamp: time.Now(),
	}

	knowledge, err := o.runRetrieval(ctx, message, convCtx, retrievalCfg)
	if err != nil {
		return TurnResult{}, err
	}

	response, err := o.runGenerate(ctx, message, convCtx, knowledge)
	if err != nil {
		return TurnResult{}, err
	}

	result, err := o.runValidate(ctx, response, knowledge, message, convCtx)
	if err != nil {
		return TurnResult{}, err
	}

	assistantMsg := conversation.Message{
		ID:        uuid.NewString(),
		Role:      conversation.Assistant,
		Content:   response,
		Timestamp: time.Now(),
	}
	convCtx.Messages = append(convCtx.Messages, userMsg, assistantMsg)
	convCtx.LastRetrieved = knowledge

	if o.Memory != nil {
		o.Memory.Learn(ctx, summarize(message, response), memory.Medium, avgConfidence(knowledge, result.Quality.FactualGrounding))
		o.Memory.Learn(ctx, response, memory.Low, result.Quality.FactualGrounding)
	}

	confidence := avgConfidence(knowledge, result.Quality.FactualGrounding)
	turnDuration := time.Since(turnStart)
	if o.Collector != nil {
		go func() {
			collectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := o.Collector.Collect(collectCtx, telemetry.Interaction{
				ConversationID:  convCtx.ConversationID,
				Query:           message,
				Response:        response,
				ConfidenceScore: confidence,
				OccurredAt:      time.Now(),
				Duration:        turnDuration,
			}); err != nil {
				o.Logger.Warn("telemetry collector failed: %v", err)
			}
		}()
	}

	return TurnResult{
		Response:        response,
		ContextUsed:     knowledge,
		ConfidenceScore: confidence,
		Quality:         result.Quality,
		Flags:           result.Flags,
	}, nil
}

func (o *Orchestrator) runRetrieval(ctx context.Context, message string, convCtx *conversation.Context, cfg retrieval.Config) ([]conversation.RetrievedKnowledgeItem, error) {
	if o.Planner == nil {
		return nil, nil
	}
	stageCtx, cancel := withStageTimeout(ctx, o.cfg.Timeouts.Retrieval)
	defer cancel()

	type result struct {
		items []conversation.RetrievedKnowledgeItem
	}
	done := make(chan result, 1)
	go func() { done <- result{items: o.Planner.Plan(stageCtx, message, convCtx, cfg)} }()

	select {
	case r := <-done:
		return r.items, nil
	case <-stageCtx.Done():
		return nil, cerr.Wrap("orchestrator", cerr.Timeout, "retrieval stage timed out", stageCtx.Err())
	}
}

func (o *Orchestrator) runGenerate(ctx context.Context, message string, convCtx *conversation.Context, knowledge []conversation.RetrievedKnowledgeItem) (string, error) {
	if o.Generator == nil {
		return "", cerr.New("orchestrator", cerr.Internal, "no generator configured")
	}
	stageCtx, cancel := withStageTimeout(ctx, o.cfg.Timeouts.Generate)
	defer cancel()

	prompt := generator.BuildPrompt(o.Generator.Config, message, convCtx.History(o.Generator.Config.HistoryWindow), knowledge)

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		text, err := o.Generator.Generate(stageCtx, prompt)
		done <- result{text: text, err: err}
	}()

	select {
	case r := <-done:
		return r.text, r.err
	case <-stageCtx.Done():
		return "", cerr.Wrap("orchestrator", cerr.Timeout, "generate stage timed out", stageCtx.Err())
	}
}

func (o *Orchestrator) runValidate(ctx context.Context, response string, knowledge []conversation.RetrievedKnowledgeItem, query string, convCtx *conversation.Context) (quality.Result, error) {
	if o.Validator == nil {
		return quality.Result{}, cerr.New("orchestrator", cerr.Internal, "no validator configured")
	}
	stageCtx, cancel := withStageTimeout(ctx, o.cfg.Timeouts.Validate)
	defer cancel()

	var recent []string
	for _, m := range convCtx.RecentAssistantMessages(5) {
		recent = append(recent, m.Content)
	}

	type result struct {
		r quality.Result
	}
	done := make(chan result, 1)
	go func() { done <- result{r: o.Validator.Validate(response, knowledge, query, recent)} }()

	select {
	case r := <-done:
		return r.r, nil
	case <-stageCtx.Done():
		return quality.Result{}, cerr.Wrap("orchestrator", cerr.Timeout, "validate stage timed out", stageCtx.Err())
	}
}

func withStageTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func avgConfidence(knowledge []conversation.RetrievedKnowledgeItem, fallback float64) float64 {
	if len(knowledge) == 0 {
		return fallback
	}
	var total float64
	for _, item := range knowledge {
		total += item.Relevance
	}
	return total / float64(len(knowledge))
}

func summarize(message, response string) string {
	return "Q: " + message + " A: " + response
}

