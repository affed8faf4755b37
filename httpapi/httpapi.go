// Package httpapi translates the JSON turn request/response contract to
// and from the orchestrator's Turn call. It implements the translation
// only: no router, middleware, or server is provided here, matching the
// minimal external-interface boundary the rest of the platform assumes.
package httpapi

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/cognitron/cognitron/conversation"
	"github.com/cognitron/cognitron/lifecycle"
	"github.com/cognitron/cognitron/orchestrator"
	"github.com/cognitron/cognitron/quality"
	"github.com/cognitron/cognitron/retrieval"
	"github.com/cognitron/cognitron/telemetry"
	"github.com/google/uuid"
)

// TurnRequest is the inbound JSON shape for a conversational turn.
type TurnRequest struct {
	Message            string   `json:"message"`
	ConversationID     string   `json:"conversation_id,omitempty"`
	ContextLimit       *int     `json:"context_limit,omitempty"`
	RetrievalThreshold *float64 `json:"retrieval_threshold,omitempty"`
}

// RetrievedItem is the JSON shape of a surfaced knowledge item.
type RetrievedItem struct {
	Content    string    `json:"content"`
	SourceID   string    `json:"source_id"`
	SourceType string    `json:"source_type"`
	Relevance  float64   `json:"relevance"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}

// TurnResponse is the outbound JSON shape for a completed turn.
type TurnResponse struct {
	Response        string          `json:"response"`
	ConversationID  string          `json:"conversation_id"`
	ContextUsed     []RetrievedItem `json:"context_used"`
	ConfidenceScore float64         `json:"confidence_score"`
	ResponseQuality quality.Vector  `json:"response_quality"`
	SafetyFlags     quality.Flags   `json:"safety_flags"`
}

var sourceTypeNames = map[conversation.SourceType]string{
	conversation.SourceSemantic:     "semantic",
	conversation.SourceConceptGraph: "concept_graph",
	conversation.SourceEpisodic:     "episodic",
	conversation.SourceThread:       "thread",
	conversation.SourcePattern:      "pattern",
	conversation.SourceWorking:      "working",
}

func sourceTypeName(t conversation.SourceType) string {
	if name, ok := sourceTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// Handler adapts orchestrator.Orchestrator to the JSON turn contract. It
// keeps one conversation.Context per conversation ID in memory; longer-
// lived conversation state belongs to an external store, not this
// package.
type Handler struct {
	Orchestrator *orchestrator.Orchestrator
	Retrieval    retrieval.Config
	Lifecycle    *lifecycle.Manager
	Metrics      *telemetry.MetricsCollector

	mu            sync.Mutex
	conversations map[string]*conversation.Context
}

// NewHandler builds a Handler over an orchestrator using the given
// default retrieval configuration.
func NewHandler(o *orchestrator.Orchestrator, retrievalCfg retrieval.Config) *Handler {
	return &Handler{
		Orchestrator:  o,
		Retrieval:     retrievalCfg,
		conversations: make(map[string]*conversation.Context),
	}
}

func (h *Handler) contextFor(conversationID string) (*conversation.Context, string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conversationID == "" {
		conversationID = uuid.NewString()
	}
	convCtx, ok := h.conversations[conversationID]
	if !ok {
		convCtx = &conversation.Context{ConversationID: conversationID}
		h.conversations[conversationID] = convCtx
	}
	return convCtx, conversationID
}

// HandleTurn decodes a TurnRequest, runs one orchestrator turn, and
// encodes the TurnResponse. It's the one method spec.md §6 names for this
// package; request/response framing (HTTP method, path, headers) is left
// to the caller.
func (h *Handler) HandleTurn(ctx context.Context, body []byte) ([]byte, error) {
	var req TurnRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, err
	}

	convCtx, conversationID := h.contextFor(req.ConversationID)

	cfg := h.Retrieval
	if req.ContextLimit != nil {
		cfg.Limit = *req.ContextLimit
	}
	if req.RetrievalThreshold != nil {
		cfg.MinRelevance = *req.RetrievalThreshold
	}

	result, err := h.Orchestrator.Turn(ctx, req.Message, convCtx, cfg)
	if err != nil {
		return nil, err
	}

	items := make([]RetrievedItem, 0, len(result.ContextUsed))
	for _, item := range result.ContextUsed {
		items = append(items, RetrievedItem{
			Content:    item.Content,
			SourceID:   item.SourceID,
			SourceType: sourceTypeName(item.SourceType),
			Relevance:  item.Relevance,
			Confidence: item.Confidence,
			Timestamp:  item.Timestamp,
		})
	}

	resp := TurnResponse{
		Response:        result.Response,
		ConversationID:  conversationID,
		ContextUsed:     items,
		ConfidenceScore: result.ConfidenceScore,
		ResponseQuality: result.Quality,
		SafetyFlags:     result.Flags,
	}
	return json.Marshal(resp)
}

// ComponentHealth is the JSON shape of one component's health record.
type ComponentHealth struct {
	Status           string    `json:"status"`
	LastResponseTime string    `json:"last_response_time"`
	ErrorCount       int       `json:"error_count"`
	SuccessCount     int       `json:"success_count"`
	LastError        string    `json:"last_error,omitempty"`
	CheckedAt        time.Time `json:"checked_at"`
}

// HealthResponse is the outbound JSON shape for the health endpoint: one
// entry per registered component plus the overall rollup status.
type HealthResponse struct {
	Status     string                     `json:"status"`
	Components map[string]ComponentHealth `json:"components"`
}

// HandleHealth reports the live status of every component the lifecycle
// manager tracks, replacing the hardcoded placeholder fields the original
// health endpoint returned with the manager's actual, just-run health
// checks. The overall status is "degraded" if any component reports an
// error, "ready" otherwise.
func (h *Handler) HandleHealth(ctx context.Context) ([]byte, error) {
	components := make(map[string]ComponentHealth)
	overall := "ready"
	if h.Lifecycle != nil {
		for name, health := range h.Lifecycle.HealthCheckAll(ctx) {
			if health.Status == lifecycle.ErrorStatus {
				overall = "degraded"
			}
			components[name] = ComponentHealth{
				Status:           health.Status.String(),
				LastResponseTime: health.LastResponseTime.String(),
				ErrorCount:       health.ErrorCount,
				SuccessCount:     health.SuccessCount,
				LastError:        health.LastError,
				CheckedAt:        health.CheckedAt,
			}
		}
	}

	return json.Marshal(HealthResponse{Status: overall, Components: components})
}

// StatsResponse is the outbound JSON shape for the stats endpoint: the
// telemetry.MetricsCollector snapshot, keyed by component name.
type StatsResponse struct {
	Components map[string]telemetry.ComponentMetrics `json:"components"`
}

// HandleStats reports the accumulated call counts, latency, and error
// rate the MetricsCollector has recorded so far. If no MetricsCollector
// is wired in, it reports an empty snapshot rather than erroring, since
// metrics collection is optional.
func (h *Handler) HandleStats(ctx context.Context) ([]byte, error) {
	resp := StatsResponse{Components: make(map[string]telemetry.ComponentMetrics)}
	if h.Metrics != nil {
		resp.Components = h.Metrics.Snapshot()
	}
	return json.Marshal(resp)
}
