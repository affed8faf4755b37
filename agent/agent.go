// Package agent implements the Agent Registry (C9): a name→agent map of
// uniform, independently pluggable specialized agents (schema designer,
// backend coder, privacy compliance, data privacy, and so on). The
// registry validates declared dependencies at registration time and
// routes typed requests to a named agent; it never retries a failing
// agent itself.
package agent

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
)

// Metadata describes an agent for discovery and routing decisions.
type Metadata struct {
	Name         string
	Description  string
	Dependencies []string
	InputSchema  *jsonschema.Schema
	OutputSchema *jsonschema.Schema
}

// Preferences are the cognitive preferences an agent declares: how much
// it wants to be consulted and under what confidence it should be
// trusted.
type Preferences struct {
	ConfidenceThreshold float64
	PreferredPriority   int
}

// Agent is the uniform shape every registered agent implements.
type Agent interface {
	Metadata() Metadata
	Preferences() Preferences
	Execute(ctx context.Context, input any, agentCtx Context) (any, error)
	AssessConfidence(ctx context.Context, input any, agentCtx Context) (float64, error)
	ConfidenceThreshold() float64
}

// Context is the execution context threaded into an agent call: the
// conversation id, the fields that justify routing, and nothing the
// agent can use to reach across the registry into another agent's state.
type Context struct {
	ConversationID string
	Fields         map[string]any
}
