package agent

import (
	"context"
	"sync"

	"github.com/cognitron/cognitron/cerr"
	"github.com/cognitron/cognitron/log"
)

// Registry holds a name→agent map and validates declared dependencies
// exist before admitting a new registration.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]Agent
	logger log.Logger
}

// New builds an empty Registry.
func New(logger log.Logger) *Registry {
	if logger == nil {
		logger = &log.NoOpLogger{}
	}
	return &Registry{agents: make(map[string]Agent), logger: logger}
}

// Register admits an agent under its declared name. If any declared
// dependency isn't already present, registration fails and the registry
// is left unchanged.
func (r *Registry) Register(a Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	meta := a.Metadata()
	if meta.Name == "" {
		return cerr.New("agent", cerr.Input, "agent metadata must declare a name")
	}
	for _, dep := range meta.Dependencies {
		if _, ok := r.agents[dep]; !ok {
			return cerr.New("agent", cerr.Input, "unmet dependency \""+dep+"\" for agent \""+meta.Name+"\"")
		}
	}
	r.agents[meta.Name] = a
	r.logger.Info("registered agent %s (deps=%v)", meta.Name, meta.Dependencies)
	return nil
}

// Lookup returns the agent registered under name.
func (r *Registry) Lookup(name string) (Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[name]
	if !ok {
		return nil, cerr.New("agent", cerr.NotFound, "agent not found")
	}
	return a, nil
}

// Names lists every registered agent name.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.agents))
	for name := range r.agents {
		out = append(out, name)
	}
	return out
}

// Route dispatches a typed request to a named agent. Failures within the
// agent are returned verbatim; the registry performs no retry.
func (r *Registry) Route(ctx context.Context, name string, input any, agentCtx Context) (any, error) {
	a, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	return a.Execute(ctx, input, agentCtx)
}

// RouteWithConfidence routes to name only if the agent's assessed
// confidence for this input meets its own declared threshold; otherwise
// it returns a NotReady error rather than executing.
func (r *Registry) RouteWithConfidence(ctx context.Context, name string, input any, agentCtx Context) (any, error) {
	a, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	confidence, err := a.AssessConfidence(ctx, input, agentCtx)
	if err != nil {
		return nil, err
	}
	if confidence < a.ConfidenceThreshold() {
		return nil, cerr.New("agent", cerr.NotReady, "agent confidence below threshold")
	}
	return a.Execute(ctx, input, agentCtx)
}
