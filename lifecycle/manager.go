package lifecycle

import (
	"context"
	"sync"
	"time"

	"github.com/cognitron/cognitron/cerr"
	"github.com/cognitron/cognitron/log"
)

// Manager sequences component startup and shutdown by declared
// dependency, tracks per-component status and health, and retains a
// bounded event log.
type Manager struct {
	mu         sync.RWMutex
	components map[string]*registration
	order      []string
	events     *EventLog
	logger     log.Logger
}

// New builds an empty Manager with a 512-entry event log.
func New(logger log.Logger) *Manager {
	if logger == nil {
		logger = &log.NoOpLogger{}
	}
	return &Manager{
		components: make(map[string]*registration),
		events:     NewEventLog(512),
		logger:     logger,
	}
}

// Register adds a component. It does not validate dependencies yet;
// that happens at StartAll time once the full graph is known.
func (m *Manager) Register(c Component) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.components[c.Name()] = &registration{component: c, status: Uninitialized}
}

// Status returns a component's current status.
func (m *Manager) Status(name string) (Status, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.components[name]
	if !ok {
		return Uninitialized, false
	}
	return r.status, true
}

// Events exposes the underlying event log for read access.
func (m *Manager) Events() *EventLog {
	return m.events
}

// StartAll computes a dependency-respecting start order via DFS
// topological sort and starts each component in turn. A cycle is
// detected, logged, and the cyclic component is skipped rather than
// starting the whole manager crashing.
func (m *Manager) StartAll(ctx context.Context) error {
	order, cyclic := m.topologicalOrder()
	for _, name := range cyclic {
		m.events.Append(EventError, name, "dependency cycle detected, component skipped")
		m.logger.Warn("lifecycle: component %s skipped, part of a dependency cycle", name)
		m.setStatus(name, ErrorStatus, "dependency cycle")
	}

	m.mu.Lock()
	m.order = order
	m.mu.Unlock()

	for _, name := range order {
		if err := m.start(ctx, name); err != nil {
			return err
		}
	}
	m.events.Append(EventStartup, "", "system startup complete")
	return nil
}

func (m *Manager) start(ctx context.Context, name string) error {
	m.mu.RLock()
	reg, ok := m.components[name]
	m.mu.RUnlock()
	if !ok {
		return cerr.New("lifecycle", cerr.NotFound, "component not found: "+name)
	}

	m.setStatus(name, Initializing, "")
	m.events.Append(EventInit, name, "initializing")

	start := time.Now()
	err := reg.component.Start(ctx)
	elapsed := time.Since(start)

	m.mu.Lock()
	reg.health.LastResponseTime = elapsed
	reg.health.CheckedAt = time.Now()
	if err != nil {
		reg.health.ErrorCount++
		reg.health.LastError = err.Error()
	} else {
		reg.health.SuccessCount++
	}
	m.mu.Unlock()

	if err != nil {
		m.setStatus(name, ErrorStatus, err.Error())
		m.events.Append(EventError, name, "start failed: "+err.Error())
		return cerr.Wrap("lifecycle", cerr.Internal, "component start failed: "+name, err)
	}

	m.setStatus(name, Ready, "")
	return nil
}

// StopAll shuts components down in reverse start order.
func (m *Manager) StopAll(ctx context.Context) error {
	m.mu.RLock()
	order := append([]string(nil), m.order...)
	m.mu.RUnlock()

	var firstErr error
	for i := len(order) - 1; i >= 0; i-- {
		name := order[i]
		m.mu.RLock()
		reg, ok := m.components[name]
		m.mu.RUnlock()
		if !ok || reg.status != Ready {
			continue
		}
		if err := reg.component.Stop(ctx); err != nil {
			m.events.Append(EventError, name, "stop failed: "+err.Error())
			if firstErr == nil {
				firstErr = err
			}
			m.setStatus(name, ErrorStatus, err.Error())
			continue
		}
		m.setStatus(name, Stopped, "")
	}
	m.events.Append(EventShutdown, "", "system shutdown complete")
	return firstErr
}

// HealthCheckAll runs each ready component's health check and records
// the result.
func (m *Manager) HealthCheckAll(ctx context.Context) map[string]Health {
	m.mu.RLock()
	names := make([]string, 0, len(m.components))
	for name, reg := range m.components {
		if reg.status == Ready {
			names = append(names, name)
		}
	}
	m.mu.RUnlock()

	results := make(map[string]Health, len(names))
	for _, name := range names {
		m.mu.RLock()
		reg := m.components[name]
		m.mu.RUnlock()

		start := time.Now()
		err := reg.component.HealthCheck(ctx)
		elapsed := time.Since(start)

		m.mu.Lock()
		reg.health.LastResponseTime = elapsed
		reg.health.CheckedAt = time.Now()
		reg.health.Status = reg.status
		if err != nil {
			reg.health.Status = ErrorStatus
			reg.health.ErrorCount++
			reg.health.LastError = err.Error()
			m.events.Append(EventHealth, name, "health check failed: "+err.Error())
		} else {
			reg.health.SuccessCount++
		}
		results[name] = reg.health
		m.mu.Unlock()
	}
	return results
}

func (m *Manager) setStatus(name string, status Status, lastError string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if reg, ok := m.components[name]; ok {
		reg.status = status
		if lastError != "" {
			reg.health.LastError = lastError
		}
	}
}

// topologicalOrder runs an iterative DFS over the declared dependency
// graph. Components on a cycle are excluded from the returned order and
// reported separately.
func (m *Manager) topologicalOrder() (order []string, cyclic []string) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	const (
		unvisited = 0
		visiting  = 1
		visited   = 2
	)
	state := make(map[string]int, len(m.components))
	onCycle := make(map[string]bool)

	var visit func(name string, path []string) bool
	visit = func(name string, path []string) bool {
		switch state[name] {
		case visited:
			return true
		case visiting:
			for _, p := range path {
				onCycle[p] = true
			}
			onCycle[name] = true
			return false
		}
		reg, ok := m.components[name]
		if !ok {
			return true
		}
		state[name] = visiting
		ok = true
		for _, dep := range reg.component.Dependencies() {
			if !visit(dep, append(path, name)) {
				ok = false
			}
		}
		state[name] = visited
		if ok {
			order = append(order, name)
		}
		return ok
	}

	names := make([]string, 0, len(m.components))
	for name := range m.components {
		names = append(names, name)
	}
	sortStrings(names)

	for _, name := range names {
		if state[name] == unvisited {
			visit(name, nil)
		}
	}

	for name := range onCycle {
		cyclic = append(cyclic, name)
	}
	sortStrings(cyclic)
	return order, cyclic
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
