package main

import (
	"context"
	"errors"
	"os"

	"github.com/cognitron/cognitron/conceptgraph"
	"github.com/cognitron/cognitron/memory"
	"github.com/cognitron/cognitron/segment"
)

// segmentComponent adapts segment.Engine to lifecycle.Component. Start
// loads the persisted vocabulary file if one exists; a missing file is
// not an error, since a fresh deployment has no prior vocabulary.
type segmentComponent struct {
	engine *segment.Engine
	path   string
}

func (s *segmentComponent) Name() string           { return "segment" }
func (s *segmentComponent) Dependencies() []string { return nil }

func (s *segmentComponent) Start(ctx context.Context) error {
	if s.path == "" {
		return nil
	}
	if err := s.engine.Load(s.path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil // fresh vocabulary, nothing to restore
		}
		return err
	}
	return nil
}

func (s *segmentComponent) Stop(ctx context.Context) error {
	if s.path == "" {
		return nil
	}
	return s.engine.Save(s.path)
}

func (s *segmentComponent) HealthCheck(ctx context.Context) error { return nil }

// memoryComponent adapts memory.Tiers to lifecycle.Component.
type memoryComponent struct {
	tiers *memory.Tiers
}

func (m *memoryComponent) Name() string              { return "memory" }
func (m *memoryComponent) Dependencies() []string     { return []string{"segment"} }
func (m *memoryComponent) Start(ctx context.Context) error { return nil }
func (m *memoryComponent) Stop(ctx context.Context) error  { return nil }
func (m *memoryComponent) HealthCheck(ctx context.Context) error { return nil }

// conceptGraphComponent adapts conceptgraph.Graph to lifecycle.Component.
type conceptGraphComponent struct {
	graph *conceptgraph.Graph
}

func (c *conceptGraphComponent) Name() string              { return "conceptgraph" }
func (c *conceptGraphComponent) Dependencies() []string     { return []string{"segment"} }
func (c *conceptGraphComponent) Start(ctx context.Context) error { return nil }
func (c *conceptGraphComponent) Stop(ctx context.Context) error  { return nil }
func (c *conceptGraphComponent) HealthCheck(ctx context.Context) error { return nil }

// generatorComponent has nothing to start or tear down; it exists so the
// manager's dependency order and event log cover the generator stage too.
type generatorComponent struct{}

func (generatorComponent) Name() string              { return "generator" }
func (generatorComponent) Dependencies() []string     { return []string{"memory", "conceptgraph"} }
func (generatorComponent) Start(ctx context.Context) error { return nil }
func (generatorComponent) Stop(ctx context.Context) error  { return nil }
func (generatorComponent) HealthCheck(ctx context.Context) error { return nil }
