// Package memory implements the three-tier memory system: working,
// episodic, and semantic stores with a consolidation cycle that promotes
// qualifying items upward.
//
// Working memory is capacity-bounded and evicts by a priority/recency/
// access score when full. Episodic memory is an append-only, time-indexed
// log. Semantic memory holds durable named concepts built by consolidation.
//
//	tiers := memory.New(memory.DefaultConfig())
//	tiers.Learn(ctx, "Rust emphasizes memory safety", memory.Medium, 0.7)
//	hits := tiers.Semantic.Query("rust", 0.0)
//
// Tiers is the only handle through which these stores are reachable; no
// package-level global state exists, per the Lifecycle Manager's
// explicit-handle discipline.
package memory
