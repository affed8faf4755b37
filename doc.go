// Package cognitron is a cognitive orchestration platform: it turns a
// stream of conversation turns into segmented vocabulary, tiered memory,
// a concept graph, and a scored, validated response, then persists
// whatever state needs to survive the process.
//
// # Package layout
//
//	segment/      BPE-style segment discovery and entropy-based merging
//	memory/       working/episodic/semantic memory tiers with consolidation
//	conceptgraph/ spreading-activation concept graph built from segments
//	pattern/      recurring-pattern detection across conversation history
//	retrieval/    seven-stage retrieval planner combining the above
//	generator/    LLM response generation (langchaingo or go-openai backends)
//	quality/      twelve-axis response quality scoring and safety flags
//	orchestrator/ per-conversation turn pipeline tying every stage together
//	agent/        typed capability registry for specialized sub-agents
//	lifecycle/    dependency-ordered component startup/shutdown and health
//	store/        snapshot persistence (memory, file, sqlite, redis, postgres)
//	httpapi/      JSON request/response translation for the turn endpoint
//	ingest/       external knowledge-source fetching (GitHub, etc.)
//	telemetry/    fire-and-forget interaction collection
//	cmd/cognitron/ process entry point
//
// A single turn runs through orchestrator.Orchestrator.Turn: it appends
// the user message, runs retrieval, generates a response, validates its
// quality, appends the assistant message, writes a summary back to
// memory, and returns a orchestrator.TurnResult.
package cognitron
