package generator

import (
	"fmt"
	"strings"

	"github.com/cognitron/cognitron/conversation"
)

const baseSystemPrompt = `You are a careful assistant. Answer using the retrieved knowledge provided below when it is relevant. Stay faithful to the sources; do not invent facts. If you do not know something, say so plainly rather than guessing.`

// BuildPrompt renders the fixed system instructions, up to
// cfg.HistoryWindow prior messages (excluding the current turn), and the
// retrieved knowledge indexed with source type and relevance, followed by
// the current user message.
func BuildPrompt(cfg Config, userMessage string, history []conversation.Message, knowledge []conversation.RetrievedKnowledgeItem) string {
	var b strings.Builder

	for _, extra := range cfg.SystemPromptOverrides {
		b.WriteString(extra)
		b.WriteString("\n")
	}
	b.WriteString(baseSystemPrompt)
	b.WriteString("\n\n")

	if len(knowledge) > 0 {
		b.WriteString("Retrieved knowledge:\n")
		for i, item := range knowledge {
			fmt.Fprintf(&b, "[%d] (%s, relevance=%.2f) %s\n", i+1, sourceLabel(item.SourceType), item.Relevance, item.Content)
		}
		b.WriteString("\n")
	}

	window := cfg.HistoryWindow
	if window <= 0 {
		window = 5
	}
	if len(history) > window {
		history = history[len(history)-window:]
	}
	if len(history) > 0 {
		b.WriteString("Conversation so far:\n")
		for _, m := range history {
			fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "user: %s\n", userMessage)
	return b.String()
}

func sourceLabel(s conversation.SourceType) string {
	switch s {
	case conversation.SourceSemantic:
		return "semantic"
	case conversation.SourceConceptGraph:
		return "concept-graph"
	case conversation.SourceEpisodic:
		return "episodic"
	case conversation.SourceThread:
		return "thread"
	case conversation.SourcePattern:
		return "pattern"
	case conversation.SourceWorking:
		return "working"
	default:
		return "unknown"
	}
}
