// Package generator implements the Response Generator Adapter (C6): it
// formats a bounded prompt from conversation context and retrieved
// knowledge, invokes an external generator, and returns the response text
// or a typed upstream error.
package generator

// Config recognizes the options named in the external interfaces section:
// model, max_tokens, temperature, history_window, and additional system
// instructions prepended to the fixed system prompt.
type Config struct {
	Model                 string
	MaxTokens             int
	Temperature           float64
	HistoryWindow         int
	SystemPromptOverrides []string
}

// DefaultConfig matches the worked examples (5-message history window).
func DefaultConfig() Config {
	return Config{
		Model:         "default",
		MaxTokens:     1024,
		Temperature:   0.7,
		HistoryWindow: 5,
	}
}
