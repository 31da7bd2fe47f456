// Package llm wraps the external text-generation provider used to interpret
// dream entries.
package llm

import "context"

// TagSuggestion is a categorical label proposed by the generation model.
type TagSuggestion struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Interpretation is the structured result of the generation stage.
type Interpretation struct {
	Summary  string          `json:"summary"`
	Analysis string          `json:"analysis"`
	Tags     []TagSuggestion `json:"tags"`
}

// Request carries everything the generation stage needs: the raw dream text,
// the rendered memory context of the user's recent dreams, and the global tag
// vocabulary so the model prefers reusing existing tags over inventing
// near-duplicates.
type Request struct {
	Content       string
	MemoryContext string
	KnownTags     []string
}

// Interpreter produces a structured interpretation for a dream. The hosted
// model is non-deterministic; tests stub this interface.
type Interpreter interface {
	Interpret(ctx context.Context, req Request) (*Interpretation, error)
}
