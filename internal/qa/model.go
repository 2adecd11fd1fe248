// Package qa answers natural-language questions against a passage of text.
package qa

import (
	"context"
	"errors"
)

var (
	// ErrNoAnswer is returned when a model finds nothing in the passage that
	// answers the question.
	ErrNoAnswer = errors.New("no answer found in context")
	// ErrContextTooLong is returned when a passage exceeds the configured limit.
	ErrContextTooLong = errors.New("context exceeds maximum length")
)

// Answer is a model's reply.
type Answer struct {
	Text  string  `json:"answer"`
	Score float64 `json:"score"`
	// Start and End are the rune offsets of the quoted span in the passage,
	// or -1 when the model did not quote it.
	Start int    `json:"start"`
	End   int    `json:"end"`
	Model string `json:"model"`
}

// Model answers a question from a passage. Implementations must be safe for
// concurrent use.
type Model interface {
	Name() string
	Answer(ctx context.Context, passage, question string) (*Answer, error)
}
