package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/Lllllllleong/pdftoolkit/internal/docerr"
	"github.com/Lllllllleong/pdftoolkit/internal/qa"
)

// Overflow policies for contexts longer than MaxContextChars.
const (
	OverflowError    = "error"
	OverflowTruncate = "truncate"
)

// AnswererConfig holds configuration for the question answerer.
type AnswererConfig struct {
	// MaxContextChars caps the context length in characters. Zero means no cap.
	MaxContextChars int
	// Overflow is OverflowError or OverflowTruncate.
	Overflow string
}

// QuestionAnswerer asks a model about a passage of text.
type QuestionAnswerer struct {
	model  qa.Model
	config AnswererConfig
}

// NewQuestionAnswerer creates an answerer. The model is shared and must be
// safe for concurrent use.
func NewQuestionAnswerer(model qa.Model, config AnswererConfig) (*QuestionAnswerer, error) {
	switch config.Overflow {
	case "":
		config.Overflow = OverflowError
	case OverflowError, OverflowTruncate:
	default:
		return nil, fmt.Errorf("unknown overflow policy %q", config.Overflow)
	}
	if config.MaxContextChars < 0 {
		return nil, fmt.Errorf("max context chars must not be negative, got %d", config.MaxContextChars)
	}
	return &QuestionAnswerer{model: model, config: config}, nil
}

// Model reports the configured model's name.
func (a *QuestionAnswerer) Model() string { return a.model.Name() }

// Answer returns the model's answer to question over passage. The model is
// called exactly once.
func (a *QuestionAnswerer) Answer(ctx context.Context, passage, question string) (*qa.Answer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(passage) == "" {
		return nil, docerr.Errorf(docerr.StageAnswer, docerr.ErrInference, "context is empty")
	}
	if strings.TrimSpace(question) == "" {
		return nil, docerr.Errorf(docerr.StageAnswer, docerr.ErrInference, "question is empty")
	}

	if limit := a.config.MaxContextChars; limit > 0 {
		if n := utf8.RuneCountInString(passage); n > limit {
			if a.config.Overflow != OverflowTruncate {
				return nil, docerr.New(docerr.StageAnswer, docerr.ErrInference,
					fmt.Errorf("%w: %d characters, limit %d", qa.ErrContextTooLong, n, limit))
			}
			slog.WarnContext(ctx, "Truncating context to model limit.", "chars", n, "limit", limit)
			passage = truncateRunes(passage, limit)
		}
	}

	ans, err := a.model.Answer(ctx, passage, question)
	if err != nil {
		return nil, docerr.New(docerr.StageAnswer, docerr.ErrInference, err)
	}
	if ans == nil || strings.TrimSpace(ans.Text) == "" {
		return nil, docerr.New(docerr.StageAnswer, docerr.ErrInference, qa.ErrNoAnswer)
	}
	return ans, nil
}

func truncateRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
