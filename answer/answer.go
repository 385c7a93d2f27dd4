// Package answer composes retrieved passages into a grounded generation
// request and enforces the no-evidence-no-answer policy.
package answer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/mfreitas/taxpilot/llm"
	"github.com/mfreitas/taxpilot/store"
	"github.com/mfreitas/taxpilot/tone"
)

// RefusalAnswer is the fixed response for questions without sufficient
// evidence. When no passages are supplied it is returned verbatim and the
// generator is never invoked.
const RefusalAnswer = "Sorry, I don't have that information."

// ErrGenerationFailed wraps a failed or timed-out generation call. Retry
// policy is the caller's decision; this package never retries.
var ErrGenerationFailed = errors.New("answer generation failed")

type Result struct {
	Text         string
	Sources      []store.Chunk
	UsedFallback bool
}

// Safe wraps a plain generation client and applies the evidence policy
// itself, rather than relying on the generator to refuse.
type Safe struct {
	generator llm.Client
	logger    *log.Logger
}

func NewSafe(generator llm.Client, logger *log.Logger) *Safe {
	if logger == nil {
		logger = log.Default()
	}

	return &Safe{
		generator: generator,
		logger:    logger,
	}
}

// Answer produces the final response for a question. With no passages it
// short-circuits to the refusal answer; otherwise it issues exactly one
// generation call carrying the passages, the question, and the tone to adopt.
func (s *Safe) Answer(ctx context.Context, question string, label tone.Label, passages []store.ScoredChunk) (Result, error) {
	if len(passages) == 0 {
		s.logger.Printf("no evidence for question, returning fallback without generation")
		return Result{Text: RefusalAnswer, UsedFallback: true}, nil
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt()},
		{Role: llm.RoleUser, Content: userPrompt(question, label, passages)},
	}

	text, err := s.generator.Generate(ctx, messages)
	if err != nil {
		return Result{}, fmt.Errorf("generate answer: %w", errors.Join(ErrGenerationFailed, err))
	}

	sources := make([]store.Chunk, len(passages))
	for i, p := range passages {
		sources[i] = p.Chunk
	}

	return Result{
		Text:    strings.TrimSpace(text),
		Sources: sources,
	}, nil
}

func systemPrompt() string {
	return "You are a tax-reform assistant. Use ONLY the information provided in the context " +
		"to answer the user's question. If the information is NOT in the context, reply exactly: " +
		`"` + RefusalAnswer + `"`
}

func userPrompt(question string, label tone.Label, passages []store.ScoredChunk) string {
	var sb strings.Builder

	sb.WriteString("=== CONTEXT\n")
	for i, p := range passages {
		sb.WriteString(fmt.Sprintf("[%d] %s\n", i+1, strings.TrimSpace(p.Text)))
	}
	sb.WriteString("=== END OF CONTEXT\n\n")

	sb.WriteString("User's question:\n")
	sb.WriteString(strings.TrimSpace(question))
	sb.WriteString("\n\nAdopt a tone that is ")
	sb.WriteString(label.Instruction())
	sb.WriteString(".")

	return sb.String()
}
