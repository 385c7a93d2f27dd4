// Package qa wires tone classification, retrieval, and safe answering into
// the per-query pipeline.
package qa

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/mfreitas/taxpilot/answer"
	"github.com/mfreitas/taxpilot/retrieval"
	"github.com/mfreitas/taxpilot/store"
	"github.com/mfreitas/taxpilot/tone"
)

type Classifier interface {
	Detect(ctx context.Context, message string) tone.Label
}

type Retriever interface {
	Retrieve(ctx context.Context, collection, query string, opts retrieval.Options) ([]store.ScoredChunk, error)
}

type Answerer interface {
	Answer(ctx context.Context, question string, label tone.Label, passages []store.ScoredChunk) (answer.Result, error)
}

type Response struct {
	Answer       string
	Tone         tone.Label
	Sources      []store.Chunk
	UsedFallback bool
}

// Service processes each question as one sequential pipeline:
// classify, retrieve, answer. It holds no per-query state.
type Service struct {
	classifier Classifier
	retriever  Retriever
	answerer   Answerer
	collection string
	defaults   retrieval.Options
	logger     *log.Logger
}

func NewService(classifier Classifier, retriever Retriever, answerer Answerer, collection string, defaults retrieval.Options, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}

	return &Service{
		classifier: classifier,
		retriever:  retriever,
		answerer:   answerer,
		collection: collection,
		defaults:   defaults,
		logger:     logger,
	}
}

func (s *Service) Ask(ctx context.Context, question string) (Response, error) {
	return s.AskWithOptions(ctx, question, s.defaults)
}

func (s *Service) AskWithOptions(ctx context.Context, question string, opts retrieval.Options) (Response, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Response{}, fmt.Errorf("question cannot be empty")
	}
	if s.retriever == nil {
		return Response{}, fmt.Errorf("retriever is not configured")
	}
	if s.answerer == nil {
		return Response{}, fmt.Errorf("answerer is not configured")
	}

	label := tone.Neutral
	if s.classifier != nil {
		label = s.classifier.Detect(ctx, question)
	}

	passages, err := s.retriever.Retrieve(ctx, s.collection, question, opts)
	if err != nil {
		return Response{}, fmt.Errorf("retrieve passages: %w", err)
	}

	result, err := s.answerer.Answer(ctx, question, label, passages)
	if err != nil {
		return Response{}, err
	}

	return Response{
		Answer:       result.Text,
		Tone:         label,
		Sources:      result.Sources,
		UsedFallback: result.UsedFallback,
	}, nil
}
