package qa_test

import (
	"context"
	"fmt"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfreitas/taxpilot/answer"
	"github.com/mfreitas/taxpilot/llm"
	"github.com/mfreitas/taxpilot/qa"
	"github.com/mfreitas/taxpilot/retrieval"
	"github.com/mfreitas/taxpilot/store"
	"github.com/mfreitas/taxpilot/tone"
)

type stubClassifier struct {
	label tone.Label
}

func (s *stubClassifier) Detect(_ context.Context, _ string) tone.Label {
	return s.label
}

type stubRetriever struct {
	results  []store.ScoredChunk
	err      error
	lastOpts retrieval.Options
}

func (s *stubRetriever) Retrieve(_ context.Context, _, _ string, opts retrieval.Options) ([]store.ScoredChunk, error) {
	s.lastOpts = opts
	if s.err != nil {
		return nil, s.err
	}
	return s.results, nil
}

type countingGenerator struct {
	calls    int
	response string
}

func (c *countingGenerator) Generate(_ context.Context, _ []llm.Message) (string, error) {
	c.calls++
	return c.response, nil
}

var _ llm.Client = (*countingGenerator)(nil)

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestAskAnswersFromRetrievedPassages(t *testing.T) {
	retriever := &stubRetriever{results: []store.ScoredChunk{
		{
			Chunk: store.Chunk{ExternalID: "2", Text: "New rates apply from 2026."},
			Score: 0.82,
		},
	}}
	generator := &countingGenerator{response: "The new rates apply from 2026."}
	svc := qa.NewService(
		&stubClassifier{label: tone.Neutral},
		retriever,
		answer.NewSafe(generator, quietLogger()),
		"taxes",
		retrieval.Options{K: 2, ScoreThreshold: 0.3},
		quietLogger(),
	)

	resp, err := svc.Ask(context.Background(), "When do new rates apply?")
	require.NoError(t, err)

	assert.Contains(t, resp.Answer, "2026")
	assert.False(t, resp.UsedFallback)
	assert.Equal(t, tone.Neutral, resp.Tone)
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, "2", resp.Sources[0].ExternalID)
	assert.Equal(t, 1, generator.calls)
}

func TestAskRefusesWithoutEvidence(t *testing.T) {
	retriever := &stubRetriever{}
	generator := &countingGenerator{response: "should never be used"}
	svc := qa.NewService(
		&stubClassifier{label: tone.Neutral},
		retriever,
		answer.NewSafe(generator, quietLogger()),
		"taxes",
		retrieval.Options{K: 2, ScoreThreshold: 0.5},
		quietLogger(),
	)

	resp, err := svc.Ask(context.Background(), "What is the capital of France?")
	require.NoError(t, err)

	assert.Equal(t, answer.RefusalAnswer, resp.Answer)
	assert.True(t, resp.UsedFallback)
	assert.Equal(t, 0, generator.calls)
}

func TestAskCarriesDetectedTone(t *testing.T) {
	retriever := &stubRetriever{results: []store.ScoredChunk{
		{Chunk: store.Chunk{ExternalID: "1", Text: "Tax reform passed in 2023."}, Score: 0.7},
	}}
	svc := qa.NewService(
		&stubClassifier{label: tone.Irritated},
		retriever,
		answer.NewSafe(&countingGenerator{response: "In 2023."}, quietLogger()),
		"taxes",
		retrieval.Options{K: 2},
		quietLogger(),
	)

	resp, err := svc.Ask(context.Background(), "when was it passed?!?!")
	require.NoError(t, err)
	assert.Equal(t, tone.Irritated, resp.Tone)
}

func TestAskWithOptionsOverridesDefaults(t *testing.T) {
	retriever := &stubRetriever{}
	svc := qa.NewService(
		&stubClassifier{label: tone.Neutral},
		retriever,
		answer.NewSafe(&countingGenerator{}, quietLogger()),
		"taxes",
		retrieval.Options{K: 6, ScoreThreshold: 0.35},
		quietLogger(),
	)

	_, err := svc.AskWithOptions(context.Background(), "anything", retrieval.Options{
		K:              2,
		ScoreThreshold: 0.5,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, retriever.lastOpts.K)
	assert.Equal(t, 0.5, retriever.lastOpts.ScoreThreshold)
}

func TestAskRejectsEmptyQuestion(t *testing.T) {
	svc := qa.NewService(
		&stubClassifier{label: tone.Neutral},
		&stubRetriever{},
		answer.NewSafe(&countingGenerator{}, quietLogger()),
		"taxes",
		retrieval.Options{},
		quietLogger(),
	)

	_, err := svc.Ask(context.Background(), "   ")
	assert.Error(t, err)
}

func TestAskSurfacesRetrievalError(t *testing.T) {
	retriever := &stubRetriever{err: fmt.Errorf("down: %w", store.ErrUnavailable)}
	svc := qa.NewService(
		&stubClassifier{label: tone.Neutral},
		retriever,
		answer.NewSafe(&countingGenerator{}, quietLogger()),
		"taxes",
		retrieval.Options{},
		quietLogger(),
	)

	_, err := svc.Ask(context.Background(), "anything")
	assert.ErrorIs(t, err, store.ErrUnavailable)
}
