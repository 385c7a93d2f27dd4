package tone_test

import (
	"context"
	"fmt"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfreitas/taxpilot/llm"
	"github.com/mfreitas/taxpilot/tone"
)

type stubRemote struct {
	calls    int
	response string
	err      error
}

func (s *stubRemote) Generate(_ context.Context, _ []llm.Message) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

var _ llm.Client = (*stubRemote)(nil)

type recordingSink struct {
	labels   []tone.Label
	messages []string
	err      error
}

func (s *recordingSink) Record(label tone.Label, message string) error {
	if s.err != nil {
		return s.err
	}
	s.labels = append(s.labels, label)
	s.messages = append(s.messages, message)
	return nil
}

var _ tone.FeedbackSink = (*recordingSink)(nil)

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestDetectLocalMatchSkipsRemote(t *testing.T) {
	remote := &stubRemote{response: "neutral"}
	c := tone.NewClassifier(remote, &recordingSink{}, quietLogger())

	label := c.Detect(context.Background(), "this is ridiculous!!")
	assert.Equal(t, tone.Irritated, label)
	assert.Equal(t, 0, remote.calls)
}

func TestDetectEscalatesAndRecordsFeedback(t *testing.T) {
	remote := &stubRemote{response: "informal"}
	sink := &recordingSink{}
	c := tone.NewClassifier(remote, sink, quietLogger())

	message := "so whats the deal with the new tax then"
	label := c.Detect(context.Background(), message)

	assert.Equal(t, tone.Informal, label)
	assert.Equal(t, 1, remote.calls)
	require.Len(t, sink.labels, 1)
	assert.Equal(t, tone.Informal, sink.labels[0])
	assert.Equal(t, message, sink.messages[0])
}

func TestDetectRemoteNeutralIsNotLogged(t *testing.T) {
	remote := &stubRemote{response: "neutral"}
	sink := &recordingSink{}
	c := tone.NewClassifier(remote, sink, quietLogger())

	label := c.Detect(context.Background(), "When do new rates apply?")
	assert.Equal(t, tone.Neutral, label)
	assert.Empty(t, sink.labels)
}

func TestDetectRemoteFailureDegradesToNeutral(t *testing.T) {
	remote := &stubRemote{err: fmt.Errorf("timeout")}
	sink := &recordingSink{}
	c := tone.NewClassifier(remote, sink, quietLogger())

	label := c.Detect(context.Background(), "When do new rates apply?")
	assert.Equal(t, tone.Neutral, label)
	assert.Empty(t, sink.labels)
}

func TestDetectUnparseableResponseDegradesToNeutral(t *testing.T) {
	remote := &stubRemote{response: "I cannot classify this message"}
	sink := &recordingSink{}
	c := tone.NewClassifier(remote, sink, quietLogger())

	label := c.Detect(context.Background(), "When do new rates apply?")
	assert.Equal(t, tone.Neutral, label)
	assert.Empty(t, sink.labels)
}

func TestDetectFeedbackFailureDoesNotChangeLabel(t *testing.T) {
	remote := &stubRemote{response: "formal"}
	sink := &recordingSink{err: fmt.Errorf("disk full")}
	c := tone.NewClassifier(remote, sink, quietLogger())

	label := c.Detect(context.Background(), "When do new rates apply?")
	assert.Equal(t, tone.Formal, label)
}

func TestDetectWithoutRemoteStaysNeutral(t *testing.T) {
	c := tone.NewClassifier(nil, nil, quietLogger())

	label := c.Detect(context.Background(), "When do new rates apply?")
	assert.Equal(t, tone.Neutral, label)
}
