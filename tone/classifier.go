package tone

import (
	"context"
	"log"
	"strings"

	"github.com/mfreitas/taxpilot/llm"
)

const classifierPrompt = `Classify the tone of the following message as one of the options below, responding ONLY with the label name:
- irritated
- informal
- formal
- neutral

Message: `

// Classifier resolves the common case with the local rule pass and escalates
// to the remote model only when the local pass is inconclusive. Escalations
// that produce a non-neutral label are recorded through the feedback sink for
// offline rule mining.
type Classifier struct {
	remote   llm.Client
	feedback FeedbackSink
	logger   *log.Logger
}

func NewClassifier(remote llm.Client, feedback FeedbackSink, logger *log.Logger) *Classifier {
	if logger == nil {
		logger = log.Default()
	}
	if feedback == nil {
		feedback = NopSink{}
	}

	return &Classifier{
		remote:   remote,
		feedback: feedback,
		logger:   logger,
	}
}

// Detect never fails: any remote classification problem degrades to Neutral.
func (c *Classifier) Detect(ctx context.Context, message string) Label {
	if label := DetectLocal(message); label != Neutral {
		return label
	}
	if c.remote == nil {
		return Neutral
	}

	label := c.classifyRemote(ctx, message)
	if label == Neutral {
		return Neutral
	}

	if err := c.feedback.Record(label, message); err != nil {
		c.logger.Printf("record tone feedback: %v", err)
	}
	c.logger.Printf("remote classifier detected %q for: %s", label, strings.TrimSpace(message))

	return label
}

func (c *Classifier) classifyRemote(ctx context.Context, message string) Label {
	messages := []llm.Message{
		{Role: llm.RoleUser, Content: classifierPrompt + strings.TrimSpace(message)},
	}

	response, err := c.remote.Generate(ctx, messages)
	if err != nil {
		c.logger.Printf("remote tone classification degraded to neutral: %v", err)
		return Neutral
	}

	return ParseLabel(response)
}
