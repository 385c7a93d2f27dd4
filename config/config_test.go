package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfreitas/taxpilot/config"
)

func TestLoadRequiresAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("HOME", t.TempDir())

	_, err := config.Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("HOME", t.TempDir())
	t.Setenv("DATABASE_URL", "")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.ChatModel)
	assert.Equal(t, "text-embedding-3-small", cfg.OpenAI.EmbeddingModel)
	assert.Equal(t, "tax_reform", cfg.Collection.Name)
	assert.Equal(t, 1536, cfg.Collection.Dimension)
	assert.Equal(t, "cosine", cfg.Collection.Metric)
	assert.Equal(t, 6, cfg.Retrieval.K)
	assert.InDelta(t, 0.35, cfg.Retrieval.ScoreThreshold, 1e-9)
	assert.True(t, cfg.Retrieval.Diversify)
	assert.Equal(t, 1024, cfg.Sampling.MaxTokens)
	assert.InDelta(t, 1.0, float64(cfg.Sampling.TopP), 1e-9)
	assert.Equal(t, "logs/tone_escalations.log", cfg.Tone.FeedbackLog)
}

func TestLoadReadsYAMLFile(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("DATABASE_URL", "")

	path := filepath.Join(t.TempDir(), "taxpilot.yaml")
	content := `
openai:
  chat_model: gpt-4o
collection:
  name: briefing_docs
  dimension: 3072
retrieval:
  k: 8
  score_threshold: 0.4
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o", cfg.OpenAI.ChatModel)
	assert.Equal(t, "briefing_docs", cfg.Collection.Name)
	assert.Equal(t, 3072, cfg.Collection.Dimension)
	assert.Equal(t, 8, cfg.Retrieval.K)
	assert.InDelta(t, 0.4, cfg.Retrieval.ScoreThreshold, 1e-9)
	// Unset fields still get defaults.
	assert.Equal(t, "text-embedding-3-small", cfg.OpenAI.EmbeddingModel)
}

func TestLoadMergesEnvironmentOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("HOME", t.TempDir())
	t.Setenv("DATABASE_URL", "postgres://db.internal:5432/qa")
	t.Setenv("TAXPILOT_CHAT_MODEL", "gpt-4.1-mini")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "postgres://db.internal:5432/qa", cfg.Database.URL)
	assert.Equal(t, "gpt-4.1-mini", cfg.OpenAI.ChatModel)
}

func TestValidateFlagsBadValues(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("DATABASE_URL", "")

	path := filepath.Join(t.TempDir(), "taxpilot.yaml")
	content := `
collection:
  metric: hamming
retrieval:
  score_threshold: 1.5
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := config.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}
