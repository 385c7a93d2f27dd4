// Package config loads taxpilot settings from a YAML file and the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	OpenAI struct {
		APIKey         string `yaml:"api_key"`
		BaseURL        string `yaml:"base_url"`
		ChatModel      string `yaml:"chat_model"`
		EmbeddingModel string `yaml:"embedding_model"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"openai"`

	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`

	Collection struct {
		Name      string `yaml:"name"`
		Dimension int    `yaml:"dimension"`
		Metric    string `yaml:"metric"`
	} `yaml:"collection"`

	Sampling struct {
		Temperature float32 `yaml:"temperature"`
		MaxTokens   int     `yaml:"max_tokens"`
		TopP        float32 `yaml:"top_p"`
	} `yaml:"sampling"`

	Retrieval struct {
		K              int     `yaml:"k"`
		ScoreThreshold float64 `yaml:"score_threshold"`
		Diversify      bool    `yaml:"diversify"`
		Lambda         float64 `yaml:"lambda"`
	} `yaml:"retrieval"`

	Tone struct {
		FeedbackLog string `yaml:"feedback_log"`
	} `yaml:"tone"`

	Embeddings struct {
		RequestsPerSecond float64 `yaml:"requests_per_second"`
	} `yaml:"embeddings"`
}

// Load reads the configuration file at path (or the first default location
// when path is empty), merges environment overrides, and applies defaults.
// A missing OpenAI API key is a fatal configuration error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path == "" {
		locations := []string{
			"taxpilot.yaml",
			"taxpilot.yml",
			filepath.Join(os.Getenv("HOME"), ".config/taxpilot/config.yaml"),
			"/etc/taxpilot/config.yaml",
		}
		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	mergeWithEnv(cfg)
	applyDefaults(cfg)

	if cfg.OpenAI.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is not set")
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %v", errs[0])
	}

	return cfg, nil
}

// OpenAITimeout returns the HTTP client timeout for OpenAI calls.
func (c *Config) OpenAITimeout() time.Duration {
	return time.Duration(c.OpenAI.TimeoutSeconds) * time.Second
}

func mergeWithEnv(cfg *Config) {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.OpenAI.APIKey = key
	}
	if base := os.Getenv("OPENAI_BASE_URL"); base != "" {
		cfg.OpenAI.BaseURL = base
	}
	if model := os.Getenv("TAXPILOT_CHAT_MODEL"); model != "" {
		cfg.OpenAI.ChatModel = model
	}
	if model := os.Getenv("TAXPILOT_EMBEDDING_MODEL"); model != "" {
		cfg.OpenAI.EmbeddingModel = model
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.Database.URL = dbURL
	}
	if logPath := os.Getenv("TAXPILOT_TONE_LOG"); logPath != "" {
		cfg.Tone.FeedbackLog = logPath
	}
}

func applyDefaults(cfg *Config) {
	if cfg.OpenAI.ChatModel == "" {
		cfg.OpenAI.ChatModel = "gpt-4o-mini"
	}
	if cfg.OpenAI.EmbeddingModel == "" {
		cfg.OpenAI.EmbeddingModel = "text-embedding-3-small"
	}
	if cfg.OpenAI.TimeoutSeconds == 0 {
		cfg.OpenAI.TimeoutSeconds = 60
	}

	if cfg.Database.URL == "" {
		cfg.Database.URL = "postgres://localhost:5432/taxpilot?sslmode=disable"
	}

	if cfg.Collection.Name == "" {
		cfg.Collection.Name = "tax_reform"
	}
	if cfg.Collection.Dimension == 0 {
		cfg.Collection.Dimension = 1536
	}
	if cfg.Collection.Metric == "" {
		cfg.Collection.Metric = "cosine"
	}

	if cfg.Sampling.MaxTokens == 0 {
		cfg.Sampling.MaxTokens = 1024
	}
	if cfg.Sampling.TopP == 0 {
		cfg.Sampling.TopP = 1.0
	}

	if cfg.Retrieval.K == 0 {
		cfg.Retrieval.K = 6
		cfg.Retrieval.Diversify = true
	}
	if cfg.Retrieval.ScoreThreshold == 0 {
		cfg.Retrieval.ScoreThreshold = 0.35
	}
	if cfg.Retrieval.Lambda == 0 {
		cfg.Retrieval.Lambda = 0.5
	}

	if cfg.Tone.FeedbackLog == "" {
		cfg.Tone.FeedbackLog = "logs/tone_escalations.log"
	}
}
