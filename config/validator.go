package config

import (
	"fmt"
	"net/url"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errs []ValidationError

	if _, err := url.Parse(c.Database.URL); err != nil {
		errs = append(errs, ValidationError{
			Field:   "database.url",
			Message: "invalid database URL",
		})
	}

	if c.Collection.Dimension < 1 {
		errs = append(errs, ValidationError{
			Field:   "collection.dimension",
			Message: "dimension must be positive",
		})
	}

	switch c.Collection.Metric {
	case "cosine", "l2", "ip":
	default:
		errs = append(errs, ValidationError{
			Field:   "collection.metric",
			Message: fmt.Sprintf("unsupported distance metric: %s", c.Collection.Metric),
		})
	}

	if c.Sampling.Temperature < 0 || c.Sampling.Temperature > 2 {
		errs = append(errs, ValidationError{
			Field:   "sampling.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}

	if c.Sampling.MaxTokens < 1 {
		errs = append(errs, ValidationError{
			Field:   "sampling.max_tokens",
			Message: "max_tokens must be positive",
		})
	}

	if c.Sampling.TopP <= 0 || c.Sampling.TopP > 1 {
		errs = append(errs, ValidationError{
			Field:   "sampling.top_p",
			Message: "top_p must be in (0, 1]",
		})
	}

	if c.Retrieval.K < 1 {
		errs = append(errs, ValidationError{
			Field:   "retrieval.k",
			Message: "k must be positive",
		})
	}

	if c.Retrieval.ScoreThreshold < 0 || c.Retrieval.ScoreThreshold > 1 {
		errs = append(errs, ValidationError{
			Field:   "retrieval.score_threshold",
			Message: "score_threshold must be between 0 and 1",
		})
	}

	if c.Retrieval.Lambda <= 0 || c.Retrieval.Lambda > 1 {
		errs = append(errs, ValidationError{
			Field:   "retrieval.lambda",
			Message: "lambda must be in (0, 1]",
		})
	}

	if c.Embeddings.RequestsPerSecond < 0 {
		errs = append(errs, ValidationError{
			Field:   "embeddings.requests_per_second",
			Message: "requests_per_second cannot be negative",
		})
	}

	return errs
}
