package llmconn

import (
	"context"
	"log/slog"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/coderisk/gkg/internal/types"
)

// OpenAIConnector extracts entities/relations via OpenAI chat completions.
type OpenAIConnector struct {
	client      *openai.Client
	model       string
	logger      *slog.Logger
	limiter     *RateLimiter
	retryConfig RetryConfig
}

// NewOpenAIConnector creates a connector using apiKey and model (defaults
// to a cost-efficient model when empty).
func NewOpenAIConnector(apiKey, model string, limiter *RateLimiter) *OpenAIConnector {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIConnector{
		client:      openai.NewClient(apiKey),
		model:       model,
		logger:      slog.Default().With("component", "llmconn.openai"),
		limiter:     limiter,
		retryConfig: DefaultRetryConfig(),
	}
}

func (c *OpenAIConnector) Extract(ctx context.Context, tenant types.TenantID, promptContext string) (types.ExtractionEnvelope, error) {
	ctx, cancel := WithDefaultDeadline(ctx)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return types.ExtractionEnvelope{}, newError(KindTimeout, err, "rate limiter wait cancelled")
	}

	systemPrompt, userPrompt := BuildPrompt(promptContext)
	start := time.Now()

	env, err := withRetry(ctx, c.retryConfig, func(ctx context.Context) (types.ExtractionEnvelope, error) {
		resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: userPrompt},
			},
			Temperature: 0.0,
			MaxTokens:   1500,
		})
		if err != nil {
			return types.ExtractionEnvelope{}, classifyOpenAIError(err)
		}
		if len(resp.Choices) == 0 {
			return types.ExtractionEnvelope{}, newError(KindResponseParseError, nil, "openai returned no choices")
		}

		env, parseErr := ParseEnvelope(resp.Choices[0].Message.Content)
		if parseErr != nil {
			return types.ExtractionEnvelope{}, parseErr
		}
		env.Metadata = types.EnvelopeMetadata{
			Provider:      "openai",
			Model:         c.model,
			LatencyMillis: time.Since(start).Milliseconds(),
			PromptTokens:  resp.Usage.PromptTokens,
			OutputTokens:  resp.Usage.CompletionTokens,
		}
		return env, nil
	})
	if err != nil {
		c.logger.Warn("openai extraction failed", "tenant", tenant, "error", err)
		return types.ExtractionEnvelope{}, err
	}
	return env, nil
}

// classifyOpenAIError maps the SDK's generic errors onto the connector
// taxonomy; the go-openai client does not expose a typed error hierarchy
// rich enough to distinguish every case, so this relies on the request
// context's deadline to catch timeouts and otherwise treats failures as
// transient network/API errors eligible for retry.
func classifyOpenAIError(err error) *Error {
	if err == context.DeadlineExceeded {
		return newError(KindTimeout, err, "openai request timed out")
	}
	return newError(KindNetworkError, err, "openai completion failed")
}
