package llmconn

import (
	"context"
	"log/slog"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/coderisk/gkg/internal/types"
)

// AnthropicConnector extracts entities/relations via the Messages API,
// built against the SDK's documented Messages.New shape.
type AnthropicConnector struct {
	client      *anthropic.Client
	model       anthropic.Model
	maxTokens   int64
	logger      *slog.Logger
	limiter     *RateLimiter
	retryConfig RetryConfig
}

func NewAnthropicConnector(apiKey, model string, limiter *RateLimiter) *AnthropicConnector {
	m := anthropic.Model(model)
	if model == "" {
		m = anthropic.ModelClaude3_5HaikuLatest
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicConnector{
		client:      &client,
		model:       m,
		maxTokens:   1500,
		logger:      slog.Default().With("component", "llmconn.anthropic"),
		limiter:     limiter,
		retryConfig: DefaultRetryConfig(),
	}
}

func (c *AnthropicConnector) Extract(ctx context.Context, tenant types.TenantID, promptContext string) (types.ExtractionEnvelope, error) {
	ctx, cancel := WithDefaultDeadline(ctx)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return types.ExtractionEnvelope{}, newError(KindTimeout, err, "rate limiter wait cancelled")
	}

	systemPrompt, userPrompt := BuildPrompt(promptContext)
	start := time.Now()

	env, err := withRetry(ctx, c.retryConfig, func(ctx context.Context) (types.ExtractionEnvelope, error) {
		msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     c.model,
			MaxTokens: c.maxTokens,
			System: []anthropic.TextBlockParam{
				{Text: systemPrompt},
			},
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
			},
		})
		if err != nil {
			return types.ExtractionEnvelope{}, classifyAnthropicError(err)
		}
		if len(msg.Content) == 0 {
			return types.ExtractionEnvelope{}, newError(KindResponseParseError, nil, "anthropic returned no content blocks")
		}

		var text string
		for _, block := range msg.Content {
			if block.Type == "text" {
				text += block.Text
			}
		}
		if text == "" {
			return types.ExtractionEnvelope{}, newError(KindResponseParseError, nil, "anthropic returned no text block")
		}

		env, parseErr := ParseEnvelope(text)
		if parseErr != nil {
			return types.ExtractionEnvelope{}, parseErr
		}
		env.Metadata = types.EnvelopeMetadata{
			Provider:      "anthropic",
			Model:         string(c.model),
			LatencyMillis: time.Since(start).Milliseconds(),
			PromptTokens:  int(msg.Usage.InputTokens),
			OutputTokens:  int(msg.Usage.OutputTokens),
		}
		return env, nil
	})
	if err != nil {
		c.logger.Warn("anthropic extraction failed", "tenant", tenant, "error", err)
		return types.ExtractionEnvelope{}, err
	}
	return env, nil
}

// classifyAnthropicError maps SDK errors onto the connector taxonomy. The
// SDK's error type distinguishes HTTP status via its own hierarchy that
// isn't stable across versions to depend on here, so this relies on the
// request context's deadline for timeouts and otherwise treats failures as
// network/API errors eligible for retry.
func classifyAnthropicError(err error) *Error {
	if err == context.DeadlineExceeded {
		return newError(KindTimeout, err, "anthropic request timed out")
	}
	return newError(KindNetworkError, err, "anthropic completion failed")
}
