package llmconn

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/coderisk/gkg/internal/types"
)

// GeminiConnector extracts entities/relations via Gemini's native JSON
// response mode.
type GeminiConnector struct {
	client      *genai.Client
	model       string
	logger      *slog.Logger
	limiter     *RateLimiter
	retryConfig RetryConfig
}

func NewGeminiConnector(ctx context.Context, apiKey, model string, limiter *RateLimiter) (*GeminiConnector, error) {
	if model == "" {
		model = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, newError(KindConfigError, err, "failed to create gemini client")
	}
	return &GeminiConnector{
		client:      client,
		model:       model,
		logger:      slog.Default().With("component", "llmconn.gemini"),
		limiter:     limiter,
		retryConfig: DefaultRetryConfig(),
	}, nil
}

func (c *GeminiConnector) Extract(ctx context.Context, tenant types.TenantID, promptContext string) (types.ExtractionEnvelope, error) {
	ctx, cancel := WithDefaultDeadline(ctx)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return types.ExtractionEnvelope{}, newError(KindTimeout, err, "rate limiter wait cancelled")
	}

	systemPrompt, userPrompt := BuildPrompt(promptContext)
	start := time.Now()

	env, err := withRetry(ctx, c.retryConfig, func(ctx context.Context) (types.ExtractionEnvelope, error) {
		genConfig := &genai.GenerateContentConfig{
			SystemInstruction: genai.Text(systemPrompt)[0],
			Temperature:       ptrFloat32(0.0),
			ResponseMIMEType:  "application/json",
		}

		resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(userPrompt), genConfig)
		if err != nil {
			return types.ExtractionEnvelope{}, classifyGeminiError(err)
		}
		if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
			return types.ExtractionEnvelope{}, newError(KindResponseParseError, nil, "gemini returned no content")
		}

		text := resp.Candidates[0].Content.Parts[0].Text
		env, parseErr := ParseEnvelope(text)
		if parseErr != nil {
			return types.ExtractionEnvelope{}, parseErr
		}
		env.Metadata = types.EnvelopeMetadata{
			Provider:      "gemini",
			Model:         c.model,
			LatencyMillis: time.Since(start).Milliseconds(),
		}
		if resp.UsageMetadata != nil {
			env.Metadata.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
			env.Metadata.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		}
		return env, nil
	})
	if err != nil {
		c.logger.Warn("gemini extraction failed", "tenant", tenant, "error", err)
		return types.ExtractionEnvelope{}, err
	}
	return env, nil
}

func ptrFloat32(f float64) *float32 {
	v := float32(f)
	return &v
}

func classifyGeminiError(err error) *Error {
	if err == context.DeadlineExceeded {
		return newError(KindTimeout, err, "gemini request timed out")
	}
	msg := err.Error()
	if containsAny(msg, "429", "RESOURCE_EXHAUSTED", "Resource exhausted") {
		return newError(KindAPIError, err, "gemini rate limit exhausted")
	}
	if containsAny(msg, "PERMISSION_DENIED", "403") {
		return newError(KindConfigError, err, "gemini API key is invalid or lacks permissions")
	}
	return newError(KindNetworkError, err, "gemini completion failed")
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
