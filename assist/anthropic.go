// Package assist wraps the optional text-generation collaborator used by
// some workflows to auto-draft content. The engine treats it as an
// externally-awaited call: failures surface as a user-visible message and
// never corrupt the session.
package assist

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/getsentry/sentry-go"
)

const systemPrompt = "Ты помощник QA-инженера. Отвечай кратко и по делу, " +
	"на русском языке, без markdown-разметки. Пиши только сам текст, без " +
	"вступлений и пояснений."

// Generator produces draft text from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// AnthropicClient implements Generator using the Anthropic API.
type AnthropicClient struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
	log       *slog.Logger
}

// NewAnthropicClient creates an Anthropic-backed generator. The API key is
// read from the environment by the SDK.
func NewAnthropicClient(model anthropic.Model, maxTokens int64, log *slog.Logger) *AnthropicClient {
	return &AnthropicClient{
		client:    anthropic.NewClient(),
		model:     model,
		maxTokens: maxTokens,
		log:       log,
	}
}

// Generate sends the prompt to Claude and returns the response text.
func (c *AnthropicClient) Generate(ctx context.Context, prompt string) (string, error) {
	span := sentry.StartSpan(ctx, "gen_ai.chat", sentry.WithDescription(fmt.Sprintf("chat %s", c.model)))
	span.SetData("gen_ai.operation.name", "chat")
	span.SetData("gen_ai.request.model", string(c.model))
	span.SetData("gen_ai.request.max_tokens", c.maxTokens)
	span.SetData("gen_ai.system", "anthropic")
	ctx = span.Context()
	defer span.Finish()

	start := time.Now()
	c.log.Debug("anthropic call starting", "model", c.model, "promptLen", len(prompt))

	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System: []anthropic.TextBlockParam{
			{Type: "text", Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})

	duration := time.Since(start)
	if err != nil {
		c.log.Error("anthropic call failed", "duration", duration, "error", err)
		recordRequest(duration, err)
		span.Status = sentry.SpanStatusInternalError
		return "", fmt.Errorf("anthropic API error: %w", err)
	}

	c.log.Debug("anthropic call completed",
		"duration", duration,
		"stopReason", msg.StopReason,
		"inputTokens", msg.Usage.InputTokens,
		"outputTokens", msg.Usage.OutputTokens,
	)
	recordRequest(duration, nil)
	recordTokens(msg.Usage.InputTokens, msg.Usage.OutputTokens)

	span.SetData("gen_ai.usage.input_tokens", msg.Usage.InputTokens)
	span.SetData("gen_ai.usage.output_tokens", msg.Usage.OutputTokens)
	span.Status = sentry.SpanStatusOK

	for _, block := range msg.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("no text content in response")
}
