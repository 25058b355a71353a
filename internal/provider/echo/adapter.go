// Package echo provides an offline provider that echoes the conversation back.
// It implements the domain.Provider interface without making external API
// calls, which makes it useful for local development and end-to-end tests.
package echo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/davidbz/promptdesk/internal/domain"
	"github.com/davidbz/promptdesk/internal/observability"
)

// ModelName is the engine served by the echo provider.
const ModelName = "echo4"

// FailurePrompt makes the provider return an error, to exercise failure paths.
const FailurePrompt = "echo:fail"

// Provider implements the domain.Provider interface for echo testing.
type Provider struct {
	supportedModels map[string]bool
}

// NewProvider creates a new echo provider.
func NewProvider() *Provider {
	return &Provider{
		supportedModels: map[string]bool{
			ModelName: true,
		},
	}
}

// Complete returns the user prompt verbatim. JSON mode wraps it in an object.
func (p *Provider) Complete(ctx context.Context, req *domain.CompletionRequest) (*domain.CompletionResponse, error) {
	if req == nil {
		return nil, errors.New("request cannot be nil")
	}

	if !p.supportedModels[req.Model] {
		return nil, fmt.Errorf("model %s is not supported by echo provider", req.Model)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prompt := lastUserMessage(req.Messages)
	if prompt == FailurePrompt {
		return nil, errors.New("echo provider asked to fail")
	}

	content := prompt
	if req.JSONMode {
		content = fmt.Sprintf("{%q: %q}", "echo", prompt)
	}

	promptTokens := int64(countTokens(req.Messages))
	completionTokens := int64(len(strings.Fields(content)))

	observability.FromContext(ctx).Debug("echo completed",
		observability.Int64("prompt_tokens", promptTokens),
		observability.Int64("completion_tokens", completionTokens),
	)

	return &domain.CompletionResponse{
		ID:       fmt.Sprintf("echo-%d", time.Now().UnixNano()),
		Model:    req.Model,
		Provider: domain.ProviderEcho,
		Content:  content,
		Usage: domain.Usage{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			TotalTokens:      promptTokens + completionTokens,
		},
		FinishTime: time.Now(),
	}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return domain.ProviderEcho
}

// IsModelSupported checks if the provider supports the given model.
func (p *Provider) IsModelSupported(_ context.Context, model string) bool {
	return p.supportedModels[model]
}

// SupportedModels returns a list of all models this provider supports.
func (p *Provider) SupportedModels(_ context.Context) []string {
	models := make([]string, 0, len(p.supportedModels))
	for model := range p.supportedModels {
		models = append(models, model)
	}
	return models
}

func lastUserMessage(messages []domain.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content
		}
	}
	return ""
}

// countTokens performs simple word-based token counting.
func countTokens(messages []domain.Message) int {
	total := 0
	for _, msg := range messages {
		total += len(strings.Fields(msg.Content))
	}
	return total
}
