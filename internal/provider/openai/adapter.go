// Package openai provides an adapter for OpenAI-compatible chat-completion
// APIs using the official SDK. It implements the domain.Provider interface
// and serves both the primary (OpenAI) and secondary (DeepSeek) upstreams.
package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/davidbz/promptdesk/internal/domain"
	"github.com/davidbz/promptdesk/internal/observability"
)

// Provider implements the domain.Provider interface for an OpenAI-compatible API.
type Provider struct {
	config  Config
	models  map[string]bool
	clients *clientPool
}

// NewProvider creates a new OpenAI-compatible provider.
func NewProvider(config Config) (*Provider, error) {
	if config.Name == "" {
		return nil, errors.New("provider name is required")
	}
	if config.BaseURL == "" {
		return nil, fmt.Errorf("%s base URL is required", config.Name)
	}

	return &Provider{
		config:  config,
		models:  buildModelSet(config.Models),
		clients: newClientPool(config.Timeouts),
	}, nil
}

// Complete sends a completion request and returns the full response.
func (p *Provider) Complete(ctx context.Context, req *domain.CompletionRequest) (*domain.CompletionResponse, error) {
	if req == nil {
		return nil, errors.New("request cannot be nil")
	}

	logger := observability.FromContext(ctx)

	apiKey := req.Credentials.APIKey
	if apiKey == "" {
		apiKey = p.config.APIKey
	}
	if apiKey == "" {
		return nil, fmt.Errorf("no %s credentials configured", p.config.Name)
	}

	route := directRoute
	if p.config.UseProxy {
		route = req.Credentials.ProxyURL
	}

	httpClient, err := p.clients.get(route)
	if err != nil {
		return nil, err
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(p.config.BaseURL),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	)

	logger.Debug("calling chat completion API", observability.Bool("proxied", route != directRoute))

	resp, err := client.Chat.Completions.New(ctx, p.toSDKParams(req))
	if err != nil {
		logger.Error("chat completion API call failed", observability.Error(err))
		return nil, fmt.Errorf("%s API call failed: %w", p.config.Name, err)
	}

	logger.Debug("chat completion API call succeeded",
		observability.Int64("prompt_tokens", resp.Usage.PromptTokens),
		observability.Int64("completion_tokens", resp.Usage.CompletionTokens),
	)

	return p.toDomainResponse(resp), nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return p.config.Name
}

// IsModelSupported reports whether the engine is listed or matches one of
// the provider's prefixes.
func (p *Provider) IsModelSupported(_ context.Context, model string) bool {
	return p.models[model] || hasAnyPrefix(model, p.config.ModelPrefixes)
}

// SupportedModels returns the explicitly listed engines.
func (p *Provider) SupportedModels(_ context.Context) []string {
	models := make([]string, 0, len(p.models))
	for model := range p.models {
		models = append(models, model)
	}
	return models
}

// toSDKParams converts a domain request to SDK ChatCompletionNewParams.
// Unset generation parameters stay omitted.
func (p *Provider) toSDKParams(req *domain.CompletionRequest) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, len(req.Messages))
	for i, msg := range req.Messages {
		switch msg.Role {
		case "system":
			messages[i] = openai.SystemMessage(msg.Content)
		case "assistant":
			messages[i] = openai.AssistantMessage(msg.Content)
		default:
			messages[i] = openai.UserMessage(msg.Content)
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(req.Model),
		Messages: messages,
	}

	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	if req.MaxTokens != nil {
		params.MaxTokens = openai.Int(*req.MaxTokens)
	}
	if req.TopP != nil {
		params.TopP = openai.Float(*req.TopP)
	}
	if req.FrequencyPenalty != nil {
		params.FrequencyPenalty = openai.Float(*req.FrequencyPenalty)
	}
	if req.PresencePenalty != nil {
		params.PresencePenalty = openai.Float(*req.PresencePenalty)
	}
	if req.JSONMode {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	return params
}

// toDomainResponse converts an SDK response to a domain response.
func (p *Provider) toDomainResponse(resp *openai.ChatCompletion) *domain.CompletionResponse {
	content := ""
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
	}

	return &domain.CompletionResponse{
		ID:       resp.ID,
		Model:    string(resp.Model),
		Provider: p.config.Name,
		Content:  content,
		Usage: domain.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
		FinishTime: time.Now(),
	}
}
