package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/davidbz/promptdesk/internal/observability"
)

// GatewayService routes stored requests to the provider serving their engine.
type GatewayService struct {
	registry        ProviderRegistry
	defaultProxyURL string
}

// NewGatewayService creates a new gateway service. defaultProxyURL applies to
// keys that carry no proxy of their own.
func NewGatewayService(registry ProviderRegistry, defaultProxyURL string) *GatewayService {
	return &GatewayService{
		registry:        registry,
		defaultProxyURL: defaultProxyURL,
	}
}

// Ask sends the request's prompt upstream using the key's credentials.
func (g *GatewayService) Ask(ctx context.Context, key *APIKey, req *Request) (*CompletionResponse, error) {
	if key == nil {
		return nil, errors.New("api key cannot be nil")
	}
	if req == nil {
		return nil, errors.New("request cannot be nil")
	}
	if req.Engine == "" {
		return nil, errors.New("engine cannot be empty")
	}

	provider, err := g.registry.GetByModel(ctx, req.Engine)
	if err != nil {
		return nil, fmt.Errorf("provider routing failed: %w", err)
	}

	ctx = observability.WithProvider(ctx, provider.Name())
	ctx = observability.WithModel(ctx, req.Engine)

	proxyURL := key.ProxyURL
	if proxyURL == "" {
		proxyURL = g.defaultProxyURL
	}

	completion := &CompletionRequest{
		Model:            req.Engine,
		Messages:         BuildMessages(req.Prompt),
		Temperature:      req.Temperature,
		MaxTokens:        req.MaxTokens,
		TopP:             req.TopP,
		FrequencyPenalty: req.FrequencyPenalty,
		PresencePenalty:  req.PresencePenalty,
		JSONMode:         req.IsJSON,
		Credentials: Credentials{
			APIKey:   key.CredentialFor(provider.Name()),
			ProxyURL: proxyURL,
		},
	}

	observability.FromContext(ctx).Info("asking provider",
		observability.Bool("json_mode", completion.JSONMode),
		observability.Int("prompt_chars", len(req.Prompt)),
	)

	response, err := provider.Complete(ctx, completion)
	if err != nil {
		return nil, fmt.Errorf("completion failed: %w", err)
	}

	return response, nil
}
