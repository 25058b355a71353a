package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/davidbz/promptdesk/internal/domain"
)

// Registry implements the ProviderRegistry interface.
//
// Engines resolve in this order: explicit routes, the providers' declared
// model lists, the providers' own IsModelSupported checks in registration
// order, and finally the fallback provider.
type Registry struct {
	mu              sync.RWMutex
	providers       map[string]domain.Provider
	order           []string
	modelToProvider map[string]string
	routes          map[string]string
	fallback        string
}

// NewRegistry creates a new provider registry. routes maps engine names to
// provider names; fallback names the provider used for unclaimed engines.
func NewRegistry(routes map[string]string, fallback string) *Registry {
	copied := make(map[string]string, len(routes))
	for model, provider := range routes {
		copied[model] = provider
	}

	return &Registry{
		mu:              sync.RWMutex{},
		providers:       make(map[string]domain.Provider),
		modelToProvider: make(map[string]string),
		routes:          copied,
		fallback:        fallback,
	}
}

// Register adds a provider to the registry.
func (r *Registry) Register(ctx context.Context, provider domain.Provider) error {
	if provider == nil {
		return errors.New("provider cannot be nil")
	}

	name := provider.Name()
	if name == "" {
		return errors.New("provider name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[name]; exists {
		return fmt.Errorf("provider %s already registered", name)
	}

	r.providers[name] = provider
	r.order = append(r.order, name)

	for _, model := range provider.SupportedModels(ctx) {
		if _, claimed := r.modelToProvider[model]; !claimed {
			r.modelToProvider[model] = name
		}
	}

	return nil
}

// Get retrieves a provider by name.
func (r *Registry) Get(_ context.Context, providerName string) (domain.Provider, error) {
	if providerName == "" {
		return nil, errors.New("provider name cannot be empty")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	provider, exists := r.providers[providerName]
	if !exists {
		return nil, fmt.Errorf("provider %s not found: %w", providerName, domain.ErrProviderNotFound)
	}

	return provider, nil
}

// List returns all available providers in registration order.
func (r *Registry) List(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)

	return names, nil
}

// GetByModel resolves the provider that serves the given engine.
func (r *Registry) GetByModel(ctx context.Context, model string) (domain.Provider, error) {
	if model == "" {
		return nil, errors.New("model cannot be empty")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if providerName, routed := r.routes[model]; routed {
		provider, exists := r.providers[providerName]
		if !exists {
			return nil, fmt.Errorf("engine %s is routed to unregistered provider %s: %w",
				model, providerName, domain.ErrProviderNotFound)
		}
		return provider, nil
	}

	if providerName, indexed := r.modelToProvider[model]; indexed {
		return r.providers[providerName], nil
	}

	for _, name := range r.order {
		if provider := r.providers[name]; provider.IsModelSupported(ctx, model) {
			return provider, nil
		}
	}

	if provider, exists := r.providers[r.fallback]; exists {
		return provider, nil
	}

	return nil, fmt.Errorf("no provider found for model %s: %w", model, domain.ErrProviderNotFound)
}
