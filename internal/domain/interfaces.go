package domain

import (
	"context"
	"time"
)

// Provider represents an upstream chat-completion API.
type Provider interface {
	// Complete sends a completion request and returns the full response.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// Name returns the provider identifier.
	Name() string

	// IsModelSupported checks if the provider claims the given engine.
	IsModelSupported(ctx context.Context, model string) bool

	// SupportedModels returns the engines the provider declares explicitly.
	SupportedModels(ctx context.Context) []string
}

// ProviderRegistry manages available providers.
type ProviderRegistry interface {
	// Register adds a provider to the registry.
	Register(ctx context.Context, provider Provider) error

	// Get retrieves a provider by name.
	Get(ctx context.Context, providerName string) (Provider, error)

	// List returns all available providers.
	List(ctx context.Context) ([]string, error)

	// GetByModel resolves the provider that serves an engine.
	GetByModel(ctx context.Context, model string) (Provider, error)
}

// Gateway issues the upstream call for a stored request.
type Gateway interface {
	Ask(ctx context.Context, key *APIKey, req *Request) (*CompletionResponse, error)
}

// Dispatcher schedules background resolution jobs.
type Dispatcher interface {
	// Enqueue schedules resolution of a request under the given job handle.
	Enqueue(ctx context.Context, jobID string, requestID uint) error

	// Terminate revokes a queued job and interrupts it if running.
	Terminate(ctx context.Context, jobID string) error
}

// APIKeyStore persists API keys.
type APIKeyStore interface {
	GetAPIKeyByKey(ctx context.Context, key string) (*APIKey, error)
	GetAPIKey(ctx context.Context, id uint) (*APIKey, error)
	ListAPIKeys(ctx context.Context, filter APIKeyFilter) ([]APIKey, error)
	CreateAPIKey(ctx context.Context, key *APIKey) error
	UpdateAPIKey(ctx context.Context, key *APIKey) error
	// DeleteAPIKey removes the key together with all of its requests.
	DeleteAPIKey(ctx context.Context, id uint) error
}

// RequestStore persists requests. Every lifecycle method commits its own
// transaction and touches only the columns it owns.
type RequestStore interface {
	// CreateRequest inserts req and increments the owning key's usage atomically.
	CreateRequest(ctx context.Context, req *Request) error
	GetRequest(ctx context.Context, id uint) (*Request, error)
	ListRequests(ctx context.Context, filter RequestFilter) ([]Request, error)
	UpdateRequestInput(ctx context.Context, req *Request) error
	DeleteRequest(ctx context.Context, id uint) error

	// ClaimJobID sets the job handle only if none is stored yet and reports
	// whether this caller won the claim.
	ClaimJobID(ctx context.Context, id uint, jobID string) (bool, error)
	ReleaseJobID(ctx context.Context, id uint, jobID string) error

	// MarkProcessing starts an explicit resolution, clearing any previous
	// outcome including a cancellation.
	MarkProcessing(ctx context.Context, id uint, at time.Time) error
	// ClaimProcessing starts a resolution only if the request is still pending
	// and reports whether it did.
	ClaimProcessing(ctx context.Context, id uint, at time.Time) (bool, error)
	// MarkCompleted stores the answer unless the request was cancelled in the
	// meantime, in which case it only clears is_processing and returns false.
	MarkCompleted(ctx context.Context, id uint, answer Answer, at time.Time) (bool, error)
	MarkFailed(ctx context.Context, id uint, at time.Time) error
	MarkAborted(ctx context.Context, id uint, at time.Time) error
	// MarkCancelled flags a request that has not finished and reports whether
	// it did.
	MarkCancelled(ctx context.Context, id uint) (bool, error)

	// ListUnscheduled returns asynchronous pending requests without a job
	// handle created before the cut-off.
	ListUnscheduled(ctx context.Context, before time.Time, limit int) ([]Request, error)
}
