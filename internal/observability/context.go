package observability

import (
	"context"
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
)

type contextKey string

const traceIDBytes = 16 // OpenTelemetry trace ID size in bytes

const (
	// TraceIDKey holds the OpenTelemetry trace ID.
	TraceIDKey contextKey = "trace_id"

	// RequestIDKey holds the unique HTTP request identifier.
	RequestIDKey contextKey = "request_id"

	// RecordIDKey holds the id of the stored completion request being worked on.
	RecordIDKey contextKey = "record_id"

	// JobIDKey holds the background job handle.
	JobIDKey contextKey = "job_id"

	// ProviderKey holds the provider name for this request.
	ProviderKey contextKey = "provider"

	// ModelKey holds the engine name for this request.
	ModelKey contextKey = "model"
)

// WithTraceID injects trace ID into context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// WithRequestID injects request ID into context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithRecordID injects the stored request id into context.
func WithRecordID(ctx context.Context, id uint) context.Context {
	return context.WithValue(ctx, RecordIDKey, id)
}

// WithJobID injects the job handle into context.
func WithJobID(ctx context.Context, jobID string) context.Context {
	return context.WithValue(ctx, JobIDKey, jobID)
}

// WithProvider injects provider name into context.
func WithProvider(ctx context.Context, provider string) context.Context {
	return context.WithValue(ctx, ProviderKey, provider)
}

// WithModel injects model name into context.
func WithModel(ctx context.Context, model string) context.Context {
	return context.WithValue(ctx, ModelKey, model)
}

// GetTraceID extracts trace ID from context.
func GetTraceID(ctx context.Context) string { return valueOf[string](ctx, TraceIDKey) }

// GetRequestID extracts request ID from context.
func GetRequestID(ctx context.Context) string { return valueOf[string](ctx, RequestIDKey) }

// GetRecordID extracts the stored request id from context.
func GetRecordID(ctx context.Context) uint { return valueOf[uint](ctx, RecordIDKey) }

// GetJobID extracts the job handle from context.
func GetJobID(ctx context.Context) string { return valueOf[string](ctx, JobIDKey) }

// GetProvider extracts provider name from context.
func GetProvider(ctx context.Context) string { return valueOf[string](ctx, ProviderKey) }

// GetModel extracts model name from context.
func GetModel(ctx context.Context) string { return valueOf[string](ctx, ModelKey) }

func valueOf[T any](ctx context.Context, key contextKey) T {
	v, _ := ctx.Value(key).(T)
	return v
}

// GenerateTraceID generates an OpenTelemetry-compatible trace ID (32 hex chars).
func GenerateTraceID() string {
	bytes := make([]byte, traceIDBytes)
	if _, err := rand.Read(bytes); err != nil {
		return uuid.New().String()
	}
	return hex.EncodeToString(bytes)
}

// GenerateRequestID generates a unique request identifier (UUID).
func GenerateRequestID() string {
	return uuid.New().String()
}
