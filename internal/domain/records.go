package domain

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MillisLayout renders timestamps with millisecond precision.
const MillisLayout = "2006-01-02 15:04:05.000"

// PreviewLength is the number of characters kept in admin previews.
const PreviewLength = 100

// Request states as reported by Request.Status.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusCancelled  = "cancelled"
)

// APIKey identifies a caller and carries its upstream credentials.
type APIKey struct {
	ID             uint   `gorm:"primaryKey"`
	Key            string `gorm:"size:255;uniqueIndex;not null"`
	Active         bool   `gorm:"not null"`
	Usage          int64  `gorm:"not null;default:0"`
	OpenAIAPIKey   string `gorm:"column:openai_api_key;size:255"`
	DeepSeekAPIKey string `gorm:"column:deepseek_api_key;size:255"`
	ProxyURL       string `gorm:"size:255"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName pins the table name used by migrations.
func (APIKey) TableName() string { return "api_keys" }

// CredentialFor returns the key's own secret for the named provider, or an
// empty string when the provider's process-wide secret should be used.
func (k *APIKey) CredentialFor(provider string) string {
	switch provider {
	case ProviderOpenAI:
		return k.OpenAIAPIKey
	case ProviderDeepSeek:
		return k.DeepSeekAPIKey
	default:
		return ""
	}
}

// NewAPIKeyToken generates a random token for keys created without one.
func NewAPIKeyToken() string {
	return "pd-" + uuid.NewString()
}

// Request is a stored chat-completion request and its lifecycle state.
type Request struct {
	ID       uint    `gorm:"primaryKey"`
	APIKeyID uint    `gorm:"column:api_key_id;not null;index"`
	APIKey   *APIKey `gorm:"constraint:OnDelete:CASCADE"`

	Prompt           string `gorm:"column:request;type:text;not null"`
	Engine           string `gorm:"size:255;not null;index"`
	Temperature      *float64
	MaxTokens        *int64
	TopP             *float64
	FrequencyPenalty *float64
	PresencePenalty  *float64
	IsJSON           bool `gorm:"column:is_json;not null"`
	Asynchronous     bool `gorm:"not null"`

	Answer           string `gorm:"type:text"`
	PromptTokens     int64
	CompletionTokens int64
	TotalTokens      int64

	JobID string `gorm:"size:64;index"`

	IsProcessing bool `gorm:"not null;index"`
	IsCancelled  bool `gorm:"not null"`
	IsCompleted  bool `gorm:"not null"`
	IsFailed     bool `gorm:"not null"`

	CreatedAt             time.Time `gorm:"index"`
	UpdatedAt             time.Time `gorm:"index"`
	GenerationStartedAt   *time.Time
	GenerationCompletedAt *time.Time
}

// TableName pins the table name used by migrations.
func (Request) TableName() string { return "requests" }

// Status collapses the lifecycle flags into a single label.
func (r *Request) Status() string {
	switch {
	case r.IsProcessing:
		return StatusProcessing
	case r.IsCompleted:
		return StatusCompleted
	case r.IsFailed:
		return StatusFailed
	case r.IsCancelled:
		return StatusCancelled
	default:
		return StatusPending
	}
}

// IsTerminal reports whether the request reached completed, failed or cancelled.
func (r *Request) IsTerminal() bool {
	return r.IsCompleted || r.IsFailed || r.IsCancelled
}

// FormatMillis formats t with millisecond precision. The zero time formats as "".
func FormatMillis(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(MillisLayout)
}

// FormatMillisPtr is FormatMillis for optional timestamps.
func FormatMillisPtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return FormatMillis(*t)
}

// Preview truncates s to PreviewLength characters, appending "..." when cut.
func Preview(s string) string {
	if utf8.RuneCountInString(s) <= PreviewLength {
		return s
	}
	runes := []rune(s)
	return string(runes[:PreviewLength]) + "..."
}

// RequestInput carries caller-supplied fields for create and update.
// A nil pointer means the field was not supplied.
type RequestInput struct {
	Key              *string
	Prompt           *string
	Engine           *string
	Temperature      *float64
	MaxTokens        *int64
	TopP             *float64
	FrequencyPenalty *float64
	PresencePenalty  *float64
	IsJSON           *bool
	Asynchronous     *bool
}

// RequestFilter narrows request listings.
type RequestFilter struct {
	APIKey string
	Engine string
	Search string
	Since  *time.Time
	Until  *time.Time
	Limit  int
	Offset int
}

// APIKeyFilter narrows key listings.
type APIKeyFilter struct {
	Search string
	Active *bool
}

// Answer is what a successful resolution stores on a request.
type Answer struct {
	Text  string
	Usage Usage
}
