package domain

import "time"

// Provider names known to the gateway.
const (
	ProviderOpenAI   = "openai"
	ProviderDeepSeek = "deepseek"
	ProviderEcho     = "echo"
)

// SystemPrompt is sent ahead of every user prompt.
const SystemPrompt = "You are a helpful assistant. You only to write the answer, without any other intro/exit text."

// CompletionRequest represents a unified chat-completion call.
// Nil generation parameters are omitted from the upstream request.
type CompletionRequest struct {
	Model            string
	Messages         []Message
	Temperature      *float64
	MaxTokens        *int64
	TopP             *float64
	FrequencyPenalty *float64
	PresencePenalty  *float64
	JSONMode         bool
	Credentials      Credentials
}

// Credentials carry the per-key secret and outbound proxy for one call.
type Credentials struct {
	APIKey   string
	ProxyURL string
}

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"` // user, assistant, system
	Content string `json:"content"`
}

// CompletionResponse represents a unified provider response.
type CompletionResponse struct {
	ID         string    `json:"id"`
	Model      string    `json:"model"`
	Provider   string    `json:"provider"`
	Content    string    `json:"content"`
	Usage      Usage     `json:"usage"`
	FinishTime time.Time `json:"finish_time"`
}

// Usage tracks token consumption.
type Usage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// Defaults are the process-wide generation parameters applied to new requests.
type Defaults struct {
	Engine           string
	Temperature      *float64
	MaxTokens        *int64
	TopP             *float64
	FrequencyPenalty *float64
	PresencePenalty  *float64
}

// BuildMessages returns the two-message conversation sent for a prompt.
func BuildMessages(prompt string) []Message {
	return []Message{
		{Role: "system", Content: SystemPrompt},
		{Role: "user", Content: prompt},
	}
}
