package openai

import "time"

// Config describes one OpenAI-compatible upstream. The same adapter serves
// OpenAI and DeepSeek; they differ only in name, base URL, credentials,
// engine ownership and proxy policy.
//   - APIKey: process-wide credential, used when the caller's key has none
//   - BaseURL: maps to option.WithBaseURL()
//   - UseProxy: route calls through the caller's proxy URL when one is given
//   - Models / ModelPrefixes: engines this provider claims
type Config struct {
	Name          string
	APIKey        string
	BaseURL       string
	UseProxy      bool
	Models        []string
	ModelPrefixes []string
	Timeouts      Timeouts
}

// Timeouts bound the outbound HTTP call.
type Timeouts struct {
	Connect time.Duration
	Write   time.Duration
	Read    time.Duration
	Pool    time.Duration
}
