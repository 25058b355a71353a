package http

import (
	"time"

	"github.com/davidbz/promptdesk/internal/domain"
)

// requestPayload is the body accepted by create and update. Absent and null
// fields decode to nil.
type requestPayload struct {
	Key              *string  `json:"key"`
	Request          *string  `json:"request"`
	Engine           *string  `json:"engine"`
	Temperature      *float64 `json:"temperature"`
	MaxTokens        *int64   `json:"max_tokens"`
	TopP             *float64 `json:"top_p"`
	FrequencyPenalty *float64 `json:"frequency_penalty"`
	PresencePenalty  *float64 `json:"presence_penalty"`
	IsJSON           *bool    `json:"is_json"`
	Asynchronous     *bool    `json:"asynchronous"`
}

func (p requestPayload) toInput() domain.RequestInput {
	return domain.RequestInput{
		Key:              p.Key,
		Prompt:           p.Request,
		Engine:           p.Engine,
		Temperature:      p.Temperature,
		MaxTokens:        p.MaxTokens,
		TopP:             p.TopP,
		FrequencyPenalty: p.FrequencyPenalty,
		PresencePenalty:  p.PresencePenalty,
		IsJSON:           p.IsJSON,
		Asynchronous:     p.Asynchronous,
	}
}

type requestResponse struct {
	ID                      uint       `json:"id"`
	APIKeyID                uint       `json:"api_key_id"`
	Request                 string     `json:"request"`
	Engine                  string     `json:"engine"`
	Temperature             *float64   `json:"temperature"`
	MaxTokens               *int64     `json:"max_tokens"`
	TopP                    *float64   `json:"top_p"`
	FrequencyPenalty        *float64   `json:"frequency_penalty"`
	PresencePenalty         *float64   `json:"presence_penalty"`
	IsJSON                  bool       `json:"is_json"`
	Asynchronous            bool       `json:"asynchronous"`
	Answer                  string     `json:"answer"`
	PromptTokens            int64      `json:"prompt_tokens"`
	CompletionTokens        int64      `json:"completion_tokens"`
	TotalTokens             int64      `json:"total_tokens"`
	JobID                   string     `json:"job_id"`
	IsProcessing            bool       `json:"is_processing"`
	IsCancelled             bool       `json:"is_cancelled"`
	IsCompleted             bool       `json:"is_completed"`
	IsFailed                bool       `json:"is_failed"`
	Status                  string     `json:"status"`
	Timestamp               time.Time  `json:"timestamp"`
	CreatedAt               time.Time  `json:"created_at"`
	GenerationStartedAt     *time.Time `json:"generation_started_at"`
	GenerationCompletedAt   *time.Time `json:"generation_completed_at"`
	CreatedAtMs             string     `json:"created_at_ms"`
	GenerationStartedAtMs   string     `json:"generation_started_at_ms"`
	GenerationCompletedAtMs string     `json:"generation_completed_at_ms"`
}

func newRequestResponse(req *domain.Request) requestResponse {
	return requestResponse{
		ID:                      req.ID,
		APIKeyID:                req.APIKeyID,
		Request:                 req.Prompt,
		Engine:                  req.Engine,
		Temperature:             req.Temperature,
		MaxTokens:               req.MaxTokens,
		TopP:                    req.TopP,
		FrequencyPenalty:        req.FrequencyPenalty,
		PresencePenalty:         req.PresencePenalty,
		IsJSON:                  req.IsJSON,
		Asynchronous:            req.Asynchronous,
		Answer:                  req.Answer,
		PromptTokens:            req.PromptTokens,
		CompletionTokens:        req.CompletionTokens,
		TotalTokens:             req.TotalTokens,
		JobID:                   req.JobID,
		IsProcessing:            req.IsProcessing,
		IsCancelled:             req.IsCancelled,
		IsCompleted:             req.IsCompleted,
		IsFailed:                req.IsFailed,
		Status:                  req.Status(),
		Timestamp:               req.UpdatedAt,
		CreatedAt:               req.CreatedAt,
		GenerationStartedAt:     req.GenerationStartedAt,
		GenerationCompletedAt:   req.GenerationCompletedAt,
		CreatedAtMs:             domain.FormatMillis(req.CreatedAt),
		GenerationStartedAtMs:   domain.FormatMillisPtr(req.GenerationStartedAt),
		GenerationCompletedAtMs: domain.FormatMillisPtr(req.GenerationCompletedAt),
	}
}

func newRequestResponses(reqs []domain.Request) []requestResponse {
	out := make([]requestResponse, 0, len(reqs))
	for i := range reqs {
		out = append(out, newRequestResponse(&reqs[i]))
	}
	return out
}

// adminRequestRow is one line of the admin request list.
type adminRequestRow struct {
	ID                      uint   `json:"id"`
	Key                     string `json:"key"`
	ShortRequest            string `json:"short_request"`
	ShortAnswer             string `json:"short_answer"`
	Engine                  string `json:"engine"`
	Status                  string `json:"status"`
	IsCompleted             bool   `json:"is_completed"`
	IsFailed                bool   `json:"is_failed"`
	IsJSON                  bool   `json:"is_json"`
	Asynchronous            bool   `json:"asynchronous"`
	CreatedAtMs             string `json:"created_at_ms"`
	TimestampMs             string `json:"timestamp_ms"`
	GenerationStartedAtMs   string `json:"generation_started_at_ms"`
	GenerationCompletedAtMs string `json:"generation_completed_at_ms"`
}

func newAdminRequestRow(req *domain.Request) adminRequestRow {
	return adminRequestRow{
		ID:                      req.ID,
		Key:                     keyToken(req),
		ShortRequest:            domain.Preview(req.Prompt),
		ShortAnswer:             domain.Preview(req.Answer),
		Engine:                  req.Engine,
		Status:                  req.Status(),
		IsCompleted:             req.IsCompleted,
		IsFailed:                req.IsFailed,
		IsJSON:                  req.IsJSON,
		Asynchronous:            req.Asynchronous,
		CreatedAtMs:             domain.FormatMillis(req.CreatedAt),
		TimestampMs:             domain.FormatMillis(req.UpdatedAt),
		GenerationStartedAtMs:   domain.FormatMillisPtr(req.GenerationStartedAt),
		GenerationCompletedAtMs: domain.FormatMillisPtr(req.GenerationCompletedAt),
	}
}

func newAdminRequestRows(reqs []domain.Request) []adminRequestRow {
	out := make([]adminRequestRow, 0, len(reqs))
	for i := range reqs {
		out = append(out, newAdminRequestRow(&reqs[i]))
	}
	return out
}

// adminRequestDetail groups a request's fields the way the admin detail page
// presents them.
type adminRequestDetail struct {
	ID           uint               `json:"id"`
	Main         adminMainSection   `json:"main"`
	Advanced     adminAdvanced      `json:"advanced"`
	Status       adminStatusSection `json:"status"`
	ExtraOptions adminExtraOptions  `json:"extra_options"`
}

type adminMainSection struct {
	Key          string `json:"key"`
	Request      string `json:"request"`
	Engine       string `json:"engine"`
	Answer       string `json:"answer"`
	IsJSON       bool   `json:"is_json"`
	Asynchronous bool   `json:"asynchronous"`
	CreatedAtMs  string `json:"created_at_ms"`
}

type adminAdvanced struct {
	PromptTokens            int64  `json:"prompt_tokens"`
	CompletionTokens        int64  `json:"completion_tokens"`
	TotalTokens             int64  `json:"total_tokens"`
	JobID                   string `json:"job_id"`
	GenerationStartedAtMs   string `json:"generation_started_at_ms"`
	GenerationCompletedAtMs string `json:"generation_completed_at_ms"`
}

type adminStatusSection struct {
	IsProcessing bool `json:"is_processing"`
	IsCancelled  bool `json:"is_cancelled"`
	IsCompleted  bool `json:"is_completed"`
	IsFailed     bool `json:"is_failed"`
}

type adminExtraOptions struct {
	Temperature      *float64 `json:"temperature"`
	MaxTokens        *int64   `json:"max_tokens"`
	TopP             *float64 `json:"top_p"`
	FrequencyPenalty *float64 `json:"frequency_penalty"`
	PresencePenalty  *float64 `json:"presence_penalty"`
}

func newAdminRequestDetail(req *domain.Request) adminRequestDetail {
	return adminRequestDetail{
		ID: req.ID,
		Main: adminMainSection{
			Key:          keyToken(req),
			Request:      req.Prompt,
			Engine:       req.Engine,
			Answer:       req.Answer,
			IsJSON:       req.IsJSON,
			Asynchronous: req.Asynchronous,
			CreatedAtMs:  domain.FormatMillis(req.CreatedAt),
		},
		Advanced: adminAdvanced{
			PromptTokens:            req.PromptTokens,
			CompletionTokens:        req.CompletionTokens,
			TotalTokens:             req.TotalTokens,
			JobID:                   req.JobID,
			GenerationStartedAtMs:   domain.FormatMillisPtr(req.GenerationStartedAt),
			GenerationCompletedAtMs: domain.FormatMillisPtr(req.GenerationCompletedAt),
		},
		Status: adminStatusSection{
			IsProcessing: req.IsProcessing,
			IsCancelled:  req.IsCancelled,
			IsCompleted:  req.IsCompleted,
			IsFailed:     req.IsFailed,
		},
		ExtraOptions: adminExtraOptions{
			Temperature:      req.Temperature,
			MaxTokens:        req.MaxTokens,
			TopP:             req.TopP,
			FrequencyPenalty: req.FrequencyPenalty,
			PresencePenalty:  req.PresencePenalty,
		},
	}
}

func keyToken(req *domain.Request) string {
	if req.APIKey == nil {
		return ""
	}
	return req.APIKey.Key
}

// apiKeyPayload is the admin body for key create and update.
type apiKeyPayload struct {
	Key            *string `json:"key"`
	Active         *bool   `json:"active"`
	OpenAIAPIKey   *string `json:"openai_api_key"`
	DeepSeekAPIKey *string `json:"deepseek_api_key"`
	ProxyURL       *string `json:"proxy_url"`
}

func (p apiKeyPayload) apply(key *domain.APIKey) {
	if p.Key != nil {
		key.Key = *p.Key
	}
	if p.Active != nil {
		key.Active = *p.Active
	}
	if p.OpenAIAPIKey != nil {
		key.OpenAIAPIKey = *p.OpenAIAPIKey
	}
	if p.DeepSeekAPIKey != nil {
		key.DeepSeekAPIKey = *p.DeepSeekAPIKey
	}
	if p.ProxyURL != nil {
		key.ProxyURL = *p.ProxyURL
	}
}

type apiKeyResponse struct {
	ID             uint      `json:"id"`
	Key            string    `json:"key"`
	Active         bool      `json:"active"`
	Usage          int64     `json:"usage"`
	OpenAIAPIKey   string    `json:"openai_api_key"`
	DeepSeekAPIKey string    `json:"deepseek_api_key"`
	ProxyURL       string    `json:"proxy_url"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func newAPIKeyResponse(key *domain.APIKey) apiKeyResponse {
	return apiKeyResponse{
		ID:             key.ID,
		Key:            key.Key,
		Active:         key.Active,
		Usage:          key.Usage,
		OpenAIAPIKey:   key.OpenAIAPIKey,
		DeepSeekAPIKey: key.DeepSeekAPIKey,
		ProxyURL:       key.ProxyURL,
		CreatedAt:      key.CreatedAt,
		UpdatedAt:      key.UpdatedAt,
	}
}

type bulkPayload struct {
	IDs []uint `json:"ids"`
}

type bulkResponse struct {
	Updated []adminRequestRow `json:"updated"`
	Failed  map[uint]string   `json:"failed"`
}

func newBulkResponse(result domain.BulkResult) bulkResponse {
	return bulkResponse{
		Updated: newAdminRequestRows(result.Updated),
		Failed:  result.Failed,
	}
}
