package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/davidbz/promptdesk/internal/observability"
)

// RequestService owns the lifecycle of stored completion requests.
type RequestService struct {
	keys       APIKeyStore
	requests   RequestStore
	gateway    Gateway
	dispatcher Dispatcher
	defaults   Defaults
	now        func() time.Time
}

// NewRequestService creates a new request service (DI constructor).
func NewRequestService(
	keys APIKeyStore,
	requests RequestStore,
	gateway Gateway,
	dispatcher Dispatcher,
	defaults Defaults,
) *RequestService {
	return &RequestService{
		keys:       keys,
		requests:   requests,
		gateway:    gateway,
		dispatcher: dispatcher,
		defaults:   defaults,
		now:        time.Now,
	}
}

// BulkResult reports the outcome of an action applied to several requests.
type BulkResult struct {
	Updated []Request
	Failed  map[uint]string
}

// CreateAndSchedule validates the input, stores a new request and either
// enqueues it or resolves it inline depending on its asynchronous flag.
func (s *RequestService) CreateAndSchedule(ctx context.Context, in RequestInput) (*Request, error) {
	if verr := validateInput(in, false); verr != nil {
		return nil, verr
	}

	key, err := s.activeKey(ctx, *in.Key)
	if err != nil {
		return nil, err
	}

	req := &Request{
		APIKeyID:     key.ID,
		Prompt:       *in.Prompt,
		Engine:       s.defaults.Engine,
		Asynchronous: true,
	}
	applyInput(req, in)
	s.applyDefaults(req)

	if err := s.requests.CreateRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to store request: %w", err)
	}

	ctx = observability.WithRecordID(ctx, req.ID)
	observability.FromContext(ctx).Info("request created",
		observability.String("engine", req.Engine),
		observability.Bool("asynchronous", req.Asynchronous),
	)

	if !req.Asynchronous {
		return s.Resolve(ctx, req.ID)
	}

	s.schedule(ctx, req)
	return s.requests.GetRequest(ctx, req.ID)
}

// Get returns a request by id.
func (s *RequestService) Get(ctx context.Context, id uint) (*Request, error) {
	return s.requests.GetRequest(ctx, id)
}

// List returns requests matching filter, newest first.
func (s *RequestService) List(ctx context.Context, filter RequestFilter) ([]Request, error) {
	return s.requests.ListRequests(ctx, filter)
}

// Update changes caller-editable fields. With partial unset, key and prompt
// are mandatory. Updating never reschedules the request.
func (s *RequestService) Update(ctx context.Context, id uint, in RequestInput, partial bool) (*Request, error) {
	if verr := validateInput(in, partial); verr != nil {
		return nil, verr
	}

	req, err := s.requests.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Key != nil {
		key, keyErr := s.activeKey(ctx, *in.Key)
		if keyErr != nil {
			return nil, keyErr
		}
		req.APIKeyID = key.ID
	}
	if in.Prompt != nil {
		req.Prompt = *in.Prompt
	}
	applyInput(req, in)

	if err := s.requests.UpdateRequestInput(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to update request: %w", err)
	}
	return s.requests.GetRequest(ctx, id)
}

// Resolve runs the upstream call for a request. The start, success and
// failure steps are each committed separately. Provider failures are logged
// and recorded on the request; the returned error covers storage problems only.
func (s *RequestService) Resolve(ctx context.Context, id uint) (*Request, error) {
	ctx = observability.WithRecordID(ctx, id)

	req, err := s.requests.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}

	started := s.now()
	if err := s.requests.MarkProcessing(ctx, id, started); err != nil {
		return nil, fmt.Errorf("failed to mark request processing: %w", err)
	}

	return s.run(ctx, req, started)
}

// ResolveJob is the background worker entry point. It only runs requests that
// are still pending; missing, cancelled or already started ones are skipped.
func (s *RequestService) ResolveJob(ctx context.Context, id uint) error {
	ctx = observability.WithRecordID(ctx, id)
	logger := observability.FromContext(ctx)

	started := s.now()
	claimed, err := s.requests.ClaimProcessing(ctx, id, started)
	if err != nil {
		return err
	}
	if !claimed {
		logger.Info("request missing or no longer pending, skipping job")
		return nil
	}

	req, err := s.requests.GetRequest(ctx, id)
	if errors.Is(err, ErrRequestNotFound) {
		logger.Info("request vanished before its job ran, skipping")
		return nil
	}
	if err != nil {
		if markErr := s.requests.MarkFailed(context.WithoutCancel(ctx), id, s.now()); markErr != nil {
			logger.Error("failed to mark request failed", observability.Error(markErr))
		}
		return err
	}

	_, err = s.run(ctx, req, started)
	return err
}

// run performs the upstream call for a request already marked processing and
// records the outcome.
func (s *RequestService) run(ctx context.Context, req *Request, started time.Time) (*Request, error) {
	id := req.ID
	logger := observability.FromContext(ctx)

	response, askErr := s.ask(ctx, req)
	finished := s.now()

	// Terminal writes must land even when the job context was cancelled.
	persistCtx := context.WithoutCancel(ctx)

	switch {
	case askErr == nil:
		stored, markErr := s.requests.MarkCompleted(persistCtx, id, Answer{
			Text:  response.Content,
			Usage: response.Usage,
		}, finished)
		if markErr != nil {
			return nil, fmt.Errorf("failed to store answer: %w", markErr)
		}
		if !stored {
			logger.Info("request cancelled while in flight, answer discarded")
		} else {
			logger.Info("request completed",
				observability.Int64("total_tokens", response.Usage.TotalTokens),
				observability.Duration("elapsed", finished.Sub(started)),
			)
		}
	case errors.Is(context.Cause(ctx), ErrJobTerminated):
		logger.Info("request resolution terminated")
		if markErr := s.requests.MarkAborted(persistCtx, id, finished); markErr != nil {
			return nil, fmt.Errorf("failed to mark request aborted: %w", markErr)
		}
	default:
		logger.Error("request resolution failed", observability.Error(askErr))
		if markErr := s.requests.MarkFailed(persistCtx, id, finished); markErr != nil {
			return nil, fmt.Errorf("failed to mark request failed: %w", markErr)
		}
	}

	return s.requests.GetRequest(persistCtx, id)
}

// Cancel flags the request as cancelled and asks the dispatcher to terminate
// its job if one was scheduled.
func (s *RequestService) Cancel(ctx context.Context, id uint) (*Request, error) {
	ctx = observability.WithRecordID(ctx, id)
	logger := observability.FromContext(ctx)

	req, err := s.requests.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}

	cancelled, err := s.requests.MarkCancelled(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel request: %w", err)
	}
	if !cancelled {
		logger.Info("request already finished, nothing to cancel")
		return s.requests.GetRequest(ctx, id)
	}

	if req.JobID != "" {
		if err := s.dispatcher.Terminate(ctx, req.JobID); err != nil {
			logger.Warn("failed to terminate job", observability.String("job_id", req.JobID), observability.Error(err))
		}
	}

	logger.Info("request cancelled")
	return s.requests.GetRequest(ctx, id)
}

// Delete cancels the request and removes it.
func (s *RequestService) Delete(ctx context.Context, id uint) error {
	if _, err := s.Cancel(ctx, id); err != nil {
		return err
	}
	if err := s.requests.DeleteRequest(ctx, id); err != nil {
		return fmt.Errorf("failed to delete request: %w", err)
	}
	return nil
}

// CancelMany applies Cancel to every id.
func (s *RequestService) CancelMany(ctx context.Context, ids []uint) BulkResult {
	return s.bulk(ctx, ids, s.Cancel)
}

// ResolveMany applies Resolve to every id, one after another.
func (s *RequestService) ResolveMany(ctx context.Context, ids []uint) BulkResult {
	return s.bulk(ctx, ids, s.Resolve)
}

// ScheduleOrphans enqueues asynchronous requests that never received a job
// handle, for example because the queue was unreachable at creation time.
func (s *RequestService) ScheduleOrphans(ctx context.Context, grace time.Duration, limit int) (int, error) {
	orphans, err := s.requests.ListUnscheduled(ctx, s.now().Add(-grace), limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list unscheduled requests: %w", err)
	}

	scheduled := 0
	for i := range orphans {
		if s.schedule(observability.WithRecordID(ctx, orphans[i].ID), &orphans[i]) {
			scheduled++
		}
	}
	return scheduled, nil
}

func (s *RequestService) bulk(
	ctx context.Context,
	ids []uint,
	action func(context.Context, uint) (*Request, error),
) BulkResult {
	result := BulkResult{Updated: make([]Request, 0, len(ids)), Failed: map[uint]string{}}
	for _, id := range ids {
		req, err := action(ctx, id)
		if err != nil {
			result.Failed[id] = err.Error()
			continue
		}
		result.Updated = append(result.Updated, *req)
	}
	return result
}

func (s *RequestService) schedule(ctx context.Context, req *Request) bool {
	logger := observability.FromContext(ctx)

	jobID := uuid.NewString()
	claimed, err := s.requests.ClaimJobID(ctx, req.ID, jobID)
	if err != nil {
		logger.Warn("failed to claim job handle", observability.Error(err))
		return false
	}
	if !claimed {
		logger.Debug("request already scheduled elsewhere")
		return false
	}

	if err := s.dispatcher.Enqueue(ctx, jobID, req.ID); err != nil {
		logger.Warn("failed to enqueue request, leaving it for the reconciler", observability.Error(err))
		if releaseErr := s.requests.ReleaseJobID(context.WithoutCancel(ctx), req.ID, jobID); releaseErr != nil {
			logger.Error("failed to release job handle", observability.String("job_id", jobID), observability.Error(releaseErr))
		}
		return false
	}

	req.JobID = jobID
	logger.Info("request scheduled", observability.String("job_id", jobID))
	return true
}

func (s *RequestService) ask(ctx context.Context, req *Request) (*CompletionResponse, error) {
	key := req.APIKey
	if key == nil {
		var err error
		if key, err = s.keys.GetAPIKey(ctx, req.APIKeyID); err != nil {
			return nil, err
		}
	}
	if !key.Active {
		return nil, ErrAPIKeyInactive
	}
	return s.gateway.Ask(ctx, key, req)
}

func (s *RequestService) activeKey(ctx context.Context, token string) (*APIKey, error) {
	key, err := s.keys.GetAPIKeyByKey(ctx, token)
	if err != nil {
		return nil, err
	}
	if !key.Active {
		return nil, ErrAPIKeyInactive
	}
	return key, nil
}

func (s *RequestService) applyDefaults(req *Request) {
	if req.Engine == "" {
		req.Engine = s.defaults.Engine
	}
	if req.Temperature == nil {
		req.Temperature = s.defaults.Temperature
	}
	if req.MaxTokens == nil {
		req.MaxTokens = s.defaults.MaxTokens
	}
	if req.TopP == nil {
		req.TopP = s.defaults.TopP
	}
	if req.FrequencyPenalty == nil {
		req.FrequencyPenalty = s.defaults.FrequencyPenalty
	}
	if req.PresencePenalty == nil {
		req.PresencePenalty = s.defaults.PresencePenalty
	}
}

func applyInput(req *Request, in RequestInput) {
	if in.Engine != nil && *in.Engine != "" {
		req.Engine = *in.Engine
	}
	if in.Temperature != nil {
		req.Temperature = in.Temperature
	}
	if in.MaxTokens != nil {
		req.MaxTokens = in.MaxTokens
	}
	if in.TopP != nil {
		req.TopP = in.TopP
	}
	if in.FrequencyPenalty != nil {
		req.FrequencyPenalty = in.FrequencyPenalty
	}
	if in.PresencePenalty != nil {
		req.PresencePenalty = in.PresencePenalty
	}
	if in.IsJSON != nil {
		req.IsJSON = *in.IsJSON
	}
	if in.Asynchronous != nil {
		req.Asynchronous = *in.Asynchronous
	}
}

func validateInput(in RequestInput, partial bool) error {
	verr := &ValidationError{}
	if !partial || in.Key != nil {
		if in.Key == nil || *in.Key == "" {
			verr.Add("key", FieldRequired)
		}
	}
	if !partial || in.Prompt != nil {
		if in.Prompt == nil || *in.Prompt == "" {
			verr.Add("request", FieldRequired)
		}
	}
	if in.MaxTokens != nil && *in.MaxTokens <= 0 {
		verr.Add("max_tokens", "Ensure this value is greater than 0.")
	}
	if verr.Empty() {
		return nil
	}
	return verr
}
