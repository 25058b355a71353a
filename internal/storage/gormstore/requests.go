package gormstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/davidbz/promptdesk/internal/domain"
)

// CreateRequest inserts req and bumps the owning key's usage in one transaction.
func (s *Store) CreateRequest(ctx context.Context, req *domain.Request) error {
	return s.RunInTransaction(ctx, func(tx *Store) error {
		if err := tx.db.Omit(clause.Associations).Create(req).Error; err != nil {
			return fmt.Errorf("failed to insert request: %w", err)
		}

		result := tx.db.Model(&domain.APIKey{}).
			Where("id = ?", req.APIKeyID).
			UpdateColumn("usage", gorm.Expr("usage + 1"))
		if result.Error != nil {
			return fmt.Errorf("failed to increment usage for api key %d: %w", req.APIKeyID, result.Error)
		}
		if result.RowsAffected == 0 {
			return domain.ErrAPIKeyNotFound
		}
		return nil
	})
}

// GetRequest loads a request with its owning key.
func (s *Store) GetRequest(ctx context.Context, id uint) (*domain.Request, error) {
	var req domain.Request
	err := s.db.WithContext(ctx).Preload("APIKey").First(&req, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load request %d: %w", id, err)
	}
	return &req, nil
}

// ListRequests returns requests newest first.
func (s *Store) ListRequests(ctx context.Context, filter domain.RequestFilter) ([]domain.Request, error) {
	query := s.db.WithContext(ctx).
		Model(&domain.Request{}).
		Select("requests.*").
		Joins("LEFT JOIN api_keys ON api_keys.id = requests.api_key_id").
		Preload("APIKey")

	if filter.APIKey != "" {
		query = query.Where("api_keys.key = ?", filter.APIKey)
	}
	if filter.Engine != "" {
		query = query.Where("requests.engine = ?", filter.Engine)
	}
	if filter.Since != nil {
		query = query.Where("requests.updated_at >= ?", *filter.Since)
	}
	if filter.Until != nil {
		query = query.Where("requests.updated_at < ?", *filter.Until)
	}
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where(
			"LOWER(requests.request) LIKE ? OR LOWER(requests.engine) LIKE ? "+
				"OR LOWER(api_keys.key) LIKE ? OR CAST(requests.temperature AS TEXT) LIKE ?",
			pattern, pattern, pattern, pattern,
		)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var reqs []domain.Request
	if err := query.Order("requests.created_at desc").Order("requests.id desc").Find(&reqs).Error; err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	return reqs, nil
}

// UpdateRequestInput saves caller-editable columns only.
func (s *Store) UpdateRequestInput(ctx context.Context, req *domain.Request) error {
	result := s.db.WithContext(ctx).
		Model(&domain.Request{ID: req.ID}).
		Omit(clause.Associations).
		Select(
			"api_key_id", "request", "engine", "temperature", "max_tokens",
			"top_p", "frequency_penalty", "presence_penalty", "is_json", "asynchronous",
		).
		Updates(req)
	if result.Error != nil {
		return fmt.Errorf("failed to update request %d: %w", req.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrRequestNotFound
	}
	return nil
}

// DeleteRequest removes a request.
func (s *Store) DeleteRequest(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&domain.Request{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete request %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrRequestNotFound
	}
	return nil
}

// ClaimJobID stores jobID on a request that has no job handle yet. It reports
// false when another scheduler got there first.
func (s *Store) ClaimJobID(ctx context.Context, id uint, jobID string) (bool, error) {
	result := s.db.WithContext(ctx).
		Model(&domain.Request{}).
		Where("id = ? AND job_id = ?", id, "").
		Update("job_id", jobID)
	if result.Error != nil {
		return false, fmt.Errorf("failed to claim job handle for request %d: %w", id, result.Error)
	}
	return result.RowsAffected == 1, nil
}

// ReleaseJobID clears a job handle that was claimed but never enqueued.
func (s *Store) ReleaseJobID(ctx context.Context, id uint, jobID string) error {
	err := s.db.WithContext(ctx).
		Model(&domain.Request{}).
		Where("id = ? AND job_id = ?", id, jobID).
		Update("job_id", "").Error
	if err != nil {
		return fmt.Errorf("failed to release job handle for request %d: %w", id, err)
	}
	return nil
}

// MarkProcessing starts a resolution attempt and clears any previous outcome,
// including a cancellation.
func (s *Store) MarkProcessing(ctx context.Context, id uint, at time.Time) error {
	return s.update(ctx, id, startColumns(at, true))
}

// ClaimProcessing starts a resolution attempt only for a request that is still
// pending: not cancelled, not processing and without an outcome.
func (s *Store) ClaimProcessing(ctx context.Context, id uint, at time.Time) (bool, error) {
	result := s.db.WithContext(ctx).
		Model(&domain.Request{}).
		Where("id = ?", id).
		Where("is_cancelled = ? AND is_processing = ? AND is_completed = ? AND is_failed = ?", false, false, false, false).
		Updates(startColumns(at, false))
	if result.Error != nil {
		return false, fmt.Errorf("failed to claim request %d: %w", id, result.Error)
	}
	return result.RowsAffected == 1, nil
}

func startColumns(at time.Time, uncancel bool) map[string]any {
	columns := map[string]any{
		"is_processing":           true,
		"is_completed":            false,
		"is_failed":               false,
		"answer":                  "",
		"prompt_tokens":           0,
		"completion_tokens":       0,
		"total_tokens":            0,
		"generation_started_at":   at,
		"generation_completed_at": nil,
	}
	if uncancel {
		columns["is_cancelled"] = false
	}
	return columns
}

// MarkCompleted stores the answer unless the request was cancelled meanwhile.
func (s *Store) MarkCompleted(ctx context.Context, id uint, answer domain.Answer, at time.Time) (bool, error) {
	stored := false
	err := s.RunInTransaction(ctx, func(tx *Store) error {
		result := tx.db.Model(&domain.Request{}).
			Where("id = ? AND is_cancelled = ?", id, false).
			Updates(map[string]any{
				"answer":                  answer.Text,
				"prompt_tokens":           answer.Usage.PromptTokens,
				"completion_tokens":       answer.Usage.CompletionTokens,
				"total_tokens":            answer.Usage.TotalTokens,
				"is_completed":            true,
				"is_processing":           false,
				"generation_completed_at": at,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to store answer for request %d: %w", id, result.Error)
		}
		if result.RowsAffected > 0 {
			stored = true
			return nil
		}

		return tx.update(ctx, id, map[string]any{
			"is_processing":           false,
			"generation_completed_at": at,
		})
	})
	return stored, err
}

// MarkFailed records a failed resolution attempt.
func (s *Store) MarkFailed(ctx context.Context, id uint, at time.Time) error {
	return s.update(ctx, id, map[string]any{
		"is_failed":               true,
		"is_processing":           false,
		"generation_completed_at": at,
	})
}

// MarkAborted records a resolution attempt interrupted by termination.
func (s *Store) MarkAborted(ctx context.Context, id uint, at time.Time) error {
	return s.update(ctx, id, map[string]any{
		"is_cancelled":            true,
		"is_processing":           false,
		"generation_completed_at": at,
	})
}

// MarkCancelled sets the cancelled flag on a request that has not finished.
// It reports false when the request already completed or failed.
func (s *Store) MarkCancelled(ctx context.Context, id uint) (bool, error) {
	result := s.db.WithContext(ctx).
		Model(&domain.Request{}).
		Where("id = ? AND is_completed = ? AND is_failed = ?", id, false, false).
		Update("is_cancelled", true)
	if result.Error != nil {
		return false, fmt.Errorf("failed to cancel request %d: %w", id, result.Error)
	}
	return result.RowsAffected == 1, nil
}

// ListUnscheduled returns pending asynchronous requests that have no job handle.
func (s *Store) ListUnscheduled(ctx context.Context, before time.Time, limit int) ([]domain.Request, error) {
	query := s.db.WithContext(ctx).
		Where("asynchronous = ? AND job_id = ?", true, "").
		Where("is_processing = ? AND is_cancelled = ? AND is_completed = ? AND is_failed = ?", false, false, false, false).
		Where("created_at < ?", before).
		Order("id asc")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var reqs []domain.Request
	if err := query.Find(&reqs).Error; err != nil {
		return nil, fmt.Errorf("failed to list unscheduled requests: %w", err)
	}
	return reqs, nil
}

func (s *Store) update(ctx context.Context, id uint, columns map[string]any) error {
	result := s.db.WithContext(ctx).Model(&domain.Request{}).Where("id = ?", id).Updates(columns)
	if result.Error != nil {
		return fmt.Errorf("failed to update request %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrRequestNotFound
	}
	return nil
}
