package gormstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/davidbz/promptdesk/internal/domain"
)

// GetAPIKeyByKey looks a key up by its token.
func (s *Store) GetAPIKeyByKey(ctx context.Context, key string) (*domain.APIKey, error) {
	var apiKey domain.APIKey
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&apiKey).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrAPIKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load api key: %w", err)
	}
	return &apiKey, nil
}

// GetAPIKey looks a key up by id.
func (s *Store) GetAPIKey(ctx context.Context, id uint) (*domain.APIKey, error) {
	var apiKey domain.APIKey
	err := s.db.WithContext(ctx).First(&apiKey, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrAPIKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load api key %d: %w", id, err)
	}
	return &apiKey, nil
}

// ListAPIKeys returns keys ordered by id.
func (s *Store) ListAPIKeys(ctx context.Context, filter domain.APIKeyFilter) ([]domain.APIKey, error) {
	query := s.db.WithContext(ctx).Model(&domain.APIKey{})
	if filter.Search != "" {
		query = query.Where("LOWER(key) LIKE ?", "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.Active != nil {
		query = query.Where("active = ?", *filter.Active)
	}

	var keys []domain.APIKey
	if err := query.Order("id asc").Find(&keys).Error; err != nil {
		return nil, fmt.Errorf("failed to list api keys: %w", err)
	}
	return keys, nil
}

// CreateAPIKey inserts a key.
func (s *Store) CreateAPIKey(ctx context.Context, key *domain.APIKey) error {
	err := s.db.WithContext(ctx).Create(key).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrAPIKeyExists
	}
	if err != nil {
		return fmt.Errorf("failed to create api key: %w", err)
	}
	return nil
}

// UpdateAPIKey saves editable columns. The usage counter is only ever
// changed by request creation.
func (s *Store) UpdateAPIKey(ctx context.Context, key *domain.APIKey) error {
	result := s.db.WithContext(ctx).
		Model(&domain.APIKey{ID: key.ID}).
		Select("key", "active", "openai_api_key", "deepseek_api_key", "proxy_url").
		Updates(key)
	if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
		return domain.ErrAPIKeyExists
	}
	if result.Error != nil {
		return fmt.Errorf("failed to update api key %d: %w", key.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrAPIKeyNotFound
	}
	return nil
}

// DeleteAPIKey removes a key and cascades to its requests.
func (s *Store) DeleteAPIKey(ctx context.Context, id uint) error {
	return s.RunInTransaction(ctx, func(tx *Store) error {
		if err := tx.db.Where("api_key_id = ?", id).Delete(&domain.Request{}).Error; err != nil {
			return fmt.Errorf("failed to delete requests of api key %d: %w", id, err)
		}

		result := tx.db.Delete(&domain.APIKey{}, id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete api key %d: %w", id, result.Error)
		}
		if result.RowsAffected == 0 {
			return domain.ErrAPIKeyNotFound
		}
		return nil
	})
}
