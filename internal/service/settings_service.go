package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/repository"
)

type SettingsService interface {
	Get(ctx context.Context) (*models.Settings, error)
	Update(ctx context.Context, settings *models.Settings) (*models.Settings, error)
}

type settingsService struct {
	sr       repository.SettingsRepository
	defaults models.Settings
}

// NewSettingsService serves the stored settings, falling back to defaults
// until the first update.
func NewSettingsService(sr repository.SettingsRepository, defaults models.Settings) SettingsService {
	return &settingsService{
		sr:       sr,
		defaults: defaults,
	}
}

func (s *settingsService) Get(ctx context.Context) (*models.Settings, error) {
	settings, err := s.sr.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	if settings == nil {
		d := s.defaults
		return &d, nil
	}
	return settings, nil
}

func (s *settingsService) Update(ctx context.Context, settings *models.Settings) (*models.Settings, error) {
	if settings.PostRetries < 0 {
		return nil, errors.New("post_retries cannot be negative")
	}
	if err := s.sr.Upsert(ctx, settings); err != nil {
		return nil, fmt.Errorf("failed to save settings: %w", err)
	}
	return s.Get(ctx)
}
