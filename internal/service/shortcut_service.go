package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/repository"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

var shortcutName = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Purger drops cached lookups after their source changes.
type Purger interface {
	Purge()
}

type ShortcutService interface {
	ListShortcuts(ctx context.Context) ([]*models.CustomShortcut, error)
	SaveShortcut(ctx context.Context, s *models.CustomShortcut) (*models.CustomShortcut, error)
	RemoveShortcut(ctx context.Context, id string) error
	ListTagConverters(ctx context.Context) ([]*models.TagConverter, error)
	SaveTagConverter(ctx context.Context, c *models.TagConverter) (*models.TagConverter, error)
	RemoveTagConverter(ctx context.Context, id string) error
}

type shortcutService struct {
	shortcuts  repository.ShortcutRepository
	converters repository.TagConverterRepository
	caches     []Purger
}

func NewShortcutService(shortcuts repository.ShortcutRepository, converters repository.TagConverterRepository, caches ...Purger) ShortcutService {
	return &shortcutService{shortcuts: shortcuts, converters: converters, caches: caches}
}

func (s *shortcutService) ListShortcuts(ctx context.Context) ([]*models.CustomShortcut, error) {
	return s.shortcuts.ListShortcuts(ctx)
}

// SaveShortcut creates the shortcut or replaces the one with the same name.
func (s *shortcutService) SaveShortcut(ctx context.Context, sc *models.CustomShortcut) (*models.CustomShortcut, error) {
	sc.Shortcut = strings.TrimSpace(sc.Shortcut)
	if !shortcutName.MatchString(sc.Shortcut) {
		return nil, fmt.Errorf("invalid shortcut name %q", sc.Shortcut)
	}
	if sc.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return nil, err
		}
		sc.ID = id
	}
	if err := s.shortcuts.Create(ctx, sc); err != nil {
		return nil, fmt.Errorf("failed to save shortcut: %w", err)
	}
	s.purge()
	return sc, nil
}

func (s *shortcutService) RemoveShortcut(ctx context.Context, id string) error {
	if err := s.shortcuts.Remove(ctx, id); err != nil {
		return fmt.Errorf("failed to remove shortcut: %w", err)
	}
	s.purge()
	return nil
}

func (s *shortcutService) ListTagConverters(ctx context.Context) ([]*models.TagConverter, error) {
	return s.converters.ListTagConverters(ctx)
}

func (s *shortcutService) SaveTagConverter(ctx context.Context, c *models.TagConverter) (*models.TagConverter, error) {
	c.Tag = strings.TrimSpace(c.Tag)
	if c.Tag == "" {
		return nil, errors.New("tag cannot be empty")
	}
	if c.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return nil, err
		}
		c.ID = id
	}
	if c.Conversions == nil {
		c.Conversions = models.Conversions{}
	}
	if err := s.converters.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to save tag converter: %w", err)
	}
	s.purge()
	return c, nil
}

func (s *shortcutService) RemoveTagConverter(ctx context.Context, id string) error {
	if err := s.converters.Remove(ctx, id); err != nil {
		return fmt.Errorf("failed to remove tag converter: %w", err)
	}
	s.purge()
	return nil
}

func (s *shortcutService) purge() {
	for _, c := range s.caches {
		c.Purge()
	}
}
