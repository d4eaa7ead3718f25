package service

import (
	"context"
	"errors"
	"testing"

	"github.com/maheshrc27/postflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSettings struct {
	row *models.Settings
	err error
}

func (m *memSettings) Get(context.Context) (*models.Settings, error) {
	if m.row == nil {
		return nil, m.err
	}
	c := *m.row
	return &c, m.err
}

func (m *memSettings) Upsert(_ context.Context, s *models.Settings) error {
	c := *s
	m.row = &c
	return nil
}

func TestSettingsFallBackToDefaults(t *testing.T) {
	repo := &memSettings{}
	svc := NewSettingsService(repo, models.Settings{PostRetries: 1, Advertise: true})
	ctx := context.Background()

	got, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, got.PostRetries)
	assert.True(t, got.Advertise)

	got, err = svc.Update(ctx, &models.Settings{PostRetries: 4, EmptyQueueOnFailedPost: true})
	require.NoError(t, err)
	assert.Equal(t, 4, got.PostRetries)
	assert.True(t, got.EmptyQueueOnFailedPost)
	assert.False(t, got.Advertise)

	_, err = svc.Update(ctx, &models.Settings{PostRetries: -1})
	assert.Error(t, err)
}

func TestSettingsRepositoryError(t *testing.T) {
	svc := NewSettingsService(&memSettings{err: errors.New("db down")}, models.Settings{})
	_, err := svc.Get(context.Background())
	assert.ErrorContains(t, err, "db down")
}
