package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/maheshrc27/postflow/internal/models"
)

// SettingsRepository reads and writes the single settings row.
type SettingsRepository interface {
	Get(ctx context.Context) (*models.Settings, error)
	Upsert(ctx context.Context, s *models.Settings) error
}

type settingsRepository struct {
	db *sql.DB
}

func NewSettingsRepository(db *sql.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

func (r *settingsRepository) Get(ctx context.Context) (*models.Settings, error) {
	query := `SELECT post_retries, empty_queue_on_failed_post, advertise, updated_at FROM settings WHERE id = 1`
	row := r.db.QueryRowContext(ctx, query)

	var s models.Settings
	err := row.Scan(&s.PostRetries, &s.EmptyQueueOnFailedPost, &s.Advertise, &s.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &s, nil
}

func (r *settingsRepository) Upsert(ctx context.Context, s *models.Settings) error {
	query := `
		INSERT INTO settings (id, post_retries, empty_queue_on_failed_post, advertise, updated_at)
		VALUES (1, $1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET post_retries = EXCLUDED.post_retries,
			empty_queue_on_failed_post = EXCLUDED.empty_queue_on_failed_post,
			advertise = EXCLUDED.advertise,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.ExecContext(ctx, query, s.PostRetries, s.EmptyQueueOnFailedPost, s.Advertise, time.Now())
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	return nil
}
