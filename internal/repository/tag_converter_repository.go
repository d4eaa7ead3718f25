package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/maheshrc27/postflow/internal/models"
)

type TagConverterRepository interface {
	ListTagConverters(ctx context.Context) ([]*models.TagConverter, error)
	Create(ctx context.Context, c *models.TagConverter) error
	Remove(ctx context.Context, id string) error
}

type tagConverterRepository struct {
	db *sql.DB
}

func NewTagConverterRepository(db *sql.DB) TagConverterRepository {
	return &tagConverterRepository{db: db}
}

func (r *tagConverterRepository) ListTagConverters(ctx context.Context) ([]*models.TagConverter, error) {
	query := `SELECT id, tag, conversions, created_at FROM tag_converters ORDER BY tag`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var converters []*models.TagConverter
	for rows.Next() {
		var c models.TagConverter
		if err := rows.Scan(&c.ID, &c.Tag, &c.Conversions, &c.CreatedAt); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		converters = append(converters, &c)
	}

	return converters, rows.Err()
}

func (r *tagConverterRepository) Create(ctx context.Context, c *models.TagConverter) error {
	query := `
		INSERT INTO tag_converters (id, tag, conversions)
		VALUES ($1, $2, $3)
		ON CONFLICT (tag) DO UPDATE
		SET conversions = EXCLUDED.conversions
	`
	_, err := r.db.ExecContext(ctx, query, c.ID, c.Tag, c.Conversions)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *tagConverterRepository) Remove(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM tag_converters WHERE id = $1`, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
