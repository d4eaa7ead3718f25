package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/maheshrc27/postflow/internal/models"
)

type ShortcutRepository interface {
	ListShortcuts(ctx context.Context) ([]*models.CustomShortcut, error)
	Create(ctx context.Context, s *models.CustomShortcut) error
	Remove(ctx context.Context, id string) error
}

type shortcutRepository struct {
	db *sql.DB
}

func NewShortcutRepository(db *sql.DB) ShortcutRepository {
	return &shortcutRepository{db: db}
}

func (r *shortcutRepository) ListShortcuts(ctx context.Context) ([]*models.CustomShortcut, error) {
	query := `SELECT id, shortcut, content, is_dynamic, created_at FROM custom_shortcuts ORDER BY shortcut`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var shortcuts []*models.CustomShortcut
	for rows.Next() {
		var s models.CustomShortcut
		if err := rows.Scan(&s.ID, &s.Shortcut, &s.Content, &s.IsDynamic, &s.CreatedAt); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		shortcuts = append(shortcuts, &s)
	}

	return shortcuts, rows.Err()
}

func (r *shortcutRepository) Create(ctx context.Context, s *models.CustomShortcut) error {
	query := `
		INSERT INTO custom_shortcuts (id, shortcut, content, is_dynamic)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (shortcut) DO UPDATE
		SET content = EXCLUDED.content,
			is_dynamic = EXCLUDED.is_dynamic
	`
	_, err := r.db.ExecContext(ctx, query, s.ID, s.Shortcut, s.Content, s.IsDynamic)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *shortcutRepository) Remove(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM custom_shortcuts WHERE id = $1`, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
