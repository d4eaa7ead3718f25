package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/maheshrc27/postflow/internal/models"
)

// PostingHistoryRepository stores one aggregated log row per posting cycle.
type PostingHistoryRepository interface {
	Create(ctx context.Context, log *models.SubmissionLog) error
	List(ctx context.Context, limit int) ([]*models.SubmissionLog, error)
}

type postingHistoryRepository struct {
	db *sql.DB
}

func NewPostingHistoryRepository(db *sql.DB) PostingHistoryRepository {
	return &postingHistoryRepository{db: db}
}

func (r *postingHistoryRepository) Create(ctx context.Context, log *models.SubmissionLog) error {
	query := `
		INSERT INTO submission_logs (id, submission_id, title, type, parts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query, log.ID, log.SubmissionID, log.Title, log.Type, log.Parts, log.CreatedAt)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	return nil
}

func (r *postingHistoryRepository) List(ctx context.Context, limit int) ([]*models.SubmissionLog, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, submission_id, title, type, parts, created_at
		FROM submission_logs
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var logs []*models.SubmissionLog
	for rows.Next() {
		var l models.SubmissionLog
		if err := rows.Scan(&l.ID, &l.SubmissionID, &l.Title, &l.Type, &l.Parts, &l.CreatedAt); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		logs = append(logs, &l)
	}

	return logs, rows.Err()
}
