package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/maheshrc27/postflow/internal/models"
)

type SubmissionRepository interface {
	Create(ctx context.Context, tx *sql.Tx, sub *models.Submission) error
	GetByID(ctx context.Context, id string) (*models.Submission, error)
	List(ctx context.Context, typ models.SubmissionType) ([]*models.Submission, error)
	ListScheduled(ctx context.Context) ([]*models.Submission, error)
	SetSchedule(ctx context.Context, id string, schedule models.Schedule) error
	Delete(ctx context.Context, id string) error
}

type submissionRepository struct {
	db *sql.DB
}

func NewSubmissionRepository(db *sql.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

const submissionColumns = `id, type, title, sort_order, is_scheduled, post_at, sources, files, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row rowScanner) (*models.Submission, error) {
	var s models.Submission
	var postAt sql.NullTime
	var files []byte
	err := row.Scan(&s.ID, &s.Type, &s.Title, &s.Order, &s.Schedule.IsScheduled, &postAt,
		pq.Array(&s.Sources), &files, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if postAt.Valid {
		t := postAt.Time
		s.Schedule.PostAt = &t
	}
	if len(files) > 0 && string(files) != "null" {
		s.Files = &models.SubmissionFiles{}
		if err := s.Files.Scan(files); err != nil {
			return nil, err
		}
	}
	return &s, nil
}

func (r *submissionRepository) Create(ctx context.Context, tx *sql.Tx, sub *models.Submission) error {
	query := `
		INSERT INTO submissions (id, type, title, sort_order, is_scheduled, post_at, sources, files)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	var files any
	if sub.Files != nil {
		files = *sub.Files
	}
	args := []any{sub.ID, sub.Type, sub.Title, sub.Order, sub.Schedule.IsScheduled, sub.Schedule.PostAt, pq.Array(sub.Sources), files}

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, args...)
	} else {
		_, err = r.db.ExecContext(ctx, query, args...)
	}
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	return nil
}

func (r *submissionRepository) GetByID(ctx context.Context, id string) (*models.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE id = $1`

	sub, err := scanSubmission(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return sub, nil
}

func (r *submissionRepository) List(ctx context.Context, typ models.SubmissionType) ([]*models.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions`
	args := []any{}

	if typ != "" {
		query += ` WHERE type = $1`
		args = append(args, typ)
	}
	query += ` ORDER BY sort_order, created_at`

	return r.list(ctx, query, args...)
}

func (r *submissionRepository) ListScheduled(ctx context.Context) ([]*models.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE is_scheduled ORDER BY post_at`
	return r.list(ctx, query)
}

func (r *submissionRepository) list(ctx context.Context, query string, args ...any) ([]*models.Submission, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var subs []*models.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return subs, nil
}

func (r *submissionRepository) SetSchedule(ctx context.Context, id string, schedule models.Schedule) error {
	query := `
		UPDATE submissions
		SET is_scheduled = $1,
			post_at = $2,
			updated_at = $3
		WHERE id = $4
	`
	_, err := r.db.ExecContext(ctx, query, schedule.IsScheduled, schedule.PostAt, time.Now(), id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	return nil
}

func (r *submissionRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM submissions WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
