package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/maheshrc27/postflow/internal/models"
)

type SubmissionPartRepository interface {
	Create(ctx context.Context, tx *sql.Tx, part *models.SubmissionPart) error
	ListBySubmission(ctx context.Context, submissionID string) ([]*models.SubmissionPart, error)
	Update(ctx context.Context, part *models.SubmissionPart) error
	ListChildSubmissionIDs(ctx context.Context, parentID string) ([]string, error)
}

type submissionPartRepository struct {
	db *sql.DB
}

func NewSubmissionPartRepository(db *sql.DB) SubmissionPartRepository {
	return &submissionPartRepository{db: db}
}

func (r *submissionPartRepository) Create(ctx context.Context, tx *sql.Tx, part *models.SubmissionPart) error {
	query := `
		INSERT INTO submission_parts (id, submission_id, account_id, website, is_default, post_status, posted_to, options)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	args := []any{part.ID, part.SubmissionID, part.AccountID, part.Website, part.IsDefault, part.PostStatus, part.PostedTo, part.Options}

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

func (r *submissionPartRepository) ListBySubmission(ctx context.Context, submissionID string) ([]*models.SubmissionPart, error) {
	query := `
		SELECT id, submission_id, account_id, website, is_default, post_status, posted_to, options, created_at, updated_at
		FROM submission_parts
		WHERE submission_id = $1
		ORDER BY is_default DESC, created_at
	`
	rows, err := r.db.QueryContext(ctx, query, submissionID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var parts []*models.SubmissionPart
	for rows.Next() {
		var p models.SubmissionPart
		err := rows.Scan(&p.ID, &p.SubmissionID, &p.AccountID, &p.Website, &p.IsDefault,
			&p.PostStatus, &p.PostedTo, &p.Options, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		parts = append(parts, &p)
	}

	return parts, rows.Err()
}

func (r *submissionPartRepository) Update(ctx context.Context, part *models.SubmissionPart) error {
	query := `
		UPDATE submission_parts
		SET post_status = $1,
			posted_to = $2,
			options = $3,
			updated_at = $4
		WHERE id = $5
	`
	_, err := r.db.ExecContext(ctx, query, part.PostStatus, part.PostedTo, part.Options, time.Now(), part.ID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	return nil
}

// ListChildSubmissionIDs returns submissions whose default part names
// parentID as their parent.
func (r *submissionPartRepository) ListChildSubmissionIDs(ctx context.Context, parentID string) ([]string, error) {
	query := `
		SELECT submission_id FROM submission_parts
		WHERE is_default AND options->>'parent_id' = $1
		ORDER BY created_at
	`
	rows, err := r.db.QueryContext(ctx, query, parentID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}
