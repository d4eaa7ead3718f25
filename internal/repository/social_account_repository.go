package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/maheshrc27/postflow/internal/models"
)

// AccountRepository persists accounts with their credentials already
// encrypted in EncryptedData.
type AccountRepository interface {
	Create(ctx context.Context, a *models.Account) error
	GetByID(ctx context.Context, id string) (*models.Account, error)
	List(ctx context.Context, website string) ([]*models.Account, error)
	SetData(ctx context.Context, id, encrypted string) error
	Remove(ctx context.Context, id string) error
}

type accountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Create(ctx context.Context, a *models.Account) error {
	query := `
		INSERT INTO accounts (id, website, alias, data)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.ExecContext(ctx, query, a.ID, a.Website, a.Alias, a.EncryptedData)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *accountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT id, website, alias, data, created_at, updated_at FROM accounts WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)

	var a models.Account
	err := row.Scan(&a.ID, &a.Website, &a.Alias, &a.EncryptedData, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &a, nil
}

func (r *accountRepository) List(ctx context.Context, website string) ([]*models.Account, error) {
	query := `SELECT id, website, alias, data, created_at, updated_at FROM accounts`
	args := []any{}

	if website != "" {
		query += ` WHERE website = $1`
		args = append(args, website)
	}
	query += ` ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		var a models.Account
		if err := rows.Scan(&a.ID, &a.Website, &a.Alias, &a.EncryptedData, &a.CreatedAt, &a.UpdatedAt); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		accounts = append(accounts, &a)
	}

	return accounts, rows.Err()
}

func (r *accountRepository) SetData(ctx context.Context, id, encrypted string) error {
	query := `UPDATE accounts SET data = $1, updated_at = $2 WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, encrypted, time.Now(), id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *accountRepository) Remove(ctx context.Context, id string) error {
	query := `DELETE FROM accounts WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
