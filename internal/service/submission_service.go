package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/repository"
	"github.com/maheshrc27/postflow/internal/transfer"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

var ErrInvalidInput = errors.New("invalid input")

// FileStore keeps submission files.
type FileStore interface {
	Upload(ctx context.Context, name string, data []byte) (*models.FileRecord, error)
	Delete(ctx context.Context, rec *models.FileRecord) error
}

// TaskScheduler triggers queueing of a submission at a later time.
type TaskScheduler interface {
	Schedule(ctx context.Context, id string, at time.Time) error
	Cancel(ctx context.Context, id string) error
}

type SubmissionService interface {
	Create(ctx context.Context, in *transfer.SubmissionCreation, uploads *transfer.SubmissionUploads) (*models.Submission, error)
	List(ctx context.Context, typ models.SubmissionType) ([]*models.Submission, error)
	GetByID(ctx context.Context, id string) (*models.Submission, error)
	Get(ctx context.Context, id string) (*transfer.SubmissionDetail, error)
	Delete(ctx context.Context, id string) error
	Schedule(ctx context.Context, id string, at time.Time) error
	Unschedule(ctx context.Context, sub *models.Submission) error
	RestoreSchedules(ctx context.Context) error
}

type submissionService struct {
	db        *sql.DB
	subs      repository.SubmissionRepository
	parts     repository.SubmissionPartRepository
	accounts  repository.AccountRepository
	files     FileStore
	scheduler TaskScheduler
}

func NewSubmissionService(
	db *sql.DB,
	subs repository.SubmissionRepository,
	parts repository.SubmissionPartRepository,
	accounts repository.AccountRepository,
	files FileStore,
	scheduler TaskScheduler) SubmissionService {
	return &submissionService{
		db:        db,
		subs:      subs,
		parts:     parts,
		accounts:  accounts,
		files:     files,
		scheduler: scheduler,
	}
}

func (s *submissionService) Create(ctx context.Context, in *transfer.SubmissionCreation, uploads *transfer.SubmissionUploads) (sub *models.Submission, err error) {
	if in == nil {
		return nil, fmt.Errorf("%w: submission data is nil", ErrInvalidInput)
	}
	if !in.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown submission type %q", ErrInvalidInput, in.Type)
	}
	if uploads == nil {
		uploads = &transfer.SubmissionUploads{}
	}
	if in.Type == models.SubmissionTypeFile && uploads.Primary == nil {
		return nil, fmt.Errorf("%w: file submission requires a primary file", ErrInvalidInput)
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, err
	}

	parts, err := s.buildParts(ctx, id, in.Parts)
	if err != nil {
		return nil, err
	}

	sub = &models.Submission{
		ID:      id,
		Type:    in.Type,
		Title:   strings.TrimSpace(in.Title),
		Order:   in.Order,
		Sources: in.Sources,
	}

	if in.Type == models.SubmissionTypeFile {
		var files *models.SubmissionFiles
		files, err = s.uploadFiles(ctx, uploads)
		if err != nil {
			return nil, err
		}
		sub.Files = files
		defer func() {
			if err != nil {
				s.removeFiles(context.WithoutCancel(ctx), files)
			}
		}()
	}

	var tx *sql.Tx
	if s.db != nil {
		tx, err = s.db.BeginTx(ctx, &sql.TxOptions{})
		if err != nil {
			return nil, fmt.Errorf("failed to start transaction: %w", err)
		}
		defer func() {
			if p := recover(); p != nil {
				tx.Rollback()
				panic(p)
			} else if err != nil {
				tx.Rollback()
			}
		}()
	}

	if err = s.subs.Create(ctx, tx, sub); err != nil {
		return nil, fmt.Errorf("error creating submission: %w", err)
	}
	for _, part := range parts {
		if err = s.parts.Create(ctx, tx, part); err != nil {
			return nil, fmt.Errorf("error saving %s part: %w", part.Website, err)
		}
	}

	if tx != nil {
		if err = tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}
	}

	slog.Info("submission created", "submission_id", sub.ID, "type", sub.Type, "parts", len(parts))
	return sub, nil
}

func (s *submissionService) buildParts(ctx context.Context, submissionID string, in []transfer.PartCreation) ([]*models.SubmissionPart, error) {
	var parts []*models.SubmissionPart
	seen := map[string]bool{}
	defaults := 0

	for _, pc := range in {
		part := &models.SubmissionPart{
			SubmissionID: submissionID,
			IsDefault:    pc.IsDefault,
			PostStatus:   models.PostStatusUnposted,
			Options:      pc.Options,
		}

		if pc.IsDefault {
			defaults++
			part.Website = "default"
		} else {
			if pc.AccountID == "" {
				return nil, fmt.Errorf("%w: part without account", ErrInvalidInput)
			}
			if seen[pc.AccountID] {
				return nil, fmt.Errorf("%w: account %s selected twice", ErrInvalidInput, pc.AccountID)
			}
			seen[pc.AccountID] = true

			account, err := s.accounts.GetByID(ctx, pc.AccountID)
			if err != nil {
				return nil, fmt.Errorf("error checking account %s: %w", pc.AccountID, err)
			}
			if account == nil {
				return nil, fmt.Errorf("%w: account %s does not exist", ErrInvalidInput, pc.AccountID)
			}
			part.AccountID = account.ID
			part.Website = account.Website
		}

		id, err := gonanoid.New()
		if err != nil {
			return nil, err
		}
		part.ID = id
		parts = append(parts, part)
	}

	if defaults != 1 {
		return nil, fmt.Errorf("%w: submission needs exactly one default part, got %d", ErrInvalidInput, defaults)
	}
	return parts, nil
}

func (s *submissionService) uploadFiles(ctx context.Context, uploads *transfer.SubmissionUploads) (*models.SubmissionFiles, error) {
	files := &models.SubmissionFiles{}
	upload := func(u *transfer.FileUpload) (*models.FileRecord, error) {
		if u == nil {
			return nil, nil
		}
		rec, err := s.files.Upload(ctx, u.Name, u.Data)
		if err != nil {
			s.removeFiles(context.WithoutCancel(ctx), files)
			return nil, fmt.Errorf("error uploading file: %w", err)
		}
		return rec, nil
	}

	var err error
	if files.Primary, err = upload(uploads.Primary); err != nil {
		return nil, err
	}
	if files.Thumbnail, err = upload(uploads.Thumbnail); err != nil {
		return nil, err
	}
	if files.Fallback, err = upload(uploads.Fallback); err != nil {
		return nil, err
	}
	for i := range uploads.Additional {
		rec, err := upload(&uploads.Additional[i])
		if err != nil {
			return nil, err
		}
		files.Additional = append(files.Additional, *rec)
	}
	return files, nil
}

func (s *submissionService) removeFiles(ctx context.Context, files *models.SubmissionFiles) {
	for _, rec := range files.Records() {
		if err := s.files.Delete(ctx, rec); err != nil {
			slog.Warn("failed to remove stored file", "key", rec.Key, "error", err)
		}
	}
}

func (s *submissionService) List(ctx context.Context, typ models.SubmissionType) ([]*models.Submission, error) {
	if typ != "" && !typ.Valid() {
		return nil, fmt.Errorf("%w: unknown submission type %q", ErrInvalidInput, typ)
	}
	subs, err := s.subs.List(ctx, typ)
	if err != nil {
		return nil, fmt.Errorf("error listing submissions: %w", err)
	}
	return subs, nil
}

func (s *submissionService) GetByID(ctx context.Context, id string) (*models.Submission, error) {
	return s.subs.GetByID(ctx, id)
}

func (s *submissionService) Get(ctx context.Context, id string) (*transfer.SubmissionDetail, error) {
	sub, err := s.subs.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error getting submission: %w", err)
	}
	if sub == nil {
		return nil, fmt.Errorf("submission %s: %w", id, ErrNotFound)
	}
	parts, err := s.parts.ListBySubmission(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error getting submission parts: %w", err)
	}
	return &transfer.SubmissionDetail{Submission: sub, Parts: parts}, nil
}

// Delete removes a submission with its pending schedule and stored files.
func (s *submissionService) Delete(ctx context.Context, id string) error {
	sub, err := s.subs.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("error getting submission: %w", err)
	}
	if sub == nil {
		return fmt.Errorf("submission %s: %w", id, ErrNotFound)
	}

	if err := s.scheduler.Cancel(ctx, id); err != nil {
		slog.Warn("failed to cancel scheduled task", "submission_id", id, "error", err)
	}
	if err := s.subs.Delete(ctx, id); err != nil {
		return fmt.Errorf("error removing submission: %w", err)
	}
	s.removeFiles(ctx, sub.Files)
	return nil
}

func (s *submissionService) Schedule(ctx context.Context, id string, at time.Time) error {
	sub, err := s.subs.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("error getting submission: %w", err)
	}
	if sub == nil {
		return fmt.Errorf("submission %s: %w", id, ErrNotFound)
	}
	if at.IsZero() {
		return fmt.Errorf("%w: post_at is required", ErrInvalidInput)
	}

	if err := s.subs.SetSchedule(ctx, id, models.Schedule{IsScheduled: true, PostAt: &at}); err != nil {
		return fmt.Errorf("error saving schedule: %w", err)
	}
	if err := s.scheduler.Schedule(ctx, id, at); err != nil {
		return fmt.Errorf("error scheduling submission: %w", err)
	}
	return nil
}

// Unschedule clears the schedule of sub. A task that cannot be cancelled is
// harmless since the worker skips unscheduled submissions.
func (s *submissionService) Unschedule(ctx context.Context, sub *models.Submission) error {
	if err := s.subs.SetSchedule(ctx, sub.ID, models.Schedule{}); err != nil {
		return fmt.Errorf("error clearing schedule: %w", err)
	}
	sub.Schedule = models.Schedule{}
	if err := s.scheduler.Cancel(ctx, sub.ID); err != nil {
		slog.Debug("scheduled task not cancelled", "submission_id", sub.ID, "error", err)
	}
	return nil
}

// RestoreSchedules re-enqueues the task of every scheduled submission.
func (s *submissionService) RestoreSchedules(ctx context.Context) error {
	subs, err := s.subs.ListScheduled(ctx)
	if err != nil {
		return fmt.Errorf("error listing scheduled submissions: %w", err)
	}
	for _, sub := range subs {
		at := time.Now()
		if sub.Schedule.PostAt != nil {
			at = *sub.Schedule.PostAt
		}
		if err := s.scheduler.Schedule(ctx, sub.ID, at); err != nil {
			slog.Error("failed to restore schedule", "submission_id", sub.ID, "error", err)
		}
	}
	return nil
}
