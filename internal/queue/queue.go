package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// Enqueuer is the part of *asynq.Client used to schedule tasks.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// TaskDeleter is the part of *asynq.Inspector used to drop scheduled tasks.
type TaskDeleter interface {
	DeleteTask(queue, id string) error
}

func EnqueueSubmission(ctx context.Context, client Enqueuer, payload QueueSubmissionPayload, delay time.Duration) error {
	taskPayload, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypeQueueSubmission, taskPayload)

	_, err = client.EnqueueContext(ctx, task, asynq.TaskID(payload.SubmissionID), asynq.ProcessIn(delay))
	if err != nil {
		return err
	}

	slog.Info("submission scheduled", "submission_id", payload.SubmissionID, "delay", delay)
	return nil
}

// Scheduler keeps at most one pending queue task per submission, keyed by
// the submission id.
type Scheduler struct {
	client    Enqueuer
	inspector TaskDeleter
	queue     string
}

func NewScheduler(client Enqueuer, inspector TaskDeleter) *Scheduler {
	return &Scheduler{client: client, inspector: inspector, queue: "default"}
}

// Schedule replaces any pending task for id with one that fires at at.
func (s *Scheduler) Schedule(ctx context.Context, id string, at time.Time) error {
	if err := s.Cancel(ctx, id); err != nil {
		return err
	}
	delay := time.Until(at)
	if delay < 0 {
		delay = 0
	}
	return EnqueueSubmission(ctx, s.client, QueueSubmissionPayload{SubmissionID: id}, delay)
}

// Cancel drops the pending task for id. A missing task is not an error.
func (s *Scheduler) Cancel(_ context.Context, id string) error {
	err := s.inspector.DeleteTask(s.queue, id)
	if err == nil || errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
		return nil
	}
	return err
}
