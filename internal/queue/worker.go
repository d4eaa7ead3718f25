package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
)

// HandleQueueSubmissionTask queues a scheduled submission once its time has
// come. Submissions that were deleted or unscheduled in the meantime are
// skipped.
func (q *Queue) HandleQueueSubmissionTask(ctx context.Context, task *asynq.Task) error {
	var payload QueueSubmissionPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid payload: %v: %w", err, asynq.SkipRetry)
	}

	sub, err := q.submissions.GetByID(ctx, payload.SubmissionID)
	if err != nil {
		return err
	}
	if sub == nil {
		slog.Info("scheduled submission no longer exists", "submission_id", payload.SubmissionID)
		return nil
	}
	if !sub.Schedule.IsScheduled {
		slog.Info("submission is no longer scheduled", "submission_id", sub.ID)
		return nil
	}

	q.manager.Queue(sub)
	return nil
}
