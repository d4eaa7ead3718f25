package queue

import (
	"context"

	"github.com/maheshrc27/postflow/internal/models"
)

// SubmissionGetter loads the submission a task refers to.
type SubmissionGetter interface {
	GetByID(ctx context.Context, id string) (*models.Submission, error)
}

// Queuer hands a submission to the posting manager.
type Queuer interface {
	Queue(sub *models.Submission)
}

type Queue struct {
	submissions SubmissionGetter
	manager     Queuer
}

func NewQueue(submissions SubmissionGetter, manager Queuer) *Queue {
	return &Queue{
		submissions: submissions,
		manager:     manager,
	}
}

const TaskTypeQueueSubmission = "submission:queue"

type QueueSubmissionPayload struct {
	SubmissionID string `json:"submission_id"`
}
