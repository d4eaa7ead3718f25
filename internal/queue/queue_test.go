package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/postflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	tasks []*asynq.Task
	opts  [][]asynq.Option
}

func (c *fakeClient) EnqueueContext(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	c.tasks = append(c.tasks, task)
	c.opts = append(c.opts, opts)
	return &asynq.TaskInfo{}, nil
}

type fakeInspector struct {
	deleted []string
	err     error
}

func (i *fakeInspector) DeleteTask(queue, id string) error {
	i.deleted = append(i.deleted, queue+"/"+id)
	return i.err
}

type submissions map[string]*models.Submission

func (s submissions) GetByID(_ context.Context, id string) (*models.Submission, error) {
	return s[id], nil
}

type recorder struct{ queued []string }

func (r *recorder) Queue(sub *models.Submission) { r.queued = append(r.queued, sub.ID) }

func optionTypes(opts []asynq.Option) map[asynq.OptionType]any {
	out := map[asynq.OptionType]any{}
	for _, o := range opts {
		out[o.Type()] = o.Value()
	}
	return out
}

func TestSchedulerReplacesPendingTask(t *testing.T) {
	client := &fakeClient{}
	inspector := &fakeInspector{err: asynq.ErrTaskNotFound}
	s := NewScheduler(client, inspector)

	require.NoError(t, s.Schedule(context.Background(), "sub1", time.Now().Add(time.Hour)))
	assert.Equal(t, []string{"default/sub1"}, inspector.deleted)
	require.Len(t, client.tasks, 1)
	assert.Equal(t, TaskTypeQueueSubmission, client.tasks[0].Type())

	var payload QueueSubmissionPayload
	require.NoError(t, json.Unmarshal(client.tasks[0].Payload(), &payload))
	assert.Equal(t, "sub1", payload.SubmissionID)

	opts := optionTypes(client.opts[0])
	assert.Equal(t, "sub1", opts[asynq.TaskIDOpt])
	delay, ok := opts[asynq.ProcessInOpt].(time.Duration)
	require.True(t, ok)
	assert.InDelta(t, time.Hour.Seconds(), delay.Seconds(), 5)
}

func TestSchedulerPastTimeRunsNow(t *testing.T) {
	client := &fakeClient{}
	s := NewScheduler(client, &fakeInspector{})
	require.NoError(t, s.Schedule(context.Background(), "sub1", time.Now().Add(-time.Hour)))
	assert.Equal(t, time.Duration(0), optionTypes(client.opts[0])[asynq.ProcessInOpt])
}

func TestSchedulerCancelErrors(t *testing.T) {
	s := NewScheduler(&fakeClient{}, &fakeInspector{err: asynq.ErrQueueNotFound})
	assert.NoError(t, s.Cancel(context.Background(), "x"))

	s = NewScheduler(&fakeClient{}, &fakeInspector{err: errors.New("redis down")})
	assert.Error(t, s.Cancel(context.Background(), "x"))
	assert.Error(t, s.Schedule(context.Background(), "x", time.Now()))
}

func TestHandleQueueSubmissionTask(t *testing.T) {
	subs := submissions{
		"scheduled":   {ID: "scheduled", Schedule: models.Schedule{IsScheduled: true}},
		"unscheduled": {ID: "unscheduled"},
	}
	rec := &recorder{}
	q := NewQueue(subs, rec)

	for _, id := range []string{"scheduled", "unscheduled", "missing"} {
		payload, _ := json.Marshal(QueueSubmissionPayload{SubmissionID: id})
		require.NoError(t, q.HandleQueueSubmissionTask(context.Background(), asynq.NewTask(TaskTypeQueueSubmission, payload)))
	}
	assert.Equal(t, []string{"scheduled"}, rec.queued)

	err := q.HandleQueueSubmissionTask(context.Background(), asynq.NewTask(TaskTypeQueueSubmission, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
