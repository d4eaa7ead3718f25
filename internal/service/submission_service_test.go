package service

import (
	"context"
	"testing"
	"time"

	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type submissionHarness struct {
	svc       SubmissionService
	subs      *memSubmissions
	accounts  *memAccounts
	files     *memFiles
	scheduler *memScheduler
}

func newSubmissionHarness() *submissionHarness {
	h := &submissionHarness{
		subs:      newMemSubmissions(),
		accounts:  newMemAccounts(),
		files:     &memFiles{},
		scheduler: newMemScheduler(),
	}
	h.accounts.rows["acct1"] = &models.Account{ID: "acct1", Website: "instagram"}
	h.accounts.rows["acct2"] = &models.Account{ID: "acct2", Website: "tiktok"}
	h.svc = NewSubmissionService(nil, h.subs, memParts{h.subs}, h.accounts, h.files, h.scheduler)
	return h
}

func creation(parts ...transfer.PartCreation) *transfer.SubmissionCreation {
	return &transfer.SubmissionCreation{Type: models.SubmissionTypeFile, Title: " Sketch ", Parts: parts}
}

var defaultCreation = transfer.PartCreation{IsDefault: true, Options: models.PartOptions{Description: models.DescriptionData{Value: "hello"}}}

func TestSubmissionCreate(t *testing.T) {
	h := newSubmissionHarness()
	ctx := context.Background()

	sub, err := h.svc.Create(ctx,
		creation(defaultCreation, transfer.PartCreation{AccountID: "acct1"}, transfer.PartCreation{AccountID: "acct2"}),
		&transfer.SubmissionUploads{
			Primary:    &transfer.FileUpload{Name: "a.png", Data: pngBytes},
			Additional: []transfer.FileUpload{{Name: "b.png", Data: pngBytes}},
		})
	require.NoError(t, err)
	assert.Equal(t, "Sketch", sub.Title)
	assert.Equal(t, "a.png", sub.Files.Primary.Name)
	require.Len(t, sub.Files.Additional, 1)
	assert.Equal(t, []string{"a.png", "b.png"}, h.files.uploaded)

	detail, err := h.svc.Get(ctx, sub.ID)
	require.NoError(t, err)
	require.Len(t, detail.Parts, 3)
	assert.Equal(t, "default", detail.Parts[0].Website)
	assert.True(t, detail.Parts[0].IsDefault)
	assert.Equal(t, "instagram", detail.Parts[1].Website)
	assert.Equal(t, "tiktok", detail.Parts[2].Website)
	for _, p := range detail.Parts {
		assert.Equal(t, models.PostStatusUnposted, p.PostStatus)
		assert.NotEmpty(t, p.ID)
	}
}

func TestSubmissionCreateValidation(t *testing.T) {
	primary := &transfer.SubmissionUploads{Primary: &transfer.FileUpload{Name: "a.png", Data: pngBytes}}
	cases := []struct {
		name    string
		in      *transfer.SubmissionCreation
		uploads *transfer.SubmissionUploads
	}{
		{"nil", nil, primary},
		{"bad type", &transfer.SubmissionCreation{Type: "VIDEO", Parts: []transfer.PartCreation{defaultCreation}}, primary},
		{"no primary", creation(defaultCreation), nil},
		{"no default", creation(transfer.PartCreation{AccountID: "acct1"}), primary},
		{"two defaults", creation(defaultCreation, defaultCreation), primary},
		{"unknown account", creation(defaultCreation, transfer.PartCreation{AccountID: "ghost"}), primary},
		{"duplicate account", creation(defaultCreation, transfer.PartCreation{AccountID: "acct1"}, transfer.PartCreation{AccountID: "acct1"}), primary},
		{"missing account", creation(defaultCreation, transfer.PartCreation{}), primary},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newSubmissionHarness()
			_, err := h.svc.Create(context.Background(), tc.in, tc.uploads)
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.Empty(t, h.subs.rows)
			assert.Empty(t, h.files.uploaded)
		})
	}
}

func TestSubmissionCreateNotificationNeedsNoFile(t *testing.T) {
	h := newSubmissionHarness()
	in := creation(defaultCreation)
	in.Type = models.SubmissionTypeNotification
	sub, err := h.svc.Create(context.Background(), in, nil)
	require.NoError(t, err)
	assert.Nil(t, sub.Files)
}

func TestSubmissionCreateCleansUpFiles(t *testing.T) {
	h := newSubmissionHarness()
	h.files.failOn = "c.png"
	_, err := h.svc.Create(context.Background(), creation(defaultCreation), &transfer.SubmissionUploads{
		Primary:    &transfer.FileUpload{Name: "a.png", Data: pngBytes},
		Additional: []transfer.FileUpload{{Name: "b.png"}, {Name: "c.png"}},
	})
	assert.ErrorIs(t, err, ErrUnknownFileType)
	assert.ElementsMatch(t, []string{"a.png", "b.png"}, h.files.deleted)

	h = newSubmissionHarness()
	h.subs.failParts = true
	_, err = h.svc.Create(context.Background(), creation(defaultCreation), &transfer.SubmissionUploads{
		Primary: &transfer.FileUpload{Name: "a.png", Data: pngBytes},
	})
	assert.Error(t, err)
	assert.Equal(t, []string{"a.png"}, h.files.deleted)
}

func TestSubmissionScheduleLifecycle(t *testing.T) {
	h := newSubmissionHarness()
	ctx := context.Background()
	sub, err := h.svc.Create(ctx, creation(defaultCreation), &transfer.SubmissionUploads{
		Primary: &transfer.FileUpload{Name: "a.png", Data: pngBytes},
	})
	require.NoError(t, err)

	at := time.Now().Add(time.Hour).Truncate(time.Second)
	require.NoError(t, h.svc.Schedule(ctx, sub.ID, at))
	assert.Equal(t, at, h.scheduler.scheduled[sub.ID])

	got, err := h.svc.GetByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.True(t, got.Schedule.IsScheduled)
	assert.Equal(t, at, *got.Schedule.PostAt)

	delete(h.scheduler.scheduled, sub.ID)
	require.NoError(t, h.svc.RestoreSchedules(ctx))
	assert.Equal(t, at, h.scheduler.scheduled[sub.ID])

	require.NoError(t, h.svc.Unschedule(ctx, got))
	assert.False(t, got.Schedule.IsScheduled)
	assert.Contains(t, h.scheduler.cancelled, sub.ID)
	got, _ = h.svc.GetByID(ctx, sub.ID)
	assert.False(t, got.Schedule.IsScheduled)

	assert.ErrorIs(t, h.svc.Schedule(ctx, "missing", at), ErrNotFound)
	assert.ErrorIs(t, h.svc.Schedule(ctx, sub.ID, time.Time{}), ErrInvalidInput)
}

func TestSubmissionDelete(t *testing.T) {
	h := newSubmissionHarness()
	ctx := context.Background()
	sub, err := h.svc.Create(ctx, creation(defaultCreation), &transfer.SubmissionUploads{
		Primary:   &transfer.FileUpload{Name: "a.png", Data: pngBytes},
		Thumbnail: &transfer.FileUpload{Name: "t.png", Data: pngBytes},
	})
	require.NoError(t, err)

	require.NoError(t, h.svc.Delete(ctx, sub.ID))
	assert.Equal(t, []string{"a.png", "t.png"}, h.files.deleted)
	assert.Contains(t, h.scheduler.cancelled, sub.ID)

	_, err = h.svc.Get(ctx, sub.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, h.svc.Delete(ctx, sub.ID), ErrNotFound)
}

func TestSubmissionList(t *testing.T) {
	h := newSubmissionHarness()
	ctx := context.Background()
	_, err := h.svc.Create(ctx, creation(defaultCreation), &transfer.SubmissionUploads{Primary: &transfer.FileUpload{Name: "a.png"}})
	require.NoError(t, err)

	files, err := h.svc.List(ctx, models.SubmissionTypeFile)
	require.NoError(t, err)
	assert.Len(t, files, 1)

	notes, err := h.svc.List(ctx, models.SubmissionTypeNotification)
	require.NoError(t, err)
	assert.Empty(t, notes)

	_, err = h.svc.List(ctx, "OTHER")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
