package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/maheshrc27/postflow/internal/cancel"
	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/website"
)

type memAccounts struct {
	mu   sync.Mutex
	rows map[string]*models.Account
}

func newMemAccounts() *memAccounts { return &memAccounts{rows: map[string]*models.Account{}} }

func (m *memAccounts) Create(_ context.Context, a *models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *a
	c.Data = nil
	m.rows[a.ID] = &c
	return nil
}

func (m *memAccounts) GetByID(_ context.Context, id string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	c := *a
	return &c, nil
}

func (m *memAccounts) List(_ context.Context, site string) ([]*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Account
	for _, a := range m.rows {
		if site == "" || a.Website == site {
			c := *a
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memAccounts) SetData(_ context.Context, id, encrypted string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.rows[id]; ok {
		a.EncryptedData = encrypted
	}
	return nil
}

func (m *memAccounts) Remove(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

type memSubmissions struct {
	rows      map[string]*models.Submission
	parts     map[string][]*models.SubmissionPart
	failParts bool
}

func newMemSubmissions() *memSubmissions {
	return &memSubmissions{rows: map[string]*models.Submission{}, parts: map[string][]*models.SubmissionPart{}}
}

func (m *memSubmissions) Create(_ context.Context, _ *sql.Tx, sub *models.Submission) error {
	m.rows[sub.ID] = sub.Clone()
	return nil
}

func (m *memSubmissions) GetByID(_ context.Context, id string) (*models.Submission, error) {
	if s, ok := m.rows[id]; ok {
		return s.Clone(), nil
	}
	return nil, nil
}

func (m *memSubmissions) List(_ context.Context, typ models.SubmissionType) ([]*models.Submission, error) {
	var out []*models.Submission
	for _, s := range m.rows {
		if typ == "" || s.Type == typ {
			out = append(out, s.Clone())
		}
	}
	return out, nil
}

func (m *memSubmissions) ListScheduled(_ context.Context) ([]*models.Submission, error) {
	var out []*models.Submission
	for _, s := range m.rows {
		if s.Schedule.IsScheduled {
			out = append(out, s.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memSubmissions) SetSchedule(_ context.Context, id string, schedule models.Schedule) error {
	if s, ok := m.rows[id]; ok {
		s.Schedule = schedule
	}
	return nil
}

func (m *memSubmissions) Delete(_ context.Context, id string) error {
	delete(m.rows, id)
	delete(m.parts, id)
	return nil
}

// memParts shares memSubmissions' storage.
type memParts struct{ *memSubmissions }

func (m memParts) Create(_ context.Context, _ *sql.Tx, part *models.SubmissionPart) error {
	if m.failParts {
		return errors.New("constraint violated")
	}
	m.parts[part.SubmissionID] = append(m.parts[part.SubmissionID], part.Clone())
	return nil
}

func (m memParts) ListBySubmission(_ context.Context, id string) ([]*models.SubmissionPart, error) {
	return m.parts[id], nil
}

func (m memParts) Update(context.Context, *models.SubmissionPart) error { return nil }

func (m memParts) ListChildSubmissionIDs(context.Context, string) ([]string, error) { return nil, nil }

type memFiles struct {
	uploaded []string
	deleted  []string
	failOn   string
}

func (f *memFiles) Upload(_ context.Context, name string, data []byte) (*models.FileRecord, error) {
	if name == f.failOn {
		return nil, ErrUnknownFileType
	}
	f.uploaded = append(f.uploaded, name)
	return &models.FileRecord{Key: "k/" + name, Name: name, MimeType: "image/png", Size: int64(len(data))}, nil
}

func (f *memFiles) Delete(_ context.Context, rec *models.FileRecord) error {
	f.deleted = append(f.deleted, rec.Name)
	return nil
}

type memScheduler struct {
	scheduled map[string]time.Time
	cancelled []string
}

func newMemScheduler() *memScheduler { return &memScheduler{scheduled: map[string]time.Time{}} }

func (s *memScheduler) Schedule(_ context.Context, id string, at time.Time) error {
	s.scheduled[id] = at
	return nil
}

func (s *memScheduler) Cancel(_ context.Context, id string) error {
	s.cancelled = append(s.cancelled, id)
	delete(s.scheduled, id)
	return nil
}

type loginSite struct {
	website.Base
	mu         sync.Mutex
	id         string
	loggedIn   bool
	rotate     map[string]any
	checked    []map[string]any
	connection *website.Connection
	revoked    []string
	validate   func(*models.Submission) models.ValidationResult
}

func (s *loginSite) Info() website.Info {
	return website.Info{ID: s.id, Name: s.id}
}

func (s *loginSite) CheckLogin(_ context.Context, a *models.Account) (*models.LoginStatus, error) {
	s.mu.Lock()
	s.checked = append(s.checked, a.Data)
	s.mu.Unlock()
	return &models.LoginStatus{LoggedIn: s.loggedIn, Username: a.Alias, Data: s.rotate}, nil
}

func (s *loginSite) PostFileSubmission(context.Context, *cancel.Token, *models.PostData, *models.Account) (*models.PostResponse, error) {
	return nil, errors.New("not used")
}

func (s *loginSite) ValidateFileSubmission(sub *models.Submission, _, _ *models.SubmissionPart) models.ValidationResult {
	if s.validate != nil {
		return s.validate(sub)
	}
	return models.ValidationResult{}
}

type connectSite struct{ *loginSite }

func (s connectSite) AuthURL(state string) string { return "https://auth.test/?state=" + state }

func (s connectSite) Connect(_ context.Context, code string) (*website.Connection, error) {
	if code == "" {
		return nil, errors.New("code is empty")
	}
	return s.connection, nil
}

func (s connectSite) Disconnect(_ context.Context, a *models.Account) error {
	s.revoked = append(s.revoked, a.String("access_token"))
	return nil
}

type fakeObjects struct {
	objects map[string][]byte
	types   map[string]string
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeObjects) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*in.Bucket+"/"+*in.Key] = data
	f.types[*in.Bucket+"/"+*in.Key] = *in.ContentType
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeObjects) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeObjects) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, *in.Bucket+"/"+*in.Key)
	return &s3.DeleteObjectOutput{}, nil
}
