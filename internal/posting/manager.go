// Package posting runs submissions through their destinations, one active
// submission per submission type.
package posting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/maheshrc27/postflow/internal/eventbus"
	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/postdata"
	"github.com/maheshrc27/postflow/internal/poster"
	"github.com/maheshrc27/postflow/internal/website"
)

var (
	ErrInvalidSubmission = errors.New("submission is invalid")
	ErrNotFound          = errors.New("submission not found")
)

const DefaultDebounce = 250 * time.Millisecond

type SubmissionStore interface {
	GetByID(ctx context.Context, id string) (*models.Submission, error)
	Delete(ctx context.Context, id string) error
}

type PartStore interface {
	ListBySubmission(ctx context.Context, submissionID string) ([]*models.SubmissionPart, error)
	Update(ctx context.Context, part *models.SubmissionPart) error
}

type LogStore interface {
	Create(ctx context.Context, log *models.SubmissionLog) error
}

type Validator interface {
	Validate(ctx context.Context, sub *models.Submission, parts []*models.SubmissionPart) (models.ValidationResult, error)
}

type Unscheduler interface {
	Unschedule(ctx context.Context, sub *models.Submission) error
}

// ChildUpdater rewrites submissions that depend on a finished parent. It
// returns one message per child or part it could not update.
type ChildUpdater interface {
	Update(ctx context.Context, parent *models.Submission, parts []*models.SubmissionPart) []string
}

type Config struct {
	Grace          time.Duration
	Timeout        time.Duration
	Debounce       time.Duration
	DefaultRetries int
}

type Options struct {
	Submissions SubmissionStore
	Parts       PartStore
	Logs        LogStore
	Validator   Validator
	Unscheduler Unscheduler
	Settings    postdata.SettingsSource
	Files       postdata.FileLoader
	Accounts    poster.AccountSource
	Builder     poster.DataBuilder
	Registry    *website.Registry
	Children    ChildUpdater
	Bus         eventbus.Bus
	Inhibitor   Inhibitor
	Config      Config
}

type accountKey struct {
	accountID string
	website   string
}

// cycle is one posting run of one submission.
type cycle struct {
	id     string
	typ    models.SubmissionType
	queued *models.Submission

	submission *models.Submission
	parts      []*models.SubmissionPart
	posters    []*poster.Poster
	persisted  int
	cancelled  bool
	finishing  bool
}

type typeState struct {
	cur   *cycle
	queue []*models.Submission
}

func (ts *typeState) indexOf(id string) int {
	for i, s := range ts.queue {
		if s.ID == id {
			return i
		}
	}
	return -1
}

type Manager struct {
	opts Options
	cfg  Config

	mu         sync.Mutex
	types      map[models.SubmissionType]*typeState
	lastPosted map[accountKey]time.Time

	inhibitMu sync.Mutex
	inhibited bool

	debounceMu sync.Mutex
	debounce   *time.Timer
}

func NewManager(opts Options) *Manager {
	cfg := opts.Config
	if cfg.Grace <= 0 {
		cfg.Grace = DefaultGrace
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = poster.DefaultTimeout
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.DefaultRetries < 0 {
		cfg.DefaultRetries = 0
	}
	if opts.Bus == nil {
		opts.Bus = eventbus.New()
	}
	if opts.Inhibitor == nil {
		opts.Inhibitor = NoopInhibitor()
	}
	return &Manager{
		opts:       opts,
		cfg:        cfg,
		types:      map[models.SubmissionType]*typeState{},
		lastPosted: map[accountKey]time.Time{},
	}
}

// state must be called with m.mu held.
func (m *Manager) state(t models.SubmissionType) *typeState {
	ts, ok := m.types[t]
	if !ok {
		ts = &typeState{}
		m.types[t] = ts
	}
	return ts
}

// Queue starts posting sub right away when nothing of its type is posting,
// and queues it otherwise. Queueing a submission that is already queued or
// posting does nothing.
func (m *Manager) Queue(sub *models.Submission) {
	m.mu.Lock()
	ts := m.state(sub.Type)
	if (ts.cur != nil && ts.cur.id == sub.ID) || ts.indexOf(sub.ID) >= 0 {
		m.mu.Unlock()
		return
	}
	var c *cycle
	if ts.cur == nil {
		c = &cycle{id: sub.ID, typ: sub.Type, queued: sub}
		ts.cur = c
	} else {
		ts.queue = append(ts.queue, sub)
	}
	m.mu.Unlock()

	slog.Info("submission queued", "submission_id", sub.ID, "type", sub.Type, "posting", c != nil)
	m.stateChanged()
	if c != nil {
		go m.post(c)
	}
}

// Cancel stops every destination of a posting submission that has not begun
// its remote call, or removes a queued submission.
func (m *Manager) Cancel(id string) {
	m.mu.Lock()
	var posters []*poster.Poster
	for _, ts := range m.types {
		if ts.cur != nil && ts.cur.id == id {
			ts.cur.cancelled = true
			posters = append(posters, ts.cur.posters...)
		}
		if i := ts.indexOf(id); i >= 0 {
			ts.queue = append(ts.queue[:i], ts.queue[i+1:]...)
		}
	}
	m.mu.Unlock()

	for _, p := range posters {
		p.Cancel()
	}
	slog.Info("submission cancelled", "submission_id", id)
	m.stateChanged()
}

func (m *Manager) EmptyQueue(t models.SubmissionType) {
	m.mu.Lock()
	if ts, ok := m.types[t]; ok {
		ts.queue = nil
	}
	m.mu.Unlock()
	m.stateChanged()
}

// GetPostingStatus reports each type's active submission and its posters.
func (m *Manager) GetPostingStatus() []models.PostInfo {
	type active struct {
		sub     *models.Submission
		posters []*poster.Poster
	}
	m.mu.Lock()
	var actives []active
	for _, t := range m.sortedTypes() {
		c := m.types[t].cur
		if c == nil {
			continue
		}
		sub := c.submission
		if sub == nil {
			sub = c.queued
		}
		actives = append(actives, active{sub: sub, posters: append([]*poster.Poster(nil), c.posters...)})
	}
	m.mu.Unlock()

	infos := make([]models.PostInfo, 0, len(actives))
	for _, a := range actives {
		info := models.PostInfo{Submission: a.sub, Posters: make([]models.PosterStatus, 0, len(a.posters))}
		for _, p := range a.posters {
			info.Posters = append(info.Posters, p.Status())
		}
		infos = append(infos, info)
	}
	return infos
}

// Queued lists waiting submissions of every type in queue order.
func (m *Manager) Queued() []*models.Submission {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Submission
	for _, t := range m.sortedTypes() {
		out = append(out, m.types[t].queue...)
	}
	return out
}

func (m *Manager) IsCurrentlyPosting(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ts := range m.types {
		if ts.cur != nil && ts.cur.id == id {
			return true
		}
	}
	return false
}

func (m *Manager) IsCurrentlyQueued(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ts := range m.types {
		if ts.indexOf(id) >= 0 {
			return true
		}
	}
	return false
}

func (m *Manager) HasQueued(t models.SubmissionType) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	ts, ok := m.types[t]
	return ok && len(ts.queue) > 0
}

func (m *Manager) HasAnyQueued() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ts := range m.types {
		if len(ts.queue) > 0 {
			return true
		}
	}
	return false
}

func (m *Manager) IsCurrentlyPostingToAny() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ts := range m.types {
		if ts.cur != nil {
			return true
		}
	}
	return false
}

// sortedTypes must be called with m.mu held.
func (m *Manager) sortedTypes() []models.SubmissionType {
	types := make([]models.SubmissionType, 0, len(m.types))
	for t := range m.types {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

func (m *Manager) post(c *cycle) {
	defer m.recoverCycle(c)

	if err := m.begin(context.Background(), c); err != nil {
		slog.Warn("failed to start posting", "submission_id", c.id, "error", err)
		m.notify(models.NotificationError, fmt.Sprintf("Failed to post %s", title(c)), err.Error())
		m.advance(c)
	}
}

func (m *Manager) begin(ctx context.Context, c *cycle) error {
	sub, err := m.opts.Submissions.GetByID(ctx, c.id)
	if err != nil {
		return fmt.Errorf("failed to load submission: %w", err)
	}
	if sub == nil {
		return ErrNotFound
	}
	parts, err := m.opts.Parts.ListBySubmission(ctx, sub.ID)
	if err != nil {
		return fmt.Errorf("failed to load submission parts: %w", err)
	}

	if m.opts.Validator != nil {
		res, err := m.opts.Validator.Validate(ctx, sub, parts)
		if err != nil {
			return fmt.Errorf("failed to validate submission: %w", err)
		}
		if len(res.Problems) > 0 {
			return fmt.Errorf("%w: %s", ErrInvalidSubmission, strings.Join(res.Problems, "; "))
		}
	}

	if sub.Schedule.IsScheduled && m.opts.Unscheduler != nil {
		if err := m.opts.Unscheduler.Unschedule(ctx, sub); err != nil {
			slog.Warn("failed to unschedule submission", "submission_id", sub.ID, "error", err)
		}
	}

	snapshot := sub.Clone()
	files, err := postdata.LoadFiles(ctx, m.opts.Files, snapshot)
	if err != nil {
		return err
	}

	retries := m.retries(ctx)
	defaultPart := models.DefaultPart(parts)

	var posters []*poster.Poster
	for _, part := range parts {
		if part.IsDefault || part.PostStatus == models.PostStatusSuccess {
			continue
		}
		site, ok := m.opts.Registry.Get(part.Website)
		if !ok {
			return fmt.Errorf("%w: unknown website %q", ErrInvalidSubmission, part.Website)
		}
		posters = append(posters, poster.New(poster.Config{
			Submission:  snapshot,
			Part:        part,
			DefaultPart: defaultPart,
			Website:     site,
			Files:       files,
			Accounts:    m.opts.Accounts,
			Builder:     m.opts.Builder,
			Sources:     existingSources(parts, site.Info().ID),
			Wait:        m.waitTime(part, site.Info()),
			Retries:     retries,
			Timeout:     m.cfg.Timeout,
			OnChange:    func(*poster.Poster) { m.posterChanged(c) },
		}))
	}

	m.mu.Lock()
	c.submission = snapshot
	c.parts = parts
	c.posters = posters
	cancelled := c.cancelled
	m.mu.Unlock()

	slog.Info("posting submission", "submission_id", sub.ID, "type", sub.Type, "destinations", len(posters))

	if len(posters) == 0 {
		m.mu.Lock()
		c.finishing = true
		m.mu.Unlock()
		m.finish(c)
		return nil
	}

	for _, p := range posters {
		if cancelled {
			p.Cancel()
		}
		go m.watch(c, p)
	}
	for _, p := range posters {
		p.Start()
	}
	m.stateChanged()
	return nil
}

func (m *Manager) retries(ctx context.Context) int {
	if m.opts.Settings == nil {
		return m.cfg.DefaultRetries
	}
	s, err := m.opts.Settings.Get(ctx)
	if err != nil || s == nil {
		return m.cfg.DefaultRetries
	}
	return max(s.PostRetries, 0)
}

func (m *Manager) waitTime(part *models.SubmissionPart, info website.Info) time.Duration {
	m.mu.Lock()
	last, ok := m.lastPosted[accountKey{part.AccountID, info.ID}]
	m.mu.Unlock()
	if !ok {
		return m.cfg.Grace
	}
	return WaitTime(time.Since(last), info.WaitBetweenPosts, m.cfg.Grace)
}

// existingSources collects references from parts that already posted to a
// different website.
func existingSources(parts []*models.SubmissionPart, websiteID string) []string {
	var out []string
	for _, p := range parts {
		if p.IsDefault || p.PostStatus != models.PostStatusSuccess || p.PostedTo == "" {
			continue
		}
		if strings.EqualFold(p.Website, websiteID) {
			continue
		}
		out = append(out, p.PostedTo)
	}
	return out
}

func (m *Manager) posterChanged(c *cycle) {
	m.opts.Bus.Publish(eventbus.Event{Type: eventbus.TypePostingStatus, Data: m.GetPostingStatus()})
	m.check(c)
}

func (m *Manager) watch(c *cycle, p *poster.Poster) {
	defer m.recoverCycle(c)

	<-p.Done()
	part := p.Part()
	ctx := context.Background()
	if err := m.opts.Parts.Update(ctx, part); err != nil {
		slog.Error("failed to save part", "submission_id", c.id, "website", part.Website, "error", err)
	}

	if part.PostStatus == models.PostStatusSuccess {
		websiteID := p.Website().Info().ID
		m.mu.Lock()
		m.lastPosted[accountKey{part.AccountID, websiteID}] = time.Now()
		siblings := append([]*poster.Poster(nil), c.posters...)
		m.mu.Unlock()

		if part.PostedTo != "" {
			for _, s := range siblings {
				if s != p && !strings.EqualFold(s.Website().Info().ID, websiteID) {
					s.AddSource(part.PostedTo)
				}
			}
		}
	}

	m.mu.Lock()
	c.persisted++
	m.mu.Unlock()
	m.check(c)
}

// check finishes the cycle once every poster is done and saved. Posters that
// all hold for an external source are started so the cycle cannot stall.
func (m *Manager) check(c *cycle) {
	m.mu.Lock()
	if c.finishing || len(c.posters) == 0 {
		m.mu.Unlock()
		return
	}
	posters := append([]*poster.Poster(nil), c.posters...)
	if c.persisted == len(posters) {
		c.finishing = true
		m.mu.Unlock()
		m.finish(c)
		return
	}
	persisted := c.persisted
	m.mu.Unlock()

	var waiting []*poster.Poster
	done := 0
	for _, p := range posters {
		switch {
		case p.IsDone():
			done++
		case p.IsWaiting():
			waiting = append(waiting, p)
		default:
			return
		}
	}
	// A finished sibling hands its source over before it counts as saved.
	if done != persisted {
		return
	}
	for _, p := range waiting {
		p.DoPost()
	}
}

func (m *Manager) finish(c *cycle) {
	ctx := context.Background()

	m.mu.Lock()
	sub := c.submission
	posters := append([]*poster.Poster(nil), c.posters...)
	parts := append([]*models.SubmissionPart(nil), c.parts...)
	m.mu.Unlock()

	final := make(map[string]*models.SubmissionPart, len(posters))
	var rows models.PartLogs
	var failures []string
	failed, succeeded := false, true
	for _, p := range posters {
		part := p.Part()
		resp, err := p.Result()
		final[part.ID] = part
		if part.PostStatus != models.PostStatusSuccess {
			succeeded = false
		}
		if part.PostStatus == models.PostStatusCancelled {
			continue
		}
		rows = append(rows, models.PartLog{Part: *part, Response: resp})
		if part.PostStatus == models.PostStatusFailed {
			failed = true
			msg := "unknown error"
			if err != nil {
				msg = err.Error()
			}
			failures = append(failures, fmt.Sprintf("%s: %s", part.Website, msg))
		}
	}
	for i, part := range parts {
		if f, ok := final[part.ID]; ok {
			parts[i] = f
		}
	}

	if m.opts.Children != nil {
		if errs := m.opts.Children.Update(ctx, sub, parts); len(errs) > 0 {
			m.notify(models.NotificationWarning, "Failed to update child submissions", strings.Join(errs, "\n"))
		}
	}

	if len(rows) > 0 && m.opts.Logs != nil {
		id, err := gonanoid.New()
		if err == nil {
			err = m.opts.Logs.Create(ctx, &models.SubmissionLog{
				ID:           id,
				SubmissionID: sub.ID,
				Title:        sub.Title,
				Type:         sub.Type,
				Parts:        rows,
				CreatedAt:    time.Now(),
			})
		}
		if err != nil {
			slog.Error("failed to write submission log", "submission_id", sub.ID, "error", err)
		}
	}

	switch {
	case succeeded:
		if err := m.opts.Submissions.Delete(ctx, sub.ID); err != nil {
			slog.Error("failed to delete posted submission", "submission_id", sub.ID, "error", err)
		}
		m.notify(models.NotificationSuccess, fmt.Sprintf("Posted %s", sub.Title), "")
	case failed:
		m.notify(models.NotificationError, fmt.Sprintf("Failed to post %s", sub.Title), strings.Join(failures, "\n"))
		if m.emptyQueueOnFailure(ctx) {
			m.EmptyQueue(sub.Type)
		}
	default:
		m.notify(models.NotificationWarning, fmt.Sprintf("Cancelled %s", sub.Title), "")
	}

	slog.Info("posting finished", "submission_id", sub.ID, "succeeded", succeeded, "failed", failed)
	m.advance(c)
}

func (m *Manager) emptyQueueOnFailure(ctx context.Context) bool {
	if m.opts.Settings == nil {
		return false
	}
	s, err := m.opts.Settings.Get(ctx)
	return err == nil && s != nil && s.EmptyQueueOnFailedPost
}

// advance ends c and makes the next queued submission of its type active.
func (m *Manager) advance(c *cycle) {
	m.mu.Lock()
	ts := m.state(c.typ)
	if ts.cur != c {
		m.mu.Unlock()
		return
	}
	var next *cycle
	if len(ts.queue) > 0 {
		sub := ts.queue[0]
		ts.queue = ts.queue[1:]
		next = &cycle{id: sub.ID, typ: sub.Type, queued: sub}
	}
	ts.cur = next
	m.mu.Unlock()

	if next != nil {
		go m.post(next)
	}
	m.stateChanged()
}

func (m *Manager) recoverCycle(c *cycle) {
	if r := recover(); r != nil {
		slog.Error("posting panicked", "submission_id", c.id, "panic", r, "stack", string(debug.Stack()))
		m.notify(models.NotificationError, fmt.Sprintf("Failed to post %s", title(c)), fmt.Sprint(r))
		m.advance(c)
	}
}

func (m *Manager) notify(kind models.NotificationKind, title, message string) {
	m.opts.Bus.Publish(eventbus.Event{
		Type: eventbus.TypeNotification,
		Data: models.Notification{Kind: kind, Title: title, Message: message, Time: time.Now()},
	})
}

func (m *Manager) stateChanged() {
	m.updateInhibitor()

	m.debounceMu.Lock()
	defer m.debounceMu.Unlock()
	if m.debounce != nil {
		m.debounce.Stop()
	}
	m.debounce = time.AfterFunc(m.cfg.Debounce, m.publishState)
}

func (m *Manager) publishState() {
	m.opts.Bus.Publish(eventbus.Event{
		Type: eventbus.TypePostingState,
		Data: models.PostingState{Queued: m.Queued(), Posting: m.GetPostingStatus()},
	})
}

func (m *Manager) updateInhibitor() {
	m.inhibitMu.Lock()
	defer m.inhibitMu.Unlock()

	busy := m.HasAnyQueued() || m.IsCurrentlyPostingToAny()
	if busy == m.inhibited {
		return
	}
	var err error
	if busy {
		err = m.opts.Inhibitor.Acquire()
	} else {
		err = m.opts.Inhibitor.Release()
	}
	if err != nil {
		slog.Warn("failed to update sleep inhibitor", "busy", busy, "error", err)
		return
	}
	m.inhibited = busy
}

func title(c *cycle) string {
	if c.submission != nil {
		return c.submission.Title
	}
	if c.queued != nil && c.queued.Title != "" {
		return c.queued.Title
	}
	return c.id
}
