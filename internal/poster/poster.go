// Package poster posts one submission to one destination.
package poster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/maheshrc27/postflow/internal/cancel"
	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/postdata"
	"github.com/maheshrc27/postflow/internal/website"
)

var (
	ErrNotLoggedIn = errors.New("not logged in")
	ErrTimeout     = errors.New("post timed out")
	ErrCancelled   = cancel.ErrCancelled
)

const DefaultTimeout = 20 * time.Minute

type AccountSource interface {
	Get(ctx context.Context, id string) (*models.Account, error)
	Refresh(ctx context.Context, id string) (*models.LoginStatus, error)
}

type DataBuilder interface {
	Build(ctx context.Context, req postdata.Request) (*models.PostData, error)
}

type Config struct {
	Submission  *models.Submission
	Part        *models.SubmissionPart
	DefaultPart *models.SubmissionPart
	Website     website.Website
	Files       *postdata.Files
	Accounts    AccountSource
	Builder     DataBuilder

	// Sources are references from destinations that already posted.
	Sources []string
	Wait    time.Duration
	Retries int
	Timeout time.Duration

	// OnChange runs after every state change, outside the poster's lock.
	OnChange func(*Poster)
}

type Poster struct {
	cfg   Config
	token *cancel.Token
	done  chan struct{}

	mu       sync.Mutex
	st       state
	part     *models.SubmissionPart
	postAt   time.Time
	sources  []string
	timer    *time.Timer
	response *models.PostResponse
	err      error
}

func New(cfg Config) *Poster {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	return &Poster{
		cfg:     cfg,
		token:   cancel.NewToken(),
		done:    make(chan struct{}),
		part:    cfg.Part.Clone(),
		sources: append([]string(nil), cfg.Sources...),
		st: state{
			status:               models.PostStatusUnposted,
			waitForExternalStart: cfg.Website.Info().AcceptsSourceURLs,
		},
	}
}

// Start schedules the poster to become ready after its wait time.
func (p *Poster) Start() {
	p.mu.Lock()
	if p.timer != nil || p.st.done {
		p.mu.Unlock()
		return
	}
	p.postAt = time.Now().Add(p.cfg.Wait)
	p.timer = time.AfterFunc(p.cfg.Wait, func() { p.fire(evReady) })
	p.mu.Unlock()
	p.notify()
}

// DoPost starts a poster that is waiting for an external source.
func (p *Poster) DoPost() { p.fire(evStart) }

// Cancel sets the cancel token. Before posting has begun the poster ends
// CANCELLED right away; afterwards the attempt loop stops before its next
// attempt.
func (p *Poster) Cancel() {
	p.token.Cancel()
	p.mu.Lock()
	if !p.st.posting && p.timer != nil {
		p.timer.Stop()
	}
	p.mu.Unlock()
	p.fire(evCancel)
}

// AddSource records a reference posted by a sibling destination.
func (p *Poster) AddSource(source string) {
	if source == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range p.sources {
		if s == source {
			return
		}
	}
	p.sources = append(p.sources, source)
}

func (p *Poster) Done() <-chan struct{} { return p.done }

func (p *Poster) Result() (*models.PostResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.response, p.err
}

// Part returns the part with its final status and reference applied.
func (p *Poster) Part() *models.SubmissionPart {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.part.Clone()
}

func (p *Poster) Website() website.Website { return p.cfg.Website }

func (p *Poster) IsDone() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.st.done
}

// IsWaiting reports a poster that is ready but holds for an external start.
func (p *Poster) IsWaiting() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.st.ready && !p.st.posting && !p.st.done
}

func (p *Poster) Status() models.PosterStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := models.PosterStatus{
		PartID:               p.part.ID,
		Website:              p.part.Website,
		AccountID:            p.part.AccountID,
		PostAt:               p.postAt,
		Status:               p.st.status,
		IsReady:              p.st.ready,
		IsPosting:            p.st.posting,
		IsDone:               p.st.done,
		WaitForExternalStart: p.st.waitForExternalStart,
		Sources:              append([]string(nil), p.sources...),
	}
	if p.response != nil {
		s.Source = p.response.Source
	}
	if p.err != nil {
		s.Error = p.err.Error()
	}
	return s
}

func (p *Poster) fire(ev event) {
	p.mu.Lock()
	next, effects := transition(p.st, ev)
	p.st = next
	if next.done {
		p.part.PostStatus = next.status
		if p.response != nil && p.response.Source != "" {
			p.part.PostedTo = p.response.Source
		}
	}
	p.mu.Unlock()

	for _, eff := range effects {
		switch eff {
		case effBeginPost:
			go p.run()
		case effEmitStatus:
			p.notify()
		case effEmitDone:
			slog.Info("poster done",
				"submission_id", p.cfg.Submission.ID,
				"website", p.part.Website,
				"account_id", p.part.AccountID,
				"status", next.status,
			)
			close(p.done)
		}
	}
}

func (p *Poster) notify() {
	if p.cfg.OnChange != nil {
		p.cfg.OnChange(p)
	}
}

func (p *Poster) run() {
	ctx, cancelFn := context.WithTimeout(context.Background(), p.cfg.Timeout)
	defer cancelFn()

	resp, err := p.attempt(ctx)

	p.mu.Lock()
	p.response = p.toResponse(resp, err)
	p.err = err
	p.mu.Unlock()

	switch {
	case err == nil:
		p.fire(evSucceeded)
	case errors.Is(err, ErrCancelled):
		p.fire(evAborted)
	default:
		slog.Warn("post failed",
			"submission_id", p.cfg.Submission.ID,
			"website", p.part.Website,
			"account_id", p.part.AccountID,
			"error", err,
		)
		p.fire(evFailed)
	}
}

func (p *Poster) attempt(ctx context.Context) (*models.PostResponse, error) {
	accountID := p.cfg.Part.AccountID
	info := p.cfg.Website.Info()

	if info.RefreshBeforePost {
		status, err := p.cfg.Accounts.Refresh(ctx, accountID)
		if ctx.Err() == context.DeadlineExceeded {
			return nil, ErrTimeout
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNotLoggedIn, err)
		}
		if status == nil || !status.LoggedIn {
			return nil, ErrNotLoggedIn
		}
	}

	p.mu.Lock()
	sources := append([]string(nil), p.sources...)
	p.mu.Unlock()

	data, err := p.cfg.Builder.Build(ctx, postdata.Request{
		Submission:  p.cfg.Submission,
		Part:        p.cfg.Part,
		DefaultPart: p.cfg.DefaultPart,
		Website:     p.cfg.Website,
		Files:       p.cfg.Files,
		Sources:     sources,
	})
	if ctx.Err() == context.DeadlineExceeded {
		return nil, ErrTimeout
	}
	if err != nil {
		return nil, fmt.Errorf("failed to prepare post: %w", err)
	}

	var lastErr error
	for i := 0; i <= p.cfg.Retries; i++ {
		if p.token.IsCancelled() {
			return nil, ErrCancelled
		}
		if ctx.Err() != nil {
			return nil, ErrTimeout
		}

		account, err := p.cfg.Accounts.Get(ctx, accountID)
		if err != nil {
			lastErr = fmt.Errorf("failed to load account: %w", err)
			continue
		}
		if account == nil {
			return nil, fmt.Errorf("account %s not found", accountID)
		}

		resp, err := p.send(ctx, data, account)
		if err == nil {
			return resp, nil
		}
		if errors.Is(err, ErrTimeout) || errors.Is(err, ErrCancelled) {
			return nil, err
		}
		lastErr = err
		slog.Info("post attempt failed",
			"submission_id", p.cfg.Submission.ID,
			"website", info.ID,
			"attempt", i+1,
			"error", err,
		)
	}
	return nil, lastErr
}

// send runs one remote call. The call keeps running after a timeout; its
// result is discarded.
func (p *Poster) send(ctx context.Context, data *models.PostData, account *models.Account) (*models.PostResponse, error) {
	type result struct {
		resp *models.PostResponse
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- result{err: &PanicError{Value: r, Stack: string(debug.Stack())}}
			}
		}()
		var r result
		if p.cfg.Submission.Type == models.SubmissionTypeNotification {
			r.resp, r.err = p.cfg.Website.PostNotificationSubmission(ctx, p.token, data, account)
		} else {
			r.resp, r.err = p.cfg.Website.PostFileSubmission(ctx, p.token, data, account)
		}
		ch <- r
	}()

	select {
	case r := <-ch:
		if r.err == nil && r.resp == nil {
			r.resp = &models.PostResponse{}
		}
		return r.resp, r.err
	case <-ctx.Done():
		return nil, ErrTimeout
	}
}

func (p *Poster) toResponse(resp *models.PostResponse, err error) *models.PostResponse {
	if resp == nil {
		resp = &models.PostResponse{}
	}
	resp.Website = p.part.Website
	resp.AccountID = p.part.AccountID
	if resp.Time.IsZero() {
		resp.Time = time.Now()
	}
	if err != nil {
		resp.Error = err.Error()
		var pe *PanicError
		if errors.As(err, &pe) {
			resp.Stack = pe.Stack
		}
	}
	return resp
}

// PanicError is a panic raised by a destination during a post.
type PanicError struct {
	Value any
	Stack string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic while posting: %v", e.Value)
}
