package cancel

import (
	"errors"
	"sync"
)

var ErrCancelled = errors.New("post cancelled")

// Token is a cooperative cancellation flag shared between a Poster and the
// destination call it drives. Work checks IsCancelled between suspension
// points; nothing is interrupted mid-call.
type Token struct {
	mu        sync.Mutex
	cancelled bool
	callbacks []func()
}

func NewToken() *Token {
	return &Token{}
}

// Cancel marks the token cancelled and runs registered callbacks once.
func (t *Token) Cancel() {
	t.mu.Lock()
	if t.cancelled {
		t.mu.Unlock()
		return
	}
	t.cancelled = true
	callbacks := t.callbacks
	t.callbacks = nil
	t.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
}

func (t *Token) IsCancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled
}

// OnCancel registers fn to run when the token is cancelled. If the token is
// already cancelled fn runs immediately.
func (t *Token) OnCancel(fn func()) {
	if fn == nil {
		return
	}
	t.mu.Lock()
	if t.cancelled {
		t.mu.Unlock()
		fn()
		return
	}
	t.callbacks = append(t.callbacks, fn)
	t.mu.Unlock()
}
