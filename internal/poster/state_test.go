package poster

import (
	"testing"

	"github.com/maheshrc27/postflow/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestTransition(t *testing.T) {
	unposted := state{status: models.PostStatusUnposted}
	waiting := state{status: models.PostStatusUnposted, waitForExternalStart: true}

	tests := []struct {
		name    string
		from    state
		ev      event
		want    state
		effects []effect
	}{
		{"ready begins post", unposted, evReady,
			state{status: models.PostStatusUnposted, ready: true, posting: true},
			[]effect{effEmitStatus, effBeginPost}},
		{"ready holds when waiting", waiting, evReady,
			state{status: models.PostStatusUnposted, ready: true, waitForExternalStart: true},
			[]effect{effEmitStatus}},
		{"start posts waiting poster", state{status: models.PostStatusUnposted, ready: true, waitForExternalStart: true}, evStart,
			state{status: models.PostStatusUnposted, ready: true, posting: true, waitForExternalStart: true},
			[]effect{effEmitStatus, effBeginPost}},
		{"start before ready clears the wait", waiting, evStart,
			state{status: models.PostStatusUnposted},
			nil},
		{"start while posting is ignored", state{ready: true, posting: true}, evStart,
			state{ready: true, posting: true},
			nil},
		{"success", state{ready: true, posting: true}, evSucceeded,
			state{status: models.PostStatusSuccess, ready: true, done: true},
			[]effect{effEmitStatus, effEmitDone}},
		{"failure", state{ready: true, posting: true}, evFailed,
			state{status: models.PostStatusFailed, ready: true, done: true},
			[]effect{effEmitStatus, effEmitDone}},
		{"cancel before posting", unposted, evCancel,
			state{status: models.PostStatusCancelled, done: true},
			[]effect{effEmitStatus, effEmitDone}},
		{"cancel while posting is a no-op", state{ready: true, posting: true}, evCancel,
			state{ready: true, posting: true},
			nil},
		{"aborted while posting", state{ready: true, posting: true}, evAborted,
			state{status: models.PostStatusCancelled, ready: true, done: true},
			[]effect{effEmitStatus, effEmitDone}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, effects := transition(tt.from, tt.ev)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.effects, effects)
		})
	}
}

func TestTransition_DoneIgnoresEverything(t *testing.T) {
	done := state{status: models.PostStatusSuccess, ready: true, done: true}
	for _, ev := range []event{evReady, evStart, evSucceeded, evFailed, evCancel, evAborted} {
		t.Run(ev.String(), func(t *testing.T) {
			got, effects := transition(done, ev)
			assert.Equal(t, done, got)
			assert.Empty(t, effects)
		})
	}
}
