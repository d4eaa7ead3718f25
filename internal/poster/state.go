package poster

import "github.com/maheshrc27/postflow/internal/models"

type state struct {
	status               models.PostStatus
	ready                bool
	posting              bool
	done                 bool
	waitForExternalStart bool
}

type event int

const (
	// evReady fires when the scheduled delay elapses.
	evReady event = iota
	// evStart is an external request to post a waiting poster.
	evStart
	evSucceeded
	evFailed
	// evCancel is a user cancel request.
	evCancel
	// evAborted reports that the attempt loop observed the cancel token.
	evAborted
)

func (e event) String() string {
	switch e {
	case evReady:
		return "ready"
	case evStart:
		return "start"
	case evSucceeded:
		return "succeeded"
	case evFailed:
		return "failed"
	case evCancel:
		return "cancel"
	case evAborted:
		return "aborted"
	}
	return "unknown"
}

type effect int

const (
	effBeginPost effect = iota
	effEmitStatus
	effEmitDone
)

// transition is the whole lifecycle of a poster. A done poster ignores every
// event, so the done effect is produced at most once.
func transition(s state, ev event) (state, []effect) {
	if s.done {
		return s, nil
	}
	switch ev {
	case evReady:
		if s.ready {
			return s, nil
		}
		s.ready = true
		if s.waitForExternalStart {
			return s, []effect{effEmitStatus}
		}
		s.posting = true
		return s, []effect{effEmitStatus, effBeginPost}

	case evStart:
		if s.posting {
			return s, nil
		}
		if !s.ready {
			// Post as soon as the delay elapses.
			s.waitForExternalStart = false
			return s, nil
		}
		s.posting = true
		return s, []effect{effEmitStatus, effBeginPost}

	case evSucceeded:
		return finished(s, models.PostStatusSuccess)

	case evFailed:
		return finished(s, models.PostStatusFailed)

	case evCancel:
		if s.posting {
			return s, nil
		}
		return finished(s, models.PostStatusCancelled)

	case evAborted:
		return finished(s, models.PostStatusCancelled)
	}
	return s, nil
}

func finished(s state, status models.PostStatus) (state, []effect) {
	s.status = status
	s.posting = false
	s.done = true
	return s, []effect{effEmitStatus, effEmitDone}
}
