package job

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blockingRefresher struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
	limit   int
}

func (r *blockingRefresher) RefreshAll(ctx context.Context, concurrency int) error {
	r.limit = concurrency
	if r.calls.Add(1) == 1 {
		close(r.started)
	}
	select {
	case <-r.release:
	case <-ctx.Done():
	}
	return nil
}

func TestRefreshLoginsSkipsOverlappingRuns(t *testing.T) {
	r := &blockingRefresher{started: make(chan struct{}), release: make(chan struct{})}
	job := NewLoginRefreshJob(r, time.Second)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		job.RefreshLogins()
	}()

	<-r.started
	job.RefreshLogins()
	close(r.release)
	wg.Wait()

	assert.Equal(t, int32(1), r.calls.Load())
	assert.Equal(t, concurrencyLimit, r.limit)

	job.RefreshLogins()
	require.Equal(t, int32(2), r.calls.Load())
}
