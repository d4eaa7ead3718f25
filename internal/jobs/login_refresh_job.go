package job

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

const concurrencyLimit = 10

// Refresher checks every account's login.
type Refresher interface {
	RefreshAll(ctx context.Context, concurrency int) error
}

type LoginRefreshJob struct {
	accounts Refresher
	timeout  time.Duration
	running  atomic.Bool
}

func NewLoginRefreshJob(accounts Refresher, timeout time.Duration) *LoginRefreshJob {
	return &LoginRefreshJob{
		accounts: accounts,
		timeout:  timeout,
	}
}

// RefreshLogins is run by cron. A run that starts while the previous one is
// still going is skipped.
func (j *LoginRefreshJob) RefreshLogins() {
	if !j.running.CompareAndSwap(false, true) {
		slog.Info("login refresh already running")
		return
	}
	defer j.running.Store(false)

	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	if err := j.accounts.RefreshAll(ctx, concurrencyLimit); err != nil {
		slog.Error("login refresh failed", "error", err)
		return
	}
	slog.Info("login refresh finished", "took", time.Since(start))
}
