//go:build linux

package posting

import (
	"fmt"
	"os"
	"sync"

	"github.com/coreos/go-systemd/v22/login1"
)

// SleepInhibitor holds a systemd-logind block lock on sleep and idle.
type SleepInhibitor struct {
	mu   sync.Mutex
	conn *login1.Conn
	lock *os.File
}

func NewSleepInhibitor() (*SleepInhibitor, error) {
	conn, err := login1.New()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to logind: %w", err)
	}
	return &SleepInhibitor{conn: conn}, nil
}

func (s *SleepInhibitor) Acquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lock != nil {
		return nil
	}
	f, err := s.conn.Inhibit("sleep:idle", "postflow", "Posting submissions", "block")
	if err != nil {
		return fmt.Errorf("failed to inhibit sleep: %w", err)
	}
	s.lock = f
	return nil
}

func (s *SleepInhibitor) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lock == nil {
		return nil
	}
	err := s.lock.Close()
	s.lock = nil
	return err
}

func (s *SleepInhibitor) Close() {
	_ = s.Release()
	s.conn.Close()
}
