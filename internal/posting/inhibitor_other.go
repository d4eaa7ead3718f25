//go:build !linux

package posting

import "errors"

type SleepInhibitor struct{ noopInhibitor }

func NewSleepInhibitor() (*SleepInhibitor, error) {
	return nil, errors.New("sleep inhibition requires systemd-logind")
}

func (s *SleepInhibitor) Close() {}
