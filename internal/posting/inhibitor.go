package posting

// Inhibitor keeps the machine awake while submissions are queued or posting.
// Acquire and Release are only called on transitions.
type Inhibitor interface {
	Acquire() error
	Release() error
}

type noopInhibitor struct{}

func (noopInhibitor) Acquire() error { return nil }
func (noopInhibitor) Release() error { return nil }

// NoopInhibitor is used when sleep inhibition is disabled.
func NoopInhibitor() Inhibitor { return noopInhibitor{} }
