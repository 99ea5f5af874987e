package platform

import (
	"time"

	"runepause/internal/core/timekeeper"
)

// IdleProvider returns the duration since last user input. Every provider
// satisfies timekeeper.IdleChecker and reports timekeeper.ErrIdleUnsupported
// where the platform offers no query.
type IdleProvider interface {
	timekeeper.IdleChecker
}

// NewIdleProvider returns a platform-specific idle provider.
func NewIdleProvider() IdleProvider {
	return newIdleProvider()
}

type unsupportedIdleProvider struct{}

func (unsupportedIdleProvider) IdleDuration() (time.Duration, error) {
	return 0, timekeeper.ErrIdleUnsupported
}
