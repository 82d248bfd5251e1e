package agent

import (
	"fmt"
	"sync"
)

// modelCallLimiter caps the number of model calls in one run, guarding
// against tool loops that never converge. max == 0 means unlimited.
type modelCallLimiter struct {
	max   int
	count int
	mu    sync.Mutex
}

func newModelCallLimiter(max int) *modelCallLimiter {
	return &modelCallLimiter{max: max}
}

// increment counts one model call and errors once the limit is exceeded.
func (l *modelCallLimiter) increment() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.count++
	if l.max > 0 && l.count > l.max {
		return fmt.Errorf("exceeded max model calls: %d", l.max)
	}
	return nil
}

func (l *modelCallLimiter) calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}
