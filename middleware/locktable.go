package middleware

import "sync"

// LockTable hands out one mutex per key, created lazily on first use. The
// table itself is protected by its own mutex so concurrent lookup-or-create
// from parallel tool calls never double-creates a lock for the same key.
type LockTable struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLockTable creates an empty lock table.
func NewLockTable() *LockTable {
	return &LockTable{locks: make(map[string]*sync.Mutex)}
}

// Get returns the mutex for key, creating it atomically on first access.
func (t *LockTable) Get(key string) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	mu, ok := t.locks[key]
	if !ok {
		mu = &sync.Mutex{}
		t.locks[key] = mu
	}
	return mu
}

// Len returns the number of locks created so far.
func (t *LockTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.locks)
}
