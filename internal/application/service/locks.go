package service

import "sync"

// SupplierLocks serializes mutations of one supplier's score record inside
// this process. Entries are dropped once no goroutine holds or waits on them.
type SupplierLocks struct {
	mu    sync.Mutex
	locks map[string]*supplierLock
}

type supplierLock struct {
	mu   sync.Mutex
	refs int
}

// NewSupplierLocks creates an empty lock table
func NewSupplierLocks() *SupplierLocks {
	return &SupplierLocks{locks: make(map[string]*supplierLock)}
}

// Lock blocks until the supplier's lock is held and returns its release func.
// The lock is not reentrant.
func (l *SupplierLocks) Lock(supplierID string) func() {
	l.mu.Lock()
	entry, ok := l.locks[supplierID]
	if !ok {
		entry = &supplierLock{}
		l.locks[supplierID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, supplierID)
		}
		l.mu.Unlock()
	}
}

// Len returns the number of suppliers currently locked or waited on
func (l *SupplierLocks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
