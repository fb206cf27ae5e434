package recovery

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// accountLocks serialises operations per account. Entries are reference
// counted and dropped when the last holder unlocks.
type accountLocks struct {
	mu      sync.Mutex
	entries map[common.Address]*accountLock
}

type accountLock struct {
	mu   sync.Mutex
	refs int
}

func newAccountLocks() *accountLocks {
	return &accountLocks{entries: make(map[common.Address]*accountLock)}
}

// lock blocks until account is free and returns the matching unlock.
func (l *accountLocks) lock(account common.Address) func() {
	l.mu.Lock()
	e, ok := l.entries[account]
	if !ok {
		e = &accountLock{}
		l.entries[account] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.entries, account)
		}
		l.mu.Unlock()
	}
}
