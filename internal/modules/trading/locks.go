package trading

import (
	"context"
	"sync"
)

// UserLocks serializes work per username. Different usernames never contend.
// Entries are reference counted and removed once no goroutine holds or waits on them.
type UserLocks struct {
	mu    sync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	sem  chan struct{}
	refs int
}

// NewUserLocks creates an empty lock table
func NewUserLocks() *UserLocks {
	return &UserLocks{locks: make(map[string]*userLock)}
}

// Lock blocks until the username's lock is held or ctx is done.
// The returned unlock function is safe to call more than once.
func (l *UserLocks) Lock(ctx context.Context, username string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	ul, ok := l.locks[username]
	if !ok {
		ul = &userLock{sem: make(chan struct{}, 1)}
		l.locks[username] = ul
	}
	ul.refs++
	l.mu.Unlock()

	select {
	case ul.sem <- struct{}{}:
	case <-ctx.Done():
		l.release(username, ul)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-ul.sem
			l.release(username, ul)
		})
	}, nil
}

func (l *UserLocks) release(username string, ul *userLock) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ul.refs--
	if ul.refs == 0 {
		delete(l.locks, username)
	}
}

// Active returns the number of usernames currently locked or awaited
func (l *UserLocks) Active() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
