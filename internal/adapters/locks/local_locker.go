package locks

import (
	"context"
	"sync"
	"time"

	"github.com/zatekoja/careslot/internal/domain/providers"
)

// keyLock is a one-token semaphore; a channel lets waiters give up on a timer.
type keyLock struct {
	token chan struct{}
	refs  int
}

// LocalLocker is an in-process keyed mutex table. Entries are reference
// counted and removed when no holder or waiter remains.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
	wait  time.Duration
}

// NewLocalLocker creates a locker whose Lock gives up after wait
func NewLocalLocker(wait time.Duration) *LocalLocker {
	return &LocalLocker{
		locks: make(map[string]*keyLock),
		wait:  wait,
	}
}

var _ providers.SlotLocker = (*LocalLocker)(nil)

// Lock acquires every key or none of them
func (l *LocalLocker) Lock(ctx context.Context, keys ...string) (providers.UnlockFunc, error) {
	keys = normalizeKeys(keys)

	timer := time.NewTimer(l.wait)
	defer timer.Stop()

	held := make([]*keyLock, 0, len(keys))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			<-held[i].token
		}
		for i := len(held) - 1; i >= 0; i-- {
			l.unref(keys[i])
		}
	}

	for _, key := range keys {
		kl := l.ref(key)
		select {
		case kl.token <- struct{}{}:
			held = append(held, kl)
		case <-timer.C:
			l.unref(key)
			release()
			return nil, busy(key)
		case <-ctx.Done():
			l.unref(key)
			release()
			return nil, ctx.Err()
		}
	}

	var once sync.Once
	return func() { once.Do(release) }, nil
}

func (l *LocalLocker) ref(key string) *keyLock {
	l.mu.Lock()
	defer l.mu.Unlock()

	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{token: make(chan struct{}, 1)}
		l.locks[key] = kl
	}
	kl.refs++
	return kl
}

func (l *LocalLocker) unref(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	kl, ok := l.locks[key]
	if !ok {
		return
	}
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, key)
	}
}

// Len reports how many keys currently have holders or waiters
func (l *LocalLocker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
