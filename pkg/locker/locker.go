package locker

import "sync"

// A Locker hands out one mutex per key, so that callers can serialize
// work on a single gallery without blocking uploads into other galleries.
// Mutexes are created lazily on first use and kept for the lifetime of the
// process: the key space (gallery names) is small and bounded.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New() *Locker {
	return &Locker{
		locks: make(map[string]*sync.Mutex),
	}
}

// Lock acquires the mutex of the given key, creating it if needed.
func (l *Locker) Lock(key string) {
	l.mu.Lock()
	keyLock, ok := l.locks[key]
	if !ok {
		keyLock = &sync.Mutex{}
		l.locks[key] = keyLock
	}
	l.mu.Unlock()

	keyLock.Lock()
}

// Unlock releases the mutex of the given key. Unlocking a key that was
// never locked panics, like unlocking an unlocked sync.Mutex.
func (l *Locker) Unlock(key string) {
	l.mu.Lock()
	keyLock, ok := l.locks[key]
	l.mu.Unlock()

	if !ok {
		panic("locker: unlock of unknown key " + key)
	}
	keyLock.Unlock()
}
