// Package lock provides per-key locking for balance operations, game sessions,
// ticket transitions and guild settings.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrLockTimeout is returned when a lock is not acquired in time.
var ErrLockTimeout = errors.New("lock acquisition timeout")

// keyMutex is one key's mutex. refs counts its holder and waiters; the entry
// is dropped from the map when it reaches zero.
type keyMutex struct {
	mu   sync.Mutex
	refs int // guarded by KeyLock.mu
}

// KeyLock provides one mutex per key. Keys nobody holds or waits on take no
// memory. The zero value is not usable; call New.
type KeyLock[K comparable] struct {
	mu    sync.Mutex
	locks map[K]*keyMutex
}

// New creates a new KeyLock instance.
func New[K comparable]() *KeyLock[K] {
	return &KeyLock[K]{locks: make(map[K]*keyMutex)}
}

// acquire returns the mutex for key, creating it if needed, and takes a
// reference on it.
func (kl *KeyLock[K]) acquire(key K) *keyMutex {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	l, ok := kl.locks[key]
	if !ok {
		l = &keyMutex{}
		kl.locks[key] = l
	}
	l.refs++
	return l
}

// release drops a reference taken by acquire.
func (kl *KeyLock[K]) release(key K, l *keyMutex) {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	l.refs--
	if l.refs == 0 && kl.locks[key] == l {
		delete(kl.locks, key)
	}
}

// Lock acquires the lock for key.
func (kl *KeyLock[K]) Lock(key K) {
	kl.acquire(key).mu.Lock()
}

// Unlock releases the lock for key. Unlocking a key that is not held is a
// no-op.
func (kl *KeyLock[K]) Unlock(key K) {
	kl.mu.Lock()
	l, ok := kl.locks[key]
	kl.mu.Unlock()
	if !ok {
		return
	}
	// A waiter holds a reference, so the entry outlives this release.
	kl.release(key, l)
	l.mu.Unlock()
}

// TryLock attempts to acquire the lock without blocking.
func (kl *KeyLock[K]) TryLock(key K) bool {
	l := kl.acquire(key)
	if l.mu.TryLock() {
		return true
	}
	kl.release(key, l)
	return false
}

// LockWithTimeout attempts to acquire the lock, giving up after timeout or
// when ctx is done. Returns true if the lock was acquired.
func (kl *KeyLock[K]) LockWithTimeout(ctx context.Context, key K, timeout time.Duration) bool {
	l := kl.acquire(key)

	done := make(chan struct{})
	go func() {
		l.mu.Lock()
		close(done)
	}()

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case <-done:
		return true
	case <-timeoutCtx.Done():
		// The waiter still gets the mutex eventually; release it on its behalf
		go func() {
			<-done
			kl.Unlock(key)
		}()
		return false
	}
}

// WithLock executes fn while holding the lock for key.
func (kl *KeyLock[K]) WithLock(key K, fn func() error) error {
	kl.Lock(key)
	defer kl.Unlock(key)
	return fn()
}

// WithLockContext executes fn while holding the lock for key, failing with
// ErrLockTimeout if the lock is not acquired in time.
func (kl *KeyLock[K]) WithLockContext(ctx context.Context, key K, timeout time.Duration, fn func() error) error {
	if !kl.LockWithTimeout(ctx, key, timeout) {
		return ErrLockTimeout
	}
	defer kl.Unlock(key)

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fn()
	}
}

// IsLocked reports whether key is currently held. Point-in-time only.
func (kl *KeyLock[K]) IsLocked(key K) bool {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	l, ok := kl.locks[key]
	if !ok {
		return false
	}
	if l.mu.TryLock() {
		l.mu.Unlock()
		return false
	}
	return true
}

// size reports how many keys are tracked.
func (kl *KeyLock[K]) size() int {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	return len(kl.locks)
}
