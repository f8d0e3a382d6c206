package lock

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestConcurrentBalanceSafetyProperty checks that concurrent adjustments under the
// same key end with the same balance as sequential execution.
func TestConcurrentBalanceSafetyProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		initialBalance := rapid.Int64Range(-1000, 100000).Draw(t, "initialBalance")
		amounts := rapid.SliceOfN(rapid.Int64Range(-500, 500), 2, 20).Draw(t, "amounts")
		userID := fmt.Sprint(rapid.Int64Range(1, 1_000_000).Draw(t, "userID"))

		expected := initialBalance
		for _, a := range amounts {
			expected += a
		}

		kl := New[string]()
		balance := initialBalance

		var wg sync.WaitGroup
		wg.Add(len(amounts))
		for _, a := range amounts {
			go func(amount int64) {
				defer wg.Done()
				kl.Lock(userID)
				defer kl.Unlock(userID)
				balance += amount
			}(a)
		}
		wg.Wait()

		if balance != expected {
			t.Fatalf("balance mismatch: expected %d, got %d", expected, balance)
		}
	})
}

// TestIndependentKeysProperty checks that distinct keys keep independent state.
func TestIndependentKeysProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numKeys := rapid.IntRange(2, 10).Draw(t, "numKeys")
		opsPerKey := rapid.IntRange(5, 20).Draw(t, "opsPerKey")

		kl := New[int]()
		counters := make([]int, numKeys)

		var wg sync.WaitGroup
		wg.Add(numKeys * opsPerKey)
		for k := 0; k < numKeys; k++ {
			for j := 0; j < opsPerKey; j++ {
				go func(key int) {
					defer wg.Done()
					_ = kl.WithLock(key, func() error {
						counters[key]++
						return nil
					})
				}(k)
			}
		}
		wg.Wait()

		for k, c := range counters {
			if c != opsPerKey {
				t.Fatalf("key %d: expected %d ops, got %d", k, opsPerKey, c)
			}
		}
	})
}

// TestTryLockSingleWinnerProperty checks that only one concurrent TryLock can hold
// a key at a time, the guard used to exclude racing hit/stand calls.
func TestTryLockSingleWinnerProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		key := rapid.StringMatching(`[a-z]{3,8}_[0-9]{1,6}`).Draw(t, "key")
		attempts := rapid.IntRange(2, 20).Draw(t, "attempts")

		kl := New[string]()
		require.True(t, kl.TryLock(key))

		var wins atomic.Int32
		var wg sync.WaitGroup
		wg.Add(attempts)
		for i := 0; i < attempts; i++ {
			go func() {
				defer wg.Done()
				if kl.TryLock(key) {
					wins.Add(1)
					kl.Unlock(key)
				}
			}()
		}
		wg.Wait()

		if wins.Load() != 0 {
			t.Fatalf("TryLock succeeded %d times while key was held", wins.Load())
		}
		kl.Unlock(key)
		if !kl.TryLock(key) {
			t.Fatal("key should be free after unlock")
		}
		kl.Unlock(key)
	})
}

func TestLockWithTimeout(t *testing.T) {
	kl := New[string]()
	kl.Lock("ticket:1")

	ok := kl.LockWithTimeout(context.Background(), "ticket:1", 20*time.Millisecond)
	assert.False(t, ok)
	assert.True(t, kl.IsLocked("ticket:1"))

	kl.Unlock("ticket:1")

	// The abandoned waiter releases the mutex it eventually acquires
	assert.Eventually(t, func() bool { return !kl.IsLocked("ticket:1") }, time.Second, 5*time.Millisecond)

	err := kl.WithLockContext(context.Background(), "ticket:1", time.Second, func() error { return nil })
	assert.NoError(t, err)
}

func TestWithLockContext_Timeout(t *testing.T) {
	kl := New[string]()
	kl.Lock("k")
	defer kl.Unlock("k")

	err := kl.WithLockContext(context.Background(), "k", 10*time.Millisecond, func() error {
		t.Fatal("fn must not run without the lock")
		return nil
	})
	assert.ErrorIs(t, err, ErrLockTimeout)
	assert.False(t, kl.IsLocked("other"))
}

// TestReleasedKeysAreDroppedProperty checks that keys leave the map once
// nobody holds or waits on them, however many distinct keys pass through.
func TestReleasedKeysAreDroppedProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		keys := rapid.IntRange(1, 50).Draw(t, "keys")
		workers := rapid.IntRange(1, 8).Draw(t, "workers")

		kl := New[string]()
		var wg sync.WaitGroup
		wg.Add(keys * workers)
		for k := 0; k < keys; k++ {
			key := fmt.Sprintf("ticket:g1:%d", k)
			for w := 0; w < workers; w++ {
				go func() {
					defer wg.Done()
					_ = kl.WithLock(key, func() error { return nil })
				}()
			}
		}
		wg.Wait()

		if n := kl.size(); n != 0 {
			t.Fatalf("%d keys still tracked after every lock was released", n)
		}
	})
}

func TestWaiterKeepsKeyTracked(t *testing.T) {
	kl := New[string]()
	kl.Lock("k")

	acquired := make(chan struct{})
	go func() {
		kl.Lock("k")
		close(acquired)
	}()
	assert.Eventually(t, func() bool {
		kl.mu.Lock()
		defer kl.mu.Unlock()
		return kl.locks["k"].refs == 2
	}, time.Second, time.Millisecond)

	kl.Unlock("k")
	<-acquired
	assert.True(t, kl.IsLocked("k"))
	assert.Equal(t, 1, kl.size())

	kl.Unlock("k")
	assert.Equal(t, 0, kl.size())
	require.True(t, kl.TryLock("other"))
	kl.Unlock("other")
	assert.Equal(t, 0, kl.size())
}
