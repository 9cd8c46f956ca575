package copylock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLockSerializesSameKey(t *testing.T) {
	k := New()

	const workers = 16
	const iterations = 100
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				unlock := k.Lock(42)
				counter++
				unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, workers*iterations, counter)
}

func TestLockKeysAreIndependent(t *testing.T) {
	k := New()

	unlock1 := k.Lock(1)
	defer unlock1()

	// A different key must not block behind key 1
	done := make(chan struct{})
	go func() {
		unlock2 := k.Lock(2)
		unlock2()
		close(done)
	}()

	<-done
}

func TestLockReleasesEntries(t *testing.T) {
	k := New()

	unlock := k.Lock(7)
	unlock()

	k.mu.Lock()
	defer k.mu.Unlock()
	assert.Empty(t, k.locks)
}
