package adapter

import (
	"sync"
	"testing"
)

func TestLinkLocksSerializesSameKey(t *testing.T) {
	locks := NewLinkLocks()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("link-1")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Fatalf("counter = %d, want 50", counter)
	}
}

func TestLinkLocksReleasedEntriesAreDropped(t *testing.T) {
	locks := NewLinkLocks()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		key := string(rune('a' + i))
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock(key)
			unlock()
		}()
	}
	wg.Wait()

	locks.mu.Lock()
	size := len(locks.locks)
	locks.mu.Unlock()
	if size != 0 {
		t.Fatalf("lock map holds %d entries after all unlocks, want 0", size)
	}

	// A contended key is still dropped once every holder releases.
	unlockA := locks.Lock("shared")
	done := make(chan struct{})
	go func() {
		unlock := locks.Lock("shared")
		unlock()
		close(done)
	}()
	unlockA()
	<-done

	locks.mu.Lock()
	size = len(locks.locks)
	locks.mu.Unlock()
	if size != 0 {
		t.Fatalf("lock map holds %d entries after contended release, want 0", size)
	}
}

func TestLinkLocksIndependentKeys(t *testing.T) {
	locks := NewLinkLocks()

	unlockA := locks.Lock("link-a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := locks.Lock("link-b")
		unlockB()
		close(done)
	}()
	<-done
}
