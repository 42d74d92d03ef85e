package coord

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestLockTryAcquireExclusion(t *testing.T) {
	dir := t.TempDir()

	a := NewLock(dir, LockAssign)
	b := NewLock(dir, LockAssign)

	got, err := a.TryAcquire()
	if err != nil || !got {
		t.Fatalf("first TryAcquire = (%v, %v), want (true, nil)", got, err)
	}
	got, err = b.TryAcquire()
	if err != nil || got {
		t.Fatalf("contended TryAcquire = (%v, %v), want (false, nil)", got, err)
	}

	if err := a.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}
	got, err = b.TryAcquire()
	if err != nil || !got {
		t.Fatalf("TryAcquire after release = (%v, %v), want (true, nil)", got, err)
	}
	b.Release()
}

func TestLockDistinctNamesIndependent(t *testing.T) {
	dir := t.TempDir()

	assign := NewLock(dir, LockAssign)
	merge := NewLock(dir, LockMerge)

	if got, _ := assign.TryAcquire(); !got {
		t.Fatal("assign lock should be free")
	}
	if got, _ := merge.TryAcquire(); !got {
		t.Fatal("merge lock should be free while assign is held")
	}
	assign.Release()
	merge.Release()
}

func TestLockAcquireTimeout(t *testing.T) {
	dir := t.TempDir()

	holder := NewLock(dir, LockMerge)
	if got, _ := holder.TryAcquire(); !got {
		t.Fatal("setup: could not take lock")
	}
	defer holder.Release()

	waiter := NewLock(dir, LockMerge)
	err := waiter.Acquire(context.Background(), 200*time.Millisecond)
	if !errors.Is(err, ErrLockTimeout) {
		t.Fatalf("Acquire = %v, want ErrLockTimeout", err)
	}
}

func TestLockAcquireWaitsForRelease(t *testing.T) {
	dir := t.TempDir()

	holder := NewLock(dir, LockAssign)
	if got, _ := holder.TryAcquire(); !got {
		t.Fatal("setup: could not take lock")
	}
	go func() {
		time.Sleep(100 * time.Millisecond)
		holder.Release()
	}()

	waiter := NewLock(dir, LockAssign)
	if err := waiter.Acquire(context.Background(), 2*time.Second); err != nil {
		t.Fatalf("Acquire after pending release: %v", err)
	}
	waiter.Release()
}

func TestLockConcurrentHolders(t *testing.T) {
	dir := t.TempDir()

	var mu sync.Mutex
	inside := 0
	maxInside := 0

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l := NewLock(dir, LockAssign)
			if err := l.Acquire(context.Background(), 5*time.Second); err != nil {
				t.Errorf("acquire: %v", err)
				return
			}
			mu.Lock()
			inside++
			if inside > maxInside {
				maxInside = inside
			}
			mu.Unlock()

			time.Sleep(5 * time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
			l.Release()
		}()
	}
	wg.Wait()

	if maxInside != 1 {
		t.Fatalf("lock admitted %d holders at once, want 1", maxInside)
	}
}

func TestCounterIncrement(t *testing.T) {
	dir := t.TempDir()
	c := NewCounter(dir)

	v, err := c.Value()
	if err != nil || v != 0 {
		t.Fatalf("fresh counter = (%d, %v), want (0, nil)", v, err)
	}
	for i := int64(1); i <= 5; i++ {
		got, err := c.Increment()
		if err != nil || got != i {
			t.Fatalf("increment %d = (%d, %v)", i, got, err)
		}
	}

	// Re-opening sees the durable value.
	if v, _ := NewCounter(dir).Value(); v != 5 {
		t.Fatalf("reopened counter = %d, want 5", v)
	}
}
