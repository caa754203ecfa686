package lockfile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/othala/internal/apperr"
)

func TestAcquireAndRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user.lock")
	m := NewManager(DefaultOptions())

	l, err := m.Acquire(context.Background(), path)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("marker missing after acquire: %v", err)
	}

	l.Release()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("marker still present after release")
	}
}

func TestAcquire_ContentionTimesOut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user.lock")
	m := NewManager(Options{
		StaleAfter: time.Hour, // holder is never considered dead
		Retries:    3,
		Backoff:    5 * time.Millisecond,
		MaxBackoff: 10 * time.Millisecond,
	})

	held, err := m.Acquire(context.Background(), path)
	if err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	defer held.Release()

	_, err = m.Acquire(context.Background(), path)
	if !errors.Is(err, apperr.ErrLockTimeout) {
		t.Fatalf("err = %v, want ErrLockTimeout", err)
	}
}

func TestAcquire_StaleLockReclaimed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user.lock")
	if err := os.WriteFile(path, []byte("12345 dead\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-time.Minute)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatal(err)
	}

	m := NewManager(Options{
		StaleAfter: 30 * time.Second,
		Retries:    2,
		Backoff:    5 * time.Millisecond,
		MaxBackoff: 10 * time.Millisecond,
	})
	l, err := m.Acquire(context.Background(), path)
	if err != nil {
		t.Fatalf("stale lock not reclaimed: %v", err)
	}
	l.Release()
}

func TestAcquire_SerializesConcurrentHolders(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user.lock")
	m := NewManager(Options{
		StaleAfter: time.Hour,
		Retries:    50,
		Backoff:    2 * time.Millisecond,
		MaxBackoff: 10 * time.Millisecond,
	})

	const workers = 4
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l, err := m.Acquire(context.Background(), path)
			if err != nil {
				t.Errorf("Acquire: %v", err)
				return
			}
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
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

	if maxSeen != 1 {
		t.Errorf("critical section held by %d goroutines at once", maxSeen)
	}
}

func TestAcquire_ContextCancelled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user.lock")
	m := NewManager(Options{
		StaleAfter: time.Hour,
		Retries:    100,
		Backoff:    50 * time.Millisecond,
		MaxBackoff: 50 * time.Millisecond,
	})

	held, err := m.Acquire(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	defer held.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = m.Acquire(ctx, path)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want context deadline", err)
	}
}
