package index

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/othala/internal/storage"
)

// watcherTestEnv sets up a data dir, storage, and DB for watcher tests.
func watcherTestEnv(t *testing.T) (string, storage.Provider, *DB) {
	t.Helper()
	dataDir := t.TempDir()
	store, err := storage.NewFS(dataDir)
	if err != nil {
		t.Fatal(err)
	}
	dbFile, err := os.CreateTemp("", "othala-watcher-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })
	db, err := Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return dataDir, store, db
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func writeChecklist(t *testing.T, dataDir, rel, content string) {
	t.Helper()
	abs := filepath.Join(dataDir, rel)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestWatcher_NewFileIndexed(t *testing.T) {
	dataDir, store, db := watcherTestEnv(t)
	rel := filepath.Join("ana", "home", "new.md")
	writeChecklist(t, dataDir, filepath.Join("ana", "home", "seed.md"), "# Seed\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var events []string

	go Watch(ctx, db, store, dataDir, quietLogger(), func(kind, path string) {
		mu.Lock()
		events = append(events, kind+":"+path)
		mu.Unlock()
	})

	time.Sleep(100 * time.Millisecond)

	writeChecklist(t, dataDir, rel, "# New\n- [ ] first thing\n")

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum(rel)
		return cs != ""
	}, "new file not indexed by watcher")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			if e == "created:"+rel {
				return true
			}
		}
		return false
	}, "expected created callback for "+rel)

	r, _ := db.Get(rel)
	if r == nil || r.Owner != "ana" || r.Category != "home" || r.Title != "New" {
		t.Errorf("indexed row = %+v", r)
	}
}

func TestWatcher_NewDirWatched(t *testing.T) {
	dataDir, store, db := watcherTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, store, dataDir, quietLogger(), nil)

	time.Sleep(100 * time.Millisecond)

	subDir := filepath.Join(dataDir, "ana", "travel")
	_ = os.MkdirAll(subDir, 0o755)

	time.Sleep(200 * time.Millisecond)

	rel := filepath.Join("ana", "travel", "deep.md")
	writeChecklist(t, dataDir, rel, "# Deep\n")

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum(rel)
		return cs != ""
	}, "file in new subdir not indexed by watcher")
}

func TestWatcher_DeleteRemovesFromIndex(t *testing.T) {
	dataDir, store, db := watcherTestEnv(t)
	rel := filepath.Join("ana", "home", "del.md")

	writeChecklist(t, dataDir, rel, "# Delete Me\n")
	Sync(db, store, quietLogger())

	cs, _ := db.GetChecksum(rel)
	if cs == "" {
		t.Fatal("precondition: file should be indexed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, store, dataDir, quietLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.Remove(filepath.Join(dataDir, rel))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum(rel)
		return cs == ""
	}, "deleted file still in index")
}

func TestWatcher_RenameReconciles(t *testing.T) {
	dataDir, store, db := watcherTestEnv(t)
	oldRel := filepath.Join("ana", "home", "old.md")
	newRel := filepath.Join("ana", "home", "renamed.md")

	writeChecklist(t, dataDir, oldRel, "# Rename\n")
	Sync(db, store, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, store, dataDir, quietLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.Rename(filepath.Join(dataDir, oldRel), filepath.Join(dataDir, newRel))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		oldCS, _ := db.GetChecksum(oldRel)
		newCS, _ := db.GetChecksum(newRel)
		return oldCS == "" && newCS != ""
	}, "rename reconciliation failed: old path should be removed and new path indexed")
}

func TestSync_IndexesAndPrunes(t *testing.T) {
	dataDir, store, db := watcherTestEnv(t)
	rel := filepath.Join("ana", "home", "c1.md")
	writeChecklist(t, dataDir, rel, "# Groceries\n- [x] Milk\n- [ ] Eggs\n")

	if err := Sync(db, store, quietLogger()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	r, _ := db.Get(rel)
	if r == nil {
		t.Fatal("document not indexed by sync")
	}
	if r.ItemsTotal != 2 || r.ItemsDone != 1 {
		t.Errorf("counts = %d/%d, want 1/2 done", r.ItemsDone, r.ItemsTotal)
	}

	_ = os.Remove(filepath.Join(dataDir, rel))
	if err := Sync(db, store, quietLogger()); err != nil {
		t.Fatalf("second Sync: %v", err)
	}
	if r, _ := db.Get(rel); r != nil {
		t.Error("stale entry survived sync")
	}
}
