package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestAcquireSucceedsAndRelease(t *testing.T) {
	tmpDir := t.TempDir()

	lock, err := Acquire(Options{StateDir: tmpDir, Key: filepath.Join(tmpDir, "workspace")})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := os.Stat(lock.Path); err != nil {
		t.Fatalf("expected lock file to exist: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, err := os.Stat(lock.Path); !os.IsNotExist(err) {
		t.Fatalf("expected lock file removed after release")
	}
}

func TestAcquireBlocksSecondInstanceWithLiveOwner(t *testing.T) {
	tmpDir := t.TempDir()
	key := filepath.Join(tmpDir, "workspace")
	lockPath := resolvePath(tmpDir, key)

	body := fmt.Sprintf(`{"pid": %d, "created_at": "2024-01-01T00:00:00Z", "key": "test"}`, os.Getpid())
	if err := os.WriteFile(lockPath, []byte(body), 0o644); err != nil {
		t.Fatalf("write lock: %v", err)
	}

	_, err := Acquire(Options{StateDir: tmpDir, Key: key, Timeout: 200 * time.Millisecond, PollInterval: 20 * time.Millisecond})
	if err == nil {
		t.Fatal("expected acquire to fail against a live-owner lock")
	}
}

func TestAcquireRemovesStaleDeadOwnerLock(t *testing.T) {
	tmpDir := t.TempDir()
	key := filepath.Join(tmpDir, "workspace")
	lockPath := resolvePath(tmpDir, key)

	// PID 999999 should not correspond to a live process in any test env.
	body := `{"pid": 999999, "created_at": "2024-01-01T00:00:00Z", "key": "test"}`
	if err := os.WriteFile(lockPath, []byte(body), 0o644); err != nil {
		t.Fatalf("write lock: %v", err)
	}

	lock, err := Acquire(Options{StateDir: tmpDir, Key: key, Timeout: time.Second, PollInterval: 10 * time.Millisecond})
	if err != nil {
		t.Fatalf("expected dead-owner lock to be reclaimed, got %v", err)
	}
	lock.Release()
}

func TestAcquireForceRemovesExistingLock(t *testing.T) {
	tmpDir := t.TempDir()
	key := filepath.Join(tmpDir, "workspace")
	lockPath := resolvePath(tmpDir, key)

	body := fmt.Sprintf(`{"pid": %d, "created_at": "2024-01-01T00:00:00Z", "key": "test"}`, os.Getpid())
	if err := os.WriteFile(lockPath, []byte(body), 0o644); err != nil {
		t.Fatalf("write lock: %v", err)
	}

	lock, err := Acquire(Options{StateDir: tmpDir, Key: key, Force: true})
	if err != nil {
		t.Fatalf("expected force acquire to succeed, got %v", err)
	}
	lock.Release()
}
