package singleinstance

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func testLockName(t *testing.T, suffix string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		return fmt.Sprintf(`Local\winlock-test-%d-%s`, os.Getpid(), suffix)
	}
	return filepath.Join(t.TempDir(), suffix+".lock")
}

func TestTryLock(t *testing.T) {
	tests := []struct {
		name string
		run  func(t *testing.T)
	}{
		{
			name: "first lock succeeds",
			run: func(t *testing.T) {
				lock, err := TryLock(testLockName(t, "first"))
				if err != nil {
					t.Fatalf("TryLock failed: %v", err)
				}
				if err := lock.Release(); err != nil {
					t.Fatalf("Release failed: %v", err)
				}
			},
		},
		{
			name: "second lock returns ErrAlreadyRunning",
			run: func(t *testing.T) {
				name := testLockName(t, "second")
				lock1, err := TryLock(name)
				if err != nil {
					t.Fatalf("first TryLock failed: %v", err)
				}
				defer lock1.Release()

				lock2, err := TryLock(name)
				if !errors.Is(err, ErrAlreadyRunning) {
					t.Fatalf("second TryLock: got err=%v, want ErrAlreadyRunning", err)
				}
				if lock2 != nil {
					t.Fatal("second TryLock returned non-nil lock on ErrAlreadyRunning")
				}
			},
		},
		{
			name: "lock reacquirable after release",
			run: func(t *testing.T) {
				name := testLockName(t, "reacquire")
				lock1, err := TryLock(name)
				if err != nil {
					t.Fatalf("first TryLock failed: %v", err)
				}
				if err := lock1.Release(); err != nil {
					t.Fatalf("Release failed: %v", err)
				}
				lock2, err := TryLock(name)
				if err != nil {
					t.Fatalf("second TryLock after release failed: %v", err)
				}
				defer lock2.Release()
			},
		},
		{
			name: "release idempotent",
			run: func(t *testing.T) {
				lock, err := TryLock(testLockName(t, "idempotent"))
				if err != nil {
					t.Fatalf("TryLock failed: %v", err)
				}
				if err := lock.Release(); err != nil {
					t.Fatalf("first Release failed: %v", err)
				}
				if err := lock.Release(); err != nil {
					t.Fatalf("second Release should be no-op, got: %v", err)
				}
			},
		},
		{
			name: "nil lock release safe",
			run: func(t *testing.T) {
				var lock *Lock
				if err := lock.Release(); err != nil {
					t.Fatalf("nil Release should be no-op, got: %v", err)
				}
			},
		},
		{
			name: "empty name returns error",
			run: func(t *testing.T) {
				lock, err := TryLock("")
				if err == nil {
					t.Fatal("TryLock with empty name should fail")
				}
				if lock != nil {
					lock.Release()
					t.Fatal("TryLock with empty name returned non-nil lock")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, tt.run)
	}
}

func TestDefaultName(t *testing.T) {
	t.Setenv("USERNAME", "unit tester")
	name := DefaultName()
	if !strings.Contains(name, "winlock-unit_tester") {
		t.Fatalf("DefaultName() = %q, want sanitized user in name", name)
	}
}
