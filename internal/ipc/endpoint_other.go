//go:build !windows

package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"winlock/internal/userutil"
)

// DefaultEndpoint returns the per-user unix socket path under
// XDG_RUNTIME_DIR, or the temp dir when that is unset.
func DefaultEndpoint() string {
	dir := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR"))
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "winlock-"+userutil.CurrentUsername()+".sock")
}

// Listen creates an owner-only unix socket. A stale socket file left by a
// crashed controller is replaced; a live one is an error.
func Listen(endpoint string) (net.Listener, error) {
	if _, err := os.Lstat(endpoint); err == nil {
		conn, dialErr := net.DialTimeout("unix", endpoint, time.Second)
		if dialErr == nil {
			_ = conn.Close()
			return nil, fmt.Errorf("listen %s: another controller is listening", endpoint)
		}
		if err := os.Remove(endpoint); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("remove stale socket %s: %w", endpoint, err)
		}
	}
	listener, err := net.Listen("unix", endpoint)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", endpoint, err)
	}
	if err := os.Chmod(endpoint, 0o600); err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("restrict socket %s: %w", endpoint, err)
	}
	return listener, nil
}

func dialEndpoint(ctx context.Context, endpoint string, timeout time.Duration) (net.Conn, error) {
	d := net.Dialer{Timeout: timeout}
	return d.DialContext(ctx, "unix", endpoint)
}
