//go:build windows

package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/user"
	"regexp"
	"strings"
	"time"

	"github.com/Microsoft/go-winio"

	"winlock/internal/userutil"
)

const (
	defaultPipePrefix = `\\.\pipe\winlock-`
	endpointEnv       = "WINLOCK_PIPE"
)

var pipeNamePattern = regexp.MustCompile(`(?i)^\\\\\.\\pipe\\winlock-[a-z0-9._-]{1,128}$`)

// DefaultEndpoint returns the per-user pipe name. WINLOCK_PIPE overrides it
// when it names a winlock pipe.
func DefaultEndpoint() string {
	if value := strings.TrimSpace(os.Getenv(endpointEnv)); value != "" {
		if pipeNamePattern.MatchString(value) {
			return value
		}
		slog.Warn("[ipc] WINLOCK_PIPE rejected: value does not match allowed pattern", "value", value)
	}
	return defaultPipePrefix + userutil.CurrentUsername()
}

// Listen creates a named pipe listener that only SYSTEM and the current user
// may connect to.
func Listen(endpoint string) (net.Listener, error) {
	securityDescriptor, err := pipeSecurityDescriptor()
	if err != nil {
		return nil, err
	}
	listener, err := winio.ListenPipe(endpoint, &winio.PipeConfig{
		SecurityDescriptor: securityDescriptor,
		MessageMode:        false,
		InputBufferSize:    int32(maxFrameBytes),
		OutputBufferSize:   int32(maxFrameBytes),
	})
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", endpoint, err)
	}
	return listener, nil
}

func dialEndpoint(ctx context.Context, endpoint string, timeout time.Duration) (net.Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return winio.DialPipeContext(ctx, endpoint)
}

var validSIDPattern = regexp.MustCompile(`^S-1(-\d+)+$`)

func pipeSecurityDescriptor() (string, error) {
	current, err := user.Current()
	if err != nil {
		return "", fmt.Errorf("resolve current user: %w", err)
	}
	sid := strings.TrimSpace(current.Uid)
	if sid == "" {
		return "", errors.New("current user SID is unavailable")
	}
	if !validSIDPattern.MatchString(sid) {
		return "", fmt.Errorf("current user SID has unexpected format: %s", sid)
	}
	// D:P protected DACL; full access for SYSTEM and the current user only.
	return fmt.Sprintf("D:P(A;;GA;;;SY)(A;;GA;;;%s)", sid), nil
}
