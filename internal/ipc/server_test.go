package ipc

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"winlock/internal/lockctl"
)

func startTestServer(t *testing.T, h Handler) string {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewServer(h).Serve(ctx, listener) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Serve() error = %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Error("Serve() did not return after cancel")
		}
	})

	orig := dialFn
	dialFn = func(ctx context.Context, endpoint string, timeout time.Duration) (net.Conn, error) {
		d := net.Dialer{Timeout: timeout}
		return d.DialContext(ctx, "tcp", endpoint)
	}
	t.Cleanup(func() { dialFn = orig })
	return listener.Addr().String()
}

func TestSendRoundTrip(t *testing.T) {
	started := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	addr := startTestServer(t, HandlerFunc(func(_ context.Context, req Request) Response {
		switch req.Command {
		case CommandStatus:
			return Response{OK: true, Status: &lockctl.Status{State: "running", Binding: "Ctrl+Win+J", StartedAt: started}}
		case CommandLock:
			return ErrorResponse(errors.New("lock session: denied"))
		default:
			return Response{Error: "unknown command " + req.Command}
		}
	}))

	resp, err := Send(context.Background(), addr, Request{Command: "Status"})
	if err != nil {
		t.Fatalf("Send(status) error = %v", err)
	}
	if !resp.OK || resp.Status == nil || resp.Status.Binding != "Ctrl+Win+J" || !resp.Status.StartedAt.Equal(started) {
		t.Fatalf("status response = %+v", resp)
	}

	resp, err = Send(context.Background(), addr, Request{Command: CommandLock})
	if err != nil {
		t.Fatalf("Send(lock) error = %v", err)
	}
	if err := resp.Err(); err == nil || !strings.Contains(err.Error(), "denied") {
		t.Fatalf("lock response Err() = %v", err)
	}
}

func TestServerRejectsMalformedRequests(t *testing.T) {
	var calls atomic.Int32
	addr := startTestServer(t, HandlerFunc(func(context.Context, Request) Response {
		calls.Add(1)
		return Response{OK: true}
	}))

	tests := []struct {
		name    string
		payload string
		wantErr string
	}{
		{name: "not json", payload: "hello\n", wantErr: "invalid request"},
		{name: "missing command", payload: "{}\n", wantErr: "command is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, err := net.Dial("tcp", addr)
			if err != nil {
				t.Fatal(err)
			}
			defer conn.Close()
			_ = conn.SetDeadline(time.Now().Add(5 * time.Second))
			go func() { _, _ = io.WriteString(conn, tt.payload) }()

			raw, err := bufio.NewReader(conn).ReadBytes('\n')
			if err != nil {
				t.Fatalf("read response: %v", err)
			}
			resp, err := decodeResponse(raw)
			if err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp.OK || !strings.Contains(resp.Error, tt.wantErr) {
				t.Fatalf("response = %+v, want error containing %q", resp, tt.wantErr)
			}
		})
	}
	if calls.Load() != 0 {
		t.Fatalf("handler called %d times for malformed requests", calls.Load())
	}
}

func TestServeRequiresHandler(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer listener.Close()
	if err := NewServer(nil).Serve(context.Background(), listener); err == nil {
		t.Fatal("Serve() error = nil, want error")
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "dial op", err: &net.OpError{Op: "dial", Err: errors.New("refused")}, want: true},
		{name: "read op", err: &net.OpError{Op: "read", Err: errors.New("reset")}, want: false},
		{name: "other", err: errors.New("boom"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsConnectionError(tt.err); got != tt.want {
				t.Fatalf("IsConnectionError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
