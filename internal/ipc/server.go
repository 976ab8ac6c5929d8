package ipc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"
)

const (
	defaultConnTimeout        = 30 * time.Second
	defaultMaxConcurrentConns = 8
	connSlotAcquireTimeout    = 5 * time.Second
)

// Handler answers control requests.
type Handler interface {
	Handle(ctx context.Context, req Request) Response
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, req Request) Response

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, req Request) Response { return f(ctx, req) }

// Server accepts control connections and dispatches them to a Handler.
type Server struct {
	handler   Handler
	connSlots chan struct{}
}

// NewServer constructs a Server.
func NewServer(handler Handler) *Server {
	return &Server{
		handler:   handler,
		connSlots: make(chan struct{}, defaultMaxConcurrentConns),
	}
}

// Serve accepts connections on listener until ctx is cancelled, then closes
// the listener and waits for in-flight connections to finish.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	if s.handler == nil {
		return errors.New("control server requires a handler")
	}

	var wg sync.WaitGroup
	stop := context.AfterFunc(ctx, func() {
		if err := listener.Close(); err != nil {
			slog.Debug("[ipc] listener close during shutdown", "error", err)
		}
	})
	defer stop()
	defer wg.Wait()

	consecutiveErrors := 0
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return fmt.Errorf("control listener closed: %w", err)
			}
			consecutiveErrors++
			if consecutiveErrors > 10 {
				slog.Warn("[ipc] accept loop: repeated failures, possible permanent error", "error", err, "count", consecutiveErrors)
				time.Sleep(500 * time.Millisecond)
			} else {
				slog.Debug("[ipc] accept error", "error", err)
			}
			continue
		}
		consecutiveErrors = 0

		if !s.acquireConnectionSlot(ctx) {
			writeResponse(conn, Response{Error: "server busy, try again later"})
			if closeErr := conn.Close(); closeErr != nil {
				slog.Debug("[ipc] failed to close rejected connection", "error", closeErr)
			}
			continue
		}

		wg.Go(func() {
			defer s.releaseConnectionSlot()
			s.handleConnection(ctx, conn)
		})
	}
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	if err := conn.SetDeadline(time.Now().Add(defaultConnTimeout)); err != nil {
		slog.Warn("[ipc] failed to set connection deadline", "error", err)
		return
	}

	rawReq, err := readFrame(newFrameReader(conn))
	if errors.Is(err, io.EOF) {
		slog.Debug("[ipc] client disconnected without sending data")
		return
	}
	if err != nil {
		writeResponse(conn, Response{Error: fmt.Sprintf("invalid request: %v", err)})
		return
	}
	req, err := decodeRequest(rawReq)
	if err != nil {
		writeResponse(conn, Response{Error: fmt.Sprintf("invalid request: %v", err)})
		return
	}

	slog.Debug("[ipc] received request", "command", req.Command)
	reqCtx, cancel := context.WithTimeout(ctx, defaultConnTimeout)
	defer cancel()
	writeResponse(conn, s.handler.Handle(reqCtx, req))
}

func writeResponse(conn net.Conn, resp Response) {
	raw, err := encodeFrame(resp)
	if err != nil {
		slog.Warn("[ipc] failed to encode response", "error", err)
		raw = []byte(`{"ok":false,"error":"internal encode error"}` + "\n")
	}
	if _, err := conn.Write(raw); err != nil {
		slog.Debug("[ipc] failed to write response", "error", err)
	}
}

func (s *Server) acquireConnectionSlot(ctx context.Context) bool {
	timer := time.NewTimer(connSlotAcquireTimeout)
	defer timer.Stop()
	select {
	case s.connSlots <- struct{}{}:
		return true
	case <-timer.C:
		slog.Warn("[ipc] connection slot exhausted, rejecting client")
		return false
	case <-ctx.Done():
		return false
	}
}

func (s *Server) releaseConnectionSlot() {
	select {
	case <-s.connSlots:
	default:
		slog.Warn("[ipc] releaseConnectionSlot: no slot to release (possible double-release)")
	}
}
