package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"time"
)

const (
	defaultDialTimeout = 3 * time.Second
	defaultRWTimeout   = 15 * time.Second
)

// dialFn connects to a control endpoint. Tests override it.
var dialFn = dialEndpoint

// Send sends one request to the controller listening on endpoint and waits
// for its response.
func Send(ctx context.Context, endpoint string, req Request) (Response, error) {
	if endpoint == "" {
		endpoint = DefaultEndpoint()
	}

	conn, err := dialFn(ctx, endpoint, defaultDialTimeout)
	if err != nil {
		return Response{}, err
	}
	defer conn.Close()

	deadline := time.Now().Add(defaultRWTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return Response{}, fmt.Errorf("set deadline: %w", err)
	}

	raw, err := encodeFrame(req)
	if err != nil {
		return Response{}, err
	}
	if _, err := conn.Write(raw); err != nil {
		return Response{}, err
	}

	respRaw, err := readFrame(newFrameReader(conn))
	if err != nil {
		return Response{}, fmt.Errorf("read response: %w", err)
	}
	resp, err := decodeResponse(respRaw)
	if err != nil {
		return Response{}, fmt.Errorf("invalid response: %w", err)
	}
	return resp, nil
}

// IsConnectionError reports whether err means no controller is listening.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, os.ErrNotExist) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op == "dial" || opErr.Op == "open"
	}
	return false
}
