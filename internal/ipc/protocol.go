// Package ipc is the local control channel of a resident winlock controller.
// Each connection carries exactly one newline-delimited JSON request and one
// newline-delimited JSON response.
package ipc

import (
	"encoding/json"
	"fmt"
	"strings"

	"winlock/internal/lockctl"
)

// Commands understood by the resident controller.
const (
	CommandStatus = "status"
	CommandStop   = "stop"
	CommandLock   = "lock"
)

const maxFrameBytes = 64 * 1024 // per request and per response

// Request is a single control command.
type Request struct {
	Command string `json:"command"`
}

// Response answers one Request.
type Response struct {
	OK     bool            `json:"ok"`
	Error  string          `json:"error,omitempty"`
	Status *lockctl.Status `json:"status,omitempty"`
}

// Err converts a failed response into an error.
func (r Response) Err() error {
	if r.OK {
		return nil
	}
	msg := strings.TrimSpace(r.Error)
	if msg == "" {
		msg = "request failed"
	}
	return fmt.Errorf("controller: %s", msg)
}

// ErrorResponse builds a failed response from err.
func ErrorResponse(err error) Response {
	return Response{Error: err.Error()}
}

func encodeFrame(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if len(raw) >= maxFrameBytes {
		return nil, fmt.Errorf("frame exceeds %d bytes", maxFrameBytes)
	}
	return append(raw, '\n'), nil
}

func decodeRequest(raw []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return Request{}, err
	}
	req.Command = strings.ToLower(strings.TrimSpace(req.Command))
	if req.Command == "" {
		return Request{}, fmt.Errorf("command is required")
	}
	return req, nil
}

func decodeResponse(raw []byte) (Response, error) {
	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Response{}, err
	}
	return resp, nil
}
