package ipc

import (
	"io"
	"strings"
	"testing"
)

func TestReadFrame(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr string
	}{
		{name: "delimited", input: `{"command":"status"}` + "\n", want: `{"command":"status"}` + "\n"},
		{name: "eof without delimiter", input: `{"ok":true}`, want: `{"ok":true}`},
		{name: "exact limit", input: strings.Repeat("a", maxFrameBytes) + "\n", want: strings.Repeat("a", maxFrameBytes) + "\n"},
		{name: "oversized", input: strings.Repeat("a", maxFrameBytes+1) + "\n", wantErr: "exceeds"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := readFrame(newFrameReader(strings.NewReader(tt.input)))
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("readFrame() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("readFrame() error = %v", err)
			}
			if string(raw) != tt.want {
				t.Fatalf("readFrame() returned %d bytes, want %d", len(raw), len(tt.want))
			}
		})
	}
}

func TestReadFrameEmptyInput(t *testing.T) {
	if _, err := readFrame(newFrameReader(strings.NewReader(""))); err != io.EOF {
		t.Fatalf("readFrame() error = %v, want io.EOF", err)
	}
}

func TestDecodeRequestNormalizesCommand(t *testing.T) {
	req, err := decodeRequest([]byte(`{"command":"  STOP "}`))
	if err != nil {
		t.Fatalf("decodeRequest() error = %v", err)
	}
	if req.Command != CommandStop {
		t.Fatalf("Command = %q, want %q", req.Command, CommandStop)
	}
}

func TestResponseErr(t *testing.T) {
	if err := (Response{OK: true}).Err(); err != nil {
		t.Fatalf("Err() = %v, want nil", err)
	}
	if err := (Response{}).Err(); err == nil || !strings.Contains(err.Error(), "request failed") {
		t.Fatalf("Err() = %v, want generic failure", err)
	}
}
