package ipc

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

// readFrame reads one newline-terminated frame of at most maxFrameBytes.
// A final frame without the delimiter is accepted at EOF.
func readFrame(reader *bufio.Reader) ([]byte, error) {
	raw, err := reader.ReadSlice('\n')
	if errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("frame exceeds %d bytes", maxFrameBytes)
	}
	if errors.Is(err, io.EOF) {
		if len(raw) == 0 {
			return nil, io.EOF
		}
		return raw, nil
	}
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func newFrameReader(r io.Reader) *bufio.Reader {
	return bufio.NewReaderSize(r, maxFrameBytes+1)
}
