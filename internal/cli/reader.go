package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
)

// ErrInputCancelled is returned when a read is abandoned because its
// context ended.
var ErrInputCancelled = errors.New("input canceled")

// NonBlockingReader reads terminal lines without pinning the caller to a
// blocked read: a canceled context returns at once while the pending read
// finishes in the background and is discarded.
type NonBlockingReader struct {
	reader *bufio.Reader
	mu     sync.Mutex
}

// NewNonBlockingReader wraps r.
func NewNonBlockingReader(r io.Reader) *NonBlockingReader {
	return &NonBlockingReader{reader: bufio.NewReader(r)}
}

// ReadLine returns the next line with surrounding space trimmed. A final
// line without a newline is returned as is; io.EOF comes only once input
// is exhausted.
func (r *NonBlockingReader) ReadLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", ErrInputCancelled
	}

	type result struct {
		err  error
		line string
	}
	done := make(chan result, 1)

	go func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		line, err := r.reader.ReadString('\n')
		if errors.Is(err, io.EOF) && line != "" {
			err = nil
		}
		done <- result{line: strings.TrimSpace(line), err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ErrInputCancelled
	case res := <-done:
		return res.line, res.err
	}
}
