package utils

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// maxLineSize is the maximum size of a single body line (1 MB). The default
// bufio.Scanner limit of 64 KiB is too small for long completions delivered
// as one JSON object.
const maxLineSize = 1 * 1024 * 1024

// doneSentinel terminates OpenAI-compatible SSE streams.
const doneSentinel = "[DONE]"

// PayloadLine reduces one raw body line to its JSON payload. It trims
// whitespace, strips an SSE "data:" prefix and rejects blank lines, SSE
// comments, other SSE fields (event:, id:, retry:) and the [DONE] sentinel.
func PayloadLine(line string) (string, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, ":") {
		return "", false
	}

	if data, ok := strings.CutPrefix(line, "data:"); ok {
		data = strings.TrimSpace(data)
		if data == "" || data == doneSentinel {
			return "", false
		}
		return data, true
	}

	for _, field := range []string{"event:", "id:", "retry:"} {
		if strings.HasPrefix(line, field) {
			return "", false
		}
	}

	if line == doneSentinel {
		return "", false
	}
	return line, true
}

// LineScanner reads newline-delimited payloads from a chunked body. Lines split
// across read boundaries are reassembled before being returned.
type LineScanner struct {
	scanner *bufio.Scanner
}

// NewLineScanner creates a LineScanner over reader.
func NewLineScanner(reader io.Reader) *LineScanner {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &LineScanner{scanner: scanner}
}

// Next returns the next payload line as defined by PayloadLine. It returns
// io.EOF when the body is exhausted.
func (s *LineScanner) Next() (string, error) {
	for s.scanner.Scan() {
		if payload, ok := PayloadLine(s.scanner.Text()); ok {
			return payload, nil
		}
	}

	if err := s.scanner.Err(); err != nil {
		return "", fmt.Errorf("line scanner error: %w", err)
	}
	return "", io.EOF
}

// CloseWithLog closes closer and logs a failure instead of returning it, for
// use in defer statements where the primary error must win.
func CloseWithLog(closer io.Closer) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		slog.Warn("failed to close response body", "error", err.Error())
	}
}
