package subprocess

import (
	"bufio"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// maxStderrBufferSize caps captured stderr. Reading continues past the cap
// so the callback still sees every line.
const maxStderrBufferSize = 10 * 1024 * 1024 // 10MB

// stderrBuffer accumulates stderr lines up to a byte limit.
type stderrBuffer struct {
	mu    sync.Mutex
	buf   strings.Builder
	limit int
}

func newStderrBuffer(limit int) *stderrBuffer {
	return &stderrBuffer{limit: limit}
}

func (b *stderrBuffer) add(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.buf.Len() >= b.limit {
		return
	}

	if b.buf.Len() > 0 {
		b.buf.WriteString("\n")
	}

	b.buf.WriteString(line)
}

func (b *stderrBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}

// readFrom consumes r line by line until EOF, buffering each line and
// handing it to callback if one is set.
func (b *stderrBuffer) readFrom(log *slog.Logger, r io.ReadCloser, callback func(string)) {
	defer r.Close()

	br := bufio.NewReader(r)

	for {
		line, err := br.ReadString('\n')
		if line != "" {
			line = strings.TrimSuffix(line, "\n")

			b.add(line)

			if callback != nil {
				callback(line)
			}
		}

		if err != nil {
			if err != io.EOF {
				log.Debug("Stderr reader stopped", "error", err)
			}

			return
		}
	}
}

// cleanStderr drops Bun's minified source-context lines from CLI error
// output, keeping the error message and stack trace.
func cleanStderr(stderr string) string {
	if stderr == "" {
		return ""
	}

	var cleaned strings.Builder

	for line := range strings.SplitSeq(stderr, "\n") {
		if isSourceContextLine(strings.TrimSpace(line)) {
			continue
		}

		if cleaned.Len() > 0 {
			cleaned.WriteString("\n")
		}

		cleaned.WriteString(line)
	}

	return strings.TrimSpace(cleaned.String())
}

// isSourceContextLine matches Bun's "1234 | <code>" lines.
func isSourceContextLine(line string) bool {
	pipeIdx := strings.Index(line, "|")
	if pipeIdx < 1 {
		return false
	}

	prefix := strings.TrimSpace(line[:pipeIdx])
	if prefix == "" {
		return false
	}

	for _, ch := range prefix {
		if ch < '0' || ch > '9' {
			return false
		}
	}

	return true
}
