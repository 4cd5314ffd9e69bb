// Package decode frames a byte stream into newline-delimited lines and decodes
// each line as a JSON object.
//
// Decoding never fails the stream: a line that is not a JSON object is
// returned as a Record carrying the raw text and a DecodeError, so diagnostic
// output interleaved with protocol lines passes through untouched.
package decode

import (
	"bufio"
	"bytes"
	"encoding/json"
	stderrors "errors"
	"io"
	"strings"

	"github.com/wagiedev/claudeflow-go/internal/errors"
)

// defaultBufferSize is the initial read buffer. Lines longer than this are
// still read in full; the buffer only controls read granularity.
const defaultBufferSize = 64 * 1024

var errNotObject = stderrors.New("line is not a JSON object")

// Record is one line of CLI output.
type Record struct {
	// Line is the raw line without its terminating newline.
	Line string

	// Data is the decoded JSON object. Nil when Err is set.
	Data map[string]any

	// Err is set when Line is not a JSON object.
	Err *errors.DecodeError
}

// Valid reports whether the line decoded into a JSON object.
func (r Record) Valid() bool {
	return r.Err == nil
}

// Reader reads Records from an underlying byte stream.
//
// Lines are split at '\n' regardless of how the bytes arrive; a non-empty
// trailing line without a newline is returned once the source reaches EOF.
// Whitespace-only lines carry no record and are skipped.
type Reader struct {
	br      *bufio.Reader
	pending error
}

// NewReader creates a Reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{br: bufio.NewReaderSize(r, defaultBufferSize)}
}

// Next returns the next record. It returns io.EOF once the source is
// exhausted, or the underlying read error if the source fails.
func (r *Reader) Next() (Record, error) {
	for {
		line, err := r.readLine()
		if err != nil {
			return Record{}, err
		}

		if strings.TrimSpace(line) == "" {
			continue
		}

		return Parse(line), nil
	}
}

// readLine returns the next raw line. Partial data read before a source error
// is returned first; the error is reported on the following call.
func (r *Reader) readLine() (string, error) {
	if r.pending != nil {
		return "", r.pending
	}

	line, err := r.br.ReadString('\n')
	if err == nil {
		return line[:len(line)-1], nil
	}

	r.pending = err

	if line != "" {
		return line, nil
	}

	return "", err
}

// Parse decodes a single line.
func Parse(line string) Record {
	var data map[string]any

	if err := json.Unmarshal([]byte(line), &data); err != nil {
		return Record{Line: line, Err: &errors.DecodeError{Line: line, Err: err}}
	}

	// "null" unmarshals into a nil map without error.
	if data == nil {
		return Record{Line: line, Err: &errors.DecodeError{Line: line, Err: errNotObject}}
	}

	return Record{Line: line, Data: data}
}

// Lines frames data into lines without decoding them. Blank lines are kept.
func Lines(data []byte) []string {
	reader := NewReader(bytes.NewReader(data))

	var out []string

	for {
		line, err := reader.readLine()
		if err != nil {
			return out
		}

		out = append(out, line)
	}
}

// ReadAll drains r and returns every record.
func ReadAll(r io.Reader) ([]Record, error) {
	reader := NewReader(r)

	var records []Record

	for {
		rec, err := reader.Next()
		if stderrors.Is(err, io.EOF) {
			return records, nil
		}

		if err != nil {
			return records, err
		}

		records = append(records, rec)
	}
}
