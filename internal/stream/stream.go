// Package stream turns a running agent session into a lazily consumed
// sequence of classified messages.
package stream

import (
	"context"
	stderrors "errors"
	"io"
	"iter"
	"log/slog"
	"sync"

	"github.com/wagiedev/claudeflow-go/internal/decode"
	"github.com/wagiedev/claudeflow-go/internal/errors"
	"github.com/wagiedev/claudeflow-go/internal/message"
)

// RecordSource yields decoded output records of a started session.
// *subprocess.Session implements it.
type RecordSource interface {
	Next(ctx context.Context) (decode.Record, error)
	Terminate() error
}

// Stream is a pull cursor over the messages of one session. It has a single
// consumer; Close may be called from any goroutine.
type Stream struct {
	log    *slog.Logger
	source RecordSource

	// end is the terminal error reported by the source, io.EOF on clean end.
	end error

	closeOnce sync.Once
	closeErr  error
	closed    chan struct{}
}

// New wraps a started source.
func New(log *slog.Logger, source RecordSource) *Stream {
	return &Stream{
		log:    log.With("component", "stream"),
		source: source,
		closed: make(chan struct{}),
	}
}

// Next returns the next message in output order.
//
// It returns io.EOF once the output ended cleanly, *errors.ProcessError when
// the process exited abnormally, and ctx's error when ctx is done, in which
// case the session is terminated. Unsuccessful agent results are messages,
// not errors.
func (s *Stream) Next(ctx context.Context) (*message.Message, error) {
	if s.isClosed() {
		return nil, errors.ErrStreamClosed
	}

	if s.end != nil {
		return nil, s.end
	}

	rec, err := s.source.Next(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && stderrors.Is(err, ctxErr) {
			s.log.Debug("Context done, terminating session", "error", ctxErr)
			_ = s.Close()

			return nil, ctxErr
		}

		if s.isClosed() {
			return nil, errors.ErrStreamClosed
		}

		s.end = err

		if !stderrors.Is(err, io.EOF) {
			s.log.Warn("Agent output ended with error", "error", err)
		}

		return nil, err
	}

	msg := message.Classify(s.log, rec)
	s.log.Debug("Received message", "kind", msg.Kind)

	return msg, nil
}

// Close terminates the session if it is still running. It is idempotent and
// returns the result of the first call.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.closeErr = s.source.Terminate()
	})

	return s.closeErr
}

func (s *Stream) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

// All returns an iterator over the remaining messages. A terminal error other
// than io.EOF is yielded once with a nil message. Breaking out of the loop
// closes the stream.
func (s *Stream) All(ctx context.Context) iter.Seq2[*message.Message, error] {
	return func(yield func(*message.Message, error) bool) {
		for {
			msg, err := s.Next(ctx)
			if stderrors.Is(err, io.EOF) {
				return
			}

			if err != nil {
				yield(nil, err)

				return
			}

			if !yield(msg, nil) {
				_ = s.Close()

				return
			}
		}
	}
}

// Collect drains the stream. Messages received before a failure are returned
// with the error.
func (s *Stream) Collect(ctx context.Context) ([]*message.Message, error) {
	var msgs []*message.Message

	for msg, err := range s.All(ctx) {
		if err != nil {
			return msgs, err
		}

		msgs = append(msgs, msg)
	}

	return msgs, nil
}
