package claudeflow

import (
	"context"
	"iter"
	"os"
	"strings"

	"github.com/wagiedev/claudeflow-go/internal/cli"
	"github.com/wagiedev/claudeflow-go/internal/config"
	"github.com/wagiedev/claudeflow-go/internal/errors"
	"github.com/wagiedev/claudeflow-go/internal/stream"
	"github.com/wagiedev/claudeflow-go/internal/subprocess"
)

// validateQuery rejects input that no retry could fix.
func validateQuery(prompt string, options *Options) error {
	if strings.TrimSpace(prompt) == "" {
		return &errors.InvalidQueryError{Field: "prompt", Reason: "must not be empty"}
	}

	if options.PermissionMode != "" && !config.ValidPermissionMode(options.PermissionMode) {
		return &errors.InvalidQueryError{
			Field:  "permission_mode",
			Reason: "unknown mode " + options.PermissionMode,
		}
	}

	if options.MaxTurns < 0 {
		return &errors.InvalidQueryError{Field: "max_turns", Reason: "must not be negative"}
	}

	if options.GracePeriod < 0 {
		return &errors.InvalidQueryError{Field: "grace_period", Reason: "must not be negative"}
	}

	return nil
}

// openStream spawns the agent CLI for prompt and wraps its output. The
// process lifetime is bound to ctx. A nil cache discovers the CLI afresh.
func openStream(ctx context.Context, prompt string, options *Options, cache *cli.DiscoveryCache) (*Stream, error) {
	if err := validateQuery(prompt, options); err != nil {
		return nil, err
	}

	log := loggerFor(options)

	cmd, err := cli.NewCommand(ctx, prompt, options, cache)
	if err != nil {
		return nil, err
	}

	grace := options.GracePeriod
	if grace == 0 {
		fromEnv, ok, err := config.GracePeriodFromEnv(os.LookupEnv)
		if err != nil {
			return nil, &errors.InvalidQueryError{Field: "grace_period", Reason: err.Error()}
		}

		if ok {
			grace = fromEnv
		}
	}

	session := subprocess.New(log, subprocess.Config{
		Path:        cmd.Path,
		Args:        cmd.Args,
		Dir:         cmd.Dir,
		Env:         cmd.Env,
		GracePeriod: grace,
		Stderr:      options.Stderr,
	})

	if err := session.Start(ctx); err != nil {
		return nil, err
	}

	// One-shot mode: the prompt travels in argv, so stdin is not needed.
	if err := session.CloseInput(); err != nil {
		_ = session.Terminate()

		return nil, err
	}

	log.Debug("Agent session started", "pid", session.Pid(), "cli_path", cmd.Path)

	return stream.New(log, session), nil
}

// OpenStream starts an agent session for prompt and returns a pull cursor
// over its messages.
//
// The caller must Close the stream or read it to the end; either way the
// subprocess is reaped. Cancelling ctx terminates the subprocess.
//
//	s, err := claudeflow.OpenStream(ctx, "What is 2+2?", claudeflow.WithMaxTurns(1))
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	for {
//	    msg, err := s.Next(ctx)
//	    if errors.Is(err, io.EOF) {
//	        break
//	    }
//	    ...
//	}
func OpenStream(ctx context.Context, prompt string, opts ...Option) (*Stream, error) {
	return openStream(ctx, prompt, NewOptions(opts...), nil)
}

// Query runs prompt as a one-shot agent session and returns an iterator of
// its messages.
//
// Messages are yielded in the order the agent emitted them. A terminal
// result_error is yielded as a message with Kind KindResultError, not as an
// error. Setup failures, abnormal process exits and context cancellation
// are yielded once as errors and end the iteration. Lines the agent printed
// that are not protocol records arrive as KindUnknown messages with Err set.
//
// Breaking out of the loop terminates the subprocess.
//
//	for msg, err := range claudeflow.Query(ctx, "What is 2+2?") {
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    if msg.Kind == claudeflow.KindAssistant {
//	        fmt.Println(msg.Text())
//	    }
//	}
func Query(ctx context.Context, prompt string, opts ...Option) iter.Seq2[*Message, error] {
	return func(yield func(*Message, error) bool) {
		s, err := OpenStream(ctx, prompt, opts...)
		if err != nil {
			yield(nil, err)

			return
		}

		defer func() { _ = s.Close() }()

		for msg, err := range s.All(ctx) {
			if !yield(msg, err) {
				return
			}
		}
	}
}

// QueryText runs prompt and returns the assistant's text, or the result
// text when the agent produced no assistant text. An unsuccessful result is
// returned as a *TaskError wrapping *ResultError.
func QueryText(ctx context.Context, prompt string, opts ...Option) (string, error) {
	options := NewOptions(opts...)

	out := NewOrchestrator(options).Run(ctx, Spec{Prompt: prompt})
	if out.Err != nil {
		return "", out.Err
	}

	return out.Text(), nil
}
