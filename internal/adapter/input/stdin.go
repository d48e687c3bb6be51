package input

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os"
)

const maxLineSize = 1024 * 1024

// StdinAdapter streams messages from a reader, one per line.
type StdinAdapter struct {
	reader io.Reader
	logger *slog.Logger
}

// NewStdinAdapter creates a StdinAdapter reading from os.Stdin.
func NewStdinAdapter(logger *slog.Logger) *StdinAdapter {
	return NewStdinAdapterWithReader(os.Stdin, logger)
}

// NewStdinAdapterWithReader creates a StdinAdapter with a custom reader.
func NewStdinAdapterWithReader(r io.Reader, logger *slog.Logger) *StdinAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &StdinAdapter{reader: r, logger: logger}
}

// Name returns the adapter identifier.
func (a *StdinAdapter) Name() string {
	return "stdin"
}

// Run forwards each line to sink until the reader is exhausted or ctx is
// done. It returns the number of messages forwarded. A reader blocked in
// Read is abandoned when ctx is cancelled.
func (a *StdinAdapter) Run(ctx context.Context, sink Sink) (int, error) {
	lines := make(chan string)
	errCh := make(chan error, 1)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(a.reader)
		scanner.Buffer(make([]byte, 64*1024), maxLineSize)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		errCh <- scanner.Err()
	}()

	count := 0
	for {
		select {
		case <-ctx.Done():
			return count, ctx.Err()
		case raw, ok := <-lines:
			if !ok {
				var err error
				select {
				case err = <-errCh:
				default:
				}
				if err != nil {
					return count, &AdapterError{Source: a.Name(), Message: "failed to read input", Err: err}
				}
				return count, nil
			}
			line, ok := ParseLine(raw)
			if !ok {
				continue
			}
			a.logger.Debug("input line", "severity", line.Severity, "length", len(line.Text))
			sink.Add(line.Severity, line.Text)
			count++
		}
	}
}
