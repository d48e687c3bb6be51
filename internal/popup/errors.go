package popup

import (
	"errors"
	"fmt"
	"strings"
)

// Errors
var (
	ErrFormat  = errors.New("message formatting failed")
	ErrStopped = errors.New("controller stopped")
)

// PresenterError represents a failed presenter call.
type PresenterError struct {
	Op      string
	Message string
	Cause   error
}

func (e *PresenterError) Error() string {
	msg := "presenter " + e.Op + ": " + e.Message
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *PresenterError) Unwrap() error {
	return e.Cause
}

// AssertionError is the panic value raised by Assert.
type AssertionError struct {
	Message string
}

func (e *AssertionError) Error() string {
	return "assertion failed: " + e.Message
}

// Assert panics with an *AssertionError when cond is false.
// Use it for preconditions that indicate a programming error.
func Assert(cond bool, format string, args ...any) {
	if !cond {
		panic(&AssertionError{Message: fmt.Sprintf(format, args...)})
	}
}

// FormatMessage formats a caller supplied message the way AddMessage does.
// A message without arguments is used verbatim. Bad verbs, argument count
// mismatches and panicking Stringers are returned as ErrFormat; "%!" that
// arrives inside an argument is kept.
func FormatMessage(format string, args ...any) (text string, err error) {
	if len(args) == 0 {
		return format, nil
	}

	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("%w: %v", ErrFormat, r)
		}
	}()

	text = fmt.Sprintf(format, args...)

	// Format again with each argument wrapped. Markers the arguments write
	// are tallied by the wrappers; any left over come from fmt itself.
	checks := make([]any, len(args))
	var argMarkers int
	failed := false
	for i, arg := range args {
		checks[i] = &formatCheck{arg: arg, markers: &argMarkers, failed: &failed}
	}
	checked := fmt.Sprintf(format, checks...)

	fmtMarkers := strings.Count(checked, badMarker) - argMarkers - strings.Count(format, "%"+badMarker)
	if failed || fmtMarkers > 0 {
		return "", fmt.Errorf("%w: %q", ErrFormat, text)
	}
	return text, nil
}

// badMarker starts every error fmt writes into its output.
const badMarker = "%!"

// formatCheck renders one argument and records whether fmt rejected it.
type formatCheck struct {
	arg     any
	markers *int
	failed  *bool
}

func (c *formatCheck) Format(f fmt.State, verb rune) {
	out := fmt.Sprintf(fmt.FormatString(f, verb), c.arg)
	plain := fmt.Sprintf("%v", c.arg)

	switch {
	case strings.Contains(out, badMarker+"v(PANIC=") || strings.Contains(out, badMarker+string(verb)+"(PANIC="):
		*c.failed = true
	case strings.Count(out, badMarker) > strings.Count(plain, badMarker):
		*c.failed = true
	}

	*c.markers += strings.Count(out, badMarker)
	_, _ = f.Write([]byte(out))
}
