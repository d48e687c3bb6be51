// Package model defines the core data structures for notiwin.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Severity classifies a notification. It drives the popup background colour.
type Severity int

// Severity levels.
const (
	SeverityInfo Severity = iota
	SeverityError
)

// SeverityNames maps severity levels to human-readable names.
var SeverityNames = map[Severity]string{
	SeverityInfo:  "info",
	SeverityError: "error",
}

// ErrInvalidSeverity is returned by ParseSeverity for unknown names.
var ErrInvalidSeverity = errors.New("severity must be info or error")

// String returns the lower-case name of the severity.
func (s Severity) String() string {
	if name, ok := SeverityNames[s]; ok {
		return name
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

// IsError reports whether the severity is SeverityError.
func (s Severity) IsError() bool {
	return s == SeverityError
}

// ParseSeverity parses a severity name. Matching is case-insensitive and
// accepts "critical" as an alias for error.
func ParseSeverity(name string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "info", "normal", "":
		return SeverityInfo, nil
	case "error", "critical":
		return SeverityError, nil
	default:
		return SeverityInfo, fmt.Errorf("%w: %q", ErrInvalidSeverity, name)
	}
}

// Notification is a single message shown in the popup.
// Values are immutable once stored; the store hands out copies.
type Notification struct {
	Text      string
	Severity  Severity
	CreatedAt time.Time // from time.Now, carries the monotonic reading
}

// New creates a notification stamped with the given time.
func New(text string, severity Severity, at time.Time) Notification {
	return Notification{
		Text:      text,
		Severity:  severity,
		CreatedAt: at,
	}
}

// Age returns how long the notification has existed at now.
func (n Notification) Age(now time.Time) time.Duration {
	return now.Sub(n.CreatedAt)
}

// Expired reports whether the notification is at least maxAge old at now.
func (n Notification) Expired(now time.Time, maxAge time.Duration) bool {
	return n.Age(now) >= maxAge
}

// TextTruncated returns the text collapsed to a single line and truncated
// to maxLen characters, with "..." appended when shortened.
func (n Notification) TextTruncated(maxLen int) string {
	if maxLen <= 0 {
		return ""
	}

	text := strings.Join(strings.Fields(n.Text), " ")

	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
