// Package input turns lines of text into popup messages.
package input

import (
	"encoding/json"
	"strings"

	"github.com/jmylchreest/notiwin/internal/model"
)

// Sink accepts parsed messages. *popup.Controller satisfies it.
type Sink interface {
	Add(severity model.Severity, text string)
}

// ErrorPrefix marks a plain text line as an error message.
const ErrorPrefix = "!"

// Line is one parsed input line.
type Line struct {
	Severity model.Severity
	Text     string
}

// jsonLine is the structured line format. Text wins over Summary/Body.
type jsonLine struct {
	Severity string `json:"severity"`
	Urgency  *int   `json:"urgency"`
	Text     string `json:"text"`
	Summary  string `json:"summary"`
	Body     string `json:"body"`
}

// ParseLine parses raw. Lines starting with "{" are decoded as JSON when
// possible; everything else is plain text, an ErrorPrefix making it an
// error. Blank lines and JSON objects without text report false.
func ParseLine(raw string) (Line, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Line{}, false
	}

	if strings.HasPrefix(trimmed, "{") {
		if line, parsed := parseJSONLine(trimmed); parsed {
			return line, line.Text != ""
		}
	}

	if rest, ok := strings.CutPrefix(trimmed, ErrorPrefix); ok {
		text := sanitizeString(rest)
		if text == "" {
			return Line{}, false
		}
		return Line{Severity: model.SeverityError, Text: text}, true
	}
	return Line{Severity: model.SeverityInfo, Text: sanitizeString(trimmed)}, true
}

// parseJSONLine reports whether data is a JSON object. A parsed object
// without any text yields an empty Line.
func parseJSONLine(data string) (Line, bool) {
	var entry jsonLine
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		return Line{}, false
	}

	text := entry.Text
	if text == "" {
		switch {
		case entry.Summary != "" && entry.Body != "":
			text = entry.Summary + ": " + entry.Body
		case entry.Summary != "":
			text = entry.Summary
		default:
			text = entry.Body
		}
	}
	text = sanitizeString(text)
	if text == "" {
		return Line{}, true
	}

	severity, err := model.ParseSeverity(entry.Severity)
	if err != nil {
		severity = model.SeverityInfo
	}
	if entry.Urgency != nil && *entry.Urgency >= 2 {
		severity = model.SeverityError
	}
	return Line{Severity: severity, Text: text}, true
}

// sanitizeString replaces control characters other than newline and tab.
func sanitizeString(s string) string {
	var result strings.Builder
	for _, r := range s {
		if r < 32 && r != '\n' && r != '\t' {
			result.WriteRune(' ')
		} else {
			result.WriteRune(r)
		}
	}
	return strings.TrimSpace(result.String())
}

// AdapterError represents a failure reading a source.
type AdapterError struct {
	Source  string
	Message string
	Err     error
}

func (e *AdapterError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}
