package probe

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrMissingEndpoint is returned when the configuration resolves to an empty
// URL. The request fails before any network call is made.
var ErrMissingEndpoint = errors.New("no endpoint configured for this operation")

// TimeoutError reports that the per-request deadline expired.
type TimeoutError struct {
	Seconds int
}

func (e *TimeoutError) Error() string {
	if e.Seconds <= 0 {
		return "request timed out"
	}
	return fmt.Sprintf("request timed out after %ds", e.Seconds)
}

// TransportError reports a fetch-level failure: DNS, connection or TLS.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// HTTPError reports a non-2xx response.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, shortErrorText(e.Body))
}

// FormatError reports a 2xx response whose body does not match the expected
// shape.
type FormatError struct {
	Detail string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("unexpected response format: %s", e.Detail)
}

const maxErrorTextLen = 200

// shortErrorText extracts a concise human-readable message from a provider
// error body. It tries the nested OpenAI error shape first, then a top-level
// message, and falls back to the truncated raw text.
func shortErrorText(body string) string {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return "(empty body)"
	}

	var parsed struct {
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil {
		if parsed.Error != nil && parsed.Error.Message != "" {
			return parsed.Error.Message
		}
		if parsed.Message != "" {
			return parsed.Message
		}
	}

	if len(trimmed) > maxErrorTextLen {
		return truncateRunes(trimmed, maxErrorTextLen)
	}
	return trimmed
}

// truncateRunes cuts s after at most n bytes without splitting a rune.
func truncateRunes(s string, n int) string {
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
