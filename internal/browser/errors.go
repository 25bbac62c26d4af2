package browser

import (
	"errors"
	"fmt"
	"strings"
)

// SessionError represents a failure to establish or keep the browser session.
type SessionError struct {
	Message string
	Cause   error
}

func (e *SessionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("browser session error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("browser session error: %s", e.Message)
}

func (e *SessionError) Unwrap() error {
	return e.Cause
}

// NavigationError represents a failed page load.
type NavigationError struct {
	Message string
	Cause   error
}

func (e *NavigationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("navigation error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("navigation error: %s", e.Message)
}

func (e *NavigationError) Unwrap() error {
	return e.Cause
}

// ElementError represents a failed element-level operation. Stale marks errors
// caused by the DOM re-rendering underneath the operation; those are retried in
// place by callers rather than surfaced.
type ElementError struct {
	Selector string
	Message  string
	Stale    bool
	Cause    error
}

func (e *ElementError) Error() string {
	msg := e.Message
	if e.Selector != "" {
		msg = fmt.Sprintf("%s (%s)", e.Message, e.Selector)
	}
	if e.Cause != nil {
		return fmt.Sprintf("element error: %s: %v", msg, e.Cause)
	}
	return fmt.Sprintf("element error: %s", msg)
}

func (e *ElementError) Unwrap() error {
	return e.Cause
}

// ChallengeError reports that the site presented a verification challenge that
// only a human can complete.
type ChallengeError struct {
	URL string
}

func (e *ChallengeError) Error() string {
	return fmt.Sprintf("verification challenge at %s", e.URL)
}

// IsStale reports whether the error is a transient node-gone condition from the
// DOM re-rendering mid-operation. CDP reports these as node-resolution failures.
func IsStale(err error) bool {
	var elErr *ElementError
	if errors.As(err, &elErr) && elErr.Stale {
		return true
	}
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "could not find node") ||
		strings.Contains(msg, "node with given id does not belong to the document")
}
