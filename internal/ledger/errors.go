package ledger

import "fmt"

// WriteError represents a failure to persist an outcome record.
type WriteError struct {
	Message string
	Cause   error
}

func (e *WriteError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("ledger write error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("ledger write error: %s", e.Message)
}

func (e *WriteError) Unwrap() error {
	return e.Cause
}
