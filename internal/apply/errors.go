package apply

import "fmt"

// StepError represents an unexpected failure inside one form step. It crosses
// the job boundary as a failed outcome; it never aborts the session.
type StepError struct {
	Step    int
	Message string
	Cause   error
}

func (e *StepError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("application step %d: %s: %v", e.Step, e.Message, e.Cause)
	}
	return fmt.Sprintf("application step %d: %s", e.Step, e.Message)
}

func (e *StepError) Unwrap() error {
	return e.Cause
}
