package vcd

import (
	"fmt"
	"time"
)

// AuthError is a credential, TLS or connectivity failure while establishing a
// session. It is fatal: the pipeline aborts without retrying the login.
type AuthError struct {
	Host string
	Err  error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("failed to authenticate to Cloud Director %s: %v", e.Host, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// RemoteError is a non-success response from the Cloud Director API carrying
// the server-supplied message.
type RemoteError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: server returned %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: server returned %d", e.Op, e.StatusCode)
}

// ValidationError is a discovered fact that violates a migration precondition.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// failf builds a ValidationError naming the offending entity.
func failf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// TaskTimeoutError reports that an asynchronous task did not reach a terminal
// state within the deadline.
type TaskTimeoutError struct {
	Task     string
	Deadline time.Duration
}

func (e *TaskTimeoutError) Error() string {
	return fmt.Sprintf("task %s could not complete within %s", e.Task, e.Deadline)
}
