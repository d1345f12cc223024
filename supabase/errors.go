package supabase

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnfilteredMutation guards against updates and deletes that would touch
// every row of a table.
var ErrUnfilteredMutation = errors.New("update or delete requires at least one condition")

// ConfigurationError reports missing or invalid client settings. It is fatal
// and never retried.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("supabase configuration: %s %s", e.Field, e.Reason)
}

// NetworkError wraps transport failures and timeouts. Callers may retry.
type NetworkError struct {
	Op      string
	Timeout bool
	Err     error
}

func (e *NetworkError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("supabase %s: request timed out: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("supabase %s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// RemoteRequestError is an application level failure reported by the backend.
type RemoteRequestError struct {
	Op         string
	StatusCode int
	Code       string
	Message    string
	Details    string
	Hint       string
}

func (e *RemoteRequestError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "supabase %s failed with status %d", e.Op, e.StatusCode)
	if e.Code != "" {
		fmt.Fprintf(&b, " (%s)", e.Code)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Details != "" {
		b.WriteString(" - ")
		b.WriteString(e.Details)
	}
	return b.String()
}

// UnsupportedProcedureError is returned when the REST call failed and the
// procedure has no SQL fallback.
type UnsupportedProcedureError struct {
	Name  string
	Cause error
}

func (e *UnsupportedProcedureError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("procedure %q is not supported without REST: %v", e.Name, e.Cause)
	}
	return fmt.Sprintf("procedure %q is not supported", e.Name)
}

func (e *UnsupportedProcedureError) Unwrap() error { return e.Cause }

// TransactionError wraps the error raised inside a transaction after the
// rollback has run. Unwrap yields the original error.
type TransactionError struct {
	Err         error
	RollbackErr error
}

func (e *TransactionError) Error() string {
	if e.RollbackErr != nil {
		return fmt.Sprintf("transaction failed: %v (rollback also failed: %v)", e.Err, e.RollbackErr)
	}
	return fmt.Sprintf("transaction rolled back: %v", e.Err)
}

func (e *TransactionError) Unwrap() error { return e.Err }

func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

func IsRemoteError(err error) bool {
	var re *RemoteRequestError
	return errors.As(err, &re)
}

// StatusCode returns the backend status carried by err, or 0.
func StatusCode(err error) int {
	var re *RemoteRequestError
	if errors.As(err, &re) {
		return re.StatusCode
	}
	return 0
}
