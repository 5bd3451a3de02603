package lambda

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrPrecondition is matched by every ArgumentError.
	ErrPrecondition = errors.New("precondition violated")
	// ErrFaulted indicates an earlier failure left the controller out of
	// sync with the device. The controller must be reopened.
	ErrFaulted = errors.New("controller faulted")
)

// ArgumentError reports an argument outside [Min, Max).
type ArgumentError struct {
	Name  string
	Value int
	Min   int
	Max   int
}

// Error implements error.
func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid %s %d, expect [%d, %d)", e.Name, e.Value, e.Min, e.Max)
}

// Is matches ErrPrecondition.
func (e *ArgumentError) Is(target error) bool {
	return target == ErrPrecondition
}

// ConnectionError indicates the serial port is unusable.
type ConnectionError struct {
	Locator string
	Err     error
}

// Error implements error.
func (e *ConnectionError) Error() string {
	if e.Locator == "" {
		return fmt.Sprintf("connection error: %v", e.Err)
	}
	return fmt.Sprintf("unable to connect to Lambda 10-3 on %s: %v", e.Locator, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ConfigurationError indicates the controller reported an unsupported
// configuration.
type ConfigurationError struct {
	Wheels   int
	Response []byte
	// Detected is the supported profile matching Response, if any.
	Detected *Profile
}

// Error implements error.
func (e *ConfigurationError) Error() string {
	msg := fmt.Sprintf("unsupported Lambda 10-3 configuration for %d wheel(s): response %q", e.Wheels, e.Response)
	if e.Detected != nil {
		msg += fmt.Sprintf(" (reports %s with %d wheel(s))", e.Detected.Name, e.Detected.Wheels)
	}
	return msg
}

// ProtocolError indicates a reply which doesn't fit the commands in flight.
type ProtocolError struct {
	Response []byte
	Pending  []Command
	// Leftover is the number of unread bytes after all commands completed.
	Leftover int
}

// Error implements error.
func (e *ProtocolError) Error() string {
	if e.Leftover > 0 {
		return fmt.Sprintf("unexpected %d byte(s) after last acknowledgment", e.Leftover)
	}
	pending := make([]string, len(e.Pending))
	for n, cmd := range e.Pending {
		pending[n] = fmt.Sprintf("%#02x", byte(cmd))
	}
	return fmt.Sprintf("unexpected response %q, pending [%s]", e.Response, strings.Join(pending, " "))
}

// MultiError collects errors from a sequence of steps.
type MultiError []error

// Error implements error.
func (m MultiError) Error() string {
	msgs := make([]string, len(m))
	for n, err := range m {
		msgs[n] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Unwrap returns the collected errors.
func (m MultiError) Unwrap() []error {
	return m
}

// Add appends non-nil errors.
func (m *MultiError) Add(errs ...error) {
	for _, err := range errs {
		if err != nil {
			*m = append(*m, err)
		}
	}
}

// Err returns nil if nothing was collected.
func (m MultiError) Err() error {
	if len(m) == 0 {
		return nil
	}
	return m
}
