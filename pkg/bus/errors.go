package bus

import "fmt"

// HandlerError describes a handler that returned an error or panicked
// during a publish.
type HandlerError struct {
	// ID is the message id being published.
	ID string

	// Index is the handler's position in subscription order.
	Index int

	// Err is the error returned by the handler, or the recovered panic
	// value converted to an error.
	Err error

	// Panic reports whether the handler panicked.
	Panic bool
}

func (e *HandlerError) Error() string {
	if e.Panic {
		return fmt.Sprintf("bus: handler %d for %q panicked: %v", e.Index, e.ID, e.Err)
	}
	return fmt.Sprintf("bus: handler %d for %q failed: %v", e.Index, e.ID, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}
