package attrs

import (
	"errors"
	"fmt"
)

// Attribute errors.
var (
	// ErrKeyNotFound indicates the key is not present.
	ErrKeyNotFound = errors.New("attrs: key not found")

	// ErrTypeMismatch indicates the key holds a value of another kind.
	ErrTypeMismatch = errors.New("attrs: type mismatch")

	// ErrFrozen is the panic value raised when writing to published attributes.
	ErrFrozen = errors.New("attrs: write to frozen attributes")
)

// TypeMismatchError reports a typed read of a key holding another kind.
type TypeMismatchError struct {
	Key  string
	Want Kind
	Got  Kind
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("attrs: key %q holds %s, not %s", e.Key, e.Got, e.Want)
}

// Is makes errors.Is(err, ErrTypeMismatch) true.
func (e *TypeMismatchError) Is(target error) bool {
	return target == ErrTypeMismatch
}
