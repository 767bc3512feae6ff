package dialect

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownDialect indicates a resource name has no registered dialect.
	ErrUnknownDialect = errors.New("unknown dialect")

	// ErrInvalidDialect indicates a dialect violates its invariants.
	ErrInvalidDialect = errors.New("invalid dialect")

	// ErrEmptyExtension indicates Register was called without an extension.
	ErrEmptyExtension = errors.New("empty extension")
)

// UnknownDialectError reports a resource whose extension has no binding.
type UnknownDialectError struct {
	Name      string // resource name as given
	Extension string // normalized extension, empty if the name had none
}

func (e *UnknownDialectError) Error() string {
	if e.Extension == "" {
		return fmt.Sprintf("%s for %q (no extension)", ErrUnknownDialect, e.Name)
	}
	return fmt.Sprintf("%s for %q (extension %q)", ErrUnknownDialect, e.Name, e.Extension)
}

func (e *UnknownDialectError) Unwrap() error {
	return ErrUnknownDialect
}
