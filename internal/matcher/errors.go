package matcher

import (
	"fmt"
)

// FatalInputError reports a required dataset that could not be loaded. No
// match is attempted when it is returned.
type FatalInputError struct {
	Dataset string
	Err     error
}

func (e *FatalInputError) Error() string {
	return fmt.Sprintf("matcher: dataset %s unavailable: %v", e.Dataset, e.Err)
}

func (e *FatalInputError) Unwrap() error { return e.Err }

// ValidationError reports a FilterRequest field with an unacceptable value.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("matcher: invalid %s: %s", e.Field, e.Reason)
}
