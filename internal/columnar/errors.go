package columnar

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
)

// FormatError means a buffer or column is not in the expected Arrow shape.
type FormatError struct {
	Field  string // empty when the whole stream is unreadable
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	msg := "arrow format error"
	if e.Field != "" {
		msg += fmt.Sprintf(" in field %q", e.Field)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FormatError) Unwrap() error { return e.Err }

// MissingFieldError means a required column is absent from the schema.
type MissingFieldError struct {
	Field     string
	Available []string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing field %q (have %v)", e.Field, e.Available)
}

// NumericDomainError means a column expected to hold numbers does not.
type NumericDomainError struct {
	Field string
	Type  arrow.DataType
}

func (e *NumericDomainError) Error() string {
	return fmt.Sprintf("field %q has non-numeric type %s", e.Field, e.Type)
}
