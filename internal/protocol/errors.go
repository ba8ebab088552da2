package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrTruncated            = errors.New("protocol: truncated input")
	ErrInvalidEncoding      = errors.New("protocol: invalid utf-8 encoding")
	ErrWrongRecordType      = errors.New("protocol: wrong record type")
	ErrFieldTooLong         = errors.New("protocol: field too long")
	ErrInvalidField         = errors.New("protocol: invalid field")
	ErrInvalidNestedMessage = errors.New("protocol: invalid nested message")
)

// FieldError scopes a codec failure to one named field.
type FieldError struct {
	Field  string
	Reason string
	Err    error
}

func (e *FieldError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%v: field=%s", e.Err, e.Field)
	}
	return fmt.Sprintf("%v: field=%s: %s", e.Err, e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

func fieldErr(field string, err error, reason string) error {
	return &FieldError{Field: field, Reason: reason, Err: err}
}
