package chessdto

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a DomainError for transports.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindNotFound   ErrorKind = "not_found"
	KindConflict   ErrorKind = "conflict"
	KindUpstream   ErrorKind = "upstream"
)

type DomainError struct {
	Kind      ErrorKind
	Code      string
	Message   string
	Retryable bool

	cause error
}

// NewError returns a sentinel; compare with errors.Is.
func NewError(kind ErrorKind, code, message string) *DomainError {
	return &DomainError{Kind: kind, Code: code, Message: message}
}

// Upstream wraps a store or rules failure as a retryable error.
func Upstream(err error) error {
	if err == nil {
		return nil
	}
	var de *DomainError
	if errors.As(err, &de) {
		return err
	}
	return &DomainError{Kind: KindUpstream, Code: "upstream", Message: "upstream failure", Retryable: true, cause: err}
}

func (e *DomainError) Error() string {
	if e == nil {
		return "chess service error"
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "chess service error"
}

func (e *DomainError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}
