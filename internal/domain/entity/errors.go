package entity

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures of the signing flow
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindTransfer   ErrorKind = "transfer"
	KindDecode     ErrorKind = "decode"
)

// UploadError carries the kind of failure together with a user-facing message
type UploadError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *UploadError) Error() string {
	if e.Err != nil && e.Err.Error() != e.Message {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

func NewValidationError(message string, err error) *UploadError {
	return &UploadError{Kind: KindValidation, Message: message, Err: err}
}

func NewTransferError(message string, err error) *UploadError {
	return &UploadError{Kind: KindTransfer, Message: message, Err: err}
}

func NewDecodeError(message string, err error) *UploadError {
	return &UploadError{Kind: KindDecode, Message: message, Err: err}
}

// IsValidation reports whether err is (or wraps) a validation failure
func IsValidation(err error) bool {
	var ue *UploadError
	return errors.As(err, &ue) && ue.Kind == KindValidation
}
