package collection

import (
	"errors"
	"fmt"
)

// Error categories. Every domain error wraps exactly one of them so callers can classify with errors.Is.
var (
	ErrValidation           = errors.New("validation failed")
	ErrNotFound             = errors.New("not found")
	ErrParse                = errors.New("parse failed")
	ErrInvalidServiceConfig = errors.New("invalid service config")
)

// Domain-level error values returned by the collection service.
var (
	ErrPeriodOverlap         = fmt.Errorf("%w: period overlaps an existing period", ErrValidation)
	ErrPeriodLocked          = fmt.Errorf("%w: period is locked", ErrValidation)
	ErrInvalidPeriodInput    = fmt.Errorf("%w: invalid period input", ErrValidation)
	ErrInvalidMachineInput   = fmt.Errorf("%w: invalid machine input", ErrValidation)
	ErrInvalidVenueInput     = fmt.Errorf("%w: invalid venue input", ErrValidation)
	ErrInvalidMappingTarget  = fmt.Errorf("%w: invalid mapping target", ErrValidation)
	ErrInvalidLabel          = fmt.Errorf("%w: invalid label", ErrValidation)
	ErrDuplicateRecord       = fmt.Errorf("%w: duplicate record", ErrValidation)
	ErrVenueNotFound         = fmt.Errorf("venue %w", ErrNotFound)
	ErrMachineTypeNotFound   = fmt.Errorf("machine type %w", ErrNotFound)
	ErrPeriodNotFound        = fmt.Errorf("period %w", ErrNotFound)
	ErrDetailNotFound        = fmt.Errorf("detail line %w", ErrNotFound)
	ErrSeatNotFound          = fmt.Errorf("seat %w", ErrNotFound)
	ErrAttachmentNotFound    = fmt.Errorf("attachment %w", ErrNotFound)
	ErrBlobNotFound          = fmt.Errorf("stored file %w", ErrNotFound)
	ErrUnreadableSpreadsheet = fmt.Errorf("%w: unreadable spreadsheet", ErrParse)
)

// OperationError wraps a failure with a stable operation code.
type OperationError struct {
	operation string
	subject   string
	code      string
	err       error
}

// Error returns the formatted error message.
func (operationError OperationError) Error() string {
	return fmt.Sprintf("%s.%s.%s: %v", operationError.operation, operationError.subject, operationError.code, operationError.err)
}

// Unwrap returns the underlying error.
func (operationError OperationError) Unwrap() error {
	return operationError.err
}

// Operation returns the operation segment.
func (operationError OperationError) Operation() string {
	return operationError.operation
}

// Subject returns the subject segment.
func (operationError OperationError) Subject() string {
	return operationError.subject
}

// Code returns the stable error code segment.
func (operationError OperationError) Code() string {
	return operationError.code
}

// WrapError wraps an error with operation, subject, and code metadata.
func WrapError(operation string, subject string, code string, err error) error {
	if err == nil {
		return nil
	}
	return OperationError{
		operation: operation,
		subject:   subject,
		code:      code,
		err:       err,
	}
}
