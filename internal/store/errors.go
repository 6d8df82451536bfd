package store

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes store errors.
type ErrorCode string

const (
	// CodeAlreadyOpen indicates Open was called on an open store.
	CodeAlreadyOpen ErrorCode = "ALREADY_OPEN"

	// CodeNotOpen indicates an operation on a closed store.
	CodeNotOpen ErrorCode = "NOT_OPEN"

	// CodeMissingPath indicates Open was called without a path.
	CodeMissingPath ErrorCode = "MISSING_PATH"

	// CodeUnsupportedFormat indicates unreadable or incompatible metadata.
	CodeUnsupportedFormat ErrorCode = "UNSUPPORTED_FORMAT"

	// CodeQuery indicates SQLite rejected a statement.
	CodeQuery ErrorCode = "QUERY"

	// CodeSerialization indicates a container could not be encoded or decoded.
	CodeSerialization ErrorCode = "SERIALIZATION"

	// CodeFilterCompilation indicates an invalid filter expression.
	CodeFilterCompilation ErrorCode = "FILTER_COMPILATION"

	// CodeReadOnly indicates a write on a store opened read-only.
	CodeReadOnly ErrorCode = "READ_ONLY"

	// CodeUnknownContainerType indicates a container type without a table.
	CodeUnknownContainerType ErrorCode = "UNKNOWN_CONTAINER_TYPE"

	// CodeInvalidIdentifier indicates a missing or dangling identifier on update.
	CodeInvalidIdentifier ErrorCode = "INVALID_IDENTIFIER"
)

// Sentinel errors, one per code. Every *Error matches its sentinel with errors.Is.
var (
	ErrAlreadyOpen          = errors.New("store already open")
	ErrNotOpen              = errors.New("store not open")
	ErrMissingPath          = errors.New("missing path")
	ErrUnsupportedFormat    = errors.New("unsupported format")
	ErrQuery                = errors.New("query failed")
	ErrSerialization        = errors.New("serialization failed")
	ErrFilterCompilation    = errors.New("filter compilation failed")
	ErrReadOnly             = errors.New("store is read-only")
	ErrUnknownContainerType = errors.New("unknown container type")
	ErrInvalidIdentifier    = errors.New("invalid identifier")
)

// ErrIteratorActive is the cause of the QUERY error returned by calls that
// need the connection while a GetAll or GetSortedEvents iterator is ranging.
var ErrIteratorActive = errors.New("iterator still open")

var sentinels = map[ErrorCode]error{
	CodeAlreadyOpen:          ErrAlreadyOpen,
	CodeNotOpen:              ErrNotOpen,
	CodeMissingPath:          ErrMissingPath,
	CodeUnsupportedFormat:    ErrUnsupportedFormat,
	CodeQuery:                ErrQuery,
	CodeSerialization:        ErrSerialization,
	CodeFilterCompilation:    ErrFilterCompilation,
	CodeReadOnly:             ErrReadOnly,
	CodeUnknownContainerType: ErrUnknownContainerType,
	CodeInvalidIdentifier:    ErrInvalidIdentifier,
}

// Error is the error type returned by all Store operations.
//
// Error includes structured fields for diagnostics: the Code selects the
// category, ContainerType names the affected type when there is one and Err
// holds the underlying cause (SQLite, codec or parser error).
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// ContainerType identifies the affected container type, if any.
	ContainerType string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.ContainerType != "" {
		msg += fmt.Sprintf(" (type=%s)", e.ContainerType)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel error of the code.
func (e *Error) Is(target error) bool {
	sentinel, ok := sentinels[e.Code]
	return ok && sentinel == target
}

func newError(code ErrorCode, containerType string, err error, format string, args ...any) *Error {
	return &Error{
		Code:          code,
		Message:       fmt.Sprintf(format, args...),
		ContainerType: containerType,
		Err:           err,
	}
}

func queryError(containerType string, err error, format string, args ...any) *Error {
	return newError(CodeQuery, containerType, err, format, args...)
}

func serializationError(containerType string, err error, format string, args ...any) *Error {
	return newError(CodeSerialization, containerType, err, format, args...)
}

// CodeOf returns the code of a store error, or "" if err is not one.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) ErrorCode {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// IsQueryError returns true if the error is a SQLite failure.
func IsQueryError(err error) bool {
	return CodeOf(err) == CodeQuery
}

// IsSerializationError returns true if the error is an encode or decode failure.
func IsSerializationError(err error) bool {
	return CodeOf(err) == CodeSerialization
}

// IsFilterCompilationError returns true if the error is an invalid filter expression.
func IsFilterCompilationError(err error) bool {
	return CodeOf(err) == CodeFilterCompilation
}

// IsUnsupportedFormatError returns true if the error is a metadata validation failure.
func IsUnsupportedFormatError(err error) bool {
	return CodeOf(err) == CodeUnsupportedFormat
}
