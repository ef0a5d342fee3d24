package services

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
)

// AppError is an error the HTTP layer can show to the client as-is.
type AppError struct {
	Kind    ErrorKind
	Message string
}

func (e *AppError) Error() string {
	return e.Message
}

func Validation(format string, args ...interface{}) error {
	return &AppError{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func Unauthorized(msg string) error {
	return &AppError{Kind: KindUnauthorized, Message: msg}
}

func Forbidden(msg string) error {
	return &AppError{Kind: KindForbidden, Message: msg}
}

func NotFound(msg string) error {
	return &AppError{Kind: KindNotFound, Message: msg}
}

func Conflict(msg string) error {
	return &AppError{Kind: KindConflict, Message: msg}
}

// KindOf returns the kind of err, or KindInternal if err is not an AppError.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}
