/*
Package errs provides custom error types and application-level error code constants.

This file defines the CustomError struct, which implements the standard Go
error interface and carries a business code, a user-facing message, and an
HTTP status code for unified error reporting.
*/
package errs

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"agrolink/internal/pkg/logx"
)

// CustomError is the error structure used throughout the application.
type CustomError struct {
	// Code is the business error code (see error_codes.go).
	Code int

	// Message is the user-facing error description.
	Message string

	// Status is the HTTP status code corresponding to this error.
	Status int
}

// Error implements the standard Go error interface.
func (e CustomError) Error() string {
	return fmt.Sprintf("Error Code %d (HTTP %d): %s", e.Code, e.Status, e.Message)
}

// NewError constructs a *CustomError from a predefined error code. The
// optional details are printf-style arguments for message templates that
// contain placeholders. Unknown codes fall back to ErrUnknown.
func NewError(code int, details ...any) *CustomError {
	templateErr, ok := errorMap[code]
	if !ok {
		logx.Error(
			fmt.Errorf("attempted to create an error with a code missing from errorMap"),
			"Unknown error code requested",
			"requested_code", code,
		)

		unknown := errorMap[ErrUnknown]
		return &unknown
	}

	customErr := templateErr

	if customErr.Status == 0 {
		customErr.Status = http.StatusOK
	}

	if len(details) > 0 {
		if strings.Contains(customErr.Message, "%") {
			customErr.Message = fmt.Sprintf(customErr.Message, details...)
		} else if originalErr, isErr := details[0].(error); isErr {
			logx.Error(originalErr, "Underlying error wrapped into CustomError", "code", code)
		}
	}

	return &customErr
}

// CodeOf extracts the business code from err. Non-CustomError values map to
// ErrUnknown.
func CodeOf(err error) int {
	var customErr *CustomError
	if errors.As(err, &customErr) {
		return customErr.Code
	}
	return ErrUnknown
}

// As unwraps err into a *CustomError, or wraps it as ErrUnknown when it is
// some other error type.
func As(err error) *CustomError {
	var customErr *CustomError
	if errors.As(err, &customErr) {
		return customErr
	}
	return NewError(ErrUnknown, err)
}
