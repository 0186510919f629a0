package webview

import (
	"errors"
	"fmt"
)

// Code classifies an *Error. Its string form is what remote callers see.
type Code string

const (
	CodeInvalidInstanceID  Code = "Invalid Webview ID"
	CodeBadArguments       Code = "Bad Arguments"
	CodeRuntimeError       Code = "Runtime Error"
	CodeAlreadyStarted     Code = "Already Started"
	CodeNotStarted         Code = "Not Started"
	CodePostFailed         Code = "Post Failed"
	CodeAlreadyExists      Code = "Already Exists"
	CodeNotFound           Code = "Not Found"
	CodeRegistrationFailed Code = "Registration Failed"
	// CodePluginError marks failures of the binding layer itself, such as
	// texture allocation for a new instance.
	CodePluginError Code = "Plugin Error"
)

// Error is the error value carried across thread boundaries.
type Error struct {
	Code    Code
	Message string
	// Err is an optional underlying cause.
	Err error
}

// NewError returns an *Error with a formatted message.
func NewError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapError returns an *Error with code whose cause is err.
func WrapError(code Code, err error, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("webview: %s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("webview: %s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same code, so sentinels below work with
// errors.Is regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Sentinels for errors.Is checks.
var (
	ErrInvalidInstanceID  = &Error{Code: CodeInvalidInstanceID}
	ErrBadArguments       = &Error{Code: CodeBadArguments}
	ErrRuntime            = &Error{Code: CodeRuntimeError}
	ErrAlreadyStarted     = &Error{Code: CodeAlreadyStarted}
	ErrNotStarted         = &Error{Code: CodeNotStarted}
	ErrPostFailed         = &Error{Code: CodePostFailed}
	ErrAlreadyExists      = &Error{Code: CodeAlreadyExists}
	ErrNotFound           = &Error{Code: CodeNotFound}
	ErrRegistrationFailed = &Error{Code: CodeRegistrationFailed}
	ErrPlugin             = &Error{Code: CodePluginError}
)

// Plain errors from the texture pipeline.
var (
	// ErrInvalidDimensions is returned when a width or height is not positive.
	ErrInvalidDimensions = errors.New("webview: invalid dimensions")

	// ErrRegionOutOfBounds is returned when an upload does not fit its
	// texture or source buffer.
	ErrRegionOutOfBounds = errors.New("webview: region out of bounds")

	// ErrTextureDestroyed is returned when uploading to a destroyed texture.
	ErrTextureDestroyed = errors.New("webview: texture destroyed")

	// ErrHostLoopClosed is returned by HostLoop.Run after Close.
	ErrHostLoopClosed = errors.New("webview: host loop closed")
)

const invalidInstanceMessage = "The browser specified by the webview id is not found."

func errInvalidInstance() *Error {
	return &Error{Code: CodeInvalidInstanceID, Message: invalidInstanceMessage}
}

// CodeOf returns the code of the first *Error in err's chain. Errors that
// are not *Error report CodeRuntimeError.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeRuntimeError
}

// MessageOf returns the message of the first *Error in err's chain, or
// err.Error() otherwise.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Err != nil {
			return e.Message + ": " + e.Err.Error()
		}
		return e.Message
	}
	return err.Error()
}
