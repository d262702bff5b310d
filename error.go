package sitecrawl

import (
	"errors"
	"fmt"
)

// Application error codes.
const (
	ECONFLICT = "conflict"
	EINTERNAL = "internal"
	EINVALID  = "invalid"
	ENOTFOUND = "not_found"

	// EFETCH marks a page that could not be retrieved: network failure,
	// timeout or a non-2xx response.
	EFETCH = "fetch"

	// EEXTRACT marks markup that could not be turned into structured content.
	EEXTRACT = "extract"

	// ESTORE marks a failed read or write against the page store.
	ESTORE = "store"
)

// Error represents an application-specific error. Per-page errors are
// recorded on the Page; only startup failures abort a crawl.
type Error struct {
	Code    string
	Message string

	// Err is the optional underlying cause.
	Err error
}

// Error implements the error interface. Not used by the application otherwise.
func (e *Error) Error() string {
	return fmt.Sprintf("sitecrawl error: code=%s message=%s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorCode unwraps an application error and returns its code.
// Non-application errors always return EINTERNAL.
func ErrorCode(err error) string {
	var e *Error
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		return e.Code
	}
	return EINTERNAL
}

// ErrorMessage unwraps an application error and returns its message.
// Non-application errors always return "Internal error."
func ErrorMessage(err error) string {
	var e *Error
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		return e.Message
	}
	return "Internal error."
}

// Errorf is a helper function to return an Error with a given code and formatted message.
func Errorf(code string, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// WrapError returns an Error with the given code whose message is the
// formatted prefix followed by the cause's message.
func WrapError(err error, code string, format string, args ...any) *Error {
	msg := fmt.Sprintf(format, args...)
	var e *Error
	if errors.As(err, &e) {
		msg += ": " + e.Message
	} else if err != nil {
		msg += ": " + err.Error()
	}
	return &Error{
		Code:    code,
		Message: msg,
		Err:     err,
	}
}
