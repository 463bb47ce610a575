package errs

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
)

// Application error codes. Every error that leaves the crud layer towards a
// client carries one of these, anything else is treated as EINTERNAL.
const (
	// EUNAUTHENTICATED is returned when a request carries no valid caller identity.
	EUNAUTHENTICATED = "unauthenticated"
	// EUNAUTHORIZED is returned when the caller lacks rights over the target entity.
	EUNAUTHORIZED = "unauthorized"
	// ENOTFOUND is returned when the target entity does not exist.
	ENOTFOUND = "not_found"
	// ECONFLICT is returned on uniqueness violations, like a taken email address
	// or a toggle that lost a race against an identical request.
	ECONFLICT = "conflict"
	// EINVALID is returned when input fails validation. Field level messages
	// are attached to the error's Fields.
	EINVALID = "invalid"
	// EINTERNAL is returned on unexpected store or logic failures.
	EINTERNAL = "internal"
)

// codes maps the application error codes to http status codes.
var codes = map[string]int{
	EUNAUTHENTICATED: http.StatusUnauthorized,
	EUNAUTHORIZED:    http.StatusForbidden,
	ENOTFOUND:        http.StatusNotFound,
	ECONFLICT:        http.StatusConflict,
	EINVALID:         http.StatusBadRequest,
	EINTERNAL:        http.StatusInternalServerError,
}

// Error represents an application-specific error. Message is meant for the
// end user, so it must never contain store or driver details.
type Error struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Error implements the error interface. Not used by the application otherwise.
func (e *Error) Error() string {
	return fmt.Sprintf("app error: code=%s message=%s", e.Code, e.Message)
}

// Errorf is a helper function to return an Error with a given code and formatted message.
func Errorf(code string, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Field attaches a message for a single input field to the error and returns it.
func (e *Error) Field(field, message string) *Error {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = message
	return e
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
// Non-application errors always return "Internal error.".
func ErrorMessage(err error) string {
	var e *Error
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		return e.Message
	}
	return "Internal error."
}

// ErrorFields unwraps an application error and returns its field messages, if any.
func ErrorFields(err error) map[string]string {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}

// ErrorStatusCode returns the http status code matching an application error code.
func ErrorStatusCode(code string) int {
	if v, ok := codes[code]; ok {
		return v
	}
	return http.StatusInternalServerError
}

// errorResponse is the json body written for every failed request.
type errorResponse struct {
	Error *Error `json:"error"`
}

// ReturnError writes the error to the response as json, using the status code
// matching the error's code. Internal errors are logged, their details are never
// returned to the client.
func ReturnError(w http.ResponseWriter, r *http.Request, err error) {
	code := ErrorCode(err)
	if code == EINTERNAL {
		LogError(r, err)
	}
	body := errorResponse{Error: &Error{
		Code:    code,
		Message: ErrorMessage(err),
		Fields:  ErrorFields(err),
	}}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(ErrorStatusCode(code))
	if err := json.NewEncoder(w).Encode(body); err != nil {
		LogError(r, err)
	}
}

// LogError logs an error together with the request method and path it happened on.
func LogError(r *http.Request, err error) {
	log.Printf("[http] error: %s %s: %s", r.Method, r.URL.Path, err)
}
