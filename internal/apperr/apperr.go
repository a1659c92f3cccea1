// Package apperr defines the closed error taxonomy shared by the HTTP
// surface, the backend client, and the CLI. Every failure that crosses a
// route boundary is one of these codes; the status code and the
// user-facing message are fixed per code and decoupled from whatever the
// transport reported.
package apperr

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// Code enumerates every error kind the application can surface.
type Code string

const (
	CodeEmailAlreadyExists Code = "EMAIL_ALREADY_EXISTS"
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeForbidden          Code = "FORBIDDEN"
	CodeValidation         Code = "VALIDATION_ERROR"
	CodeNotFound           Code = "NOT_FOUND"
	CodeNetwork            Code = "NETWORK_ERROR"
	CodeUnknown            Code = "UNKNOWN_ERROR"
)

// Error is an application error with a fixed HTTP status and detailed
// user-facing message derived from its code.
type Error struct {
	Code    Code
	Message string // transport-level message, may be empty
}

func (e *Error) Error() string {
	if e.Message != "" {
		return string(e.Code) + ": " + e.Message
	}
	return string(e.Code)
}

// New creates an Error with no transport message.
func New(code Code) *Error {
	return &Error{Code: code}
}

// Newf creates an Error carrying a transport-level message.
func Newf(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// StatusCode returns the HTTP status mapped to the error's code.
func (e *Error) StatusCode() int {
	switch e.Code {
	case CodeValidation, CodeEmailAlreadyExists:
		return http.StatusBadRequest
	case CodeUnauthorized, CodeInvalidCredentials:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeNetwork:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// DetailedMessage returns the fixed human-readable message for the error's
// code, independent of the transport message.
func (e *Error) DetailedMessage() string {
	switch e.Code {
	case CodeValidation:
		return "The request couldn't be processed. Please check your input and try again."
	case CodeNotFound:
		return "The requested resource was not found. Please check the resource ID and try again."
	case CodeForbidden:
		return "This resource belongs to another user. Please check the resource ID and try again."
	case CodeUnauthorized:
		return "You need to sign in to view this resource. Please sign in and try again."
	case CodeNetwork:
		return "Please check your internet connection and try again."
	default:
		return "Something went wrong. Please try again later."
	}
}

// envelope is the JSON body this application writes for failures.
type envelope struct {
	ErrorCode Code   `json:"errorCode"`
	Message   string `json:"message"`
	Cause     string `json:"cause,omitempty"`
}

// upstreamEnvelope is the error body shape the backend API produces.
type upstreamEnvelope struct {
	ErrorCode Code   `json:"error_code"`
	Message   string `json:"message"`
}

// WriteJSON writes the error as a JSON response with its mapped status.
func (e *Error) WriteJSON(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode())
	_ = json.NewEncoder(w).Encode(envelope{ErrorCode: e.Code, Message: e.Message})
}

// FromResponse reconstructs an Error from a failed backend response by
// parsing its error envelope. Unparseable bodies and missing codes fall
// back to UNKNOWN_ERROR with the HTTP status text as the message.
func FromResponse(res *http.Response) *Error {
	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return Newf(CodeUnknown, res.Status)
	}

	var env upstreamEnvelope
	if err := json.Unmarshal(body, &env); err != nil || env.ErrorCode == "" {
		return Newf(CodeUnknown, res.Status)
	}

	msg := env.Message
	if msg == "" {
		msg = res.Status
	}
	return Newf(env.ErrorCode, msg)
}

// FromError recovers an *Error from err via errors.As, or wraps any other
// error as UNKNOWN_ERROR so the route boundary never leaks raw failures.
func FromError(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Newf(CodeUnknown, err.Error())
}
