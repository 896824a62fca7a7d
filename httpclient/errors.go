package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// ClientError represents different types of pipeline errors
type ClientError interface {
	error
	Type() ErrorType
}

// StatusError is a ClientError produced from an unexpected HTTP status.
type StatusError interface {
	ClientError
	StatusCode() int
	Header() http.Header
	Body() []byte
}

// ErrorType defines the category of client error
type ErrorType string

const (
	NetworkError     ErrorType = "network"
	TimeoutError     ErrorType = "timeout"
	HTTPError        ErrorType = "http"
	ValidationError  ErrorType = "validation"
	InterceptorError ErrorType = "interceptor"
	RetryExhausted   ErrorType = "retry_exhausted"
	CircuitOpen      ErrorType = "circuit_open"
)

// networkError represents network-related errors
type networkError struct {
	message string
	wrapped error
}

func (e *networkError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("network error: %s: %v", e.message, e.wrapped)
	}
	return fmt.Sprintf("network error: %s", e.message)
}

func (e *networkError) Type() ErrorType {
	return NetworkError
}

func (e *networkError) Unwrap() error {
	return e.wrapped
}

// timeoutError represents timeout-related errors
type timeoutError struct {
	message string
	timeout time.Duration
	wrapped error
}

func (e *timeoutError) Error() string {
	return fmt.Sprintf("timeout error: %s (timeout: %v)", e.message, e.timeout)
}

func (e *timeoutError) Type() ErrorType {
	return TimeoutError
}

func (e *timeoutError) Unwrap() error {
	return e.wrapped
}

// httpError represents HTTP status-related errors
type httpError struct {
	message    string
	statusCode int
	header     http.Header
	body       []byte
}

func (e *httpError) Error() string {
	return fmt.Sprintf("HTTP error: %s (status: %d)", e.message, e.statusCode)
}

func (e *httpError) Type() ErrorType {
	return HTTPError
}

func (e *httpError) StatusCode() int {
	return e.statusCode
}

func (e *httpError) Header() http.Header {
	return e.header
}

func (e *httpError) Body() []byte {
	return e.body
}

// validationError represents request validation errors
type validationError struct {
	message string
	field   string
}

func (e *validationError) Error() string {
	if e.field != "" {
		return fmt.Sprintf("validation error: %s (field: %s)", e.message, e.field)
	}
	return fmt.Sprintf("validation error: %s", e.message)
}

func (e *validationError) Type() ErrorType {
	return ValidationError
}

// interceptorError represents interceptor-related errors
type interceptorError struct {
	message string
	wrapped error
	stage   string
}

func (e *interceptorError) Error() string {
	return fmt.Sprintf("interceptor error: %s (stage: %s): %v", e.message, e.stage, e.wrapped)
}

func (e *interceptorError) Type() ErrorType {
	return InterceptorError
}

func (e *interceptorError) Unwrap() error {
	return e.wrapped
}

// circuitOpenError is returned while the circuit breaker rejects calls
type circuitOpenError struct {
	name    string
	wrapped error
}

func (e *circuitOpenError) Error() string {
	return fmt.Sprintf("circuit open: %s: %v", e.name, e.wrapped)
}

func (e *circuitOpenError) Type() ErrorType {
	return CircuitOpen
}

func (e *circuitOpenError) Unwrap() error {
	return e.wrapped
}

// RetryExhaustedError is returned when every attempt of a logical request
// failed. Last is the final attempt's error; Suppressed holds the errors of
// the earlier attempts in the order they occurred.
type RetryExhaustedError struct {
	Last       error
	Suppressed []error
	Attempts   int
}

func (e *RetryExhaustedError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "retries exhausted after %d attempt(s): %v", e.Attempts, e.Last)
	if len(e.Suppressed) > 0 {
		fmt.Fprintf(&sb, " (%d earlier failure(s))", len(e.Suppressed))
	}
	return sb.String()
}

func (e *RetryExhaustedError) Type() ErrorType {
	return RetryExhausted
}

// Unwrap exposes the last error followed by the suppressed ones.
func (e *RetryExhaustedError) Unwrap() []error {
	errs := make([]error, 0, len(e.Suppressed)+1)
	if e.Last != nil {
		errs = append(errs, e.Last)
	}
	return append(errs, e.Suppressed...)
}

// NewNetworkError creates a new network error
func NewNetworkError(message string, wrapped error) ClientError {
	return &networkError{
		message: message,
		wrapped: wrapped,
	}
}

// NewTimeoutError creates a new timeout error
func NewTimeoutError(message string, timeout time.Duration) ClientError {
	return &timeoutError{
		message: message,
		timeout: timeout,
	}
}

// WrapTimeoutError creates a timeout error that keeps the underlying cause
func WrapTimeoutError(message string, timeout time.Duration, wrapped error) ClientError {
	return &timeoutError{
		message: message,
		timeout: timeout,
		wrapped: wrapped,
	}
}

// NewHTTPError creates a new HTTP error
func NewHTTPError(message string, statusCode int, body []byte) ClientError {
	return &httpError{
		message:    message,
		statusCode: statusCode,
		body:       body,
	}
}

// NewResponseError creates an HTTP error from a buffered response.
func NewResponseError(resp *Response) ClientError {
	body, _ := resp.Bytes()
	return &httpError{
		message:    fmt.Sprintf("HTTP request failed with status %d", resp.StatusCode),
		statusCode: resp.StatusCode,
		header:     resp.Header,
		body:       body,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message, field string) ClientError {
	return &validationError{
		message: message,
		field:   field,
	}
}

// NewInterceptorError creates a new interceptor error
func NewInterceptorError(message, stage string, wrapped error) ClientError {
	return &interceptorError{
		message: message,
		wrapped: wrapped,
		stage:   stage,
	}
}

// NewCircuitOpenError creates an error for a call rejected by a breaker
func NewCircuitOpenError(name string, wrapped error) ClientError {
	return &circuitOpenError{
		name:    name,
		wrapped: wrapped,
	}
}

// IsErrorType checks if an error is of a specific type
func IsErrorType(err error, errorType ErrorType) bool {
	if err == nil {
		return false
	}
	var clientErr ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type() == errorType
	}
	return false
}

// IsHTTPStatusError checks if an error is an HTTP error with a specific status code
func IsHTTPStatusError(err error, statusCode int) bool {
	var httpErr StatusError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode() == statusCode
	}
	return false
}

// AsStatusError returns the StatusError in err's chain, if any.
func AsStatusError(err error) (StatusError, bool) {
	var httpErr StatusError
	if errors.As(err, &httpErr) {
		return httpErr, true
	}
	return nil, false
}

// IsSuccessStatus checks if a status code represents success (2xx)
func IsSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}

// IsTransientError reports whether err is a transport failure worth another
// attempt. Caller cancellation, caller deadlines and local failures are not.
func IsTransientError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if IsErrorType(err, TimeoutError) || IsErrorType(err, NetworkError) {
		return true
	}
	if IsErrorType(err, ValidationError) || IsErrorType(err, InterceptorError) || IsErrorType(err, CircuitOpen) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
