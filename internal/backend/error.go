package backend

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/jogardn/orders-client/internal/circuitbreaker"
	"github.com/jogardn/orders-client/pkg/models"
)

type ErrorType string

const (
	ErrorTypeAPI            ErrorType = "api_error"
	ErrorTypeAPIConnection  ErrorType = "api_connection_error"
	ErrorTypeAuthentication ErrorType = "authentication_error"
	ErrorTypeCard           ErrorType = "card_error"
	ErrorTypeIdempotency    ErrorType = "idempotency_error"
	ErrorTypeInvalidRequest ErrorType = "invalid_request_error"
	ErrorTypeRateLimit      ErrorType = "rate_limit_error"
)

// Error is a non-2xx response of the API.
type Error struct {
	HTTPStatus  int       `json:"-"`
	RequestID   string    `json:"-"`
	Type        ErrorType `json:"type"`
	Code        string    `json:"code,omitempty"`
	DeclineCode string    `json:"decline_code,omitempty"`
	Message     string    `json:"message,omitempty"`
	Param       string    `json:"param,omitempty"`
	DocURL      string    `json:"doc_url,omitempty"`

	shouldRetry *bool
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("api error (status %d, type %s", e.HTTPStatus, e.Type)
	if e.Code != "" {
		msg += ", code " + e.Code
	}
	if e.Param != "" {
		msg += ", param " + e.Param
	}
	if e.RequestID != "" {
		msg += ", request " + e.RequestID
	}
	return msg + "): " + e.Message
}

// ErrorResponse is the envelope error bodies are wrapped in.
type ErrorResponse struct {
	Error *Error `json:"error"`
}

// NewError builds the error the API would return for status.
func NewError(status int, errType ErrorType, message string) *Error {
	return &Error{HTTPStatus: status, Type: errType, Message: message}
}

func (e *Error) WithParam(param string) *Error {
	e.Param = param
	return e
}

func (e *Error) WithCode(code string) *Error {
	e.Code = code
	return e
}

type ErrorKind string

const (
	KindInvalidRequest ErrorKind = "invalid_request"
	KindAuthentication ErrorKind = "authentication"
	KindNotFound       ErrorKind = "not_found"
	KindRateLimit      ErrorKind = "rate_limit"
	KindCard           ErrorKind = "card"
	KindIdempotency    ErrorKind = "idempotency"
	KindAPI            ErrorKind = "api"
	KindCircuitOpen    ErrorKind = "circuit_open"
	KindTimeout        ErrorKind = "timeout"
	KindCanceled       ErrorKind = "canceled"
	KindNetwork        ErrorKind = "network"
)

// Kind classifies any error returned by Call.
func Kind(err error) ErrorKind {
	var apiErr *Error
	var netErr net.Error

	switch {
	case err == nil:
		return ""

	case errors.As(err, &apiErr):
		return apiErr.kind()

	case errors.Is(err, models.ErrInvalidParams):
		return KindInvalidRequest

	case errors.Is(err, circuitbreaker.ErrCircuitBreakerOpen):
		return KindCircuitOpen

	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout

	case errors.Is(err, context.Canceled):
		return KindCanceled

	case errors.As(err, &netErr) && netErr.Timeout():
		return KindTimeout

	default:
		return KindNetwork
	}
}

func (e *Error) kind() ErrorKind {
	switch {
	case e.HTTPStatus == http.StatusUnauthorized || e.Type == ErrorTypeAuthentication:
		return KindAuthentication
	case e.HTTPStatus == http.StatusTooManyRequests || e.Type == ErrorTypeRateLimit:
		return KindRateLimit
	case e.Type == ErrorTypeCard:
		return KindCard
	case e.Type == ErrorTypeIdempotency:
		return KindIdempotency
	case e.HTTPStatus == http.StatusNotFound:
		return KindNotFound
	case e.HTTPStatus >= 500 || e.Type == ErrorTypeAPI:
		return KindAPI
	default:
		return KindInvalidRequest
	}
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	return Kind(err) == KindNotFound
}

// serverFailure tells the circuit breaker which errors reflect the health of
// the host. Client errors and rate limiting do not.
func serverFailure(err error) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatus >= 500
	}
	return true
}
