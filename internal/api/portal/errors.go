package portal

import (
	"errors"
	"fmt"
)

// ErrorKind is the classification of a failed portal call.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindUnauthorized
	KindValidation
	KindNetwork
	KindServerMessage
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindValidation:
		return "validation"
	case KindNetwork:
		return "network"
	case KindServerMessage:
		return "server_message"
	default:
		return "unknown"
	}
}

const (
	msgUnauthorized = "Session expired. Please log in again."
	msgNetwork      = "Connection error. Check that the portal is reachable."
	msgUnknown      = "The request failed. Please try again."
)

// RequestError is the single error type returned by the gateway. Message is
// safe to show to the user; Status is the HTTP status when a response was
// received and Err the underlying cause, if any.
type RequestError struct {
	Kind    ErrorKind
	Message string
	Status  int
	Err     error
}

func (e *RequestError) Error() string {
	return e.Message
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// NewValidationError reports input rejected before any call is made.
func NewValidationError(message string) *RequestError {
	return &RequestError{Kind: KindValidation, Message: message}
}

func unauthorized(status int) *RequestError {
	return &RequestError{Kind: KindUnauthorized, Message: msgUnauthorized, Status: status}
}

func serverMessage(status int, message string) *RequestError {
	return &RequestError{Kind: KindServerMessage, Message: message, Status: status}
}

func networkError(err error) *RequestError {
	return &RequestError{Kind: KindNetwork, Message: msgNetwork, Err: err}
}

func unknownError(status int, err error) *RequestError {
	return &RequestError{Kind: KindUnknown, Message: msgUnknown, Status: status, Err: err}
}

// AsRequestError extracts the classified error from err. Errors that did not
// come from the gateway are reported as KindUnknown.
func AsRequestError(err error) *RequestError {
	if err == nil {
		return nil
	}
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr
	}
	return unknownError(0, fmt.Errorf("unclassified: %w", err))
}

func IsKind(err error, kind ErrorKind) bool {
	reqErr := AsRequestError(err)
	return reqErr != nil && reqErr.Kind == kind
}
