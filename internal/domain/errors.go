package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrConfiguration     = errors.New("configuration error")
	ErrUpstreamHTTP      = errors.New("upstream http error")
	ErrTransport         = errors.New("transport error")
	ErrMalformedResponse = errors.New("malformed response")
)

// ConfigurationError means a required endpoint or credential is unset.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string { return e.Message }

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// UpstreamHTTPError is a non-2xx answer from an external service.
type UpstreamHTTPError struct {
	Status  int
	Body    string
	Message string
}

func (e *UpstreamHTTPError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("HTTP %d", e.Status)
}

func (e *UpstreamHTTPError) Unwrap() error { return ErrUpstreamHTTP }

// UnreachableWorkflowError replaces an upstream error whose body was an HTML
// page, so markup never reaches the user.
type UnreachableWorkflowError struct {
	Status int
}

func (e *UnreachableWorkflowError) Error() string {
	return fmt.Sprintf("Webhook error (%d): Unable to reach n8n workflow. Please check webhook URL.", e.Status)
}

func (e *UnreachableWorkflowError) Unwrap() error { return ErrUpstreamHTTP }

// TransportError wraps network level failures (DNS, timeouts, resets).
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return e.Err.Error() }

func (e *TransportError) Unwrap() []error { return []error{ErrTransport, e.Err} }

// MalformedResponseError means an upstream body could not be decoded.
type MalformedResponseError struct {
	Message string
	Err     error
}

func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *MalformedResponseError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrMalformedResponse}
	}
	return []error{ErrMalformedResponse, e.Err}
}

// HTTPStatus picks the response code a handler should use for err.
func HTTPStatus(err error) int {
	var upstream *UpstreamHTTPError
	if errors.As(err, &upstream) && upstream.Status >= 400 {
		return upstream.Status
	}
	var unreachable *UnreachableWorkflowError
	if errors.As(err, &unreachable) && unreachable.Status >= 400 {
		return unreachable.Status
	}
	return 500
}
