package graphql

import (
	"errors"
	"fmt"
	"strings"
)

// Location points into the request document.
type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Error is one entry of the response "errors" array.
type Error struct {
	Message    string                 `json:"message"`
	Path       []interface{}          `json:"path,omitempty"`
	Locations  []Location             `json:"locations,omitempty"`
	Extensions map[string]interface{} `json:"extensions,omitempty"`
}

func (e Error) Error() string {
	return e.Message
}

// Errors is the list of GraphQL errors returned by the server.
type Errors []Error

func (e Errors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Message)
	}
	return "graphql: " + strings.Join(msgs, "; ")
}

// Message is the first server message, suitable for showing to a user.
func (e Errors) Message() string {
	if len(e) == 0 {
		return ""
	}
	return e[0].Message
}

// TransportError means the request got no usable GraphQL response.
type TransportError struct {
	// StatusCode is zero when no HTTP response was received.
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("graphql transport: status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("graphql transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// AsErrors extracts server errors from err.
func AsErrors(err error) (Errors, bool) {
	var gerrs Errors
	if errors.As(err, &gerrs) {
		return gerrs, true
	}
	return nil, false
}

// IsTransportError reports whether err is a transport failure.
func IsTransportError(err error) bool {
	var terr *TransportError
	return errors.As(err, &terr)
}

// ErrorMessage returns the message to surface for err: the first server
// message for GraphQL errors, the error text otherwise.
func ErrorMessage(err error) string {
	if gerrs, ok := AsErrors(err); ok && gerrs.Message() != "" {
		return gerrs.Message()
	}
	return err.Error()
}
