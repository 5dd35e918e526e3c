// Package graphql is a small GraphQL client. Requests flow through a chain of
// Links: HTTP for queries and mutations, a graphql-transport-ws socket for
// subscriptions.
package graphql

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Operation kinds.
const (
	Query        = "query"
	Mutation     = "mutation"
	Subscription = "subscription"
)

// Operation is one GraphQL request.
type Operation struct {
	Query         string                 `json:"query"`
	Variables     map[string]interface{} `json:"variables,omitempty"`
	OperationName string                 `json:"operationName,omitempty"`

	// Header is sent with HTTP requests. Links may add to it.
	Header http.Header `json:"-"`
}

// clone returns a copy whose Header may be modified freely.
func (op *Operation) clone() *Operation {
	out := *op
	out.Header = op.Header.Clone()
	if out.Header == nil {
		out.Header = http.Header{}
	}
	return &out
}

// Response is the {data, errors} envelope.
type Response struct {
	Data       json.RawMessage        `json:"data,omitempty"`
	Errors     Errors                 `json:"errors,omitempty"`
	Extensions map[string]interface{} `json:"extensions,omitempty"`
}

// Validator is implemented by response types that check themselves after
// decoding.
type Validator interface {
	Validate() error
}

// Decode unmarshals data into out and validates it when out implements
// Validator. GraphQL errors in the envelope take precedence.
func (r *Response) Decode(out interface{}) error {
	if len(r.Errors) > 0 {
		return r.Errors
	}
	if out == nil {
		return nil
	}
	if len(r.Data) == 0 || string(r.Data) == "null" {
		return fmt.Errorf("response carries no data")
	}
	if err := json.Unmarshal(r.Data, out); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	if v, ok := out.(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("invalid response: %w", err)
		}
	}
	return nil
}

// OperationType returns the kind of the first operation defined in the
// document. Fragment definitions are skipped and a bare selection set is a
// query.
func OperationType(document string) (string, error) {
	depth := 0
	inFragment := false

	for i := 0; i < len(document); {
		c := document[i]
		switch {
		case c == '#':
			for i < len(document) && document[i] != '\n' && document[i] != '\r' {
				i++
			}
		case c == '"':
			i = skipString(document, i)
		case c == '{':
			if depth == 0 && !inFragment {
				return Query, nil
			}
			depth++
			i++
		case c == '}':
			depth--
			if depth < 0 {
				return "", fmt.Errorf("unbalanced braces in document")
			}
			if depth == 0 {
				inFragment = false
			}
			i++
		case isNameStart(c):
			start := i
			for i < len(document) && isNameContinue(document[i]) {
				i++
			}
			if depth > 0 || inFragment {
				continue
			}
			switch name := document[start:i]; name {
			case Query, Mutation, Subscription:
				return name, nil
			case "fragment":
				inFragment = true
			default:
				return "", fmt.Errorf("unexpected %q at top level of document", name)
			}
		default:
			i++
		}
	}
	return "", fmt.Errorf("document defines no operation")
}

// skipString returns the index just past the string literal at i.
func skipString(s string, i int) int {
	if len(s) >= i+3 && s[i:i+3] == `"""` {
		for j := i + 3; j+3 <= len(s); j++ {
			if s[j] == '\\' && j+4 <= len(s) && s[j+1:j+4] == `"""` {
				j += 3
				continue
			}
			if s[j:j+3] == `"""` {
				return j + 3
			}
		}
		return len(s)
	}
	for j := i + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case '"', '\n':
			return j + 1
		}
	}
	return len(s)
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNameContinue(c byte) bool {
	return isNameStart(c) || (c >= '0' && c <= '9')
}

// IsSubscription reports whether op is a subscription. It is the usual
// predicate for Split.
func IsSubscription(op *Operation) bool {
	kind, err := OperationType(op.Query)
	return err == nil && kind == Subscription
}
