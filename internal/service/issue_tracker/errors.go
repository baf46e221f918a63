package issue_tracker

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// BodyExcerptLimit bounds the response body kept on a TransportError.
const BodyExcerptLimit = 500

// ErrIssueNotCreated is returned when issueCreate answers without errors but
// also without an issue.
var ErrIssueNotCreated = errors.New("linear did not create the issue")

// TransportError means the tracker could not be reached or its response could
// not be read. StatusCode is 0 when no response arrived.
type TransportError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("linear request failed: %v", e.Err)
	}
	return fmt.Sprintf("linear error: status=%d, body=%s", e.StatusCode, e.Body)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ApplicationError carries the tracker's GraphQL error list exactly as received.
type ApplicationError struct {
	Errors []json.RawMessage
}

func (e *ApplicationError) Error() string {
	messages := e.Messages()
	if len(messages) == 0 {
		return fmt.Sprintf("linear returned %d error(s)", len(e.Errors))
	}
	return fmt.Sprintf("linear returned %d error(s): %s", len(e.Errors), strings.Join(messages, "; "))
}

// Messages extracts the "message" member of each error, skipping entries
// without one.
func (e *ApplicationError) Messages() []string {
	var out []string
	for _, raw := range e.Errors {
		var item struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(raw, &item); err == nil && item.Message != "" {
			out = append(out, item.Message)
		}
	}
	return out
}

// excerpt keeps the first BodyExcerptLimit characters of body.
func excerpt(body []byte) string {
	s := string(body)
	n := 0
	for i := range s {
		if n == BodyExcerptLimit {
			return s[:i]
		}
		n++
	}
	return s
}
