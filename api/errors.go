package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrMaxAttempts is wrapped into error returned after all retries failed.
var ErrMaxAttempts = errors.New("max request attempts exceeded")

// APIError is returned for non-2xx responses.
type APIError struct {
	Status    int
	Code      string
	Message   string
	Retryable bool
	RequestID string
	// RawBody is bounded by configured response limit.
	RawBody []byte
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Code != "" {
		return fmt.Sprintf("api error: status %d (%s): %s", e.Status, e.Code, msg)
	}
	return fmt.Sprintf("api error: status %d: %s", e.Status, msg)
}

// IsNotFound reports whether err is API 404.
func IsNotFound(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Status == http.StatusNotFound
}

func retryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// newAPIError decodes error envelope. Server uses several shapes:
// {"error": "..."}, {"error": {"message": "...", "code": "..."}} and
// {"message": "...", "code": "..."}.
func newAPIError(status int, requestID string, body []byte) *APIError {
	e := &APIError{
		Status:    status,
		Retryable: retryableStatus(status),
		RequestID: requestID,
		RawBody:   body,
	}

	var env map[string]any
	if err := json.Unmarshal(body, &env); err != nil {
		e.Message = strings.TrimSpace(string(body[:min(len(body), 256)]))
		return e
	}
	switch v := env["error"].(type) {
	case string:
		e.Message = v
	case map[string]any:
		e.Message, _ = v["message"].(string)
		e.Code, _ = v["code"].(string)
	}
	if e.Message == "" {
		e.Message, _ = env["message"].(string)
	}
	if e.Code == "" {
		e.Code, _ = env["code"].(string)
	}
	return e
}
