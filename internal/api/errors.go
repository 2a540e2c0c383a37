package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strings"
)

// ErrUnauthorized matches any APIError carrying a 401 status.
var ErrUnauthorized = errors.New("unauthorized")

// APIError is a non-2xx response from the Melocuore backend.
type APIError struct {
	Method        string
	Path          string
	Status        int
	Message       string
	Fields        map[string][]string
	QuotaExceeded bool
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api %s %s returned status %d", e.Method, e.Path, e.Status)
	}
	return fmt.Sprintf("api %s %s returned status %d: %s", e.Method, e.Path, e.Status, e.Message)
}

// Is reports 401 responses as ErrUnauthorized.
func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// TransportError wraps failures that happened before a response arrived.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("execute request %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Timeout reports whether the request gave up waiting for the server.
func (e *TransportError) Timeout() bool {
	var netErr net.Error
	if errors.As(e.Err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// IsTransport reports whether err is a connectivity failure.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsQuotaExceeded reports whether err carries the backend's quota flag.
func IsQuotaExceeded(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.QuotaExceeded
}

// Message returns the text to show a user for err. Backend-provided messages
// are returned verbatim; connectivity problems get a generic line; anything
// else falls back to the caller's message.
func Message(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var ae *APIError
	if errors.As(err, &ae) && strings.TrimSpace(ae.Message) != "" {
		return ae.Message
	}
	var te *TransportError
	if errors.As(err, &te) {
		if te.Timeout() {
			return "The Melocuore server did not respond in time"
		}
		return "Cannot reach the Melocuore server"
	}
	return fallback
}

func newAPIError(method, path string, status int, body []byte) *APIError {
	e := &APIError{Method: method, Path: path, Status: status}
	var payload map[string]any
	if len(body) > 0 && json.Unmarshal(body, &payload) == nil {
		e.Message = payloadMessage(payload)
		e.Fields = payloadFields(payload)
		if quota, ok := payload["quota_exceeded"].(bool); ok {
			e.QuotaExceeded = quota
		}
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}

func payloadMessage(payload map[string]any) string {
	for _, key := range []string{"error", "detail", "message"} {
		if s, ok := payload[key].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	fields := payloadFields(payload)
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var parts []string
	for _, k := range keys {
		parts = append(parts, fields[k]...)
	}
	return strings.Join(parts, " ")
}

// payloadFields collects DRF-style validation errors: {"field": ["msg", ...]}.
func payloadFields(payload map[string]any) map[string][]string {
	out := map[string][]string{}
	for key, raw := range payload {
		switch v := raw.(type) {
		case []any:
			for _, item := range v {
				if s, ok := item.(string); ok && s != "" {
					out[key] = append(out[key], s)
				}
			}
		case string:
			if key == "error" || key == "detail" || key == "message" || key == "status" || key == "code" {
				continue
			}
			if v != "" {
				out[key] = append(out[key], v)
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
