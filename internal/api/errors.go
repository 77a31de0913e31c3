package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"garage-go/internal/garage"
)

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 64 * 1024

// APIError is a non-2xx response from the backend. Its message is the
// backend's detail text, shown to the user verbatim.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Detail     string
}

func (e *APIError) Error() string {
	return e.Detail
}

// Is maps the response status onto the garage error sentinels.
func (e *APIError) Is(target error) bool {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return target == garage.ErrUnauthorized
	case http.StatusForbidden:
		return target == garage.ErrForbidden
	case http.StatusNotFound:
		return target == garage.ErrNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return target == garage.ErrValidation
	}
	return false
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

func newAPIError(method, path string, resp *http.Response) *APIError {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	detail := parseDetail(data)
	if detail == "" {
		detail = fmt.Sprintf("%s %s: %s", method, path, resp.Status)
	}
	return &APIError{
		StatusCode: resp.StatusCode,
		Method:     method,
		Path:       path,
		Detail:     detail,
	}
}

// parseDetail extracts the "detail" member of an error body. Validation
// failures carry a list of {loc, msg} objects instead of a string.
func parseDetail(data []byte) string {
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(data, &body); err != nil || len(body.Detail) == 0 {
		return strings.TrimSpace(string(data))
	}

	var s string
	if err := json.Unmarshal(body.Detail, &s); err == nil {
		return s
	}

	var items []struct {
		Loc []any  `json:"loc"`
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(body.Detail, &items); err == nil && len(items) > 0 {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if field := fieldName(it.Loc); field != "" {
				msgs = append(msgs, field+": "+it.Msg)
			} else {
				msgs = append(msgs, it.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return string(body.Detail)
}

// fieldName returns the last element of a validation location, skipping the
// leading "body" or "query" marker.
func fieldName(loc []any) string {
	if len(loc) < 2 {
		return ""
	}
	return fmt.Sprint(loc[len(loc)-1])
}
