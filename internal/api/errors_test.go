package api

import (
	"errors"
	"net/http"
	"testing"

	"garage-go/internal/garage"
)

func TestParseDetail(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "string", body: `{"detail":"Build not found"}`, want: "Build not found"},
		{
			name: "validation list",
			body: `{"detail":[{"loc":["body","email"],"msg":"value is not a valid email address"},{"loc":["body"],"msg":"bad"}]}`,
			want: "email: value is not a valid email address; bad",
		},
		{name: "plain text", body: "Internal Server Error\n", want: "Internal Server Error"},
		{name: "empty", body: "", want: ""},
		{name: "object detail", body: `{"detail":{"code":7}}`, want: `{"code":7}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseDetail([]byte(tt.body)); got != tt.want {
				t.Errorf("parseDetail() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAPIError_Is(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, garage.ErrUnauthorized},
		{http.StatusForbidden, garage.ErrForbidden},
		{http.StatusNotFound, garage.ErrNotFound},
		{http.StatusBadRequest, garage.ErrValidation},
		{http.StatusUnprocessableEntity, garage.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := error(&APIError{StatusCode: tt.status, Detail: "x"})
			if !errors.Is(err, tt.want) {
				t.Errorf("errors.Is(%d, %v) = false", tt.status, tt.want)
			}
		})
	}

	err := error(&APIError{StatusCode: http.StatusInternalServerError})
	for _, sentinel := range []error{garage.ErrUnauthorized, garage.ErrForbidden, garage.ErrNotFound, garage.ErrValidation} {
		if errors.Is(err, sentinel) {
			t.Errorf("500 should not match %v", sentinel)
		}
	}
}
