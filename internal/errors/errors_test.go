package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestToHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"conflict", ErrConflict, http.StatusConflict},
		{"not found", ErrNotFound, http.StatusNotFound},
		{"expired", ErrExpired, http.StatusBadRequest},
		{"invalid credentials", ErrInvalidCredentials, http.StatusUnauthorized},
		{"invalid refresh", ErrInvalidOrExpiredToken, http.StatusUnauthorized},
		{"forbidden", ErrForbidden, http.StatusForbidden},
		{"wrapped internal", WrapError(ErrInternal, errors.New("db down")), http.StatusInternalServerError},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
		{"fmt wrapped conflict", fmt.Errorf("register: %w", ErrConflict), http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToHTTPStatus(tt.err); got != tt.want {
				t.Errorf("ToHTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestGetErrorMessage_HidesInternalCause(t *testing.T) {
	err := WrapError(ErrInternal, errors.New("pq: connection refused"))
	if got := GetErrorMessage(err); got != "internal server error" {
		t.Errorf("GetErrorMessage() = %q, want generic message", got)
	}

	if got := GetErrorMessage(errors.New("raw driver error")); got != "internal server error" {
		t.Errorf("GetErrorMessage() leaked raw error: %q", got)
	}
}

func TestDomainError_IsMatchesByCode(t *testing.T) {
	wrapped := WrapError(ErrConflict, errors.New("duplicate key"))
	if !errors.Is(wrapped, ErrConflict) {
		t.Error("expected wrapped conflict to match ErrConflict")
	}
	if errors.Is(wrapped, ErrNotFound) {
		t.Error("did not expect conflict to match ErrNotFound")
	}
}
