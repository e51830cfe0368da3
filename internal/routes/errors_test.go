package routes

import (
	"fmt"
	"net/http"
	"testing"

	"outpass-control/internal/outpass"
)

func TestErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{outpass.ErrValidation, http.StatusBadRequest},
		{outpass.ErrForbidden, http.StatusForbidden},
		{outpass.ErrInvalidState, http.StatusConflict},
		{outpass.ErrNotFound, http.StatusNotFound},
		{outpass.ErrUnavailable, http.StatusServiceUnavailable},
		{outpass.ErrFatal, http.StatusInternalServerError},
		{ErrInvalidCredentials, http.StatusUnauthorized},
		{ErrStationRejected, http.StatusForbidden},
		{fmt.Errorf("anything else"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		if got := GetErrorStatus(tc.err); got != tc.want {
			t.Errorf("GetErrorStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestWrappedErrorStatus(t *testing.T) {
	wrapped := fmt.Errorf("%w: request is approved", outpass.ErrInvalidState)
	if got := GetErrorStatus(wrapped); got != http.StatusConflict {
		t.Errorf("wrapped ErrInvalidState = %d, want 409", got)
	}

	info := GetErrorInfo(wrapped)
	if len(info.StopCodes) == 0 || info.StopCodes[0] != "INVALID_STATE" {
		t.Errorf("wrapped error stop codes = %v", info.StopCodes)
	}
}

func TestHTTPErrorOverrides(t *testing.T) {
	err := NewHTTPError(http.StatusConflict, ErrInvalidRequest, "Username already exists", "DUPLICATE_USERNAME")

	if got := GetErrorStatus(err); got != http.StatusConflict {
		t.Errorf("HTTPError status = %d, want 409", got)
	}
	info := GetErrorInfo(err)
	if info.Message != "Username already exists" {
		t.Errorf("HTTPError message = %q", info.Message)
	}
}

func TestInternalErrorsAreOpaque(t *testing.T) {
	info := GetErrorInfo(fmt.Errorf("pq: connection reset"))
	if info.Message != "An internal error occurred" {
		t.Errorf("internal error leaked detail: %q", info.Message)
	}
}
