package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHelpersMatchWrappedErrors(t *testing.T) {
	base := &NotFoundError{Entity: "patient", ID: "p1"}
	wrapped := fmt.Errorf("load snapshot: %w", base)
	if !IsNotFound(wrapped) {
		t.Error("expected IsNotFound to see through wrapping")
	}
	if IsValidation(wrapped) {
		t.Error("IsValidation must not match a not-found error")
	}
}

func TestPartialFailureUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	pf := &PartialFailureError{Operation: "check-in", Succeeded: "patient", Failed: "appointment", Err: cause}
	if !errors.Is(pf, cause) {
		t.Error("expected the cause to be reachable through Unwrap")
	}
	if !IsPartialFailure(fmt.Errorf("orchestrate: %w", pf)) {
		t.Error("expected IsPartialFailure to match")
	}
}

func TestToHTTP(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{&ValidationError{Entity: "patient", Field: "email", Reason: "invalid"}, http.StatusBadRequest},
		{&NotFoundError{Entity: "patient", ID: "p1"}, http.StatusNotFound},
		{&InvalidStateError{Entity: "patient", Operation: "check in", Current: "completed"}, http.StatusConflict},
		{&ConsistencyError{Entity: "appointment", Reason: "wrong patient"}, http.StatusConflict},
		{&PartialFailureError{Operation: "check-in", Err: errors.New("boom")}, http.StatusBadGateway},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := ToHTTP(tc.err); got.Code != tc.code {
			t.Errorf("%T: expected %d, got %d", tc.err, tc.code, got.Code)
		}
	}
}
