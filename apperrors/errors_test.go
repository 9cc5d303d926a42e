package apperrors

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindPredicates(t *testing.T) {
	cases := []struct {
		err       error
		predicate func(error) bool
		name      string
	}{
		{Validation("bad input"), IsValidation, "validation"},
		{NotFound("missing"), IsNotFound, "not found"},
		{Forbidden("not yours"), IsForbidden, "forbidden"},
		{Conflict("taken"), IsConflict, "conflict"},
		{InvalidState("wrong status"), IsInvalidState, "invalid state"},
	}

	for _, tc := range cases {
		if !tc.predicate(tc.err) {
			t.Errorf("%s predicate rejected its own error", tc.name)
		}
		if tc.name != "conflict" && IsConflict(tc.err) {
			t.Errorf("IsConflict matched a %s error", tc.name)
		}
	}

	if IsNotFound(errors.New("plain")) {
		t.Error("plain errors must not match any kind")
	}
	if IsNotFound(nil) {
		t.Error("nil must not match any kind")
	}
}

func TestPredicatesSeeThroughWrapping(t *testing.T) {
	err := fmt.Errorf("attach booking: %w", Conflict("slot no longer available"))
	if !IsConflict(err) {
		t.Errorf("wrapped conflict not recognized: %v", err)
	}
	if StatusCode(err) != 409 {
		t.Errorf("StatusCode(wrapped conflict) = %d, want 409", StatusCode(err))
	}
}

func TestStatusCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{Validation("x"), 400},
		{Forbidden("x"), 403},
		{NotFound("x"), 404},
		{Conflict("x"), 409},
		{InvalidState("x"), 422},
		{errors.New("plain"), 500},
	}
	for _, tc := range cases {
		if got := StatusCode(tc.err); got != tc.want {
			t.Errorf("StatusCode(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestWrapKeepsKindAndCause(t *testing.T) {
	cause := errors.New("driver: constraint failed")
	err := Wrap(KindConflict, cause, "slot already booked")

	if !IsConflict(err) {
		t.Errorf("wrapped error lost its kind")
	}
	if !errors.Is(err, cause) {
		t.Errorf("wrapped error lost its cause")
	}
	if err.Error() != "slot already booked: driver: constraint failed" {
		t.Errorf("unexpected message %q", err.Error())
	}
}
