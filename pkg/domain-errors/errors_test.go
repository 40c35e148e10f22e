package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHasCode(t *testing.T) {
	t.Run("direct code", func(t *testing.T) {
		err := New(CodeNotFound, "application not found")
		if !HasCode(err, CodeNotFound) {
			t.Fatal("expected CodeNotFound")
		}
		if HasCode(err, CodeConflict) {
			t.Fatal("did not expect CodeConflict")
		}
	})

	t.Run("wrapped chain", func(t *testing.T) {
		inner := New(CodeInvalidState, "expected PENDING_PAYMENT, got EVALUATED")
		outer := Wrap(inner, CodeInternal, "confirm payment")
		if !HasCode(outer, CodeInvalidState) {
			t.Fatal("expected wrapped CodeInvalidState to be found")
		}
		if !HasCode(outer, CodeInternal) {
			t.Fatal("expected outer CodeInternal to be found")
		}
	})

	t.Run("fmt wrapped", func(t *testing.T) {
		err := fmt.Errorf("store: %w", New(CodeConflict, "duplicate national id"))
		if !HasCode(err, CodeConflict) {
			t.Fatal("expected CodeConflict through fmt wrapping")
		}
	})

	t.Run("plain error", func(t *testing.T) {
		if HasCode(errors.New("boom"), CodeInternal) {
			t.Fatal("plain errors carry no code")
		}
	})
}

func TestToHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeValidation:         http.StatusBadRequest,
		CodeBadRequest:         http.StatusBadRequest,
		CodeUnauthorized:       http.StatusUnauthorized,
		CodeNotFound:           http.StatusNotFound,
		CodeConflict:           http.StatusConflict,
		CodeInvalidState:       http.StatusConflict,
		CodeInvariantViolation: http.StatusConflict,
		CodeInternal:           http.StatusInternalServerError,
		Code("mystery"):        http.StatusInternalServerError,
	}
	for code, want := range cases {
		if got := ToHTTPStatus(code); got != want {
			t.Errorf("ToHTTPStatus(%s) = %d, want %d", code, got, want)
		}
	}
}

func TestUnwrap(t *testing.T) {
	sentinel := errors.New("row not found")
	err := Wrap(sentinel, CodeNotFound, "get payment")
	if !errors.Is(err, sentinel) {
		t.Fatal("expected errors.Is to reach the wrapped sentinel")
	}
}
