package app

import (
	"context"
	"errors"
	"testing"
)

func TestErrorHandlerHandleNilIsNotFatal(t *testing.T) {
	h := NewErrorHandler()
	if h.Handle(context.Background(), nil, "op") {
		t.Fatal("Handle(nil) must report non-fatal")
	}
}

func TestErrorHandlerHandleReturnsNonFatal(t *testing.T) {
	h := NewErrorHandler()
	if h.Handle(context.Background(), errors.New("boom"), "read_file") {
		t.Fatal("Handle should currently always report non-fatal")
	}
}

func TestErrorHandlerHandleWithRecoveryCatchesPanic(t *testing.T) {
	h := NewErrorHandler()
	err := h.HandleWithRecovery("risky_op", func() error {
		panic("unexpected")
	})
	if err == nil {
		t.Fatal("expected an error recovered from the panic")
	}
	if got := err.Error(); got != "panic in risky_op: unexpected" {
		t.Fatalf("error = %q, want %q", got, "panic in risky_op: unexpected")
	}
}

func TestErrorHandlerHandleWithRecoveryPassesThroughError(t *testing.T) {
	h := NewErrorHandler()
	wantErr := errors.New("normal failure")
	err := h.HandleWithRecovery("op", func() error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("error = %v, want %v", err, wantErr)
	}
}

func TestSafeExecute(t *testing.T) {
	if err := SafeExecute("op", func() error { panic("boom") }); err == nil {
		t.Fatal("SafeExecute should recover a panic into an error")
	}
	if err := SafeExecute("op", func() error { return nil }); err != nil {
		t.Fatalf("SafeExecute with a clean function returned %v", err)
	}
}

func TestAppErrorFormatting(t *testing.T) {
	wrapped := errors.New("underlying")
	withWrap := NewAppError(ErrCodeNetwork, "request failed", wrapped)
	if !errors.Is(withWrap, wrapped) {
		t.Fatal("AppError.Unwrap should expose the wrapped error")
	}
	if withWrap.Error() == "" {
		t.Fatal("Error() should not be empty")
	}

	bare := NewAppError(ErrCodeValidation, "bad input", nil)
	if bare.Unwrap() != nil {
		t.Fatal("Unwrap on a bare AppError should return nil")
	}
}

func TestGracefulReturn(t *testing.T) {
	if err := GracefulReturn(nil, "init cache"); err != nil {
		t.Fatalf("GracefulReturn(nil) = %v, want nil", err)
	}

	wrapped := GracefulReturn(errors.New("disk full"), "init cache")
	if wrapped == nil {
		t.Fatal("GracefulReturn should wrap a non-nil error")
	}
	if wrapped.Error() != "init cache: disk full" {
		t.Fatalf("error = %q, want %q", wrapped.Error(), "init cache: disk full")
	}
}
