package core

import (
	"errors"
	"testing"
)

func TestExitCodeMapsIncompatibleRuntimeToTwo(t *testing.T) {
	err := &IncompatibleRuntimeError{Chain: ChainID{'a', 'b', 'c', 'd'}}
	if code := ExitCode(err); code != 2 {
		t.Fatalf("expected exit code 2, got %d", code)
	}
}

func TestExitCodeMapsFatalToOne(t *testing.T) {
	err := NewFatalError(errors.New("boom"))
	if code := ExitCode(err); code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
}

func TestExitCodeMapsStarvationToThree(t *testing.T) {
	err := &StarvationError{Chain: ChainID{'a', 'b', 'c', 'd'}, Since: 42}
	if code := ExitCode(err); code != 3 {
		t.Fatalf("expected exit code 3, got %d", code)
	}
}

func TestExitCodeDefaultsToOneForUnknownErrors(t *testing.T) {
	if code := ExitCode(errors.New("something else")); code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
}

func TestExitCodeZeroForNil(t *testing.T) {
	if code := ExitCode(nil); code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
}

func TestTransientErrorUnwrap(t *testing.T) {
	cause := errors.New("timeout")
	err := NewTransientError(cause)
	if !errors.Is(err, cause) {
		t.Fatal("expected TransientError to unwrap to its cause")
	}
}

func TestInvalidErrorWithoutCause(t *testing.T) {
	err := NewInvalidError("bad proof", nil)
	if err.Error() != "invalid: bad proof" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
}
