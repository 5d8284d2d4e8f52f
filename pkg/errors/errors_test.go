package errors

import (
	stdErrors "errors"
	"net/http"
	"testing"
)

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("connection refused")
	err := Wrap(CodeDependency, cause, "fetch orders")

	if !stdErrors.Is(err, cause) {
		t.Fatal("expected wrapped cause to survive errors.Is")
	}
	if err.Code() != CodeDependency {
		t.Fatalf("unexpected code: %s", err.Code())
	}
}

func TestAsFindsTypedError(t *testing.T) {
	inner := New(CodeIntegrity, "row sum mismatch")
	outer := stdErrors.Join(stdErrors.New("context"), inner)

	typed := As(outer)
	if typed == nil {
		t.Fatal("expected typed error")
	}
	if typed.Code() != CodeIntegrity {
		t.Fatalf("unexpected code: %s", typed.Code())
	}
}

func TestIsCode(t *testing.T) {
	err := New(CodeValidation, "quantity out of range")
	if !IsCode(err, CodeValidation) {
		t.Fatal("expected validation code match")
	}
	if IsCode(err, CodeConflict) {
		t.Fatal("unexpected conflict match")
	}
	if IsCode(nil, CodeValidation) {
		t.Fatal("nil error should match nothing")
	}
}

func TestMetadataFallsBackToInternal(t *testing.T) {
	meta := MetadataFor(Code("BOGUS"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("unexpected status: %d", meta.HTTPStatus)
	}
}

func TestDumpBuildsChain(t *testing.T) {
	err := Wrap(CodeDependency, stdErrors.New("timeout"), "poll cycle")
	dump := Dump(err)
	if dump.Code != CodeDependency {
		t.Fatalf("unexpected code: %s", dump.Code)
	}
	if len(dump.Chain) != 2 {
		t.Fatalf("expected 2 chain entries, got %d", len(dump.Chain))
	}
}
