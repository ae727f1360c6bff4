package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(CodeDependency, cause, "transfer failed")

	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause to be reachable via errors.Is")
	}
	if err.Code() != CodeDependency {
		t.Fatalf("expected dependency code, got %s", err.Code())
	}
}

func TestAsFindsTypedErrorInChain(t *testing.T) {
	inner := New(CodeInsufficientStock, "product out of stock")
	outer := fmt.Errorf("materialize order: %w", inner)

	typed := As(outer)
	if typed == nil {
		t.Fatal("expected typed error in chain")
	}
	if typed.Code() != CodeInsufficientStock {
		t.Fatalf("unexpected code %s", typed.Code())
	}
}

func TestMetadataForUnknownCodeFallsBackToInternal(t *testing.T) {
	meta := MetadataFor(Code("NOPE"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal fallback, got %d", meta.HTTPStatus)
	}
}

func TestIsCode(t *testing.T) {
	err := New(CodeValidation, "quantity must be positive")
	if !IsCode(err, CodeValidation) {
		t.Fatal("expected IsCode to match")
	}
	if IsCode(err, CodeNotFound) {
		t.Fatal("expected IsCode mismatch")
	}
	if IsCode(errors.New("plain"), CodeValidation) {
		t.Fatal("plain errors should not match any code")
	}
}
