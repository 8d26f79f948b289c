package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "nil error", err: nil, want: KindUnknown},
		{name: "order not found", err: ErrOrderNotFound, want: KindNotFound},
		{name: "item not found", err: ErrItemNotFound, want: KindNotFound},
		{name: "wrapped not found", err: fmt.Errorf("get order: %w", ErrOrderNotFound), want: KindNotFound},
		{name: "duplicate order key", err: ErrOrderAlreadyExists, want: KindConflict},
		{name: "validation", err: &ValidationError{Errs: []error{ErrOrderIDRequired}}, want: KindInvalid},
		{name: "unauthorized", err: ErrUnauthorized, want: KindUnauthorized},
		{name: "bad credentials", err: ErrInvalidCredentials, want: KindForbidden},
		{name: "store failure", err: NewStoreError("insert order", errors.New("connection refused")), want: KindInternal},
		{name: "order not created", err: ErrOrderNotCreated, want: KindInternal},
		{name: "unexpected error", err: errors.New("boom"), want: KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestIsNotFoundAndIsConflict(t *testing.T) {
	if !IsNotFound(errors.Join(ErrItemNotFound, errors.New("extra context"))) {
		t.Error("joined item not found must be classified as not found")
	}
	if IsNotFound(ErrOrderAlreadyExists) {
		t.Error("conflict must not be classified as not found")
	}
	if !IsConflict(ErrOrderAlreadyExists) {
		t.Error("expected conflict")
	}
	if IsConflict(nil) {
		t.Error("nil is not a conflict")
	}
}

func TestValidationError_UnwrapAndMessage(t *testing.T) {
	err := &ValidationError{Errs: []error{ErrOrderIDRequired, ErrItemQtyInvalid}}

	if !errors.Is(err, ErrItemQtyInvalid) {
		t.Fatal("errors.Is must see wrapped violation")
	}
	want := "orderId is required; item quantity must be greater than zero"
	if err.Error() != want {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestStoreError(t *testing.T) {
	if NewStoreError("noop", nil) != nil {
		t.Fatal("nil cause must produce nil error")
	}

	cause := errors.New("deadlock detected")
	err := NewStoreError("update order", cause)

	var storeErr *StoreError
	if !errors.As(err, &storeErr) {
		t.Fatal("expected *StoreError")
	}
	if storeErr.Op != "update order" {
		t.Fatalf("unexpected op: %s", storeErr.Op)
	}
	if !errors.Is(err, cause) {
		t.Fatal("cause must be reachable via errors.Is")
	}
	if err.Error() != "update order: deadlock detected" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
}
