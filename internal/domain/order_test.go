package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func validOrder() Order {
	return Order{
		ID:           "v10089016vdb",
		Value:        decimal.NewFromInt(100),
		CreationDate: time.Date(2023, 7, 19, 12, 24, 11, 529_000_000, time.UTC),
		Items: []Item{
			{ProductID: 2434, Quantity: 1, Price: decimal.NewFromInt(1000)},
		},
	}
}

func TestOrderValidate_Valid(t *testing.T) {
	order := validOrder()
	if err := order.Validate(); err != nil {
		t.Fatalf("expected valid order, got %v", err)
	}

	order.Items = nil
	if err := order.Validate(); err != nil {
		t.Fatalf("order without items must be valid, got %v", err)
	}
}

func TestOrderValidate_Violations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(o *Order)
		want   error
	}{
		{name: "missing id", mutate: func(o *Order) { o.ID = "" }, want: ErrOrderIDRequired},
		{name: "negative value", mutate: func(o *Order) { o.Value = decimal.NewFromInt(-1) }, want: ErrValueNegative},
		{name: "missing creation date", mutate: func(o *Order) { o.CreationDate = time.Time{} }, want: ErrCreationDateRequired},
		{name: "zero product", mutate: func(o *Order) { o.Items[0].ProductID = 0 }, want: ErrItemProductRequired},
		{name: "zero quantity", mutate: func(o *Order) { o.Items[0].Quantity = 0 }, want: ErrItemQtyInvalid},
		{name: "negative price", mutate: func(o *Order) { o.Items[0].Price = decimal.RequireFromString("-0.01") }, want: ErrItemPriceInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := validOrder()
			tt.mutate(&order)

			err := order.Validate()
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if KindOf(err) != KindInvalid {
				t.Fatalf("expected invalid kind, got %s", KindOf(err))
			}
		})
	}
}

func TestOrderValidate_CollectsAll(t *testing.T) {
	order := Order{Value: decimal.NewFromInt(-5)}

	err := order.Validate()

	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if len(validationErr.Errs) != 3 {
		t.Fatalf("expected 3 violations, got %d: %v", len(validationErr.Errs), err)
	}
}

func TestOrderIsZero(t *testing.T) {
	if !(Order{}).IsZero() {
		t.Fatal("empty order must be zero")
	}
	if validOrder().IsZero() {
		t.Fatal("order with id must not be zero")
	}
}
