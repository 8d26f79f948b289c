package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item представляет одну позицию заказа.
// Идентичность позиции — пара (OrderID, ProductID): на пару приходится не более одной строки.
type Item struct {
	// OrderID — ключ заказа-владельца.
	OrderID string
	// ProductID — внешний идентификатор товара.
	ProductID int64
	// Quantity — количество единиц товара, строго больше нуля.
	Quantity int32
	// Price — цена за единицу, неотрицательная.
	Price decimal.Decimal
}

// Order агрегирует заказ и его позиции.
// ID задаётся вызывающей стороной и не меняется после создания.
type Order struct {
	ID           string
	Value        decimal.Decimal
	CreationDate time.Time
	Items        []Item
}

// IsZero сообщает, что репозиторий вернул пустую строку заказа.
func (o Order) IsZero() bool {
	return o.ID == ""
}

// Validate проверяет входные данные агрегата до обращения к хранилищу.
func (o *Order) Validate() error {
	var errs []error

	if o.ID == "" {
		errs = append(errs, ErrOrderIDRequired)
	}
	if o.Value.IsNegative() {
		errs = append(errs, ErrValueNegative)
	}
	if o.CreationDate.IsZero() {
		errs = append(errs, ErrCreationDateRequired)
	}

	for _, item := range o.Items {
		if err := item.Validate(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Errs: errs}
}

// Validate проверяет инварианты одной позиции.
func (i Item) Validate() error {
	switch {
	case i.ProductID <= 0:
		return ErrItemProductRequired
	case i.Quantity <= 0:
		return ErrItemQtyInvalid
	case i.Price.IsNegative():
		return ErrItemPriceInvalid
	}
	return nil
}
