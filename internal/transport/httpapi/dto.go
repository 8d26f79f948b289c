package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/order-api/internal/domain"
)

// flexibleInt принимает целое и как число, и как строку ("2434").
type flexibleInt int64

func (f *flexibleInt) UnmarshalJSON(data []byte) error {
	raw := string(bytes.Trim(data, `"`))
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid integer %s", data)
	}
	*f = flexibleInt(n)
	return nil
}

// itemRequest принимает английские поля и их португальские синонимы из исходного API.
type itemRequest struct {
	ProductID      *flexibleInt     `json:"productId"`
	IDItem         *flexibleInt     `json:"idItem"`
	Quantity       *flexibleInt     `json:"quantity"`
	QuantidadeItem *flexibleInt     `json:"quantidadeItem"`
	Price          *decimal.Decimal `json:"price"`
	ValorItem      *decimal.Decimal `json:"valorItem"`
}

type orderRequest struct {
	OrderID      string           `json:"orderId"`
	NumeroPedido string           `json:"numeroPedido"`
	Value        *decimal.Decimal `json:"value"`
	ValorTotal   *decimal.Decimal `json:"valorTotal"`
	CreationDate *time.Time       `json:"creationDate"`
	DataCriacao  *time.Time       `json:"dataCriacao"`
	Items        []itemRequest    `json:"items"`
	Itens        []itemRequest    `json:"itens"`
}

// toDomain переводит запрос в агрегат; отсутствие обязательной суммы — ошибка валидации,
// остальные инварианты проверяет domain.Order.Validate.
func (r orderRequest) toDomain() (domain.Order, error) {
	order := domain.Order{ID: r.OrderID}
	if order.ID == "" {
		order.ID = r.NumeroPedido
	}

	switch {
	case r.Value != nil:
		order.Value = *r.Value
	case r.ValorTotal != nil:
		order.Value = *r.ValorTotal
	default:
		return domain.Order{}, &domain.ValidationError{Errs: []error{domain.ErrValueRequired}}
	}

	switch {
	case r.CreationDate != nil:
		order.CreationDate = r.CreationDate.UTC()
	case r.DataCriacao != nil:
		order.CreationDate = r.DataCriacao.UTC()
	}

	items := r.Items
	if len(items) == 0 {
		items = r.Itens
	}
	order.Items = make([]domain.Item, 0, len(items))
	for _, it := range items {
		item, err := it.toDomain()
		if err != nil {
			return domain.Order{}, err
		}
		order.Items = append(order.Items, item)
	}

	return order, nil
}

func (r itemRequest) toDomain() (domain.Item, error) {
	var item domain.Item
	if id := firstInt(r.ProductID, r.IDItem); id != nil {
		item.ProductID = int64(*id)
	}
	if qty := firstInt(r.Quantity, r.QuantidadeItem); qty != nil {
		if *qty > math.MaxInt32 {
			return domain.Item{}, &domain.ValidationError{Errs: []error{domain.ErrItemQtyInvalid}}
		}
		item.Quantity = int32(*qty)
	}
	switch {
	case r.Price != nil:
		item.Price = *r.Price
	case r.ValorItem != nil:
		item.Price = *r.ValorItem
	}
	return item, nil
}

func firstInt(values ...*flexibleInt) *flexibleInt {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

type itemResponse struct {
	ProductID int64       `json:"productId"`
	Quantity  int32       `json:"quantity"`
	Price     json.Number `json:"price"`
}

type orderResponse struct {
	OrderID      string         `json:"orderId"`
	Value        json.Number    `json:"value"`
	CreationDate time.Time      `json:"creationDate"`
	Items        []itemResponse `json:"items"`
}

func toOrderResponse(order domain.Order) orderResponse {
	items := make([]itemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, itemResponse{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     json.Number(item.Price.String()),
		})
	}

	return orderResponse{
		OrderID:      order.ID,
		Value:        json.Number(order.Value.String()),
		CreationDate: order.CreationDate.UTC(),
		Items:        items,
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}
