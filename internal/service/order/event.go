package order

import (
	"encoding/json"
	"time"

	"github.com/vladislavdragonenkov/order-api/internal/domain"
)

type eventItem struct {
	ProductID int64       `json:"productId"`
	Quantity  int32       `json:"quantity"`
	Price     json.Number `json:"price"`
}

// eventPayload — тело события заказа в outbox, совпадает по форме с HTTP-представлением заказа.
type eventPayload struct {
	EventType    string      `json:"eventType"`
	OccurredAt   time.Time   `json:"occurredAt"`
	OrderID      string      `json:"orderId"`
	Value        json.Number `json:"value"`
	CreationDate time.Time   `json:"creationDate"`
	Items        []eventItem `json:"items"`
}

func newEventPayload(eventType string, order domain.Order, occurredAt time.Time) eventPayload {
	items := make([]eventItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, eventItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     json.Number(item.Price.String()),
		})
	}

	return eventPayload{
		EventType:    eventType,
		OccurredAt:   occurredAt.UTC(),
		OrderID:      order.ID,
		Value:        json.Number(order.Value.String()),
		CreationDate: order.CreationDate.UTC(),
		Items:        items,
	}
}
