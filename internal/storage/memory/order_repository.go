package memory

import (
	"context"
	"sort"

	"github.com/vladislavdragonenkov/order-api/internal/domain"
)

// orderRepository — in-memory реализация OrderRepository.
// Каждая проверка и изменение выполняются под одной блокировкой.
type orderRepository struct {
	access access
}

func (r *orderRepository) FindOrder(ctx context.Context, orderID string) (domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return domain.Order{}, err
	}

	var order domain.Order
	err := r.access.read(func(st *state) error {
		stored, ok := st.orders[orderID]
		if !ok {
			return domain.ErrOrderNotFound
		}
		order = stored
		return nil
	})
	return order, err
}

func (r *orderRepository) CreateOrder(ctx context.Context, order domain.Order) (domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return domain.Order{}, err
	}

	order.Items = nil
	err := r.access.write(func(st *state) error {
		if _, exists := st.orders[order.ID]; exists {
			return domain.ErrOrderAlreadyExists
		}
		st.orders[order.ID] = order
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

func (r *orderRepository) UpdateOrder(ctx context.Context, order domain.Order) (domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return domain.Order{}, err
	}

	order.Items = nil
	err := r.access.write(func(st *state) error {
		if _, exists := st.orders[order.ID]; !exists {
			return domain.ErrOrderNotFound
		}
		st.orders[order.ID] = order
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

// ListOrders сортирует так же, как PostgreSQL-реализация: по дате создания, затем по ключу.
func (r *orderRepository) ListOrders(ctx context.Context) ([]domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := make([]domain.Order, 0)
	_ = r.access.read(func(st *state) error {
		for _, order := range st.orders {
			result = append(result, order)
		}
		return nil
	})

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreationDate.Equal(result[j].CreationDate) {
			return result[i].CreationDate.Before(result[j].CreationDate)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (r *orderRepository) DeleteOrder(ctx context.Context, orderID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return r.access.write(func(st *state) error {
		if _, exists := st.orders[orderID]; !exists {
			return domain.ErrOrderNotFound
		}
		delete(st.orders, orderID)
		delete(st.items, orderID)
		return nil
	})
}

// UpsertItem сохраняет seq существующей позиции, поэтому порядок вставки не меняется.
func (r *orderRepository) UpsertItem(ctx context.Context, orderID string, item domain.Item) (domain.Item, error) {
	if err := ctx.Err(); err != nil {
		return domain.Item{}, err
	}

	item.OrderID = orderID
	err := r.access.write(func(st *state) error {
		if _, exists := st.orders[orderID]; !exists {
			return domain.ErrOrderNotFound
		}
		byProduct, ok := st.items[orderID]
		if !ok {
			byProduct = make(map[int64]itemRecord)
			st.items[orderID] = byProduct
		}
		rec, exists := byProduct[item.ProductID]
		if !exists {
			rec.seq = st.nextSeq()
		}
		rec.item = item
		byProduct[item.ProductID] = rec
		return nil
	})
	if err != nil {
		return domain.Item{}, err
	}
	return item, nil
}

func (r *orderRepository) FindItem(ctx context.Context, orderID string, productID int64) (domain.Item, error) {
	if err := ctx.Err(); err != nil {
		return domain.Item{}, err
	}

	var item domain.Item
	err := r.access.read(func(st *state) error {
		rec, ok := st.items[orderID][productID]
		if !ok {
			return domain.ErrItemNotFound
		}
		item = rec.item
		return nil
	})
	return item, err
}

func (r *orderRepository) ListItems(ctx context.Context, orderID string) ([]domain.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var records []itemRecord
	_ = r.access.read(func(st *state) error {
		records = make([]itemRecord, 0, len(st.items[orderID]))
		for _, rec := range st.items[orderID] {
			records = append(records, rec)
		}
		return nil
	})

	sort.Slice(records, func(i, j int) bool { return records[i].seq < records[j].seq })

	items := make([]domain.Item, 0, len(records))
	for _, rec := range records {
		items = append(items, rec.item)
	}
	return items, nil
}

func (r *orderRepository) DeleteItem(ctx context.Context, orderID string, productID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return r.access.write(func(st *state) error {
		if _, ok := st.items[orderID][productID]; !ok {
			return domain.ErrItemNotFound
		}
		delete(st.items[orderID], productID)
		return nil
	})
}

var _ domain.OrderRepository = (*orderRepository)(nil)
