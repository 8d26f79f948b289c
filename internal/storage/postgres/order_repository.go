package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/order-api/internal/domain"
)

const (
	opTimeout = 5 * time.Second

	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

type orderRepository struct {
	q querier
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository поверх *sql.DB или *sql.Tx.
func NewOrderRepository(q querier) domain.OrderRepository {
	return &orderRepository{q: q}
}

func (r *orderRepository) FindOrder(ctx context.Context, orderID string) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var order domain.Order
	err := r.q.QueryRowContext(ctx, `
		SELECT order_id, value, creation_date
		FROM orders
		WHERE order_id = $1
	`, orderID).Scan(&order.ID, &order.Value, &order.CreationDate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, domain.NewStoreError("select order", err)
	}

	return order, nil
}

// CreateOrder проверяет и вставляет заказ одним выражением: ON CONFLICT закрывает гонку
// двух параллельных созданий с одним ключом.
func (r *orderRepository) CreateOrder(ctx context.Context, order domain.Order) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var created domain.Order
	err := r.q.QueryRowContext(ctx, `
		INSERT INTO orders (order_id, value, creation_date)
		VALUES ($1, $2, $3)
		ON CONFLICT (order_id) DO NOTHING
		RETURNING order_id, value, creation_date
	`, order.ID, order.Value, order.CreationDate).Scan(&created.ID, &created.Value, &created.CreationDate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isUniqueViolation(err) {
			return domain.Order{}, domain.ErrOrderAlreadyExists
		}
		return domain.Order{}, domain.NewStoreError("insert order", err)
	}

	return created, nil
}

func (r *orderRepository) UpdateOrder(ctx context.Context, order domain.Order) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var updated domain.Order
	err := r.q.QueryRowContext(ctx, `
		UPDATE orders
		SET value = $2,
		    creation_date = $3
		WHERE order_id = $1
		RETURNING order_id, value, creation_date
	`, order.ID, order.Value, order.CreationDate).Scan(&updated.ID, &updated.Value, &updated.CreationDate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, domain.NewStoreError("update order", err)
	}

	return updated, nil
}

func (r *orderRepository) ListOrders(ctx context.Context) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.q.QueryContext(ctx, `
		SELECT order_id, value, creation_date
		FROM orders
		ORDER BY creation_date ASC, order_id ASC
	`)
	if err != nil {
		return nil, domain.NewStoreError("list orders", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		var order domain.Order
		if err := rows.Scan(&order.ID, &order.Value, &order.CreationDate); err != nil {
			return nil, domain.NewStoreError("scan order row", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError("iterate order rows", err)
	}

	return orders, nil
}

func (r *orderRepository) DeleteOrder(ctx context.Context, orderID string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.q.ExecContext(ctx, `DELETE FROM orders WHERE order_id = $1`, orderID)
	if err != nil {
		return domain.NewStoreError("delete order", err)
	}

	return requireAffected(res, domain.ErrOrderNotFound)
}

// UpsertItem пользуется первичным ключом (order_id, product_id): повторная запись
// обновляет quantity/price и сохраняет исходный seq, то есть порядок вставки.
func (r *orderRepository) UpsertItem(ctx context.Context, orderID string, item domain.Item) (domain.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var stored domain.Item
	err := r.q.QueryRowContext(ctx, `
		INSERT INTO order_items (order_id, product_id, quantity, price)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (order_id, product_id) DO UPDATE
		SET quantity = EXCLUDED.quantity,
		    price = EXCLUDED.price
		RETURNING order_id, product_id, quantity, price
	`, orderID, item.ProductID, item.Quantity, item.Price).Scan(
		&stored.OrderID, &stored.ProductID, &stored.Quantity, &stored.Price,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.Item{}, domain.ErrOrderNotFound
		}
		return domain.Item{}, domain.NewStoreError("upsert order item", err)
	}

	return stored, nil
}

func (r *orderRepository) FindItem(ctx context.Context, orderID string, productID int64) (domain.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var item domain.Item
	err := r.q.QueryRowContext(ctx, `
		SELECT order_id, product_id, quantity, price
		FROM order_items
		WHERE order_id = $1 AND product_id = $2
	`, orderID, productID).Scan(&item.OrderID, &item.ProductID, &item.Quantity, &item.Price)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Item{}, domain.ErrItemNotFound
		}
		return domain.Item{}, domain.NewStoreError("select order item", err)
	}

	return item, nil
}

func (r *orderRepository) ListItems(ctx context.Context, orderID string) ([]domain.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.q.QueryContext(ctx, `
		SELECT order_id, product_id, quantity, price
		FROM order_items
		WHERE order_id = $1
		ORDER BY seq ASC
	`, orderID)
	if err != nil {
		return nil, domain.NewStoreError("load order items", err)
	}
	defer rows.Close()

	items := make([]domain.Item, 0)
	for rows.Next() {
		var item domain.Item
		if err := rows.Scan(&item.OrderID, &item.ProductID, &item.Quantity, &item.Price); err != nil {
			return nil, domain.NewStoreError("scan order item", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError("iterate order items", err)
	}

	return items, nil
}

func (r *orderRepository) DeleteItem(ctx context.Context, orderID string, productID int64) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.q.ExecContext(ctx, `
		DELETE FROM order_items
		WHERE order_id = $1 AND product_id = $2
	`, orderID, productID)
	if err != nil {
		return domain.NewStoreError("delete order item", err)
	}

	return requireAffected(res, domain.ErrItemNotFound)
}

func requireAffected(res sql.Result, notFound error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.NewStoreError("rows affected", err)
	}
	if affected == 0 {
		return notFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return pgErrorCode(err) == pgUniqueViolation
}

func isForeignKeyViolation(err error) bool {
	return pgErrorCode(err) == pgForeignKeyViolation
}

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

var _ domain.OrderRepository = (*orderRepository)(nil)
