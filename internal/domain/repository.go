package domain

import "context"

// OrderRepository описывает требования к хранилищу заказов и их позиций.
// Каждая пара "проверка существования + изменение" выполняется атомарно.
type OrderRepository interface {
	// FindOrder возвращает заказ без позиций или ErrOrderNotFound.
	FindOrder(ctx context.Context, orderID string) (Order, error)
	// CreateOrder сохраняет новый заказ; ErrOrderAlreadyExists, если ключ занят.
	CreateOrder(ctx context.Context, order Order) (Order, error)
	// UpdateOrder перезаписывает value/creationDate; ErrOrderNotFound, если заказа нет.
	UpdateOrder(ctx context.Context, order Order) (Order, error)
	// ListOrders возвращает все заказы без позиций.
	ListOrders(ctx context.Context) ([]Order, error)
	// DeleteOrder удаляет строку заказа; ErrOrderNotFound, если заказа нет.
	DeleteOrder(ctx context.Context, orderID string) error

	// UpsertItem вставляет позицию или обновляет quantity/price существующей.
	UpsertItem(ctx context.Context, orderID string, item Item) (Item, error)
	// FindItem возвращает позицию или ErrItemNotFound.
	FindItem(ctx context.Context, orderID string, productID int64) (Item, error)
	// ListItems возвращает позиции заказа в порядке вставки (возможно, пустой список).
	ListItems(ctx context.Context, orderID string) ([]Item, error)
	// DeleteItem удаляет позицию; ErrItemNotFound, если её нет.
	DeleteItem(ctx context.Context, orderID string, productID int64) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(ctx context.Context, msg OutboxMessage) (OutboxMessage, error)
	PullPending(ctx context.Context, limit int) ([]OutboxMessage, error)
	Stats(ctx context.Context) (OutboxStats, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string) error
}

// UnitOfWork даёт репозитории, привязанные к одной транзакции.
type UnitOfWork interface {
	Orders() OrderRepository
	Outbox() OutboxRepository
}

// Transactor выполняет fn в транзакции: nil — commit, ошибка — rollback.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, uow UnitOfWork) error) error
}

// Store — хранилище целиком: транзакции плюс репозитории вне транзакции.
type Store interface {
	Transactor
	UnitOfWork
	Ping(ctx context.Context) error
	Close() error
}
